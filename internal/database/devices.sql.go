package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const deviceColumns = `id, ap_name, owner_name, mac, device_type, area, location_point,
	brand, model, serial, hostname, notes, registered_by, registered_by_name,
	created_at, updated_at`

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	err := row.Scan(
		&d.ID,
		&d.ApName,
		&d.OwnerName,
		&d.Mac,
		&d.DeviceType,
		&d.Area,
		&d.LocationPoint,
		&d.Brand,
		&d.Model,
		&d.Serial,
		&d.Hostname,
		&d.Notes,
		&d.RegisteredBy,
		&d.RegisteredByName,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

const insertDevice = `INSERT INTO devices (
	id, ap_name, owner_name, mac, device_type, area, location_point,
	brand, model, serial, hostname, notes, registered_by, registered_by_name
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + deviceColumns

type InsertDeviceParams struct {
	ID               pgtype.UUID
	ApName           string
	OwnerName        string
	Mac              string
	DeviceType       string
	Area             string
	LocationPoint    string
	Brand            string
	Model            string
	Serial           string
	Hostname         string
	Notes            string
	RegisteredBy     string
	RegisteredByName string
}

func (q *Queries) InsertDevice(ctx context.Context, arg InsertDeviceParams) (Device, error) {
	row := q.db.QueryRow(ctx, insertDevice,
		arg.ID,
		arg.ApName,
		arg.OwnerName,
		arg.Mac,
		arg.DeviceType,
		arg.Area,
		arg.LocationPoint,
		arg.Brand,
		arg.Model,
		arg.Serial,
		arg.Hostname,
		arg.Notes,
		arg.RegisteredBy,
		arg.RegisteredByName,
	)
	return scanDevice(row)
}

const getDeviceByID = `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

func (q *Queries) GetDeviceByID(ctx context.Context, id pgtype.UUID) (Device, error) {
	return scanDevice(q.db.QueryRow(ctx, getDeviceByID, id))
}

const getDeviceByMac = `SELECT ` + deviceColumns + ` FROM devices WHERE mac = $1`

func (q *Queries) GetDeviceByMac(ctx context.Context, mac string) (Device, error) {
	return scanDevice(q.db.QueryRow(ctx, getDeviceByMac, mac))
}

// listDevices filters on site when $1 is non-empty and on a case-insensitive
// substring when $2/$3 are non-empty. $3 is the search text with MAC
// separators removed, compared against the MAC with colons removed.
const listDevices = `SELECT ` + deviceColumns + ` FROM devices
WHERE ($1::text = '' OR ap_name = $1)
  AND ($2::text = '' OR
       ($3::text <> '' AND replace(mac, ':', '') ILIKE '%' || $3 || '%') OR
       owner_name ILIKE '%' || $2 || '%' OR
       location_point ILIKE '%' || $2 || '%' OR
       registered_by_name ILIKE '%' || $2 || '%')
ORDER BY created_at DESC, id`

type ListDevicesParams struct {
	ApName    string
	Search    string
	MacSearch string
}

func (q *Queries) ListDevices(ctx context.Context, arg ListDevicesParams) ([]Device, error) {
	rows, err := q.db.Query(ctx, listDevices, arg.ApName, arg.Search, arg.MacSearch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateDevice = `UPDATE devices SET
	ap_name = $2,
	owner_name = $3,
	mac = $4,
	device_type = $5,
	area = $6,
	location_point = $7,
	brand = $8,
	model = $9,
	serial = $10,
	hostname = $11,
	notes = $12,
	updated_at = now()
WHERE id = $1
RETURNING ` + deviceColumns

type UpdateDeviceParams struct {
	ID            pgtype.UUID
	ApName        string
	OwnerName     string
	Mac           string
	DeviceType    string
	Area          string
	LocationPoint string
	Brand         string
	Model         string
	Serial        string
	Hostname      string
	Notes         string
}

func (q *Queries) UpdateDevice(ctx context.Context, arg UpdateDeviceParams) (Device, error) {
	row := q.db.QueryRow(ctx, updateDevice,
		arg.ID,
		arg.ApName,
		arg.OwnerName,
		arg.Mac,
		arg.DeviceType,
		arg.Area,
		arg.LocationPoint,
		arg.Brand,
		arg.Model,
		arg.Serial,
		arg.Hostname,
		arg.Notes,
	)
	return scanDevice(row)
}

const deleteDevice = `DELETE FROM devices WHERE id = $1 RETURNING ` + deviceColumns

func (q *Queries) DeleteDevice(ctx context.Context, id pgtype.UUID) (Device, error) {
	return scanDevice(q.db.QueryRow(ctx, deleteDevice, id))
}

const countDevices = `SELECT count(*) FROM devices`

func (q *Queries) CountDevices(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countDevices).Scan(&n)
	return n, err
}

const countDevicesBySite = `SELECT ap_name, count(*) FROM devices GROUP BY ap_name ORDER BY count(*) DESC`
const countDevicesByType = `SELECT device_type, count(*) FROM devices GROUP BY device_type ORDER BY count(*) DESC`
const countDevicesByArea = `SELECT area, count(*) FROM devices GROUP BY area ORDER BY count(*) DESC`

func (q *Queries) CountDevicesBySite(ctx context.Context) ([]CountByKey, error) {
	return q.countBy(ctx, countDevicesBySite)
}

func (q *Queries) CountDevicesByType(ctx context.Context) ([]CountByKey, error) {
	return q.countBy(ctx, countDevicesByType)
}

func (q *Queries) CountDevicesByArea(ctx context.Context) ([]CountByKey, error) {
	return q.countBy(ctx, countDevicesByArea)
}

func (q *Queries) countBy(ctx context.Context, query string) ([]CountByKey, error) {
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountByKey
	for rows.Next() {
		var c CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
