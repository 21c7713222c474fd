package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/macinv/internal/database"
)

const (
	pgUniqueViolation = "23505"
	macUniqueIndex    = "devices_mac_key"
)

// PostgresStore implements DeviceStore and AuditStore on PostgreSQL.
type PostgresStore struct {
	q *db.Queries
}

// NewPostgresStore creates a store over conn, typically a *pgxpool.Pool.
func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{q: db.New(conn)}
}

func (s *PostgresStore) CreateDevice(ctx context.Context, in DeviceInput, by Actor) (*Device, error) {
	row, err := s.q.InsertDevice(ctx, db.InsertDeviceParams{
		ID:               pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ApName:           in.ApName,
		OwnerName:        in.OwnerName,
		Mac:              in.Mac,
		DeviceType:       in.DeviceType,
		Area:             in.Area,
		LocationPoint:    in.LocationPoint,
		Brand:            in.Brand,
		Model:            in.Model,
		Serial:           in.Serial,
		Hostname:         in.Hostname,
		Notes:            in.Notes,
		RegisteredBy:     by.ID,
		RegisteredByName: by.DisplayName(),
	})
	if err != nil {
		return nil, translatePgError("insert device", err)
	}
	return deviceFromRow(row), nil
}

func (s *PostgresStore) GetDevice(ctx context.Context, id string) (*Device, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.q.GetDeviceByID(ctx, pgID)
	if err != nil {
		return nil, translatePgError("get device", err)
	}
	return deviceFromRow(row), nil
}

func (s *PostgresStore) GetDeviceByMAC(ctx context.Context, mac string) (*Device, error) {
	row, err := s.q.GetDeviceByMac(ctx, mac)
	if err != nil {
		return nil, translatePgError("get device by mac", err)
	}
	return deviceFromRow(row), nil
}

func (s *PostgresStore) ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error) {
	q := strings.TrimSpace(filter.Query)
	rows, err := s.q.ListDevices(ctx, db.ListDevicesParams{
		ApName:    strings.TrimSpace(filter.ApName),
		Search:    escapeLike(q),
		MacSearch: escapeLike(macSearchTerm(q)),
	})
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	devices := make([]Device, len(rows))
	for i, r := range rows {
		devices[i] = *deviceFromRow(r)
	}
	return devices, nil
}

func (s *PostgresStore) UpdateDevice(ctx context.Context, id string, in DeviceInput) (*Device, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.q.UpdateDevice(ctx, db.UpdateDeviceParams{
		ID:            pgID,
		ApName:        in.ApName,
		OwnerName:     in.OwnerName,
		Mac:           in.Mac,
		DeviceType:    in.DeviceType,
		Area:          in.Area,
		LocationPoint: in.LocationPoint,
		Brand:         in.Brand,
		Model:         in.Model,
		Serial:        in.Serial,
		Hostname:      in.Hostname,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, translatePgError("update device", err)
	}
	return deviceFromRow(row), nil
}

func (s *PostgresStore) DeleteDevice(ctx context.Context, id string) (*Device, error) {
	pgID, err := toPgUUID(id)
	if err != nil {
		return nil, err
	}
	row, err := s.q.DeleteDevice(ctx, pgID)
	if err != nil {
		return nil, translatePgError("delete device", err)
	}
	return deviceFromRow(row), nil
}

func (s *PostgresStore) CountDevices(ctx context.Context) (*DeviceCounts, error) {
	total, err := s.q.CountDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	bySite, err := s.q.CountDevicesBySite(ctx)
	if err != nil {
		return nil, fmt.Errorf("count devices by site: %w", err)
	}
	byType, err := s.q.CountDevicesByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count devices by type: %w", err)
	}
	byArea, err := s.q.CountDevicesByArea(ctx)
	if err != nil {
		return nil, fmt.Errorf("count devices by area: %w", err)
	}
	return &DeviceCounts{
		Total:  total,
		BySite: toKeyCounts(bySite),
		ByType: toKeyCounts(byType),
		ByArea: toKeyCounts(byArea),
	}, nil
}

// translatePgError maps missing rows to ErrNotFound and a violation of the
// MAC unique index to ErrDuplicateMAC.
func translatePgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == macUniqueIndex {
		return ErrDuplicateMAC
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toPgUUID(id string) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, ErrInvalidID
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func deviceFromRow(r db.Device) *Device {
	return &Device{
		ID:               uuidToString(r.ID),
		ApName:           r.ApName,
		OwnerName:        r.OwnerName,
		Mac:              r.Mac,
		DeviceType:       r.DeviceType,
		Area:             r.Area,
		LocationPoint:    r.LocationPoint,
		Brand:            r.Brand,
		Model:            r.Model,
		Serial:           r.Serial,
		Hostname:         r.Hostname,
		Notes:            r.Notes,
		RegisteredBy:     r.RegisteredBy,
		RegisteredByName: r.RegisteredByName,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
}

func toKeyCounts(rows []db.CountByKey) []KeyCount {
	out := make([]KeyCount, len(rows))
	for i, r := range rows {
		out[i] = KeyCount{Key: r.Key, Count: r.Count}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
