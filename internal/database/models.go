package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Device struct {
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
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

type AuditLog struct {
	ID          pgtype.UUID
	Action      string
	Entity      string
	EntityID    pgtype.UUID
	Message     string
	UserID      string
	UserName    string
	Role        string
	IpAddress   string
	UserAgent   string
	ApName      string
	Mac         string
	BeforeState []byte
	AfterState  []byte
	CreatedAt   pgtype.Timestamptz
}

type CountByKey struct {
	Key   string
	Count int64
}
