package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// DeviceStore persists devices. Implementations must enforce MAC uniqueness
// themselves and report a violation as ErrDuplicateMAC; the lookup done by
// DuplicateResolver is only advisory.
//
// Lookups by id or MAC return ErrNotFound when nothing matches. Ids are
// validated by ParseDeviceID before they reach a store.
type DeviceStore interface {
	CreateDevice(ctx context.Context, in DeviceInput, by Actor) (*Device, error)
	GetDevice(ctx context.Context, id string) (*Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*Device, error)
	ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error)
	UpdateDevice(ctx context.Context, id string, in DeviceInput) (*Device, error)
	DeleteDevice(ctx context.Context, id string) (*Device, error)
	CountDevices(ctx context.Context) (*DeviceCounts, error)
}

// AuditStore is the append-only audit log.
type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry AuditEntry) error
	ListAuditLog(ctx context.Context, query AuditQuery) ([]AuditEntry, error)
	CountAuditLog(ctx context.Context, action AuditAction, search string) (int64, error)
}

// AuditQuery selects a page of audit entries, newest first.
type AuditQuery struct {
	Action AuditAction
	Search string
	Limit  int
	Offset int
}

// ParseDeviceID validates a device id and returns it in canonical form.
func ParseDeviceID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}
