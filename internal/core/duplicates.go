package core

import (
	"context"
	"errors"
	"fmt"
)

// DuplicateResolver looks up whether a canonical MAC is already registered.
// The answer is advisory: a concurrent writer can register the MAC right
// after the check, which the store then reports as ErrDuplicateMAC.
type DuplicateResolver struct {
	store DeviceStore
}

// NewDuplicateResolver creates a resolver over store.
func NewDuplicateResolver(store DeviceStore) *DuplicateResolver {
	return &DuplicateResolver{store: store}
}

// Check returns the device holding mac, or nil when the MAC is free.
func (r *DuplicateResolver) Check(ctx context.Context, mac string) (*Device, error) {
	d, err := r.store.GetDeviceByMAC(ctx, mac)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check mac %s: %w", mac, err)
	}
	return d, nil
}

// duplicateMessage describes where a colliding MAC is registered.
func duplicateMessage(existing *Device) string {
	return fmt.Sprintf("Duplicado: ya existe en AP: %s, punto: %s", existing.ApName, existing.LocationPoint)
}

func newDuplicate(row int, mac string, existing *Device) DuplicateDevice {
	return DuplicateDevice{
		Row:     row,
		Mac:     mac,
		Message: duplicateMessage(existing),
		Existing: ExistingDevice{
			ApName:        existing.ApName,
			LocationPoint: existing.LocationPoint,
			OwnerName:     existing.OwnerName,
		},
	}
}
