package web

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/macinv/internal/core"
)

// fakeStore is a minimal in-memory DeviceStore and AuditStore.
type fakeStore struct {
	mu      sync.Mutex
	devices []*core.Device
	audit   []core.AuditEntry
}

func (f *fakeStore) CreateDevice(_ context.Context, in core.DeviceInput, by core.Actor) (*core.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.Mac == in.Mac {
			return nil, core.ErrDuplicateMAC
		}
	}
	now := time.Now().UTC()
	d := &core.Device{
		ID: uuid.NewString(), ApName: in.ApName, OwnerName: in.OwnerName, Mac: in.Mac,
		DeviceType: in.DeviceType, Area: in.Area, LocationPoint: in.LocationPoint,
		Brand: in.Brand, Model: in.Model, Serial: in.Serial, Hostname: in.Hostname, Notes: in.Notes,
		RegisteredBy: by.ID, RegisteredByName: by.DisplayName(), CreatedAt: now, UpdatedAt: now,
	}
	f.devices = append(f.devices, d)
	cp := *d
	return &cp, nil
}

func (f *fakeStore) find(match func(*core.Device) bool) (*core.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if match(d) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) GetDevice(_ context.Context, id string) (*core.Device, error) {
	return f.find(func(d *core.Device) bool { return d.ID == id })
}

func (f *fakeStore) GetDeviceByMAC(_ context.Context, mac string) (*core.Device, error) {
	return f.find(func(d *core.Device) bool { return d.Mac == mac })
}

func (f *fakeStore) ListDevices(_ context.Context, filter core.DeviceFilter) ([]core.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.Device{}
	for i := len(f.devices) - 1; i >= 0; i-- {
		d := f.devices[i]
		if filter.ApName != "" && d.ApName != filter.ApName {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(d.OwnerName+" "+d.Mac), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) UpdateDevice(_ context.Context, id string, in core.DeviceInput) (*core.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == id {
			d.ApName, d.OwnerName, d.Mac, d.DeviceType, d.Area, d.LocationPoint = in.ApName, in.OwnerName, in.Mac, in.DeviceType, in.Area, in.LocationPoint
			d.UpdatedAt = time.Now().UTC()
			cp := *d
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) DeleteDevice(_ context.Context, id string) (*core.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.devices {
		if d.ID == id {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return d, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) CountDevices(_ context.Context) (*core.DeviceCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bySite := map[string]int64{}
	for _, d := range f.devices {
		bySite[d.ApName]++
	}
	counts := &core.DeviceCounts{Total: int64(len(f.devices))}
	for k, n := range bySite {
		counts.BySite = append(counts.BySite, core.KeyCount{Key: k, Count: n})
	}
	return counts, nil
}

func (f *fakeStore) InsertAuditLog(_ context.Context, e core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, e)
	return nil
}

func (f *fakeStore) ListAuditLog(_ context.Context, q core.AuditQuery) ([]core.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.AuditEntry{}
	for i := len(f.audit) - 1; i >= 0; i-- {
		if q.Action != "" && f.audit[i].Action != q.Action {
			continue
		}
		out = append(out, f.audit[i])
	}
	if q.Offset >= len(out) {
		return []core.AuditEntry{}, nil
	}
	return out[q.Offset:min(q.Offset+q.Limit, len(out))], nil
}

func (f *fakeStore) CountAuditLog(_ context.Context, action core.AuditAction, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.audit {
		if action == "" || e.Action == action {
			n++
		}
	}
	return n, nil
}
