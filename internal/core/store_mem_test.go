package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory DeviceStore and AuditStore for tests. It enforces
// MAC uniqueness the way the unique index does.
type memStore struct {
	mu      sync.Mutex
	devices map[string]*Device
	audit   []AuditEntry
	seq     int

	// hideMAC makes GetDeviceByMAC miss once for a MAC, simulating a writer
	// that registers the MAC between the advisory check and the insert.
	hideMAC map[string]bool
	// failMAC makes CreateDevice fail for a MAC.
	failMAC map[string]error
	// auditErr makes InsertAuditLog fail.
	auditErr error
	// createDelay slows CreateDevice to widen race windows.
	createDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		devices: make(map[string]*Device),
		hideMAC: make(map[string]bool),
		failMAC: make(map[string]error),
	}
}

func (m *memStore) seed(in DeviceInput) *Device {
	d, err := m.CreateDevice(context.Background(), in, Actor{ID: "seed", Name: "Seeder"})
	if err != nil {
		panic(err)
	}
	return d
}

func (m *memStore) CreateDevice(_ context.Context, in DeviceInput, by Actor) (*Device, error) {
	if m.createDelay > 0 {
		time.Sleep(m.createDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failMAC[in.Mac]; ok {
		return nil, err
	}
	for _, d := range m.devices {
		if d.Mac == in.Mac {
			return nil, ErrDuplicateMAC
		}
	}
	m.seq++
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Minute)
	d := &Device{
		ID:               uuid.NewString(),
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
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.devices[d.ID] = d
	cp := *d
	return &cp, nil
}

func (m *memStore) GetDevice(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) GetDeviceByMAC(_ context.Context, mac string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideMAC[mac] {
		delete(m.hideMAC, mac)
		return nil, ErrNotFound
	}
	for _, d := range m.devices {
		if d.Mac == mac {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListDevices(_ context.Context, f DeviceFilter) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	macQ := strings.ToLower(macSearchTerm(f.Query))
	out := []Device{}
	for _, d := range m.devices {
		if f.ApName != "" && d.ApName != f.ApName {
			continue
		}
		if q != "" {
			hit := (macQ != "" && strings.Contains(strings.ToLower(strings.ReplaceAll(d.Mac, ":", "")), macQ)) ||
				strings.Contains(strings.ToLower(d.OwnerName), q) ||
				strings.Contains(strings.ToLower(d.LocationPoint), q) ||
				strings.Contains(strings.ToLower(d.RegisteredByName), q)
			if !hit {
				continue
			}
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateDevice(_ context.Context, id string, in DeviceInput) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, other := range m.devices {
		if other.ID != id && other.Mac == in.Mac {
			return nil, ErrDuplicateMAC
		}
	}
	d.ApName, d.OwnerName, d.Mac = in.ApName, in.OwnerName, in.Mac
	d.DeviceType, d.Area, d.LocationPoint = in.DeviceType, in.Area, in.LocationPoint
	d.Brand, d.Model, d.Serial, d.Hostname, d.Notes = in.Brand, in.Model, in.Serial, in.Hostname, in.Notes
	d.UpdatedAt = d.UpdatedAt.Add(time.Hour)
	cp := *d
	return &cp, nil
}

func (m *memStore) DeleteDevice(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.devices, id)
	return d, nil
}

func (m *memStore) CountDevices(_ context.Context) (*DeviceCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group := func(key func(*Device) string) []KeyCount {
		counts := map[string]int64{}
		for _, d := range m.devices {
			counts[key(d)]++
		}
		var out []KeyCount
		for k, n := range counts {
			out = append(out, KeyCount{Key: k, Count: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out
	}
	return &DeviceCounts{
		Total:  int64(len(m.devices)),
		BySite: group(func(d *Device) string { return d.ApName }),
		ByType: group(func(d *Device) string { return d.DeviceType }),
		ByArea: group(func(d *Device) string { return d.Area }),
	}, nil
}

func (m *memStore) InsertAuditLog(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) filteredAudit(action AuditAction, search string) []AuditEntry {
	search = strings.ToLower(search)
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if action != "" && e.Action != action {
			continue
		}
		if search != "" {
			fields := []string{e.Message, e.UserName, e.Role, e.IPAddress, e.ApName, e.Mac}
			if !strings.Contains(strings.ToLower(strings.Join(fields, "\x00")), search) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func (m *memStore) ListAuditLog(_ context.Context, q AuditQuery) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filteredAudit(q.Action, q.Search)
	if q.Offset >= len(all) {
		return []AuditEntry{}, nil
	}
	end := min(q.Offset+q.Limit, len(all))
	return all[q.Offset:end], nil
}

func (m *memStore) CountAuditLog(_ context.Context, action AuditAction, search string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filteredAudit(action, search))), nil
}

func (m *memStore) auditEntries() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.audit...)
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}

var errStoreDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")

func testCatalog() *Catalog {
	c, err := NewCatalog([]string{"Site A", "Site B", "Bonanza 1"}, []string{"CONTROL", "SEGURIDAD", "MONITOREO"}, "")
	if err != nil {
		panic(err)
	}
	return c
}

func testActorContext() context.Context {
	ctx := ContextWithActor(context.Background(), Actor{ID: "u-1", Name: "Ana Operator", Role: "OPERATOR"})
	ctx = ContextWithIPAddress(ctx, "192.0.2.10")
	return ContextWithUserAgent(ctx, "test-agent")
}

func validInput(mac string) DeviceInput {
	return DeviceInput{
		ApName:        "Site A",
		OwnerName:     "Jane Doe",
		Mac:           mac,
		DeviceType:    "LAPTOP",
		Area:          "CONTROL",
		LocationPoint: "Desk 3",
	}
}
