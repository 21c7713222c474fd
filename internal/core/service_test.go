package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestService(t *testing.T, store *memStore, mutate ...func(*ServiceConfig)) *Service {
	t.Helper()
	cfg := ServiceConfig{
		Devices:              store,
		Audit:                store,
		Catalog:              testCatalog(),
		ImportWorkers:        2,
		MaxConcurrentImports: 2,
		ImportWait:           50 * time.Millisecond,
		Location:             time.UTC,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestNewService_Validation(t *testing.T) {
	store := newMemStore()
	tests := []struct {
		name string
		cfg  ServiceConfig
	}{
		{"no stores", ServiceConfig{Catalog: testCatalog()}},
		{"no catalog", ServiceConfig{Devices: store, Audit: store}},
		{"invalid catalog", ServiceConfig{Devices: store, Audit: store, Catalog: &Catalog{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestService_CreateDevice(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := testActorContext()

	d, err := svc.CreateDevice(ctx, DeviceInput{
		ApName: "Site A", OwnerName: " Jane ", Mac: "aa-bb-cc-dd-ee-ff",
		DeviceType: "movil", Area: "seguridad", LocationPoint: "Lobby",
	})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.Mac != "AA:BB:CC:DD:EE:FF" || d.OwnerName != "Jane" || d.DeviceType != DeviceMobile || d.Area != "SEGURIDAD" {
		t.Errorf("device not normalized: %+v", d)
	}
	if d.RegisteredBy != "u-1" || d.RegisteredByName != "Ana Operator" {
		t.Errorf("registrant = %q/%q", d.RegisteredBy, d.RegisteredByName)
	}

	entries := store.auditEntries()
	if len(entries) != 1 || entries[0].Action != ActionCreate || entries[0].EntityID != d.ID || entries[0].Mac != d.Mac {
		t.Fatalf("audit = %+v", entries)
	}
	if !entries[0].Before.IsNull() || entries[0].After.IsNull() {
		t.Errorf("create snapshots: before=%s after=%s", entries[0].Before, entries[0].After)
	}
}

func TestService_CreateDeviceErrors(t *testing.T) {
	store := newMemStore()
	existing := store.seed(validInput("AA:BB:CC:DD:EE:FF"))
	svc := newTestService(t, store)

	_, err := svc.CreateDevice(context.Background(), validInput("00:11:22:33:44:55"))
	if !errors.Is(err, ErrNoActor) {
		t.Errorf("without actor: error = %v, want ErrNoActor", err)
	}

	_, err = svc.CreateDevice(testActorContext(), DeviceInput{Mac: "zz"})
	var invalid *InvalidDeviceError
	if !errors.As(err, &invalid) || len(invalid.Errors) != 6 {
		t.Errorf("invalid input: error = %v", err)
	}

	_, err = svc.CreateDevice(testActorContext(), validInput("aabbccddeeff"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("duplicate MAC: error = %v, want *ConflictError", err)
	}
	if conflict.Existing.ID != existing.ID || conflict.Mac != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("conflict = %+v", conflict)
	}

	if store.count() != 1 || len(store.auditEntries()) != 0 {
		t.Errorf("failed creates left %d devices and %d audit entries", store.count(), len(store.auditEntries()))
	}
}

func TestService_CreateDeviceLostRace(t *testing.T) {
	store := newMemStore()
	existing := store.seed(validInput("AA:BB:CC:DD:EE:FF"))
	store.hideMAC["AA:BB:CC:DD:EE:FF"] = true
	svc := newTestService(t, store)

	_, err := svc.CreateDevice(testActorContext(), validInput("AA:BB:CC:DD:EE:FF"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Existing.ID != existing.ID {
		t.Errorf("error = %v, want conflict with the winning device", err)
	}
}

func TestService_CreateDeviceStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failMAC["AA:BB:CC:DD:EE:FF"] = errStoreDown
	svc := newTestService(t, store)

	_, err := svc.CreateDevice(testActorContext(), validInput("AA:BB:CC:DD:EE:FF"))
	if !errors.Is(err, errStoreDown) {
		t.Errorf("error = %v, want store error", err)
	}
}

func TestService_AuditFailureKeepsMutation(t *testing.T) {
	store := newMemStore()
	store.auditErr = errStoreDown
	svc := newTestService(t, store)

	d, err := svc.CreateDevice(testActorContext(), validInput("AA:BB:CC:DD:EE:FF"))
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if _, err := svc.GetDevice(context.Background(), d.ID); err != nil {
		t.Errorf("device not persisted: %v", err)
	}
}

func TestService_UpdateDevice(t *testing.T) {
	store := newMemStore()
	d := store.seed(validInput("AA:BB:CC:DD:EE:FF"))
	other := store.seed(DeviceInput{ApName: "Site B", OwnerName: "Bob", Mac: "11:11:11:11:11:11",
		DeviceType: "PC", Area: "CONTROL", LocationPoint: "Garita"})
	svc := newTestService(t, store)
	ctx := testActorContext()

	in := d.Input()
	in.LocationPoint = "Desk 9"
	updated, err := svc.UpdateDevice(ctx, d.ID, in)
	if err != nil {
		t.Fatalf("UpdateDevice() same MAC error = %v", err)
	}
	if updated.LocationPoint != "Desk 9" {
		t.Errorf("LocationPoint = %q", updated.LocationPoint)
	}

	in.Mac = "22-22-22-22-22-22"
	updated, err = svc.UpdateDevice(ctx, d.ID, in)
	if err != nil {
		t.Fatalf("UpdateDevice() new MAC error = %v", err)
	}
	if updated.Mac != "22:22:22:22:22:22" {
		t.Errorf("Mac = %q", updated.Mac)
	}

	in.Mac = other.Mac
	_, err = svc.UpdateDevice(ctx, d.ID, in)
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Existing.ID != other.ID {
		t.Errorf("MAC taken: error = %v, want conflict with %s", err, other.ID)
	}

	entries := store.auditEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d audit entries, want 2", len(entries))
	}
	var before, after DeviceInput
	if err := entries[1].Before.Decode(&before); err != nil {
		t.Fatal(err)
	}
	if err := entries[1].After.Decode(&after); err != nil {
		t.Fatal(err)
	}
	if entries[1].Action != ActionUpdate || before.Mac != "AA:BB:CC:DD:EE:FF" || after.Mac != "22:22:22:22:22:22" {
		t.Errorf("update audit = %s before=%+v after=%+v", entries[1].Action, before, after)
	}
}

func TestService_UpdateDeviceErrors(t *testing.T) {
	store := newMemStore()
	d := store.seed(validInput("AA:BB:CC:DD:EE:FF"))
	svc := newTestService(t, store)

	tests := []struct {
		name   string
		ctx    context.Context
		id     string
		in     DeviceInput
		target error
	}{
		{"bad id", testActorContext(), "not-a-uuid", validInput("AA:BB:CC:DD:EE:FF"), ErrInvalidID},
		{"no actor", context.Background(), d.ID, validInput("AA:BB:CC:DD:EE:FF"), ErrNoActor},
		{"missing device", testActorContext(), uuid.NewString(), validInput("AA:BB:CC:DD:EE:FF"), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateDevice(tt.ctx, tt.id, tt.in); !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}

	_, err := svc.UpdateDevice(testActorContext(), d.ID, DeviceInput{})
	var invalid *InvalidDeviceError
	if !errors.As(err, &invalid) {
		t.Errorf("empty input: error = %v", err)
	}
}

func TestService_DeleteDevice(t *testing.T) {
	store := newMemStore()
	d := store.seed(validInput("AA:BB:CC:DD:EE:FF"))
	svc := newTestService(t, store)

	if _, err := svc.DeleteDevice(context.Background(), d.ID); !errors.Is(err, ErrNoActor) {
		t.Errorf("without actor: error = %v", err)
	}

	deleted, err := svc.DeleteDevice(testActorContext(), strings.ToUpper(d.ID))
	if err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if deleted.Mac != d.Mac || store.count() != 0 {
		t.Errorf("deleted = %+v, remaining %d", deleted, store.count())
	}
	if _, err := svc.DeleteDevice(testActorContext(), d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}

	entries := store.auditEntries()
	if len(entries) != 1 || entries[0].Action != ActionDelete || entries[0].Before.IsNull() || !entries[0].After.IsNull() {
		t.Errorf("delete audit = %+v", entries)
	}
}

func TestService_ListDevices(t *testing.T) {
	store := newMemStore()
	store.seed(validInput("AA:BB:CC:DD:EE:01"))
	b := validInput("AA:BB:CC:DD:EE:02")
	b.ApName = "Site B"
	b.OwnerName = "Carlos"
	store.seed(b)
	svc := newTestService(t, store)

	tests := []struct {
		name   string
		filter DeviceFilter
		want   int
	}{
		{"all", DeviceFilter{}, 2},
		{"by site", DeviceFilter{ApName: "Site B"}, 1},
		{"mac with dashes", DeviceFilter{Query: "ee-02"}, 1},
		{"owner", DeviceFilter{Query: "carlos"}, 1},
		{"no match", DeviceFilter{Query: "zzz"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListDevices(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d devices, want %d", len(got), tt.want)
			}
		})
	}
}

func TestService_ImportDevices(t *testing.T) {
	store := newMemStore()
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P1"})

	t.Run("too large", func(t *testing.T) {
		svc := newTestService(t, store, func(c *ServiceConfig) { c.MaxFileSize = 10 })
		if _, err := svc.ImportDevices(testActorContext(), data, ""); !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("error = %v, want ErrFileTooLarge", err)
		}
	})

	t.Run("no actor", func(t *testing.T) {
		svc := newTestService(t, store)
		if _, err := svc.ImportDevices(context.Background(), data, ""); !errors.Is(err, ErrNoActor) {
			t.Errorf("error = %v, want ErrNoActor", err)
		}
	})

	t.Run("no free slot", func(t *testing.T) {
		svc := newTestService(t, store, func(c *ServiceConfig) { c.MaxConcurrentImports = 1 })
		if err := svc.limiter.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer svc.limiter.Release()

		if _, err := svc.ImportDevices(testActorContext(), data, ""); !errors.Is(err, ErrTooManyImports) {
			t.Errorf("error = %v, want ErrTooManyImports", err)
		}
		if st := svc.ImportStatus(); st.Active != 1 || st.Available != 0 || st.MaxConcurrent != 1 {
			t.Errorf("status = %+v", st)
		}
	})

	t.Run("imports", func(t *testing.T) {
		svc := newTestService(t, store)
		res, err := svc.ImportDevices(testActorContext(), data, " Site A ")
		if err != nil {
			t.Fatalf("ImportDevices() error = %v", err)
		}
		if res.Summary.Inserted != 1 {
			t.Errorf("Summary = %+v", res.Summary)
		}
		if svc.ImportStatus().Active != 0 {
			t.Error("slot not released")
		}
		if err := svc.Drain(context.Background()); err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	})
}

func TestService_ExportAndTemplate(t *testing.T) {
	store := newMemStore()
	store.seed(validInput("AA:BB:CC:DD:EE:01"))
	b := validInput("AA:BB:CC:DD:EE:02")
	b.ApName = "Site B"
	store.seed(b)
	svc := newTestService(t, store)
	svc.now = func() time.Time { return time.UnixMilli(42) }

	data, name, err := svc.ExportDevices(context.Background(), "Site B")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Inventario_MAC_Site_B_42.xlsx" {
		t.Errorf("name = %q", name)
	}
	rows, err := readWorkbook(t, data).GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "Site B" {
		t.Errorf("export rows = %v", rows)
	}

	data, name, err = svc.Template("Site B")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Plantilla_Import_MAC_Site_B.xlsx" || len(data) == 0 {
		t.Errorf("template name = %q, %d bytes", name, len(data))
	}
}

func TestService_Dashboard(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := testActorContext()

	empty, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || len(empty.ByAp) != 3 || empty.ByType == nil || empty.Recent == nil {
		t.Errorf("empty dashboard = %+v", empty)
	}

	for _, mac := range []string{"AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02"} {
		if _, err := svc.CreateDevice(ctx, validInput(mac)); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d", stats.Total)
	}
	wantAp := []SiteCount{{"Site A", 2}, {"Site B", 0}, {"Bonanza 1", 0}}
	for i, w := range wantAp {
		if stats.ByAp[i] != w {
			t.Errorf("ByAp[%d] = %+v, want %+v", i, stats.ByAp[i], w)
		}
	}
	if len(stats.ByType) != 1 || stats.ByType[0] != (KeyCount{Key: "LAPTOP", Count: 2}) {
		t.Errorf("ByType = %+v", stats.ByType)
	}
	if len(stats.Recent) != 2 || stats.Recent[0].Mac != "AA:BB:CC:DD:EE:02" {
		t.Errorf("Recent = %+v", stats.Recent)
	}
}

func TestService_MutationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := newMemStore()
	svc := newTestService(t, store, func(c *ServiceConfig) { c.Metrics = m })
	ctx := testActorContext()

	if _, err := svc.CreateDevice(ctx, validInput("AA:BB:CC:DD:EE:FF")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDevice(ctx, validInput("AA:BB:CC:DD:EE:FF")); err == nil {
		t.Fatal("expected conflict")
	}

	if got := testutil.ToFloat64(m.devicesMutated.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("create ok = %v", got)
	}
	if got := testutil.ToFloat64(m.devicesMutated.WithLabelValues("create", "conflict")); got != 1 {
		t.Errorf("create conflict = %v", got)
	}
	if got := testutil.ToFloat64(m.auditWrites.WithLabelValues("CREATE")); got != 1 {
		t.Errorf("audit writes = %v", got)
	}
}
