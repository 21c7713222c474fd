package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"
)

var importHeader = []string{"Sitio", "Dueño", "MAC", "Tipo", "Área", "Punto"}

// buildWorkbook writes rows to the first sheet of a new workbook.
func buildWorkbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cells := make([]any, len(r))
		for j, v := range r {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &cells); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestImporter(store *memStore, workers int) *Importer {
	return NewImporter(store, NewAuditRecorder(store, nil), testCatalog(), workers, nil)
}

func assertSummaryIdentities(t *testing.T, s ImportSummary) {
	t.Helper()
	if s.Inserted+s.Duplicates > s.ParsedValid {
		t.Errorf("inserted+duplicates (%d) exceeds parsedValid (%d)", s.Inserted+s.Duplicates, s.ParsedValid)
	}
	if s.ParsedValid > s.TotalRows {
		t.Errorf("parsedValid (%d) exceeds totalRows (%d)", s.ParsedValid, s.TotalRows)
	}
	if s.Inserted+s.Duplicates+s.Failed != s.TotalRows {
		t.Errorf("inserted+duplicates+failed = %d, want totalRows %d", s.Inserted+s.Duplicates+s.Failed, s.TotalRows)
	}
}

func TestImport_ConcreteRow(t *testing.T) {
	store := newMemStore()
	im := newTestImporter(store, 2)

	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Jane Doe", "aa-bb-cc-dd-ee-ff", "laptop", "control", "Desk 3"})

	res, err := im.Run(testActorContext(), data, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := ImportSummary{TotalRows: 1, ParsedValid: 1, Inserted: 1}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	if len(res.Inserted) != 1 || res.Inserted[0].Mac != "AA:BB:CC:DD:EE:FF" || res.Inserted[0].ApName != "Site A" {
		t.Fatalf("Inserted = %+v", res.Inserted)
	}

	d, err := store.GetDeviceByMAC(context.Background(), "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("device not stored: %v", err)
	}
	if d.RegisteredBy != "u-1" || d.RegisteredByName != "Ana Operator" {
		t.Errorf("registrant = %q/%q", d.RegisteredBy, d.RegisteredByName)
	}
	if d.DeviceType != DeviceLaptop || d.Area != "CONTROL" || d.LocationPoint != "Desk 3" {
		t.Errorf("stored device = %+v", d)
	}
}

func TestImport_MissingMACColumn(t *testing.T) {
	store := newMemStore()
	im := newTestImporter(store, 2)

	data := buildWorkbook(t,
		[]string{"Sitio", "Dueño", "Tipo", "Área", "Punto"},
		[]string{"Site A", "Jane", "PC", "CONTROL", "Desk"})

	res, err := im.Run(testActorContext(), data, "")

	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *StructuralError", err)
	}
	if len(se.Missing) != 1 || se.Missing[0] != FieldMAC {
		t.Errorf("Missing = %v, want [mac]", se.Missing)
	}
	if !strings.Contains(se.Error(), "mac") {
		t.Errorf("message %q should name the mac column", se.Error())
	}
	if res.Summary != (ImportSummary{}) {
		t.Errorf("Summary = %+v, want zero counts", res.Summary)
	}
	if len(res.Failed) != 1 || res.Failed[0].Row != 1 {
		t.Errorf("Failed = %+v, want one header entry", res.Failed)
	}
	if store.count() != 0 {
		t.Errorf("stored %d devices, want 0", store.count())
	}
	if n := len(store.auditEntries()); n != 0 {
		t.Errorf("wrote %d audit entries for a rejected file", n)
	}
}

func TestImport_SiteColumnOptionalWithFallback(t *testing.T) {
	store := newMemStore()
	im := newTestImporter(store, 2)

	data := buildWorkbook(t,
		[]string{"Dueño", "MAC", "Tipo", "Área", "Punto"},
		[]string{"Jane", "001122334455", "PC", "CONTROL", "Desk"})

	if _, err := im.Run(testActorContext(), data, ""); err == nil {
		t.Fatal("expected a structural error without a site column or fallback")
	}

	res, err := im.Run(testActorContext(), data, "Site B")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Inserted != 1 || res.Inserted[0].ApName != "Site B" {
		t.Errorf("result = %+v", res)
	}
}

func TestImport_UnreadableWorkbook(t *testing.T) {
	im := newTestImporter(newMemStore(), 2)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not a spreadsheet")},
		{"no header", buildWorkbook(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := im.Run(testActorContext(), tt.data, "Site A")
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("Run() error = %v, want *StructuralError", err)
			}
			if len(se.Missing) != 0 {
				t.Errorf("Missing = %v, want none", se.Missing)
			}
			if len(res.Failed) != 1 || res.Failed[0].Row != 0 {
				t.Errorf("Failed = %+v", res.Failed)
			}
		})
	}
}

func TestImport_RequiresActor(t *testing.T) {
	im := newTestImporter(newMemStore(), 2)
	data := buildWorkbook(t, importHeader)

	if _, err := im.Run(context.Background(), data, ""); !errors.Is(err, ErrNoActor) {
		t.Errorf("Run() error = %v, want ErrNoActor", err)
	}
}

func TestImport_Outcomes(t *testing.T) {
	store := newMemStore()
	store.seed(DeviceInput{ApName: "Site B", OwnerName: "Bob", Mac: "11:11:11:11:11:11",
		DeviceType: "PC", Area: "SEGURIDAD", LocationPoint: "Garita"})
	store.failMAC["44:44:44:44:44:44"] = errStoreDown

	im := newTestImporter(store, 4)
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "22:22:22:22:22:22", "PC", "CONTROL", "P1"},       // row 2 inserted
		[]string{"Site A", "Ana", "111111111111", "MOVIL", "CONTROL", "P2"},         // row 3 duplicate (existing)
		[]string{"Site A", "", "not-a-mac", "TV", "CONTROL", "P3"},                  // row 4 invalid
		[]string{"", "", "", "", "", ""},                                            // row 5 blank
		[]string{"Site A", "Ana", "22-22-22-22-22-22", "PC", "CONTROL", "P5"},       // row 6 duplicate (same file)
		[]string{"Site A", "Ana", "44:44:44:44:44:44", "LAPTOP", "CONTROL", "P6"},   // row 7 store failure
		[]string{"Site A", "Ana", "33:33:33:33:33:33", "LAPTOP", "MONITOREO", "P7"}, // row 8 inserted
	)

	res, err := im.Run(testActorContext(), data, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := ImportSummary{TotalRows: 6, ParsedValid: 5, Inserted: 2, Duplicates: 2, Failed: 2}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	assertSummaryIdentities(t, res.Summary)

	if len(res.Inserted) != 2 || res.Inserted[0].Mac != "22:22:22:22:22:22" || res.Inserted[1].Mac != "33:33:33:33:33:33" {
		t.Errorf("Inserted = %+v", res.Inserted)
	}

	if len(res.Duplicates) != 2 {
		t.Fatalf("Duplicates = %+v", res.Duplicates)
	}
	existing := res.Duplicates[0]
	if existing.Row != 3 || existing.Existing.ApName != "Site B" || existing.Existing.LocationPoint != "Garita" || existing.Existing.OwnerName != "Bob" {
		t.Errorf("existing duplicate = %+v", existing)
	}
	if existing.Message != "Duplicado: ya existe en AP: Site B, punto: Garita" {
		t.Errorf("duplicate message = %q", existing.Message)
	}
	inFile := res.Duplicates[1]
	if inFile.Row != 6 || inFile.Existing.LocationPoint != "P1" {
		t.Errorf("in-file duplicate = %+v", inFile)
	}

	if len(res.Failed) != 2 {
		t.Fatalf("Failed = %+v", res.Failed)
	}
	if res.Failed[0].Row != 4 || len(res.Failed[0].Errors) != 3 {
		t.Errorf("validation failure = %+v", res.Failed[0])
	}
	if res.Failed[1].Row != 7 || !strings.Contains(res.Failed[1].Errors[0], "DB004") {
		t.Errorf("persistence failure = %+v", res.Failed[1])
	}

	if store.count() != 3 {
		t.Errorf("store holds %d devices, want 3", store.count())
	}
}

func TestImport_LostRaceIsDuplicate(t *testing.T) {
	store := newMemStore()
	store.seed(validInput("AA:AA:AA:AA:AA:AA"))
	store.hideMAC["AA:AA:AA:AA:AA:AA"] = true

	im := newTestImporter(store, 2)
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "aaaaaaaaaaaa", "PC", "CONTROL", "P1"})

	res, err := im.Run(testActorContext(), data, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Duplicates != 1 || res.Summary.Failed != 0 {
		t.Fatalf("Summary = %+v, want one duplicate", res.Summary)
	}
	if res.Duplicates[0].Existing.LocationPoint != "Desk 3" {
		t.Errorf("duplicate should carry the winning record, got %+v", res.Duplicates[0].Existing)
	}
}

func TestImport_RepeatedMACKeepsFirstOccurrence(t *testing.T) {
	store := newMemStore()
	store.createDelay = time.Millisecond

	rows := [][]string{importHeader}
	for i := range 20 {
		mac := fmt.Sprintf("00:00:00:00:00:%02X", i%5)
		rows = append(rows, []string{"Site A", "Ana", mac, "PC", "CONTROL", fmt.Sprintf("P%d", i)})
	}

	res, err := newTestImporter(store, 8).Run(testActorContext(), buildWorkbook(t, rows...), "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Inserted != 5 || res.Summary.Duplicates != 15 {
		t.Fatalf("Summary = %+v", res.Summary)
	}
	assertSummaryIdentities(t, res.Summary)

	for i, ins := range res.Inserted {
		if want := fmt.Sprintf("00:00:00:00:00:%02X", i); ins.Mac != want {
			t.Errorf("Inserted[%d].Mac = %s, want %s", i, ins.Mac, want)
		}
	}
	prev := 0
	for _, d := range res.Duplicates {
		if d.Row <= prev {
			t.Errorf("duplicates not in file order: row %d after %d", d.Row, prev)
		}
		if d.Row < 7 {
			t.Errorf("row %d holds a first occurrence but was reported duplicate", d.Row)
		}
		prev = d.Row
	}
}

func TestImport_ConcurrentRunsSameMAC(t *testing.T) {
	store := newMemStore()
	store.createDelay = 2 * time.Millisecond
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "DE:AD:BE:EF:00:01", "PC", "CONTROL", "P1"})

	const runs = 6
	results := make(chan *ImportResult, runs)
	for range runs {
		go func() {
			res, err := newTestImporter(store, 2).Run(testActorContext(), data, "")
			if err != nil {
				t.Error(err)
			}
			results <- res
		}()
	}

	inserted, duplicates := 0, 0
	for range runs {
		res := <-results
		if res == nil {
			continue
		}
		inserted += res.Summary.Inserted
		duplicates += res.Summary.Duplicates
	}
	if inserted != 1 || duplicates != runs-1 {
		t.Errorf("inserted=%d duplicates=%d, want 1 and %d", inserted, duplicates, runs-1)
	}
	if store.count() != 1 {
		t.Errorf("store holds %d devices, want 1", store.count())
	}
}

func TestImport_AuditEntry(t *testing.T) {
	store := newMemStore()
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P1"},
		[]string{"Site A", "Ana", "bad", "PC", "CONTROL", "P2"})

	if _, err := newTestImporter(store, 2).Run(testActorContext(), data, "Site A"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries := store.auditEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != ActionImport || e.Entity != EntityDevice {
		t.Errorf("entry = %s/%s", e.Action, e.Entity)
	}
	if e.UserID != "u-1" || e.UserName != "Ana Operator" || e.IPAddress != "192.0.2.10" || e.UserAgent != "test-agent" {
		t.Errorf("actor fields = %+v", e)
	}
	if e.Message != "Imported spreadsheet. Inserted: 1, Duplicates: 0, Failed: 1" {
		t.Errorf("Message = %q", e.Message)
	}

	var after struct {
		Summary ImportSummary `json:"summary"`
	}
	if err := e.After.Decode(&after); err != nil {
		t.Fatalf("decode after: %v", err)
	}
	if after.Summary.TotalRows != 2 || after.Summary.Inserted != 1 {
		t.Errorf("after summary = %+v", after.Summary)
	}
	if !e.Before.IsNull() {
		t.Errorf("Before = %s, want null", e.Before)
	}
}

func TestImport_AuditFailureDoesNotFailImport(t *testing.T) {
	store := newMemStore()
	store.auditErr = errStoreDown
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P1"})

	res, err := newTestImporter(store, 2).Run(testActorContext(), data, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Inserted != 1 {
		t.Errorf("Summary = %+v", res.Summary)
	}
}

func TestImport_CancelledContextStillCompletes(t *testing.T) {
	store := newMemStore()
	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P1"})

	ctx, cancel := context.WithCancel(testActorContext())
	cancel()

	res, err := newTestImporter(store, 2).Run(ctx, data, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Inserted != 1 || len(store.auditEntries()) != 1 {
		t.Errorf("cancelled import did not complete: %+v", res.Summary)
	}
}

func TestImport_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := newMemStore()
	im := NewImporter(store, NewAuditRecorder(store, m), testCatalog(), 2, m)

	data := buildWorkbook(t, importHeader,
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P1"},
		[]string{"Site A", "Ana", "00:11:22:33:44:55", "PC", "CONTROL", "P2"})
	if _, err := im.Run(testActorContext(), data, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := im.Run(testActorContext(), []byte("nope"), ""); err == nil {
		t.Fatal("expected structural error")
	}

	if got := testutil.ToFloat64(m.importsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed imports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.importsTotal.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected imports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.importRows.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate rows = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.auditWrites.WithLabelValues(string(ActionImport))); got != 1 {
		t.Errorf("import audit writes = %v, want 1", got)
	}
}
