package core

// import.go runs a spreadsheet import through four phases:
//
//  1. PARSING: open the workbook, read the first sheet, map the header.
//     An unreadable workbook or a missing required column aborts the run
//     with a StructuralError before any row is touched.
//  2. VALIDATING: every data row goes through RowValidator. Rejected rows
//     are reported with all their violations.
//  3. PERSISTING: valid rows are grouped by MAC. Groups run in parallel on
//     a bounded errgroup; rows of one group run in file order, so a repeated
//     MAC in the same file is always reported on its later occurrence.
//  4. DONE: one IMPORT audit entry summarizes the run.
//
// Persistence never aborts the batch. A uniqueness violation at insert time
// is a duplicate outcome; any other store error fails that row only.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/macinv/internal/logging"
)

const defaultImportWorkers = 4

// Importer runs spreadsheet imports against a DeviceStore.
type Importer struct {
	store    DeviceStore
	resolver *DuplicateResolver
	recorder *AuditRecorder
	catalog  *Catalog
	workers  int
	metrics  *Metrics
}

// NewImporter creates an importer. workers bounds how many MAC groups persist
// at once; non-positive values use 4. metrics may be nil.
func NewImporter(store DeviceStore, recorder *AuditRecorder, catalog *Catalog, workers int, metrics *Metrics) *Importer {
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	return &Importer{
		store:    store,
		resolver: NewDuplicateResolver(store),
		recorder: recorder,
		catalog:  catalog,
		workers:  workers,
		metrics:  metrics,
	}
}

type rowOutcome int

const (
	outcomeInserted rowOutcome = iota
	outcomeDuplicate
	outcomeFailed
)

type rowResult struct {
	outcome   rowOutcome
	inserted  InsertedDevice
	duplicate DuplicateDevice
	failed    FailedRow
}

// Run imports the workbook in data. fallbackSite is used for rows without a
// site and may be empty when the sheet has a site column.
//
// A *StructuralError is returned together with a result holding zero counts
// and the structural message as its only failed entry. Otherwise the error
// is nil and every row is accounted for in the result.
//
// Once rows start persisting the run completes even if ctx is cancelled.
func (im *Importer) Run(ctx context.Context, data []byte, fallbackSite string) (*ImportResult, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrNoActor
	}

	start := time.Now()
	log := logging.WithFields(ctx, "fallback_site", fallbackSite, "actor", actor.ID)
	log.Info("import started", "phase", PhaseParsing, "bytes", len(data))

	rows, serr := readFirstSheet(data)
	if serr != nil {
		return im.structural(log, start, serr)
	}
	columns := MapColumns(rows[0])
	if missing := columns.Missing(fallbackSite); len(missing) > 0 {
		return im.structural(log, start, newMissingColumnsError(missing))
	}

	log.Debug("columns mapped", "phase", PhaseValidating, "columns", len(columns), "rows", len(rows)-1)
	validator := NewRowValidator(im.catalog, columns, fallbackSite)
	var valid []ImportRow
	var failed []FailedRow
	for i, raw := range rows[1:] {
		if IsBlankRow(raw) {
			continue
		}
		rowNum := i + 2
		row, errs := validator.Validate(raw, rowNum)
		if len(errs) > 0 {
			failed = append(failed, FailedRow{Row: rowNum, Errors: errs})
			continue
		}
		valid = append(valid, row)
	}

	rejected := len(failed)
	log.Debug("persisting rows", "phase", PhasePersisting, "valid", len(valid), "rejected", rejected)
	results := im.persist(context.WithoutCancel(ctx), actor, valid)

	result := &ImportResult{
		Inserted:   []InsertedDevice{},
		Duplicates: []DuplicateDevice{},
	}
	for _, r := range results {
		switch r.outcome {
		case outcomeInserted:
			result.Inserted = append(result.Inserted, r.inserted)
		case outcomeDuplicate:
			result.Duplicates = append(result.Duplicates, r.duplicate)
		case outcomeFailed:
			failed = append(failed, r.failed)
		}
	}
	slices.SortStableFunc(failed, func(a, b FailedRow) int { return a.Row - b.Row })
	if failed == nil {
		failed = []FailedRow{}
	}
	result.Failed = failed
	result.Summary = ImportSummary{
		TotalRows:   len(valid) + rejected,
		ParsedValid: len(valid),
		Inserted:    len(result.Inserted),
		Duplicates:  len(result.Duplicates),
		Failed:      len(failed),
	}

	im.recorder.recordBestEffort(context.WithoutCancel(ctx), AuditEntry{
		Action:  ActionImport,
		Entity:  EntityDevice,
		ApName:  fallbackSite,
		Message: fmt.Sprintf("Imported spreadsheet. Inserted: %d, Duplicates: %d, Failed: %d", result.Summary.Inserted, result.Summary.Duplicates, result.Summary.Failed),
		After:   SnapshotOf(map[string]any{"summary": result.Summary}),
	})

	elapsed := time.Since(start)
	im.metrics.importFinished("completed", result.Summary, elapsed)
	log.Info("import finished",
		"phase", PhaseDone,
		"total_rows", result.Summary.TotalRows,
		"inserted", result.Summary.Inserted,
		"duplicates", result.Summary.Duplicates,
		"failed", result.Summary.Failed,
		"duration", elapsed,
	)
	return result, nil
}

func (im *Importer) structural(log *slog.Logger, start time.Time, se *StructuralError) (*ImportResult, error) {
	row := 0
	if len(se.Missing) > 0 {
		row = 1
	}
	log.Warn("import rejected", "phase", PhaseParsing, "error", se.Message)
	im.metrics.importFinished("rejected", ImportSummary{}, time.Since(start))
	return &ImportResult{
		Inserted:   []InsertedDevice{},
		Duplicates: []DuplicateDevice{},
		Failed:     []FailedRow{{Row: row, Errors: []string{se.Message}}},
	}, se
}

// persist stores rows and returns one result per row, index-aligned with rows.
func (im *Importer) persist(ctx context.Context, actor Actor, rows []ImportRow) []rowResult {
	results := make([]rowResult, len(rows))

	groups := make(map[string][]int)
	var order []string
	for i, r := range rows {
		if _, ok := groups[r.Mac]; !ok {
			order = append(order, r.Mac)
		}
		groups[r.Mac] = append(groups[r.Mac], i)
	}

	var g errgroup.Group
	g.SetLimit(im.workers)
	for _, mac := range order {
		idxs := groups[mac]
		g.Go(func() error {
			for _, i := range idxs {
				results[i] = im.persistRow(ctx, actor, rows[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (im *Importer) persistRow(ctx context.Context, actor Actor, row ImportRow) rowResult {
	existing, err := im.resolver.Check(ctx, row.Mac)
	if err != nil {
		return failedResult(ctx, row, err)
	}
	if existing != nil {
		return rowResult{outcome: outcomeDuplicate, duplicate: newDuplicate(row.Row, row.Mac, existing)}
	}

	d, err := im.store.CreateDevice(ctx, row.DeviceInput, actor)
	if errors.Is(err, ErrDuplicateMAC) {
		// Lost the race to another writer after the advisory check.
		existing, cerr := im.resolver.Check(ctx, row.Mac)
		if cerr == nil && existing != nil {
			return rowResult{outcome: outcomeDuplicate, duplicate: newDuplicate(row.Row, row.Mac, existing)}
		}
	}
	if err != nil {
		return failedResult(ctx, row, err)
	}

	return rowResult{
		outcome:  outcomeInserted,
		inserted: InsertedDevice{ID: d.ID, Mac: d.Mac, ApName: d.ApName},
	}
}

func failedResult(ctx context.Context, row ImportRow, err error) rowResult {
	logging.FromContext(ctx).Warn("import row failed", "row", row.Row, "mac", row.Mac, "error", err)
	return rowResult{
		outcome: outcomeFailed,
		failed:  FailedRow{Row: row.Row, Errors: []string{FormatUserError(err)}},
	}
}

// readFirstSheet returns the rows of the first worksheet. The first row is
// the header.
func readFirstSheet(data []byte) ([][]string, *StructuralError) {
	if len(data) == 0 {
		return nil, unreadableWorkbook()
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, unreadableWorkbook()
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, unreadableWorkbook()
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 || IsBlankRow(rows[0]) {
		return nil, unreadableWorkbook()
	}
	return rows, nil
}
