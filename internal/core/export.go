package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet      = "Inventario MAC"
	exportDateLayout = "02/01/2006 15:04"
	headerFillColor  = "102A43"
)

// exportColumns is the fixed export layout.
var exportColumns = []struct {
	header string
	width  float64
	value  func(d *Device, loc *time.Location) string
}{
	{"AP", 18, func(d *Device, _ *time.Location) string { return d.ApName }},
	{"DUEÑO", 26, func(d *Device, _ *time.Location) string { return d.OwnerName }},
	{"MAC", 20, func(d *Device, _ *time.Location) string { return d.Mac }},
	{"TIPO", 12, func(d *Device, _ *time.Location) string { return d.DeviceType }},
	{"ÁREA", 14, func(d *Device, _ *time.Location) string { return d.Area }},
	{"PUNTO", 26, func(d *Device, _ *time.Location) string { return d.LocationPoint }},
	{"REGISTRADO POR", 22, func(d *Device, _ *time.Location) string { return d.RegisteredByName }},
	{"FECHA REGISTRO", 18, func(d *Device, loc *time.Location) string { return formatExportTime(d.CreatedAt, loc) }},
	{"ÚLTIMA ACT.", 18, func(d *Device, loc *time.Location) string { return formatExportTime(d.UpdatedAt, loc) }},
	{"MARCA", 16, func(d *Device, _ *time.Location) string { return d.Brand }},
	{"MODELO", 18, func(d *Device, _ *time.Location) string { return d.Model }},
	{"SERIAL", 18, func(d *Device, _ *time.Location) string { return d.Serial }},
	{"HOSTNAME", 18, func(d *Device, _ *time.Location) string { return d.Hostname }},
	{"NOTAS", 30, func(d *Device, _ *time.Location) string { return d.Notes }},
}

// ExportDevices renders devices as a one-sheet workbook with a header row
// and one row per device, in the given order. Dates render in loc (local
// time when nil).
func ExportDevices(devices []Device, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	headers := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		headers[i] = c.header
	}
	if err := writeHeader(f, exportSheet, headers); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	for i, c := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(exportSheet, col, col, c.width); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}

	for r := range devices {
		values := make([]any, len(exportColumns))
		for i, c := range exportColumns {
			values[i] = c.value(&devices[r], loc)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("export row %d: %w", r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.AutoFilter(exportSheet, "A1:"+lastCol+"1", nil); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFileName returns the download name for an export of site ("" for
// every site).
func ExportFileName(site string, now time.Time) string {
	return fmt.Sprintf("Inventario_MAC_%s_%d.xlsx", fileNameSite(site, "TODOS"), now.UnixMilli())
}

// writeHeader writes row 1 bold on a dark fill and freezes it.
func writeHeader(f *excelize.File, sheet string, headers []any) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatExportTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(exportDateLayout)
}

func fileNameSite(site, fallback string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return fallback
	}
	return strings.Join(strings.Fields(site), "_")
}
