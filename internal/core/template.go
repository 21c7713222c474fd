package core

import (
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"
)

const (
	templateSheet   = "Plantilla Import"
	listsSheet      = "Listas"
	templateMaxRow  = 5000
	exampleLocation = "Ej: Oficina Control / Garita 1"
)

// templateHeaders are the import columns in template order. Each header
// maps back to its field through MapColumns.
var templateHeaders = []string{"AP", "DUEÑO", "MAC", "TIPO", "ÁREA", "PUNTO", "MARCA", "MODELO", "SERIAL", "HOSTNAME", "NOTAS"}

var templateWidths = []float64{18, 26, 20, 12, 14, 26, 16, 18, 18, 18, 30}

// BuildTemplate renders the import template: a header row, one example row
// and drop-down validations for site, device type and area fed from the
// catalog through a very hidden "Listas" sheet. The example row uses
// fixedSite when it is a catalog site, else the catalog default.
func BuildTemplate(catalog *Catalog, fixedSite string) ([]byte, error) {
	site := catalog.DefaultTemplateSite()
	if catalog.HasSite(fixedSite) {
		site = fixedSite
	}
	area := catalog.Areas[0]
	if catalog.HasArea("CONTROL") {
		area = "CONTROL"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	headers := make([]any, len(templateHeaders))
	for i, h := range templateHeaders {
		headers[i] = h
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(templateSheet, col, col, templateWidths[i]); err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
	}
	if err := writeHeader(f, templateSheet, headers); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	example := []any{
		site,
		"Ej: Juan Pérez",
		"AA:BB:CC:DD:EE:FF",
		DeviceLaptop,
		area,
		exampleLocation,
		"Dell",
		"Latitude 5420",
		"SN123456",
		"PC-CONTROL-01",
		"Registro de ejemplo",
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	if err := writeChoiceLists(f, catalog); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(templateHeaders))
	if err := f.AutoFilter(templateSheet, "A1:"+lastCol+"1", nil); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return buf.Bytes(), nil
}

// TemplateFileName returns the download name of the template for site.
func TemplateFileName(site string) string {
	return fmt.Sprintf("Plantilla_Import_MAC_%s.xlsx", fileNameSite(site, "GENERAL"))
}

// writeChoiceLists fills the hidden Listas sheet and attaches list
// validations to the site (A), type (D) and area (E) columns.
func writeChoiceLists(f *excelize.File, catalog *Catalog) error {
	if _, err := f.NewSheet(listsSheet); err != nil {
		return err
	}

	lists := []struct {
		col, title, targetCol, errTitle string
		values                          []string
	}{
		{"A", "APS", "A", "AP inválido", catalog.Sites},
		{"B", "TIPOS", "D", "Tipo inválido", slices.Clone(catalog.deviceTypes())},
		{"C", "AREAS", "E", "Área inválida", catalog.Areas},
	}

	for _, l := range lists {
		column := make([]any, 0, len(l.values)+1)
		column = append(column, l.title)
		for _, v := range l.values {
			column = append(column, v)
		}
		if err := f.SetSheetCol(listsSheet, l.col+"1", &column); err != nil {
			return err
		}

		dv := excelize.NewDataValidation(false)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", l.targetCol, l.targetCol, templateMaxRow)
		dv.SetSqrefDropList(fmt.Sprintf("%s!$%s$2:$%s$%d", listsSheet, l.col, l.col, len(l.values)+1))
		dv.SetError(excelize.DataValidationErrorStyleStop, l.errTitle, "Selecciona un valor de la lista.")
		if err := f.AddDataValidation(templateSheet, dv); err != nil {
			return err
		}
	}

	return f.SetSheetVisible(listsSheet, false, true)
}
