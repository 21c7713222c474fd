package core

// validation.go turns a spreadsheet row or an API body into a DeviceInput
// that satisfies the catalog.
//
// Every violation of a row is collected so an operator can fix a whole file
// from a single report. A row with any violation is rejected as a unit.

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   Field  // Logical field
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidateDevice normalizes in against the catalog: text is trimmed, device
// type and area are upper-cased and the MAC is canonicalized. It returns the
// normalized input and every violation found.
func ValidateDevice(c *Catalog, in DeviceInput) (DeviceInput, []ValidationError) {
	out := DeviceInput{
		ApName:        strings.TrimSpace(in.ApName),
		OwnerName:     strings.TrimSpace(in.OwnerName),
		DeviceType:    strings.ToUpper(strings.TrimSpace(in.DeviceType)),
		Area:          strings.ToUpper(strings.TrimSpace(in.Area)),
		LocationPoint: strings.TrimSpace(in.LocationPoint),
		Brand:         strings.TrimSpace(in.Brand),
		Model:         strings.TrimSpace(in.Model),
		Serial:        strings.TrimSpace(in.Serial),
		Hostname:      strings.TrimSpace(in.Hostname),
		Notes:         strings.TrimSpace(in.Notes),
	}

	var errs []ValidationError

	switch {
	case out.ApName == "":
		errs = append(errs, ValidationError{Field: FieldSite, Message: "site is required"})
	case !c.HasSite(out.ApName):
		errs = append(errs, ValidationError{Field: FieldSite, Value: out.ApName,
			Message: fmt.Sprintf("site %q is not one of: %s", out.ApName, strings.Join(c.Sites, ", "))})
	}

	if out.OwnerName == "" {
		errs = append(errs, ValidationError{Field: FieldOwner, Message: "owner is required"})
	}

	raw := strings.TrimSpace(in.Mac)
	out.Mac = NormalizeMAC(raw)
	switch {
	case raw == "":
		errs = append(errs, ValidationError{Field: FieldMAC, Message: "MAC is required"})
	case !IsValidMAC(out.Mac):
		errs = append(errs, ValidationError{Field: FieldMAC, Value: raw,
			Message: fmt.Sprintf("invalid MAC %q (expected AA:BB:CC:DD:EE:FF)", raw)})
	}

	switch {
	case out.DeviceType == "":
		errs = append(errs, ValidationError{Field: FieldDeviceType, Message: "device type is required"})
	case !c.HasDeviceType(out.DeviceType):
		errs = append(errs, ValidationError{Field: FieldDeviceType, Value: out.DeviceType,
			Message: fmt.Sprintf("device type %q must be one of: %s", out.DeviceType, strings.Join(c.deviceTypes(), ", "))})
	}

	switch {
	case out.Area == "":
		errs = append(errs, ValidationError{Field: FieldArea, Message: "area is required"})
	case !c.HasArea(out.Area):
		errs = append(errs, ValidationError{Field: FieldArea, Value: out.Area,
			Message: fmt.Sprintf("area %q must be one of: %s", out.Area, strings.Join(c.Areas, ", "))})
	}

	if out.LocationPoint == "" {
		errs = append(errs, ValidationError{Field: FieldLocationPoint, Message: "location is required"})
	}

	return out, errs
}

// RowValidator validates spreadsheet rows laid out according to a ColumnMap.
type RowValidator struct {
	catalog      *Catalog
	columns      ColumnMap
	fallbackSite string
}

// NewRowValidator creates a validator for one import. fallbackSite is used
// for rows without a site cell.
func NewRowValidator(catalog *Catalog, columns ColumnMap, fallbackSite string) *RowValidator {
	return &RowValidator{
		catalog:      catalog,
		columns:      columns,
		fallbackSite: strings.TrimSpace(fallbackSite),
	}
}

// Validate checks one data row. rowNum is the 1-based sheet row and is
// carried on the returned ImportRow. When the row is invalid the messages
// describe every violation and the ImportRow must be discarded.
func (v *RowValidator) Validate(row []string, rowNum int) (ImportRow, []string) {
	in := DeviceInput{
		ApName:        v.cell(row, FieldSite),
		OwnerName:     v.cell(row, FieldOwner),
		Mac:           v.cell(row, FieldMAC),
		DeviceType:    v.cell(row, FieldDeviceType),
		Area:          v.cell(row, FieldArea),
		LocationPoint: v.cell(row, FieldLocationPoint),
		Brand:         v.cell(row, FieldBrand),
		Model:         v.cell(row, FieldModel),
		Serial:        v.cell(row, FieldSerial),
		Hostname:      v.cell(row, FieldHostname),
		Notes:         v.cell(row, FieldNotes),
	}
	if in.ApName == "" {
		in.ApName = v.fallbackSite
	}

	out, errs := ValidateDevice(v.catalog, in)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return ImportRow{Row: rowNum}, msgs
	}
	return ImportRow{Row: rowNum, DeviceInput: out}, nil
}

func (v *RowValidator) cell(row []string, f Field) string {
	pos, ok := v.columns[f]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// IsBlankRow reports whether every cell of row is empty after cleaning.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}

// CleanCell normalizes a cell value. It trims whitespace and unwraps the
// ="..." text-forcing formula spreadsheets emit for MACs. Quotes inside
// ordinary text are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}
