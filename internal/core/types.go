// Package core holds the device inventory domain: MAC handling, spreadsheet
// import/export and the audit trail. It has no HTTP dependencies and can be
// driven by the web server or the operator CLI.
package core

import (
	"time"
)

// Device classes accepted by the inventory. These are the values written to
// spreadsheets and stored in the devices table.
const (
	DeviceMobile  = "MOVIL"
	DeviceLaptop  = "LAPTOP"
	DeviceDesktop = "PC"
)

// DeviceTypes lists the accepted device classes in display order.
var DeviceTypes = []string{DeviceMobile, DeviceLaptop, DeviceDesktop}

// Device is a registered network device.
type Device struct {
	ID               string    `json:"id"`
	ApName           string    `json:"apName"`
	OwnerName        string    `json:"ownerName"`
	Mac              string    `json:"mac"`
	DeviceType       string    `json:"deviceType"`
	Area             string    `json:"area"`
	LocationPoint    string    `json:"locationPoint"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Serial           string    `json:"serial"`
	Hostname         string    `json:"hostname"`
	Notes            string    `json:"notes"`
	RegisteredBy     string    `json:"registeredBy"`
	RegisteredByName string    `json:"registeredByName"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DeviceInput carries the user-editable fields of a device. It is the body of
// create and update requests and the payload of an import row.
type DeviceInput struct {
	ApName        string `json:"apName"`
	OwnerName     string `json:"ownerName"`
	Mac           string `json:"mac"`
	DeviceType    string `json:"deviceType"`
	Area          string `json:"area"`
	LocationPoint string `json:"locationPoint"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	Serial        string `json:"serial"`
	Hostname      string `json:"hostname"`
	Notes         string `json:"notes"`
}

// Input returns the editable fields of d.
func (d *Device) Input() DeviceInput {
	return DeviceInput{
		ApName:        d.ApName,
		OwnerName:     d.OwnerName,
		Mac:           d.Mac,
		DeviceType:    d.DeviceType,
		Area:          d.Area,
		LocationPoint: d.LocationPoint,
		Brand:         d.Brand,
		Model:         d.Model,
		Serial:        d.Serial,
		Hostname:      d.Hostname,
		Notes:         d.Notes,
	}
}

// DeviceFilter narrows a device listing. Query matches MAC (separator
// tolerant), owner, location and registrant.
type DeviceFilter struct {
	ApName string
	Query  string
}

// Actor identifies who performs a mutation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// DisplayName returns the actor's name, falling back to "N/D".
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "N/D"
}

// ImportRow is one validated spreadsheet row ready to persist.
// Row is the 1-based sheet row number.
type ImportRow struct {
	Row int `json:"row"`
	DeviceInput
}

// ImportPhase indicates the current stage of an import run.
type ImportPhase string

const (
	PhaseParsing    ImportPhase = "PARSING"
	PhaseValidating ImportPhase = "VALIDATING"
	PhasePersisting ImportPhase = "PERSISTING"
	PhaseDone       ImportPhase = "DONE"
)

// ImportSummary holds the counts of one import run.
//
//	TotalRows   = ParsedValid + rows rejected at validation
//	ParsedValid = Inserted + Duplicates + rows rejected at persistence
type ImportSummary struct {
	TotalRows   int `json:"totalRows"`
	ParsedValid int `json:"parsedValid"`
	Inserted    int `json:"inserted"`
	Duplicates  int `json:"duplicates"`
	Failed      int `json:"failed"`
}

// InsertedDevice is reported for every row that created a device.
type InsertedDevice struct {
	ID     string `json:"id"`
	Mac    string `json:"mac"`
	ApName string `json:"apName"`
}

// ExistingDevice identifies the record a duplicate collided with.
type ExistingDevice struct {
	ApName        string `json:"apName"`
	LocationPoint string `json:"locationPoint"`
	OwnerName     string `json:"ownerName"`
}

// DuplicateDevice is reported for every row whose MAC was already registered.
type DuplicateDevice struct {
	Row      int            `json:"row"`
	Mac      string         `json:"mac"`
	Message  string         `json:"message"`
	Existing ExistingDevice `json:"existing"`
}

// FailedRow is reported for every row rejected at validation or persistence.
type FailedRow struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ImportResult is the outcome of one import run. Each list keeps file order.
type ImportResult struct {
	Summary    ImportSummary     `json:"summary"`
	Inserted   []InsertedDevice  `json:"inserted"`
	Duplicates []DuplicateDevice `json:"duplicates"`
	Failed     []FailedRow       `json:"failed"`
}

// KeyCount is one bucket of a grouped device count.
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DeviceCounts holds the aggregate counts shown on the dashboard.
type DeviceCounts struct {
	Total  int64
	BySite []KeyCount
	ByType []KeyCount
	ByArea []KeyCount
}
