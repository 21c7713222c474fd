package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/macinv/internal/logging"
)

// ErrFileTooLarge is returned for workbooks above the configured size.
var ErrFileTooLarge = errors.New("file too large")

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Devices DeviceStore
	Audit   AuditStore
	Catalog *Catalog

	// ImportWorkers bounds parallel row persistence within one import.
	ImportWorkers int
	// MaxConcurrentImports and ImportWait configure the ImportLimiter.
	MaxConcurrentImports int
	ImportWait           time.Duration
	// MaxFileSize rejects larger workbooks; zero disables the check.
	MaxFileSize int64

	// Location renders export dates; nil means time.Local.
	Location *time.Location
	Metrics  *Metrics
}

// Service is the device inventory API shared by the HTTP server and the CLI.
type Service struct {
	devices     DeviceStore
	catalog     *Catalog
	resolver    *DuplicateResolver
	recorder    *AuditRecorder
	importer    *Importer
	limiter     *ImportLimiter
	metrics     *Metrics
	loc         *time.Location
	maxFileSize int64
	now         func() time.Time
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Devices == nil || cfg.Audit == nil {
		return nil, errors.New("service needs a device store and an audit store")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("service needs a catalog")
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	recorder := NewAuditRecorder(cfg.Audit, cfg.Metrics)
	return &Service{
		devices:     cfg.Devices,
		catalog:     cfg.Catalog,
		resolver:    NewDuplicateResolver(cfg.Devices),
		recorder:    recorder,
		importer:    NewImporter(cfg.Devices, recorder, cfg.Catalog, cfg.ImportWorkers, cfg.Metrics),
		limiter:     NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
		metrics:     cfg.Metrics,
		loc:         loc,
		maxFileSize: cfg.MaxFileSize,
		now:         time.Now,
	}, nil
}

// Sites returns the configured sites in catalog order.
func (s *Service) Sites() []string {
	return slices.Clone(s.catalog.Sites)
}

// Catalog returns the catalog devices are validated against.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ListDevices returns devices newest first.
func (s *Service) ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error) {
	return s.devices.ListDevices(ctx, filter)
}

// GetDevice returns one device.
func (s *Service) GetDevice(ctx context.Context, id string) (*Device, error) {
	id, err := ParseDeviceID(id)
	if err != nil {
		return nil, err
	}
	return s.devices.GetDevice(ctx, id)
}

// CreateDevice registers a device for the actor in ctx. A MAC that is already
// registered yields a *ConflictError carrying the existing device.
func (s *Service) CreateDevice(ctx context.Context, in DeviceInput) (*Device, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrNoActor
	}
	in, verrs := ValidateDevice(s.catalog, in)
	if len(verrs) > 0 {
		s.metrics.deviceMutation("create", "invalid")
		return nil, &InvalidDeviceError{Errors: verrs}
	}

	if existing, err := s.resolver.Check(ctx, in.Mac); err != nil {
		return nil, err
	} else if existing != nil {
		s.metrics.deviceMutation("create", "conflict")
		return nil, &ConflictError{Mac: in.Mac, Existing: existing}
	}

	d, err := s.devices.CreateDevice(ctx, in, actor)
	if err != nil {
		return nil, s.conflictOr(ctx, "create", in.Mac, "", err)
	}
	s.metrics.deviceMutation("create", "ok")

	s.recorder.recordBestEffort(ctx, AuditEntry{
		Action:   ActionCreate,
		Entity:   EntityDevice,
		EntityID: d.ID,
		ApName:   d.ApName,
		Mac:      d.Mac,
		Message:  fmt.Sprintf("Created device %s at %s (%s)", d.Mac, d.ApName, d.LocationPoint),
		After:    SnapshotOf(d.Input()),
	})
	return d, nil
}

// UpdateDevice replaces every editable field of a device. The MAC is checked
// for conflicts only when it changes.
func (s *Service) UpdateDevice(ctx context.Context, id string, in DeviceInput) (*Device, error) {
	id, err := ParseDeviceID(id)
	if err != nil {
		return nil, err
	}
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrNoActor
	}

	before, err := s.devices.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	in, verrs := ValidateDevice(s.catalog, in)
	if len(verrs) > 0 {
		s.metrics.deviceMutation("update", "invalid")
		return nil, &InvalidDeviceError{Errors: verrs}
	}

	if in.Mac != before.Mac {
		existing, err := s.resolver.Check(ctx, in.Mac)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			s.metrics.deviceMutation("update", "conflict")
			return nil, &ConflictError{Mac: in.Mac, Existing: existing}
		}
	}

	after, err := s.devices.UpdateDevice(ctx, id, in)
	if err != nil {
		return nil, s.conflictOr(ctx, "update", in.Mac, id, err)
	}
	s.metrics.deviceMutation("update", "ok")

	s.recorder.recordBestEffort(ctx, AuditEntry{
		Action:   ActionUpdate,
		Entity:   EntityDevice,
		EntityID: after.ID,
		ApName:   after.ApName,
		Mac:      after.Mac,
		Message:  fmt.Sprintf("Updated device %s (%s)", after.Mac, after.ApName),
		Before:   SnapshotOf(before.Input()),
		After:    SnapshotOf(after.Input()),
	})
	return after, nil
}

// DeleteDevice removes a device and returns what was deleted.
func (s *Service) DeleteDevice(ctx context.Context, id string) (*Device, error) {
	id, err := ParseDeviceID(id)
	if err != nil {
		return nil, err
	}
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrNoActor
	}

	d, err := s.devices.DeleteDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.deviceMutation("delete", "ok")

	s.recorder.recordBestEffort(ctx, AuditEntry{
		Action:   ActionDelete,
		Entity:   EntityDevice,
		EntityID: d.ID,
		ApName:   d.ApName,
		Mac:      d.Mac,
		Message:  fmt.Sprintf("Deleted device %s (%s)", d.Mac, d.ApName),
		Before:   SnapshotOf(d.Input()),
	})
	return d, nil
}

// conflictOr turns a lost uniqueness race into a *ConflictError when the
// winning device can be read back, and returns err otherwise.
func (s *Service) conflictOr(ctx context.Context, op, mac, selfID string, err error) error {
	if !errors.Is(err, ErrDuplicateMAC) {
		s.metrics.deviceMutation(op, "error")
		return err
	}
	s.metrics.deviceMutation(op, "conflict")
	existing, cerr := s.resolver.Check(ctx, mac)
	if cerr != nil || existing == nil || existing.ID == selfID {
		return err
	}
	return &ConflictError{Mac: mac, Existing: existing}
}

// ImportDevices imports a workbook for the actor in ctx. It waits for an
// import slot first and fails with ErrTooManyImports when none frees up.
func (s *Service) ImportDevices(ctx context.Context, data []byte, fallbackSite string) (*ImportResult, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrNoActor
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("import slot unavailable", "error", err, "active", s.limiter.ActiveCount())
		return nil, err
	}
	defer s.limiter.Release()
	s.metrics.importStarted()
	defer s.metrics.importEnded()

	return s.importer.Run(ctx, data, strings.TrimSpace(fallbackSite))
}

// ExportDevices renders the devices of site ("" for all) as a workbook and
// returns it with its download name.
func (s *Service) ExportDevices(ctx context.Context, site string) ([]byte, string, error) {
	site = strings.TrimSpace(site)
	devices, err := s.devices.ListDevices(ctx, DeviceFilter{ApName: site})
	if err != nil {
		return nil, "", err
	}
	data, err := ExportDevices(devices, s.loc)
	if err != nil {
		return nil, "", err
	}
	return data, ExportFileName(site, s.now()), nil
}

// Template renders the import template for site and returns it with its
// download name.
func (s *Service) Template(site string) ([]byte, string, error) {
	site = strings.TrimSpace(site)
	data, err := BuildTemplate(s.catalog, site)
	if err != nil {
		return nil, "", err
	}
	return data, TemplateFileName(site), nil
}

// SiteCount is the number of devices registered at one site.
type SiteCount struct {
	ApName string `json:"apName"`
	Count  int64  `json:"count"`
}

// DashboardStats summarizes the inventory.
type DashboardStats struct {
	Total  int64        `json:"total"`
	ByAp   []SiteCount  `json:"byAp"`
	ByType []KeyCount   `json:"byType"`
	ByArea []KeyCount   `json:"byArea"`
	Recent []AuditEntry `json:"recent"`
}

// Dashboard returns device totals, per-site counts for every catalog site
// (zero when a site has no devices), per-type and per-area counts and the
// latest audit entries.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	counts, err := s.devices.CountDevices(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.recorder.Recent(ctx)
	if err != nil {
		return nil, err
	}

	bySite := make(map[string]int64, len(counts.BySite))
	for _, c := range counts.BySite {
		bySite[c.Key] = c.Count
	}
	byAp := make([]SiteCount, len(s.catalog.Sites))
	for i, site := range s.catalog.Sites {
		byAp[i] = SiteCount{ApName: site, Count: bySite[site]}
	}

	return &DashboardStats{
		Total:  counts.Total,
		ByAp:   byAp,
		ByType: nonNil(counts.ByType),
		ByArea: nonNil(counts.ByArea),
		Recent: nonNil(recent),
	}, nil
}

// AuditLog returns a page of the audit log.
func (s *Service) AuditLog(ctx context.Context, opts AuditLogOptions) (*AuditLogPage, error) {
	return s.recorder.List(ctx, opts)
}

// ImportStatus reports the import limiter state.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running imports to finish, for graceful shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
