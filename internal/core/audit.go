package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/macinv/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
	ActionImport AuditAction = "IMPORT"
)

// ParseAuditAction accepts an action name in any case. "" and "ALL" mean no
// filter and return "".
func ParseAuditAction(s string) (AuditAction, error) {
	switch a := AuditAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case "", "ALL":
		return "", nil
	case ActionCreate, ActionUpdate, ActionDelete, ActionImport:
		return a, nil
	default:
		return "", fmt.Errorf("unknown audit action %q", s)
	}
}

// AuditEntity is the kind of record an entry refers to.
type AuditEntity string

const (
	EntityDevice AuditEntity = "DEVICE"
	EntityUser   AuditEntity = "USER"
)

// Snapshot is an opaque JSON document describing a record before or after a
// mutation. A nil Snapshot is JSON null.
type Snapshot []byte

// SnapshotOf encodes v. Values that cannot be encoded yield a null snapshot.
func SnapshotOf(v any) Snapshot {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return Snapshot(b)
}

// IsNull reports whether s holds no document.
func (s Snapshot) IsNull() bool {
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

// Decode unmarshals the snapshot into v.
func (s Snapshot) Decode(v any) error {
	if s.IsNull() {
		return nil
	}
	return json.Unmarshal(s, v)
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.IsNull() {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	*s = append((*s)[:0], b...)
	return nil
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Entity    AuditEntity `json:"entity"`
	EntityID  string      `json:"entityId,omitempty"`
	Message   string      `json:"message"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Role      string      `json:"role"`
	IPAddress string      `json:"ip"`
	UserAgent string      `json:"userAgent"`
	ApName    string      `json:"apName"`
	Mac       string      `json:"mac"`
	Before    Snapshot    `json:"before"`
	After     Snapshot    `json:"after"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AuditRecorder appends entries to the audit log. It never updates or
// deletes an entry.
type AuditRecorder struct {
	store   AuditStore
	metrics *Metrics
	now     func() time.Time
}

// NewAuditRecorder creates a recorder writing to store. metrics may be nil.
func NewAuditRecorder(store AuditStore, metrics *Metrics) *AuditRecorder {
	return &AuditRecorder{
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record persists entry. Actor fields left empty are filled from the actor in
// ctx, and IP and user agent from the request metadata in ctx. The id and
// creation time are always assigned here.
func (r *AuditRecorder) Record(ctx context.Context, entry AuditEntry) (*AuditEntry, error) {
	if entry.Entity == "" {
		entry.Entity = EntityDevice
	}
	if actor, ok := ActorFromContext(ctx); ok {
		if entry.UserID == "" {
			entry.UserID = actor.ID
		}
		if entry.UserName == "" {
			entry.UserName = actor.DisplayName()
		}
		if entry.Role == "" {
			entry.Role = actor.Role
		}
	}
	if entry.UserName == "" {
		entry.UserName = "N/D"
	}
	if entry.IPAddress == "" {
		entry.IPAddress = GetIPAddressFromContext(ctx)
	}
	if entry.IPAddress != "" {
		entry.IPAddress = canonicalIP(entry.IPAddress)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = GetUserAgentFromContext(ctx)
	}

	entry.ID = uuid.NewString()
	entry.CreatedAt = r.now().UTC()

	if err := r.store.InsertAuditLog(ctx, entry); err != nil {
		r.metrics.auditWriteFailed()
		return nil, fmt.Errorf("record %s audit entry: %w", entry.Action, err)
	}
	r.metrics.auditWritten(entry.Action)
	return &entry, nil
}

// recordBestEffort records entry and logs a failure instead of returning it.
// A mutation that already happened stays successful when its audit fails.
func (r *AuditRecorder) recordBestEffort(ctx context.Context, entry AuditEntry) {
	if _, err := r.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit write failed",
			"action", entry.Action,
			"entity_id", entry.EntityID,
			"mac", entry.Mac,
			"error", err,
		)
	}
}

// AuditLogOptions selects a page of the audit log.
type AuditLogOptions struct {
	Page   int
	Limit  int
	Action AuditAction
	Search string
}

const (
	defaultAuditPageSize = 20
	minAuditPageSize     = 5
	maxAuditPageSize     = 100
	recentAuditEntries   = 12
)

// AuditLogPage is one page of audit entries, newest first.
type AuditLogPage struct {
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
	Items      []AuditEntry `json:"items"`
}

// List returns a page of the audit log. Page is at least 1; limit defaults
// to 20 and is clamped to 5..100.
func (r *AuditRecorder) List(ctx context.Context, opts AuditLogOptions) (*AuditLogPage, error) {
	page := max(opts.Page, 1)
	limit := opts.Limit
	if limit == 0 {
		limit = defaultAuditPageSize
	}
	limit = min(max(limit, minAuditPageSize), maxAuditPageSize)
	search := strings.TrimSpace(opts.Search)

	total, err := r.store.CountAuditLog(ctx, opts.Action, search)
	if err != nil {
		return nil, fmt.Errorf("count audit log: %w", err)
	}
	items, err := r.store.ListAuditLog(ctx, AuditQuery{
		Action: opts.Action,
		Search: search,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &AuditLogPage{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: max(totalPages, 1),
		Items:      items,
	}, nil
}

// Recent returns the latest entries for the dashboard.
func (r *AuditRecorder) Recent(ctx context.Context) ([]AuditEntry, error) {
	items, err := r.store.ListAuditLog(ctx, AuditQuery{Limit: recentAuditEntries})
	if err != nil {
		return nil, fmt.Errorf("recent audit log: %w", err)
	}
	return items, nil
}

// canonicalIP normalizes a textual IP, stripping a port and IPv4-mapped
// prefixes. Unparseable input is kept as is.
func canonicalIP(s string) string {
	s = strings.TrimSpace(s)
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().String()
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.Unmap().String()
	}
	return s
}
