package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/macinv/internal/database"
)

func (s *PostgresStore) InsertAuditLog(ctx context.Context, e AuditEntry) error {
	var entityID pgtype.UUID
	if e.EntityID != "" {
		id, err := toPgUUID(e.EntityID)
		if err != nil {
			return fmt.Errorf("audit entity id %q: %w", e.EntityID, err)
		}
		entityID = id
	}
	id, err := toPgUUID(e.ID)
	if err != nil {
		return fmt.Errorf("audit id %q: %w", e.ID, err)
	}

	_, err = s.q.InsertAuditLog(ctx, db.InsertAuditLogParams{
		ID:          id,
		Action:      string(e.Action),
		Entity:      string(e.Entity),
		EntityID:    entityID,
		Message:     e.Message,
		UserID:      e.UserID,
		UserName:    e.UserName,
		Role:        e.Role,
		IpAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		ApName:      e.ApName,
		Mac:         e.Mac,
		BeforeState: snapshotBytes(e.Before),
		AfterState:  snapshotBytes(e.After),
		CreatedAt:   pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditLog(ctx context.Context, query AuditQuery) ([]AuditEntry, error) {
	rows, err := s.q.ListAuditLog(ctx, db.ListAuditLogParams{
		Action: string(query.Action),
		Search: escapeLike(query.Search),
		Limit:  int32(query.Limit),
		Offset: int32(query.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	entries := make([]AuditEntry, len(rows))
	for i, r := range rows {
		entries[i] = auditEntryFromRow(r)
	}
	return entries, nil
}

func (s *PostgresStore) CountAuditLog(ctx context.Context, action AuditAction, search string) (int64, error) {
	n, err := s.q.CountAuditLog(ctx, string(action), escapeLike(search))
	if err != nil {
		return 0, fmt.Errorf("count audit log: %w", err)
	}
	return n, nil
}

func snapshotBytes(s Snapshot) []byte {
	if s.IsNull() {
		return nil
	}
	return []byte(s)
}

func auditEntryFromRow(r db.AuditLog) AuditEntry {
	return AuditEntry{
		ID:        uuidToString(r.ID),
		Action:    AuditAction(r.Action),
		Entity:    AuditEntity(r.Entity),
		EntityID:  uuidToString(r.EntityID),
		Message:   r.Message,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Role:      r.Role,
		IPAddress: r.IpAddress,
		UserAgent: r.UserAgent,
		ApName:    r.ApName,
		Mac:       r.Mac,
		Before:    Snapshot(r.BeforeState),
		After:     Snapshot(r.AfterState),
		CreatedAt: r.CreatedAt.Time,
	}
}
