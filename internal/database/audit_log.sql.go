package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const auditLogColumns = `id, action, entity, entity_id, message, user_id, user_name, role,
	ip_address, user_agent, ap_name, mac, before_state, after_state, created_at`

func scanAuditLog(row pgx.Row) (AuditLog, error) {
	var a AuditLog
	err := row.Scan(
		&a.ID,
		&a.Action,
		&a.Entity,
		&a.EntityID,
		&a.Message,
		&a.UserID,
		&a.UserName,
		&a.Role,
		&a.IpAddress,
		&a.UserAgent,
		&a.ApName,
		&a.Mac,
		&a.BeforeState,
		&a.AfterState,
		&a.CreatedAt,
	)
	return a, err
}

const insertAuditLog = `INSERT INTO audit_log (
	id, action, entity, entity_id, message, user_id, user_name, role,
	ip_address, user_agent, ap_name, mac, before_state, after_state, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + auditLogColumns

type InsertAuditLogParams struct {
	ID          pgtype.UUID
	Action      string
	Entity      string
	EntityID    pgtype.UUID
	Message     string
	UserID      string
	UserName    string
	Role        string
	IpAddress   string
	UserAgent   string
	ApName      string
	Mac         string
	BeforeState []byte
	AfterState  []byte
	CreatedAt   pgtype.Timestamptz
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, insertAuditLog,
		arg.ID,
		arg.Action,
		arg.Entity,
		arg.EntityID,
		arg.Message,
		arg.UserID,
		arg.UserName,
		arg.Role,
		arg.IpAddress,
		arg.UserAgent,
		arg.ApName,
		arg.Mac,
		arg.BeforeState,
		arg.AfterState,
		arg.CreatedAt,
	)
	return scanAuditLog(row)
}

// ListAuditLogParams filters the audit log. Empty fields do not filter.
type ListAuditLogParams struct {
	Action string
	Search string
	Limit  int32
	Offset int32
}

func auditLogWhere(action, search string) (string, []any) {
	var conds []string
	var args []any

	if action != "" {
		args = append(args, action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(message ILIKE $%[1]d OR user_name ILIKE $%[1]d OR role ILIKE $%[1]d OR ip_address ILIKE $%[1]d OR ap_name ILIKE $%[1]d OR mac ILIKE $%[1]d)", n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) ListAuditLog(ctx context.Context, arg ListAuditLogParams) ([]AuditLog, error) {
	where, args := auditLogWhere(arg.Action, arg.Search)
	args = append(args, arg.Limit, arg.Offset)
	query := fmt.Sprintf("SELECT %s FROM audit_log%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		auditLogColumns, where, len(args)-1, len(args))

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []AuditLog{}
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountAuditLog(ctx context.Context, action, search string) (int64, error) {
	where, args := auditLogWhere(action, search)
	var n int64
	err := q.db.QueryRow(ctx, "SELECT count(*) FROM audit_log"+where, args...).Scan(&n)
	return n, err
}
