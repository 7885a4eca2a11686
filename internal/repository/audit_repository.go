package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgAuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &pgAuditRepository{pool: pool}
}

// insertAuditTx writes an audit entry inside the caller's transaction so the
// entry commits or rolls back with the mutation it describes.
func insertAuditTx(ctx context.Context, tx pgx.Tx, entry *AuditEntry) error {
	query := `
		INSERT INTO audit_log (company_id, actor_user_id, action, entity_type, entity_id, before, after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return tx.QueryRow(ctx, query,
		entry.CompanyID, entry.ActorUserID, entry.Action,
		entry.EntityType, entry.EntityID, entry.Before, entry.After,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *pgAuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO audit_log (company_id, actor_user_id, action, entity_type, entity_id, before, after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		entry.CompanyID, entry.ActorUserID, entry.Action,
		entry.EntityType, entry.EntityID, entry.Before, entry.After,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *pgAuditRepository) FindByCompany(ctx context.Context, companyID string, filters *AuditFilters) ([]*AuditEntry, error) {
	query := `
		SELECT id, company_id, actor_user_id, action, entity_type, entity_id, before, after, created_at
		FROM audit_log WHERE company_id = $1
	`
	args := []interface{}{companyID}
	argNum := 1

	if filters != nil {
		if filters.ActorUserID != nil {
			argNum++
			query += fmt.Sprintf(" AND actor_user_id = $%d", argNum)
			args = append(args, *filters.ActorUserID)
		}
		if filters.ActionPrefix != "" {
			argNum++
			query += fmt.Sprintf(" AND action LIKE $%d", argNum)
			args = append(args, filters.ActionPrefix+"%")
		}
	}

	query += " ORDER BY created_at DESC"

	if filters != nil && filters.Limit > 0 {
		argNum++
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
	}
	if filters != nil && filters.Offset > 0 {
		argNum++
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.CompanyID, &entry.ActorUserID, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Before, &entry.After, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
