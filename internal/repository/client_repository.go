package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &pgClientRepository{pool: pool}
}

func (r *pgClientRepository) Create(ctx context.Context, client *Client, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO clients (company_id, name, phone, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		client.CompanyID, client.Name, client.Phone, client.Notes,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt); err != nil {
		return err
	}

	audit.EntityID = client.ID
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgClientRepository) FindByID(ctx context.Context, companyID, id string) (*Client, error) {
	query := `
		SELECT id, company_id, name, phone, notes, created_at, updated_at
		FROM clients WHERE company_id = $1 AND id = $2
	`
	c := &Client{}
	err := r.pool.QueryRow(ctx, query, companyID, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgClientRepository) FindByCompany(ctx context.Context, companyID, search string) ([]*Client, error) {
	query := `
		SELECT id, company_id, name, phone, notes, created_at, updated_at
		FROM clients WHERE company_id = $1
	`
	args := []interface{}{companyID}
	if search != "" {
		query += ` AND (LOWER(name) LIKE LOWER($2) OR phone LIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c := &Client{}
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *pgClientRepository) Update(ctx context.Context, client *Client, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE clients SET name = $3, phone = $4, notes = $5, updated_at = NOW()
		WHERE company_id = $1 AND id = $2
	`
	tag, err := tx.Exec(ctx, query, client.CompanyID, client.ID, client.Name, client.Phone, client.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgClientRepository) Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// appointments.client_id carries ON DELETE SET NULL; history survives.
	query := `DELETE FROM clients WHERE company_id = $1 AND id = $2`
	tag, err := tx.Exec(ctx, query, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
