package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgCompanyRepository struct {
	pool *pgxpool.Pool
}

func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &pgCompanyRepository{pool: pool}
}

func (r *pgCompanyRepository) CreateWithOwner(ctx context.Context, company *Company, ownerUserID string, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO companies (name, slug, phone, segment, city, state, timezone, default_interval_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		company.Name, company.Slug, company.Phone, company.Segment,
		company.City, company.State, company.Timezone, company.DefaultIntervalMinutes,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt); err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO memberships (company_id, user_id, role, active)
		VALUES ($1, $2, 'owner', TRUE)
	`
	if _, err := tx.Exec(ctx, memberQuery, company.ID, ownerUserID); err != nil {
		return err
	}

	audit.CompanyID = company.ID
	audit.EntityID = company.ID
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgCompanyRepository) FindByID(ctx context.Context, id string) (*Company, error) {
	query := `
		SELECT id, name, slug, phone, segment, city, state, timezone, default_interval_minutes, created_at, updated_at
		FROM companies WHERE id = $1
	`
	c := &Company{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Phone, &c.Segment, &c.City, &c.State,
		&c.Timezone, &c.DefaultIntervalMinutes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgCompanyRepository) Update(ctx context.Context, company *Company, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE companies SET name = $2, slug = $3, phone = $4, segment = $5, city = $6,
			state = $7, timezone = $8, default_interval_minutes = $9, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query,
		company.ID, company.Name, company.Slug, company.Phone, company.Segment,
		company.City, company.State, company.Timezone, company.DefaultIntervalMinutes,
	)
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

func (r *pgCompanyRepository) AddMembership(ctx context.Context, member *Membership, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO memberships (company_id, user_id, role, role_function, active, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, query,
		member.CompanyID, member.UserID, member.Role, member.RoleFunction, member.Active, member.InvitedBy,
	).Scan(&member.ID, &member.CreatedAt); err != nil {
		return err
	}

	audit.EntityID = member.ID
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgCompanyRepository) FindMembership(ctx context.Context, companyID, userID string) (*Membership, error) {
	query := `
		SELECT id, company_id, user_id, role, role_function, active, invited_by, created_at
		FROM memberships WHERE company_id = $1 AND user_id = $2
		ORDER BY active DESC, created_at DESC
		LIMIT 1
	`
	m := &Membership{}
	err := r.pool.QueryRow(ctx, query, companyID, userID).Scan(
		&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.RoleFunction, &m.Active, &m.InvitedBy, &m.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgCompanyRepository) FindActiveMembershipByUser(ctx context.Context, userID string) (*Membership, error) {
	query := `
		SELECT id, company_id, user_id, role, role_function, active, invited_by, created_at
		FROM memberships WHERE user_id = $1 AND active = TRUE
		LIMIT 1
	`
	m := &Membership{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.RoleFunction, &m.Active, &m.InvitedBy, &m.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgCompanyRepository) FindMemberships(ctx context.Context, companyID string) ([]*Membership, error) {
	query := `
		SELECT m.id, m.company_id, m.user_id, m.role, m.role_function, m.active, m.invited_by, m.created_at,
		       u.id, u.email, u.full_name, u.must_change_password
		FROM memberships m
		JOIN users u ON m.user_id = u.id
		WHERE m.company_id = $1
		ORDER BY m.created_at
	`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m := &Membership{User: &User{}}
		if err := rows.Scan(
			&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.RoleFunction, &m.Active, &m.InvitedBy, &m.CreatedAt,
			&m.User.ID, &m.User.Email, &m.User.FullName, &m.User.MustChangePassword,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgCompanyRepository) SetMembershipActive(ctx context.Context, companyID, userID string, active bool, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE memberships SET active = $3
		WHERE company_id = $1 AND user_id = $2
		RETURNING id
	`
	var membershipID string
	if err := tx.QueryRow(ctx, query, companyID, userID, active).Scan(&membershipID); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNoRows
		}
		return err
	}

	audit.EntityID = membershipID
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
