package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgAppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &pgAppointmentRepository{pool: pool}
}

const appointmentColumns = `
	id, company_id, created_by_user_id, client_id, title, start_at, end_at,
	status, price_cents, amount_paid_cents, payment_status, category, notes,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a := &Appointment{}
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.CreatedByUserID, &a.ClientID, &a.Title,
		&a.StartAt, &a.EndAt, &a.Status, &a.PriceCents, &a.AmountPaidCents,
		&a.PaymentStatus, &a.Category, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgAppointmentRepository) Create(ctx context.Context, appt *Appointment, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Name the colliding rows up front. The gist exclusion constraint on
	// (company, creator, interval) still backstops concurrent inserts that
	// both pass this check.
	conflicts, err := findOverlappingTx(ctx, tx, appt.CompanyID, appt.CreatedByUserID, appt.StartAt, appt.EndAt, "")
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &OverlapError{ConflictingIDs: conflicts}
	}

	query := `
		INSERT INTO appointments (company_id, created_by_user_id, client_id, title, start_at, end_at,
		                          status, price_cents, amount_paid_cents, payment_status, category, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		appt.CompanyID, appt.CreatedByUserID, appt.ClientID, appt.Title,
		appt.StartAt, appt.EndAt, appt.Status, appt.PriceCents,
		appt.AmountPaidCents, appt.PaymentStatus, appt.Category, appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return r.translateOverlap(ctx, err, appt, "")
	}

	audit.EntityID = appt.ID
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.translateOverlap(ctx, err, appt, "")
	}
	return nil
}

func (r *pgAppointmentRepository) FindByID(ctx context.Context, companyID, id string) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments WHERE company_id = $1 AND id = $2`
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, companyID, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgAppointmentRepository) FindByCompany(ctx context.Context, companyID string, filters *AppointmentFilters) ([]*Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments WHERE company_id = $1`
	args := []interface{}{companyID}
	argNum := 1

	if filters != nil {
		if filters.From != nil {
			argNum++
			query += fmt.Sprintf(" AND end_at > $%d", argNum)
			args = append(args, *filters.From)
		}
		if filters.To != nil {
			argNum++
			query += fmt.Sprintf(" AND start_at < $%d", argNum)
			args = append(args, *filters.To)
		}
		if len(filters.Status) > 0 {
			argNum++
			query += fmt.Sprintf(" AND status = ANY($%d)", argNum)
			args = append(args, filters.Status)
		}
		if filters.CreatedBy != nil {
			argNum++
			query += fmt.Sprintf(" AND created_by_user_id = $%d", argNum)
			args = append(args, *filters.CreatedBy)
		}
		if filters.Search != "" {
			argNum++
			query += fmt.Sprintf(" AND (LOWER(title) LIKE LOWER($%d) OR LOWER(COALESCE(notes, '')) LIKE LOWER($%d))", argNum, argNum)
			args = append(args, "%"+filters.Search+"%")
		}
	}

	query += " ORDER BY start_at"

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

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *pgAppointmentRepository) FindOverlapping(ctx context.Context, companyID, creatorID string, start, end time.Time, excludeID string) ([]*Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE company_id = $1 AND created_by_user_id = $2
		  AND status <> 'canceled'
		  AND start_at < $4 AND end_at > $3
	`
	args := []interface{}{companyID, creatorID, start, end}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *pgAppointmentRepository) Update(ctx context.Context, appt *Appointment, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if appt.Status != "canceled" {
		conflicts, err := findOverlappingTx(ctx, tx, appt.CompanyID, appt.CreatedByUserID, appt.StartAt, appt.EndAt, appt.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &OverlapError{ConflictingIDs: conflicts}
		}
	}

	query := `
		UPDATE appointments SET client_id = $3, title = $4, start_at = $5, end_at = $6,
			status = $7, price_cents = $8, amount_paid_cents = $9, payment_status = $10,
			category = $11, notes = $12, updated_at = NOW()
		WHERE company_id = $1 AND id = $2
	`
	tag, err := tx.Exec(ctx, query,
		appt.CompanyID, appt.ID, appt.ClientID, appt.Title, appt.StartAt, appt.EndAt,
		appt.Status, appt.PriceCents, appt.AmountPaidCents, appt.PaymentStatus,
		appt.Category, appt.Notes,
	)
	if err != nil {
		return r.translateOverlap(ctx, err, appt, appt.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.translateOverlap(ctx, err, appt, appt.ID)
	}
	return nil
}

func (r *pgAppointmentRepository) Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `DELETE FROM appointments WHERE company_id = $1 AND id = $2`
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

func findOverlappingTx(ctx context.Context, tx pgx.Tx, companyID, creatorID string, start, end time.Time, excludeID string) ([]string, error) {
	query := `
		SELECT id FROM appointments
		WHERE company_id = $1 AND created_by_user_id = $2
		  AND status <> 'canceled'
		  AND start_at < $4 AND end_at > $3
	`
	args := []interface{}{companyID, creatorID, start, end}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// translateOverlap turns an exclusion-constraint violation into an
// OverlapError, re-querying so the caller still learns which rows collided.
func (r *pgAppointmentRepository) translateOverlap(ctx context.Context, err error, appt *Appointment, excludeID string) error {
	if !isExclusionViolation(err) {
		return err
	}
	conflicts, qErr := r.FindOverlapping(ctx, appt.CompanyID, appt.CreatedByUserID, appt.StartAt, appt.EndAt, excludeID)
	if qErr != nil {
		return &OverlapError{}
	}
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID)
	}
	return &OverlapError{ConflictingIDs: ids}
}
