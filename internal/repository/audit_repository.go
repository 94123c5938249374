package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var ErrAuditNotFound = errors.New("security audit not found")

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

const auditColumns = `id, audit_type, scheduled_date, status, findings, recommendations, next_audit_date,
		       performed_by, completed_at, created_by, created_at, updated_at`

func scanAudit(row pgx.Row) (models.SecurityAudit, error) {
	var audit models.SecurityAudit
	err := row.Scan(
		&audit.ID,
		&audit.Type,
		&audit.ScheduledDate,
		&audit.Status,
		&audit.Findings,
		&audit.Recommendations,
		&audit.NextAuditDate,
		&audit.PerformedBy,
		&audit.CompletedAt,
		&audit.CreatedBy,
		&audit.CreatedAt,
		&audit.UpdatedAt,
	)
	return audit, err
}

func collectAudits(rows pgx.Rows) ([]models.SecurityAudit, error) {
	defer rows.Close()

	var audits []models.SecurityAudit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

func (r *AuditRepository) Create(ctx context.Context, audit models.SecurityAudit) error {
	const query = `
		INSERT INTO security_audits (
			id, audit_type, scheduled_date, status, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, 'scheduled', $4, $5, $5
		)
	`
	_, err := r.pool.Exec(ctx, query,
		audit.ID,
		audit.Type,
		audit.ScheduledDate,
		audit.CreatedBy,
		audit.CreatedAt,
	)
	return err
}

func (r *AuditRepository) GetByID(ctx context.Context, id string) (models.SecurityAudit, error) {
	query := `SELECT ` + auditColumns + ` FROM security_audits WHERE id = $1`
	audit, err := scanAudit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SecurityAudit{}, ErrAuditNotFound
		}
		return models.SecurityAudit{}, err
	}
	return audit, nil
}

func (r *AuditRepository) List(ctx context.Context, status models.AuditStatus) ([]models.SecurityAudit, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM security_audits
		WHERE ($1 = '' OR status = $1)
		ORDER BY scheduled_date DESC
	`
	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	return collectAudits(rows)
}

// Update writes status and completion fields. The status guard makes the
// write fail with ErrAuditNotFound if another request moved the audit first.
func (r *AuditRepository) Update(ctx context.Context, audit models.SecurityAudit, expected models.AuditStatus) (models.SecurityAudit, error) {
	query := `
		UPDATE security_audits
		SET status = $2, scheduled_date = $3, findings = $4, recommendations = $5,
		    next_audit_date = $6, performed_by = $7, completed_at = $8, updated_at = NOW()
		WHERE id = $1 AND status = $9
		RETURNING ` + auditColumns

	updated, err := scanAudit(r.pool.QueryRow(ctx, query,
		audit.ID,
		audit.Status,
		audit.ScheduledDate,
		audit.Findings,
		audit.Recommendations,
		audit.NextAuditDate,
		audit.PerformedBy,
		audit.CompletedAt,
		expected,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SecurityAudit{}, ErrAuditNotFound
		}
		return models.SecurityAudit{}, err
	}
	return updated, nil
}

// DueBy lists scheduled audits whose date is on or before day.
func (r *AuditRepository) DueBy(ctx context.Context, day time.Time) ([]models.SecurityAudit, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM security_audits
		WHERE status = 'scheduled' AND scheduled_date <= $1
		ORDER BY scheduled_date
	`
	rows, err := r.pool.Query(ctx, query, day)
	if err != nil {
		return nil, err
	}
	return collectAudits(rows)
}
