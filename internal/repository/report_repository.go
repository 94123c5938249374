package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already exists")
)

const uniqueViolation = "23505"

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

const reportColumns = `id, reporter_id, entity_type, entity_id, reason, description, status,
		       admin_notes, resolved_by, resolved_at, created_at, updated_at`

func scanReport(row pgx.Row) (models.Report, error) {
	var report models.Report
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.EntityType,
		&report.EntityID,
		&report.Reason,
		&report.Description,
		&report.Status,
		&report.AdminNotes,
		&report.ResolvedBy,
		&report.ResolvedAt,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	return report, err
}

// FindByReporter returns the reporter's existing report against an entity.
func (r *ReportRepository) FindByReporter(ctx context.Context, reporterID string, entityType models.ReportEntityType, entityID string) (models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE reporter_id = $1 AND entity_type = $2 AND entity_id = $3
	`
	report, err := scanReport(r.pool.QueryRow(ctx, query, reporterID, entityType, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) Create(ctx context.Context, report models.Report) error {
	const query = `
		INSERT INTO reports (
			id, reporter_id, entity_type, entity_id, reason, description, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 'new', $7, $7
		)
	`
	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.ReporterID,
		report.EntityType,
		report.EntityID,
		report.Reason,
		report.Description,
		report.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateReport
	}
	return err
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) Update(ctx context.Context, report models.Report) (models.Report, error) {
	query := `
		UPDATE reports
		SET status = $2, admin_notes = $3, resolved_by = $4, resolved_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + reportColumns

	updated, err := scanReport(r.pool.QueryRow(ctx, query,
		report.ID,
		report.Status,
		report.AdminNotes,
		report.ResolvedBy,
		report.ResolvedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return updated, nil
}

func (r *ReportRepository) CountOpen(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM reports WHERE status IN ('new', 'investigating')`
	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}
