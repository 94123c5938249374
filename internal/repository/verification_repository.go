package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var (
	ErrVerificationNotFound = errors.New("verification not found")
	ErrEntityNotFound       = errors.New("verification target not found")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrAlreadyDecided       = errors.New("verification already decided")
)

type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

const verificationColumns = `id, entity_type, entity_id, submitted_by, document_url, document_type, notes,
		       status, reviewed_by, review_notes, reviewed_at, expiry_date, created_at, updated_at`

func scanVerification(row pgx.Row) (models.Verification, error) {
	var v models.Verification
	err := row.Scan(
		&v.ID,
		&v.EntityType,
		&v.EntityID,
		&v.SubmittedBy,
		&v.DocumentURL,
		&v.DocumentType,
		&v.Notes,
		&v.Status,
		&v.ReviewedBy,
		&v.ReviewNotes,
		&v.ReviewedAt,
		&v.ExpiryDate,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	return v, err
}

func collectVerifications(rows pgx.Rows) ([]models.Verification, error) {
	defer rows.Close()

	var out []models.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VerificationRepository) Create(ctx context.Context, v models.Verification) error {
	const query = `
		INSERT INTO verifications (
			id, entity_type, entity_id, submitted_by, document_url, document_type, notes,
			status, expiry_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		v.ID,
		v.EntityType,
		v.EntityID,
		v.SubmittedBy,
		v.DocumentURL,
		v.DocumentType,
		v.Notes,
		v.ExpiryDate,
		v.CreatedAt,
	)
	return err
}

func (r *VerificationRepository) GetByID(ctx context.Context, id string) (models.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE id = $1`

	v, err := scanVerification(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Verification{}, ErrVerificationNotFound
		}
		return models.Verification{}, err
	}
	return v, nil
}

// List returns verifications newest first; an empty status means all.
func (r *VerificationRepository) List(ctx context.Context, status models.VerificationStatus, limit int) ([]models.Verification, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verifications
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	return collectVerifications(rows)
}

func (r *VerificationRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.Verification, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verifications
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return collectVerifications(rows)
}

func (r *VerificationRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM verifications WHERE status = 'pending'`
	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// Entity loads the agent or property a verification targets together with
// the profile that owns it.
func (r *VerificationRepository) Entity(ctx context.Context, entityType models.EntityType, id string) (models.VerifiableEntity, error) {
	var query string
	switch entityType {
	case models.EntityAgent:
		query = `
			SELECT a.id, a.user_id, NULL::uuid, a.verification_status
			FROM agents a WHERE a.id = $1
		`
	case models.EntityProperty:
		query = `
			SELECT p.id, p.owner_id, ag.user_id, p.verification_status
			FROM properties p
			LEFT JOIN agents ag ON ag.id = p.agent_id
			WHERE p.id = $1
		`
	default:
		return models.VerifiableEntity{}, fmt.Errorf("unknown entity type %q", entityType)
	}

	entity := models.VerifiableEntity{Type: entityType}
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&entity.ID,
		&entity.OwnerID,
		&entity.AgentUserID,
		&entity.VerificationStatus,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VerifiableEntity{}, ErrEntityNotFound
		}
		return models.VerifiableEntity{}, err
	}
	return entity, nil
}

func (r *VerificationRepository) AgentByUserID(ctx context.Context, userID string) (models.Agent, error) {
	const query = `
		SELECT id, user_id, license_number, verification_status, verified_at, created_at, updated_at
		FROM agents WHERE user_id = $1
	`
	var agent models.Agent
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.LicenseNumber,
		&agent.VerificationStatus,
		&agent.VerifiedAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Agent{}, ErrAgentNotFound
		}
		return models.Agent{}, err
	}
	return agent, nil
}

type Decision struct {
	VerificationID string
	Outcome        models.VerificationStatus
	ReviewerID     string
	Notes          *string
	DecidedAt      time.Time
}

// Decide records the outcome and mirrors it onto the target entity in one
// transaction, so the two can never disagree. Records that are no longer
// pending are left untouched and ErrAlreadyDecided is returned.
func (r *VerificationRepository) Decide(ctx context.Context, d Decision) (models.Verification, error) {
	var decided models.Verification

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := `SELECT ` + verificationColumns + ` FROM verifications WHERE id = $1 FOR UPDATE`
		current, err := scanVerification(tx.QueryRow(ctx, lockQuery, d.VerificationID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrVerificationNotFound
			}
			return fmt.Errorf("lock verification: %w", err)
		}
		if current.Status != models.VerificationPending {
			decided = current
			return ErrAlreadyDecided
		}

		updateQuery := `
			UPDATE verifications
			SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5, updated_at = $5
			WHERE id = $1
			RETURNING ` + verificationColumns
		decided, err = scanVerification(tx.QueryRow(ctx, updateQuery,
			d.VerificationID, d.Outcome, d.ReviewerID, d.Notes, d.DecidedAt))
		if err != nil {
			return fmt.Errorf("update verification: %w", err)
		}

		var mirror string
		switch decided.EntityType {
		case models.EntityAgent:
			mirror = `
				UPDATE agents
				SET verification_status = $2,
				    verified_at = CASE WHEN $2 = 'verified' THEN $3 ELSE NULL END,
				    updated_at = $3
				WHERE id = $1
			`
		case models.EntityProperty:
			mirror = `
				UPDATE properties
				SET verification_status = $2,
				    is_verified = ($2 = 'verified'),
				    verified_at = CASE WHEN $2 = 'verified' THEN $3 ELSE NULL END,
				    updated_at = $3
				WHERE id = $1
			`
		default:
			return fmt.Errorf("unknown entity type %q", decided.EntityType)
		}

		cmd, err := tx.Exec(ctx, mirror, decided.EntityID, string(d.Outcome), d.DecidedAt)
		if err != nil {
			return fmt.Errorf("mirror %s status: %w", decided.EntityType, err)
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("mirror %s status: %w", decided.EntityType, ErrEntityNotFound)
		}
		return nil
	})
	if err != nil {
		return decided, err
	}
	return decided, nil
}
