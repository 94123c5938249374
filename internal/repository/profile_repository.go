package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, email, full_name, user_type, is_verified, is_locked, created_at, updated_at`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var (
		profile  models.Profile
		userType string
	)
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&userType,
		&profile.IsVerified,
		&profile.IsLocked,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return models.Profile{}, err
	}
	profile.Role = models.ParseRole(userType)
	return profile, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return profile, nil
}

// ListAlertRecipients returns verified, unlocked admins.
func (r *ProfileRepository) ListAlertRecipients(ctx context.Context) ([]models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_type = 'admin' AND is_verified AND NOT is_locked
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	const query = `UPDATE profiles SET is_locked = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, locked)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
