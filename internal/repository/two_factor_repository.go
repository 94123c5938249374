package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var ErrTwoFactorNotFound = errors.New("two factor credential not found")

type TwoFactorRepository struct {
	pool *pgxpool.Pool
}

func NewTwoFactorRepository(pool *pgxpool.Pool) *TwoFactorRepository {
	return &TwoFactorRepository{pool: pool}
}

func (r *TwoFactorRepository) Get(ctx context.Context, userID string) (models.StepUpCredential, error) {
	const query = `
		SELECT user_id, secret, backup_codes, backup_salt, enabled, enabled_at, created_at, updated_at
		FROM two_factor_auth
		WHERE user_id = $1
	`

	var cred models.StepUpCredential
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.Secret,
		&cred.BackupCodes,
		&cred.BackupSalt,
		&cred.Enabled,
		&cred.EnabledAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StepUpCredential{}, ErrTwoFactorNotFound
		}
		return models.StepUpCredential{}, err
	}
	return cred, nil
}

// Save starts a fresh, disabled credential. Any previous secret and backup
// codes for the user are replaced.
func (r *TwoFactorRepository) Save(ctx context.Context, cred models.StepUpCredential) error {
	const query = `
		INSERT INTO two_factor_auth (
			user_id, secret, backup_codes, backup_salt, enabled, enabled_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, FALSE, NULL, NOW(), NOW()
		)
		ON CONFLICT (user_id)
		DO UPDATE SET
			secret = EXCLUDED.secret,
			backup_codes = EXCLUDED.backup_codes,
			backup_salt = EXCLUDED.backup_salt,
			enabled = FALSE,
			enabled_at = NULL,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		cred.UserID,
		cred.Secret,
		cred.BackupCodes,
		cred.BackupSalt,
	)
	return err
}

func (r *TwoFactorRepository) Enable(ctx context.Context, userID string) error {
	const query = `
		UPDATE two_factor_auth
		SET enabled = TRUE,
		    enabled_at = COALESCE(enabled_at, NOW()),
		    updated_at = NOW()
		WHERE user_id = $1 AND secret <> ''
	`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTwoFactorNotFound
	}
	return nil
}

// Delete discards the secret and backup codes. Deleting a missing row is not
// an error.
func (r *TwoFactorRepository) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM two_factor_auth WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// ConsumeBackupCode removes hash from the usable set in one statement. Only
// the caller whose update matched the row gets true.
func (r *TwoFactorRepository) ConsumeBackupCode(ctx context.Context, userID string, hash string) (bool, error) {
	const query = `
		UPDATE two_factor_auth
		SET backup_codes = array_remove(backup_codes, $2),
		    updated_at = NOW()
		WHERE user_id = $1 AND $2 = ANY(backup_codes)
	`
	cmd, err := r.pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *TwoFactorRepository) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string, salt []byte) error {
	const query = `
		UPDATE two_factor_auth
		SET backup_codes = $2, backup_salt = $3, updated_at = NOW()
		WHERE user_id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, userID, hashes, salt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTwoFactorNotFound
	}
	return nil
}
