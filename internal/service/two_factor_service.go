package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/apperr"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/security"
)

// ErrTwoFactorNotConfigured is returned when an operation needs a stored
// secret and the identity has none. Callers are expected to check
// IsEnabled first.
var ErrTwoFactorNotConfigured = errors.New("two factor not configured")

type TwoFactorService struct {
	store TwoFactorStore
	cfg   config.TwoFactorConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewTwoFactorService(store TwoFactorStore, cfg config.TwoFactorConfig, log zerolog.Logger) *TwoFactorService {
	if cfg.BackupCodeCount <= 0 {
		cfg.BackupCodeCount = 10
	}
	return &TwoFactorService{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

type SetupResult struct {
	Secret      string
	OTPAuthURL  string
	QRCodeURL   string
	BackupCodes []string
}

type VerifyResult struct {
	Valid          bool
	UsedBackupCode bool
}

type TwoFactorStatus struct {
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// GenerateSecret starts a new, disabled credential for the identity,
// replacing any previous one. Plaintext backup codes are only ever returned
// here.
func (s *TwoFactorService) GenerateSecret(ctx context.Context, identity models.Identity) (SetupResult, error) {
	account := identity.Email
	if account == "" {
		account = identity.ID
	}

	key, err := security.NewTOTPKey(s.cfg.Issuer, account)
	if err != nil {
		return SetupResult{}, err
	}
	codes, salt, hashes, err := s.newBackupCodes()
	if err != nil {
		return SetupResult{}, err
	}

	cred := models.StepUpCredential{
		UserID:      identity.ID,
		Secret:      key.Secret,
		BackupCodes: hashes,
		BackupSalt:  salt,
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return SetupResult{}, fmt.Errorf("save two factor credential: %w", err)
	}

	return SetupResult{
		Secret:      key.Secret,
		OTPAuthURL:  key.URL,
		QRCodeURL:   key.QRCodePNG,
		BackupCodes: codes,
	}, nil
}

// Verify checks a submitted code against the stored secret, then against the
// unused backup codes. A wrong code is an invalid result, not an error.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) (VerifyResult, error) {
	cred, err := s.credential(ctx, userID)
	if err != nil {
		return VerifyResult{}, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return VerifyResult{}, nil
	}

	if security.ValidateTOTP(code, cred.Secret, s.now(), s.cfg.Skew) {
		return VerifyResult{Valid: true}, nil
	}

	if !security.LooksLikeBackupCode(code) || len(cred.BackupSalt) == 0 {
		return VerifyResult{}, nil
	}
	hash := security.HashBackupCode(code, cred.BackupSalt)
	if !security.ContainsHash(cred.BackupCodes, hash) {
		return VerifyResult{}, nil
	}

	consumed, err := s.store.ConsumeBackupCode(ctx, userID, hash)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("consume backup code: %w", err)
	}
	if !consumed {
		// Another request used the code between the read and the update.
		return VerifyResult{}, nil
	}

	s.log.Info().Str("user_id", userID).Msg("backup code consumed")
	return VerifyResult{Valid: true, UsedBackupCode: true}, nil
}

// ConfirmSetup enables the credential once the caller proves possession of
// the secret. Backup codes cannot be used here.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, userID, code string) error {
	cred, err := s.credential(ctx, userID)
	if err != nil {
		return err
	}
	if !security.ValidateTOTP(strings.TrimSpace(code), cred.Secret, s.now(), s.cfg.Skew) {
		return apperr.New(apperr.KindValidation, "invalid_token", "Invalid 2FA token")
	}
	return s.Enable(ctx, userID)
}

func (s *TwoFactorService) Enable(ctx context.Context, userID string) error {
	if err := s.store.Enable(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			return ErrTwoFactorNotConfigured
		}
		return fmt.Errorf("enable two factor: %w", err)
	}
	return nil
}

// Disable discards the secret and all backup codes. Disabling an identity
// without a credential succeeds.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("disable two factor: %w", err)
	}
	return nil
}

func (s *TwoFactorService) IsEnabled(ctx context.Context, userID string) (bool, error) {
	status, err := s.Status(ctx, userID)
	return status.Enabled, err
}

func (s *TwoFactorService) Status(ctx context.Context, userID string) (TwoFactorStatus, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			return TwoFactorStatus{}, nil
		}
		return TwoFactorStatus{}, fmt.Errorf("load two factor credential: %w", err)
	}
	return TwoFactorStatus{
		Enabled:              cred.Enabled && cred.Secret != "",
		BackupCodesRemaining: len(cred.BackupCodes),
	}, nil
}

// RegenerateBackupCodes replaces the whole backup set after a fresh TOTP
// proof.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	cred, err := s.credential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cred.Enabled {
		return nil, apperr.Conflict("2fa_not_enabled", "Two-factor authentication is not enabled")
	}
	if !security.ValidateTOTP(strings.TrimSpace(code), cred.Secret, s.now(), s.cfg.Skew) {
		return nil, apperr.New(apperr.KindValidation, "invalid_token", "Invalid 2FA token")
	}

	codes, salt, hashes, err := s.newBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceBackupCodes(ctx, userID, hashes, salt); err != nil {
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			return nil, ErrTwoFactorNotConfigured
		}
		return nil, fmt.Errorf("replace backup codes: %w", err)
	}
	return codes, nil
}

func (s *TwoFactorService) credential(ctx context.Context, userID string) (models.StepUpCredential, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			return models.StepUpCredential{}, ErrTwoFactorNotConfigured
		}
		return models.StepUpCredential{}, fmt.Errorf("load two factor credential: %w", err)
	}
	if cred.Secret == "" {
		return models.StepUpCredential{}, ErrTwoFactorNotConfigured
	}
	return cred, nil
}

func (s *TwoFactorService) newBackupCodes() ([]string, []byte, []string, error) {
	codes, err := security.GenerateBackupCodes(s.cfg.BackupCodeCount)
	if err != nil {
		return nil, nil, nil, err
	}
	salt, err := security.NewBackupSalt()
	if err != nil {
		return nil, nil, nil, err
	}
	return codes, salt, security.HashBackupCodes(codes, salt), nil
}
