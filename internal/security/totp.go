package security

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	TOTPPeriod = 30
	TOTPDigits = otp.DigitsSix
	qrSize     = 256
)

type TOTPKey struct {
	Secret    string
	URL       string
	QRCodePNG string
}

// NewTOTPKey creates a secret and its provisioning material for account.
func NewTOTPKey(issuer, account string) (TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      TOTPPeriod,
		Digits:      TOTPDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPKey{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return TOTPKey{}, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return TOTPKey{}, fmt.Errorf("encode qr code: %w", err)
	}

	return TOTPKey{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRCodePNG: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ValidateTOTP accepts codes within skew periods either side of at. A code
// stays valid for its whole window and may be presented more than once.
func ValidateTOTP(code, secret string, at time.Time, skew uint) bool {
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      skew,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// TOTPCode returns the code for secret at t.
func TOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), totp.ValidateOpts{
		Period:    TOTPPeriod,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
