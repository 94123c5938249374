package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := map[string]bool{}
	for _, code := range codes {
		assert.Len(t, code, 9)
		assert.Equal(t, byte('-'), code[4])
		assert.True(t, LooksLikeBackupCode(code))
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestHashBackupCodeIsNormalized(t *testing.T) {
	salt, err := NewBackupSalt()
	require.NoError(t, err)

	h := HashBackupCode("ABCD-EFGH", salt)
	assert.Equal(t, h, HashBackupCode("abcd efgh", salt))
	assert.Equal(t, h, HashBackupCode("abcdefgh", salt))
	assert.NotContains(t, h, "ABCD")

	other, err := NewBackupSalt()
	require.NoError(t, err)
	assert.NotEqual(t, h, HashBackupCode("ABCD-EFGH", other))
}

func TestContainsHash(t *testing.T) {
	salt, _ := NewBackupSalt()
	hashes := HashBackupCodes([]string{"AAAA-BBBB", "CCCC-DDDD"}, salt)

	assert.True(t, ContainsHash(hashes, HashBackupCode("cccc-dddd", salt)))
	assert.False(t, ContainsHash(hashes, HashBackupCode("EEEE-FFFF", salt)))
}

func TestLooksLikeBackupCode(t *testing.T) {
	assert.False(t, LooksLikeBackupCode("123456"))
	assert.False(t, LooksLikeBackupCode("ABCD-EFG0"), "0 is not in the alphabet")
	assert.True(t, LooksLikeBackupCode("abcd-efgh"))
}

func TestTOTPWindow(t *testing.T) {
	key, err := NewTOTPKey("Nigerian Real Estate", "admin@example.ng")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.URL, "otpauth://totp/"))
	assert.True(t, strings.HasPrefix(key.QRCodePNG, "data:image/png;base64,"))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code, err := TOTPCode(key.Secret, now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTP(code, key.Secret, now, 2))
	assert.True(t, ValidateTOTP(code, key.Secret, now, 2), "codes are reusable within their window")
	assert.True(t, ValidateTOTP(code, key.Secret, now.Add(60*time.Second), 2))
	assert.True(t, ValidateTOTP(code, key.Secret, now.Add(-60*time.Second), 2))
	assert.False(t, ValidateTOTP(code, key.Secret, now.Add(120*time.Second), 2))
}
