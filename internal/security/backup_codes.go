package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	backupCodeLength   = 8
	backupSaltLength   = 16
)

// Argon2Params tune backup code hashing. Codes carry 40 bits of entropy, so
// the parameters are lighter than for passwords; one hash is computed per
// verification attempt.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var backupCodeParams = Argon2Params{
	Time:    1,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
}

// GenerateBackupCodes returns n fresh codes formatted XXXX-XXXX.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	max := big.NewInt(int64(len(backupCodeAlphabet)))

	for len(codes) < n {
		var b strings.Builder
		for i := 0; i < backupCodeLength; i++ {
			if i == backupCodeLength/2 {
				b.WriteByte('-')
			}
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, fmt.Errorf("generate backup code: %w", err)
			}
			b.WriteByte(backupCodeAlphabet[idx.Int64()])
		}
		code := b.String()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// NewBackupSalt returns the per-credential salt all codes are hashed under.
func NewBackupSalt() ([]byte, error) {
	salt := make([]byte, backupSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NormalizeBackupCode strips separators and case so "abcd efgh", "ABCD-EFGH"
// and "abcdefgh" hash identically.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// LooksLikeBackupCode reports whether input has the shape of a backup code.
func LooksLikeBackupCode(code string) bool {
	normalized := NormalizeBackupCode(code)
	if len(normalized) != backupCodeLength {
		return false
	}
	for _, r := range normalized {
		if !strings.ContainsRune(backupCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// HashBackupCode is a one-way hash of a normalized code. The same code and
// salt always give the same output so a hash can be matched with a single
// conditional update.
func HashBackupCode(code string, salt []byte) string {
	p := backupCodeParams
	sum := argon2.IDKey([]byte(NormalizeBackupCode(code)), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return base64.RawStdEncoding.EncodeToString(sum)
}

func HashBackupCodes(codes []string, salt []byte) []string {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, HashBackupCode(code, salt))
	}
	return hashes
}

// ContainsHash does a constant-time membership check.
func ContainsHash(hashes []string, candidate string) bool {
	found := 0
	for _, h := range hashes {
		found |= subtle.ConstantTimeCompare([]byte(h), []byte(candidate))
	}
	return found == 1
}
