package utils

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Account passwords are between MinPasswordLen characters and
// MaxPasswordBytes bytes; bcrypt only reads the first 72 bytes.
const (
	MinPasswordLen   = 6
	MaxPasswordBytes = 72
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
)

// CheckPassword reports whether plain satisfies the account password policy.
func CheckPassword(plain string) error {
	switch {
	case len([]rune(plain)) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(plain) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword checks plain against the policy and returns its bcrypt hash.
func HashPassword(plain string, cost int) (string, error) {
	if err := CheckPassword(plain); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// VerifyPassword compares a stored hash with plain.  An empty hash stands
// for an unknown account: it is checked against a decoy so the caller
// spends the same bcrypt work and still gets false.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		decoyOnce.Do(func() {
			decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
