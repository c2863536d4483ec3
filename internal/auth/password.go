package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when config does not set one.
//
// COST TUNING RULE OF THUMB:
// Set cost so that hashing takes ~200–300ms on your production hardware.
const DefaultCost = 12

// PasswordService provides bcrypt hashing and verification for passwords
// and for recovery-secret answers.
//
// It's a struct so the cost can be injected; tests use cost 4.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. A cost outside bcrypt's
// accepted range falls back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with an arbitrary
// cost, normally bcrypt.MinCost. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns an error if the plaintext is too long (bcrypt reads at most 72 bytes).
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates passwords longer than 72 bytes.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// Returns nil if they match.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// HashSecret hashes a recovery-secret answer. Answers are compared
// case-insensitively and without surrounding whitespace, so "  Rex " and
// "rex" are the same answer.
func (p *PasswordService) HashSecret(answer string) (string, error) {
	normalized := NormalizeSecret(answer)
	if normalized == "" {
		return "", errors.New("auth: secret answer is empty")
	}
	return p.Hash(normalized)
}

// VerifySecret is Verify for recovery-secret answers. An empty hash never
// matches.
func (p *PasswordService) VerifySecret(hash, answer string) error {
	if hash == "" {
		return errors.New("auth: no recovery secret set")
	}
	return p.Verify(hash, NormalizeSecret(answer))
}

func NormalizeSecret(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
