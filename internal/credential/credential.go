// Package credential hashes and verifies user passwords.
package credential

import (
	"fmt"

	"account-service/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// Store hashes passwords with bcrypt at a fixed cost.
type Store struct {
	cost int
}

// NewStore returns a Store using cost, falling back to DefaultCost when cost is out of bcrypt's range.
func NewStore(cost int) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Store{cost: cost}
}

// Hash returns the salted bcrypt hash of plaintext.
func (s *Store) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed.
func (s *Store) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// Prepare hashes the user's staged password, if one was set since the last call.
// Users without a staged password are left untouched, so a record can be saved
// any number of times without re-hashing its stored hash.
func (s *Store) Prepare(user *models.User) error {
	plain, dirty := user.PendingPassword()
	if !dirty {
		return nil
	}
	hashed, err := s.Hash(plain)
	if err != nil {
		return err
	}
	user.ApplyPasswordHash(hashed)
	return nil
}
