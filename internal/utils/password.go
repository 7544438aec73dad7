package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches the cost used by the web client's seed data.
const DefaultBcryptCost = 12

// Hasher hashes and verifies principal passwords with bcrypt.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, falling back to DefaultBcryptCost for
// out-of-range costs.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return Hasher{Cost: cost}
}

// Hash returns bcrypt hash using the configured cost.
func (h Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password.
func (h Hasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
