package security

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt cost used when none is configured. It matches
// bcrypt.DefaultCost (10); treat it as configuration, not a constant to
// tweak inline.
const DefaultCost = bcrypt.DefaultCost

// Hasher hashes and verifies passwords with bcrypt. Hashing is CPU-bound;
// each request runs on its own goroutine so one hash never stalls others.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash produces a salted one-way digest of the plain text password.
func (h *Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Verify compares a bcrypt digest with a plaintext password. A malformed
// digest reports as a mismatch error, never a panic.
func (h *Hasher) Verify(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
