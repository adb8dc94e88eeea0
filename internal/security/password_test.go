package security_test

import (
	"strings"
	"testing"

	"github.com/rmorel/userhub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Abc123")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if hash == "Abc123" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt digest, got %q", hash)
	}

	if err := h.Verify(hash, "Abc123"); err != nil {
		t.Fatalf("Verify rejected the correct password: %v", err)
	}
}

func TestHasherRejectsWrongPassword(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Abc123")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if err := h.Verify(hash, "Abc124"); err == nil {
		t.Fatalf("Verify accepted a wrong password")
	}
}

func TestHasherRejectsMalformedDigest(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	if err := h.Verify("not-a-bcrypt-digest", "Abc123"); err == nil {
		t.Fatalf("Verify accepted a malformed digest")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	// out-of-range costs fall back to the default instead of failing later
	h := security.NewHasher(9999)

	hash, err := h.Hash("Abc123")

	if err != nil {
		t.Fatalf("Hash with clamped cost returned error: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))

	if err != nil {
		t.Fatalf("Cost returned error: %v", err)
	}

	if cost != bcrypt.DefaultCost {
		t.Fatalf("got cost %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	a, err := h.Hash("Abc123")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	b, err := h.Hash("Abc123")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if a == b {
		t.Fatalf("two hashes of the same password should differ")
	}
}
