package crypto

import (
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/devsanjithm/accountd/internal/common/constants"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "correct-horse" || hash == "" {
		t.Fatal("expected a non-empty hash distinct from the password")
	}
	if err := hasher.Compare(hash, "correct-horse"); err != nil {
		t.Errorf("expected the password to match its hash: %v", err)
	}
	if err := hasher.Compare(hash, "wrong-password"); err == nil {
		t.Error("expected a mismatch for the wrong password")
	}
}

func TestBcryptHasher_CostFromConstants(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost != constants.BcryptCost {
		t.Errorf("expected cost %d, got %d", constants.BcryptCost, cost)
	}
}

func TestUUIDGenerator_NewID(t *testing.T) {
	gen := NewUUIDGenerator()

	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("expected a parseable uuid, got %q: %v", first, err)
	}

	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("expected distinct ids across calls")
	}
}
