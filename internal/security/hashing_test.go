package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "correct horse battery staple" {
		t.Fatal("Hash returned empty or plaintext value")
	}

	if err := h.Compare(hash, []byte("correct horse battery staple")); err != nil {
		t.Errorf("Compare with right password: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong password")); err == nil {
		t.Error("Compare with wrong password: want error, got nil")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost != bcrypt.DefaultCost {
		t.Errorf("NewHasher(0).Cost = %d, want %d", h.Cost, bcrypt.DefaultCost)
	}
	if h := NewHasher(100); h.Cost != bcrypt.MaxCost {
		t.Errorf("NewHasher(100).Cost = %d, want %d", h.Cost, bcrypt.MaxCost)
	}
	if h := NewHasher(1); h.Cost != bcrypt.MinCost {
		t.Errorf("NewHasher(1).Cost = %d, want %d", h.Cost, bcrypt.MinCost)
	}
}
