package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"unicode", "密码123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.password {
				t.Fatal("Hash() returned the password itself")
			}
			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() rejected the correct password")
			}
			if hasher.Verify(tt.password+"x", hash) {
				t.Error("Verify() accepted a wrong password")
			}
		})
	}
}

func TestPasswordHasher_Salted(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("same")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := hasher.Hash("same")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("identical hashes for the same password")
	}
}

func TestNewPasswordHasher_CostBounds(t *testing.T) {
	for _, cost := range []int{0, 1, bcrypt.MaxCost + 1} {
		if got := NewPasswordHasher(cost).cost; got != DefaultBcryptCost {
			t.Errorf("cost %d resolved to %d, want %d", cost, got, DefaultBcryptCost)
		}
	}
	if got := NewPasswordHasher(bcrypt.MinCost).cost; got != bcrypt.MinCost {
		t.Errorf("min cost resolved to %d", got)
	}
}
