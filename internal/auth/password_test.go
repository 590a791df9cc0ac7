package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/easychef/internal/apperror"
)

// newTestPasswordService returns a PasswordService with bcrypt cost 4,
// the minimum the library allows.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestCheckPolicy(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "too short", password: "abc", wantErr: true},
		{name: "empty", password: "", wantErr: true},
		{name: "minimum length", password: strings.Repeat("a", MinPasswordLength)},
		{name: "exactly 72 bytes", password: strings.Repeat("a", 72)},
		{name: "73 bytes", password: strings.Repeat("a", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.CheckPolicy(tt.password)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrValidation) {
					t.Errorf("CheckPolicy() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckPolicy() unexpected error = %v", err)
			}
		})
	}
}

func TestHash_EnforcesPolicy(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash("pw"); err == nil {
		t.Fatal("Hash() should reject a password shorter than the policy minimum")
	}
}

func TestVerify_CorrectPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := ps.Verify(hash, "correct-horse"); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_WrongPasswordIsUnauthorized(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("correct-horse")

	err := ps.Verify(hash, "battery-staple")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Verify() error = %v, want ErrUnauthorized", err)
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("not-a-bcrypt-hash", "whatever")
	if err == nil {
		t.Fatal("Verify() should fail for a malformed hash")
	}
	if errors.Is(err, apperror.ErrUnauthorized) {
		t.Error("a malformed hash is a server problem, not a bad credential")
	}
}
