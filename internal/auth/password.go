package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/easychef/internal/apperror"
)

const (
	defaultCost = 12

	// MinPasswordLength matches the hosted backend's default sign-up policy.
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit; longer input is silently
	// truncated by the algorithm, so it is rejected instead.
	MaxPasswordLength = 72
)

// PasswordService hashes and checks the credentials of the embedded store.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses a low bcrypt cost so tests stay fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckPolicy rejects passwords the backend would not accept at sign-up.
func (p *PasswordService) CheckPolicy(plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(plaintext) > MaxPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordLength))
	}
	return nil
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := p.CheckPolicy(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns an ErrUnauthorized error when plaintext does not match hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperror.Unauthorized("invalid login credentials")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
