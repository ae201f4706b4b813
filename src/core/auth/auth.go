package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid username or password")
)

// AuthResult is the outcome of a credential check
type AuthResult struct {
	Authorized bool
	Username   string
}

// Verifier checks admin credentials independently of any UI
type Verifier interface {
	VerifyCredentials(username, password string) (AuthResult, error)
}

// BcryptVerifier accepts a single configured username and bcrypt password hash
type BcryptVerifier struct {
	username     string
	passwordHash []byte
}

// NewBcryptVerifier uses an existing bcrypt hash
func NewBcryptVerifier(username, passwordHash string) (*BcryptVerifier, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username: %w", ErrInvalidInput)
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}
	return &BcryptVerifier{
		username:     username,
		passwordHash: []byte(passwordHash),
	}, nil
}

// NewBcryptVerifierFromPassword hashes a plaintext password once at start-up
func NewBcryptVerifierFromPassword(username, password string) (*BcryptVerifier, error) {
	if password == "" {
		return nil, fmt.Errorf("admin password: %w", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	return NewBcryptVerifier(username, string(hash))
}

// VerifyCredentials succeeds iff both username and password match. A
// mismatch returns ErrInvalidCredential with an unauthorized result.
func (v *BcryptVerifier) VerifyCredentials(username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, ErrInvalidCredential
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return AuthResult{}, ErrInvalidCredential
	}

	return AuthResult{Authorized: true, Username: v.username}, nil
}
