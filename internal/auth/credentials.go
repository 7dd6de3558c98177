// Package auth verifies admin credentials and tracks admin sessions.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStore checks an admin username and password.
type CredentialStore interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// StaticCredentials is a single configured admin account. Only the bcrypt
// hash of the password is kept in memory.
type StaticCredentials struct {
	username string
	hash     []byte
}

// NewStaticCredentials hashes password with the given bcrypt cost.
// Pass bcrypt.DefaultCost outside tests.
func NewStaticCredentials(username, password string, cost int) (*StaticCredentials, error) {
	if username == "" || password == "" {
		return nil, errors.New("admin username and password must be set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &StaticCredentials{username: username, hash: hash}, nil
}

// Verify reports whether username and password match the configured account.
func (c *StaticCredentials) Verify(ctx context.Context, username, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	err := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	switch {
	case err == nil:
		return userOK, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
}
