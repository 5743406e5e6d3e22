package security

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("password hashing failed")
	ErrEmptySecret   = errors.New("credential email and password are required")
)

// Credential is a single email/password pair held only as a bcrypt hash.
type Credential struct {
	email string
	hash  []byte
}

// NewCredential hashes password with bcrypt. Out of range costs fall back to
// bcrypt.DefaultCost.
func NewCredential(email, password string, cost int) (*Credential, error) {
	if email == "" || password == "" {
		return nil, ErrEmptySecret
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, ErrHashingFailed
	}
	return &Credential{email: normalizeEmail(email), hash: hash}, nil
}

// Email returns the normalized email of the credential.
func (c *Credential) Email() string {
	if c == nil {
		return ""
	}
	return c.email
}

// Matches reports whether email and password equal the credential.
func (c *Credential) Matches(email, password string) bool {
	if c == nil {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(c.email)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return emailOK && passOK
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
