package model

import (
	"strings"
	"time"
)

// Principal is an authenticated identity. Email is the key used for sharing.
type Principal struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Picture     string    `json:"picture,omitempty"`
	Provider    string    `json:"provider"`
	AccessToken string    `json:"-"`
	TokenExpiry time.Time `json:"-"`
}

// NormalizeEmail returns the form in which emails are stored and compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail reports whether a and b address the same mailbox.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
