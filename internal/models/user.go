package models

import "time"

// User is a portfolio owner. Passwords are stored as bcrypt hashes; the
// hosted auth service this replaces is approximated by a local
// username/password flow.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// RefreshToken is one rotating refresh credential for a user session.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
