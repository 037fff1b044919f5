// Package models holds the CLI's view of the server's auth resources.
package models

import "time"

// Session is a logged-in principal together with its bearer token. It is
// what the CLI keeps between runs.
type Session struct {
	UserID   string
	Email    string
	Name     string
	UserType string
	Token    string
}

// Identity is what the server decodes from a live token.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserType  string    `json:"userType"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
