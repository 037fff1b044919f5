package models

import "time"

// Principal is an account that can log in: a volunteer or an NGO.
// Email is stored normalized; PasswordHash never leaves the server.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"userType"`
	CreatedAt    time.Time `json:"createdAt"`
}
