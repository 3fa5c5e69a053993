package entities

import "time"

// User represents a user entity in the database
type User struct {
	ID           string    `json:"_id"` // UUID
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Don't expose password hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
}
