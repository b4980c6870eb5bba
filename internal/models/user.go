package models

import (
	"time"

	"github.com/google/uuid"
)

// UserDB represents a user record in the database
type UserDB struct {
	UserID       uuid.UUID `json:"id" db:"user_id"`            // Primary key, owner id of the user's wallets
	Username     string    `json:"username" db:"username"`     // Unique username
	Email        string    `json:"email" db:"email"`           // User email, used for recipient lookup
	PasswordHash string    `json:"-" db:"password_hash"`       // Hashed password
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // Creation timestamp
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // Last update timestamp
}

// DirectoryEntry is the canonical account owner resolved from a human-facing identifier.
type DirectoryEntry struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}
