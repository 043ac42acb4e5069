package models

import "time"

// User is the authenticated principal. Its ID never changes once created.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
