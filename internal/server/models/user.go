// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Email is the identity used for document ownership.
type User struct {
	ID           string
	Email        string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
