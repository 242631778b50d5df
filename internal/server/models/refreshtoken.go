package models

import "time"

type RefreshToken struct {
	ID        string
	UserID    string
	Email     string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
