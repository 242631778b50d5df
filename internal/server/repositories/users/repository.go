// Package users declares and implements storage for accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its ID. A taken email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail returns common.ErrorNotFound for unknown emails.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
