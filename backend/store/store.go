// Package store persists users and counts activities. Two backends are
// provided: MongoDB (the default) and any SQL database gorm can drive.
package store

import (
	"context"
	"errors"

	"usuarios/backend/models"
)

var (
	ErrNotFound     = errors.New("store: user not found")
	ErrDuplicateKey = errors.New("store: duplicate key")
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	// UpdatePartial applies only the non-nil fields of update and returns
	// the user as stored afterwards.
	UpdatePartial(ctx context.Context, id string, update models.UserUpdate) (*models.User, error)
	// Delete removes the user and returns it as it was before removal.
	Delete(ctx context.Context, id string) (*models.User, error)
	PushBadge(ctx context.Context, id string, badge models.Badge) error
}

type ActivityCounter interface {
	CountActivities(ctx context.Context) (int64, error)
}
