package service

import (
	"context"

	"github.com/xxxsen/wassup/internal/model"
)

// UserRepository is implemented by repo.UserRepo and memrepo.UserRepo.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	FindByLogin(ctx context.Context, email, username string) (*model.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string, mtime int64) error
	UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch, mtime int64) error
	UpdatePassword(ctx context.Context, id, passwordHash string, mtime int64) error
	SetResetToken(ctx context.Context, id, token string, expiresAt, mtime int64) error
	ResetPassword(ctx context.Context, id, passwordHash string, mtime int64) error
}

// OTPRepository is implemented by repo.OTPRepo and memrepo.OTPRepo.
type OTPRepository interface {
	Create(ctx context.Context, otp *model.OTP) error
	GetByEmail(ctx context.Context, email string) (*model.OTP, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}
