package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/timeutil"
)

type UserService struct {
	users   UserRepository
	avatars *AvatarUploader
	now     timeutil.Clock
}

func NewUserService(users UserRepository, avatars *AvatarUploader) *UserService {
	return &UserService{users: users, avatars: avatars, now: time.Now}
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID string, avatar *Upload) (*model.User, error) {
	if avatar == nil || avatar.Path == "" {
		return nil, appErr.New(appErr.ErrInvalid, "avatar is required")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	key, url, err := s.avatars.Upload(ctx, user.ID, avatar)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateAvatar(ctx, user.ID, url, s.now().Unix()); err != nil {
		s.avatars.Discard(ctx, key)
		return nil, err
	}
	return s.getUser(ctx, user.ID)
}

// UpdateDetails applies the non-empty fields of patch. A username or
// email is only a conflict when another user already holds it.
func (s *UserService) UpdateDetails(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
	patch = normalizePatch(patch)
	if patch.Empty() {
		return nil, appErr.New(appErr.ErrInvalid, "at least one field is required")
	}
	if patch.Email != nil && !model.ValidEmail(*patch.Email) {
		return nil, appErr.New(appErr.ErrInvalid, "invalid email")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Username != nil {
		if err := s.ensureUnused(ctx, user.ID, s.users.GetByUsername, *patch.Username, "username already used"); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if err := s.ensureUnused(ctx, user.ID, s.users.GetByEmail, *patch.Email, "email already used"); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateProfile(ctx, user.ID, patch, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.getUser(ctx, user.ID)
}

type ChangePasswordInput struct {
	OldPassword        string
	NewPassword        string
	ConfirmNewPassword string
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (*model.User, error) {
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmNewPassword == "" {
		return nil, appErr.New(appErr.ErrInvalid, "all fields are required")
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return nil, appErr.New(appErr.ErrInvalid, "new password and confirm new password do not match")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(in.OldPassword) {
		return nil, appErr.New(appErr.ErrUnauthorized, "invalid old password")
	}
	if err := user.SetPassword(in.NewPassword); err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.getUser(ctx, user.ID)
}

func (s *UserService) getUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, appErr.New(appErr.ErrNotFound, "user not found")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureUnused(ctx context.Context, selfID string, lookup func(context.Context, string) (*model.User, error), value, msg string) error {
	other, err := lookup(ctx, value)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if other.ID != selfID {
		return appErr.New(appErr.ErrConflict, msg)
	}
	return nil
}

func normalizePatch(p model.ProfilePatch) model.ProfilePatch {
	clean := func(v *string, norm func(string) string) *string {
		if v == nil {
			return nil
		}
		out := norm(*v)
		if out == "" {
			return nil
		}
		return &out
	}
	return model.ProfilePatch{
		FirstName: clean(p.FirstName, strings.TrimSpace),
		LastName:  clean(p.LastName, strings.TrimSpace),
		Email:     clean(p.Email, model.NormalizeEmail),
		Username:  clean(p.Username, model.NormalizeUsername),
	}
}
