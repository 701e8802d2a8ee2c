// Package memrepo keeps users and OTPs in process memory. It backs the
// "memory" database driver and the service and handler tests.
package memrepo

import (
	"context"
	"sync"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]model.User)}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return appErr.ErrConflict
	}
	if err := r.checkUniqueLocked(user.ID, user.Email, user.Username); err != nil {
		return err
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *UserRepo) FindByLogin(ctx context.Context, email, username string) (*model.User, error) {
	if email == "" && username == "" {
		return nil, appErr.ErrNotFound
	}
	return r.find(func(u *model.User) bool {
		return (email != "" && u.Email == email) || (username != "" && u.Username == username)
	})
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, id, avatar string, mtime int64) error {
	return r.mutate(id, func(u *model.User) error {
		u.Avatar = avatar
		u.Mtime = mtime
		return nil
	})
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch, mtime int64) error {
	return r.mutate(id, func(u *model.User) error {
		next := *u
		patch.Apply(&next)
		if err := r.checkUniqueLocked(id, next.Email, next.Username); err != nil {
			return err
		}
		next.Mtime = mtime
		*u = next
		return nil
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.mutate(id, func(u *model.User) error {
		u.PasswordHash = passwordHash
		u.Mtime = mtime
		return nil
	})
}

func (r *UserRepo) SetResetToken(ctx context.Context, id, token string, expiresAt, mtime int64) error {
	return r.mutate(id, func(u *model.User) error {
		u.ResetToken = token
		u.ResetTokenExpiresAt = expiresAt
		u.Mtime = mtime
		return nil
	})
}

func (r *UserRepo) ResetPassword(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.mutate(id, func(u *model.User) error {
		u.PasswordHash = passwordHash
		u.ResetToken = ""
		u.Mtime = mtime
		return nil
	})
}

func (r *UserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *UserRepo) mutate(id string, fn func(*model.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return appErr.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.users[id] = u
	return nil
}

// checkUniqueLocked mirrors the users_email_key / users_username_key
// constraints of the SQL schema.
func (r *UserRepo) checkUniqueLocked(id, email, username string) error {
	for _, other := range r.users {
		if other.ID == id {
			continue
		}
		if other.Email == email {
			return appErr.New(appErr.ErrConflict, "email already registered")
		}
		if other.Username == username {
			return appErr.New(appErr.ErrConflict, "username already taken")
		}
	}
	return nil
}

type OTPRepo struct {
	mu      sync.Mutex
	byEmail map[string]model.OTP
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{byEmail: make(map[string]model.OTP)}
}

func (r *OTPRepo) Create(ctx context.Context, otp *model.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[otp.Email]; ok {
		return appErr.ErrConflict
	}
	r.byEmail[otp.Email] = *otp
	return nil
}

func (r *OTPRepo) GetByEmail(ctx context.Context, email string) (*model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.byEmail[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &otp, nil
}

func (r *OTPRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, otp := range r.byEmail {
		if otp.ID == id {
			delete(r.byEmail, email)
		}
	}
	return nil
}

func (r *OTPRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for email, otp := range r.byEmail {
		if otp.ExpiresAt < now {
			delete(r.byEmail, email)
			removed++
		}
	}
	return removed, nil
}
