package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/wassup/internal/model"
	"github.com/xxxsen/wassup/internal/pkg/dbutil"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
)

const usersTable = "users"

var userColumns = []string{
	"id", "first_name", "last_name", "username", "email", "password_hash", "avatar",
	"reset_token", "reset_token_expires_at", "otp_id", "ctime", "mtime",
}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":                     user.ID,
		"first_name":             user.FirstName,
		"last_name":              user.LastName,
		"username":               user.Username,
		"email":                  user.Email,
		"password_hash":          user.PasswordHash,
		"avatar":                 user.Avatar,
		"reset_token":            user.ResetToken,
		"reset_token_expires_at": user.ResetTokenExpiresAt,
		"otp_id":                 user.OTPID,
		"ctime":                  user.Ctime,
		"mtime":                  user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(usersTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return userConflict(err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"username": username})
}

// FindByLogin returns the first user whose email or username matches.
// Empty identifiers are ignored.
func (r *UserRepo) FindByLogin(ctx context.Context, email, username string) (*model.User, error) {
	var or []map[string]interface{}
	if email != "" {
		or = append(or, map[string]interface{}{"email": email})
	}
	if username != "" {
		or = append(or, map[string]interface{}{"username": username})
	}
	if len(or) == 0 {
		return nil, appErr.ErrNotFound
	}
	return r.getOne(ctx, map[string]interface{}{"_or": or})
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, id, avatar string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{"avatar": avatar, "mtime": mtime})
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch, mtime int64) error {
	update := map[string]interface{}{"mtime": mtime}
	if patch.FirstName != nil {
		update["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		update["last_name"] = *patch.LastName
	}
	if patch.Email != nil {
		update["email"] = *patch.Email
	}
	if patch.Username != nil {
		update["username"] = *patch.Username
	}
	return r.update(ctx, id, update)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{"password_hash": passwordHash, "mtime": mtime})
}

func (r *UserRepo) SetResetToken(ctx context.Context, id, token string, expiresAt, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
		"mtime":                  mtime,
	})
}

// ResetPassword stores the new hash and clears the reset token so it
// cannot be redeemed twice.
func (r *UserRepo) ResetPassword(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"password_hash": passwordHash,
		"reset_token":   "",
		"mtime":         mtime,
	})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	where["_limit"] = []uint{0, 1}
	sqlStr, args, err := builder.BuildSelect(usersTable, where, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var user model.User
	if err := rows.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Email, &user.PasswordHash, &user.Avatar,
		&user.ResetToken, &user.ResetTokenExpiresAt, &user.OTPID, &user.Ctime, &user.Mtime,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) update(ctx context.Context, id string, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate(usersTable, map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return userConflict(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func userConflict(err error) error {
	constraint, ok := dbutil.ConflictConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case "users_email_key":
		return appErr.New(appErr.ErrConflict, "email already registered")
	case "users_username_key":
		return appErr.New(appErr.ErrConflict, "username already taken")
	default:
		return fmt.Errorf("%w: %s", appErr.ErrConflict, constraint)
	}
}
