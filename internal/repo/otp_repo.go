package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/wassup/internal/model"
	"github.com/xxxsen/wassup/internal/pkg/dbutil"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
)

const otpsTable = "otps"

type OTPRepo struct {
	db *sql.DB
}

func NewOTPRepo(db *sql.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

func (r *OTPRepo) Create(ctx context.Context, otp *model.OTP) error {
	data := map[string]interface{}{
		"id":         otp.ID,
		"email":      otp.Email,
		"code":       otp.Code,
		"expires_at": otp.ExpiresAt,
		"ctime":      otp.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert(otpsTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *OTPRepo) GetByEmail(ctx context.Context, email string) (*model.OTP, error) {
	where := map[string]interface{}{"email": email, "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect(otpsTable, where, []string{"id", "email", "code", "expires_at", "ctime"})
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
	var otp model.OTP
	if err := rows.Scan(&otp.ID, &otp.Email, &otp.Code, &otp.ExpiresAt, &otp.Ctime); err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *OTPRepo) Delete(ctx context.Context, id string) error {
	_, err := r.delete(ctx, map[string]interface{}{"id": id})
	return err
}

// DeleteExpired removes every OTP whose expiry is before now and returns
// how many were removed.
func (r *OTPRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	return r.delete(ctx, map[string]interface{}{"expires_at <": now})
}

func (r *OTPRepo) delete(ctx context.Context, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(otpsTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
