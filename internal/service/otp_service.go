package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/timeutil"
)

const otpTTL = 5 * time.Minute

type OTPService struct {
	repo   OTPRepository
	sender EmailSender
	now    timeutil.Clock
}

func NewOTPService(repo OTPRepository, sender EmailSender) *OTPService {
	return &OTPService{repo: repo, sender: sender, now: time.Now}
}

// RequestOTP issues a code for email. Only one code may be pending per
// email; a second request while one exists is a conflict.
func (s *OTPService) RequestOTP(ctx context.Context, email string) (*model.OTP, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, appErr.New(appErr.ErrInvalid, "email is required")
	}
	if !model.ValidEmail(email) {
		return nil, appErr.New(appErr.ErrInvalid, "invalid email")
	}
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, appErr.New(appErr.ErrConflict, "otp already requested for this email")
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	code, err := newOTPCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	otp := &model.OTP{
		ID:        newID(),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(otpTTL).Unix(),
		Ctime:     now.Unix(),
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		if appErr.IsConflict(err) {
			return nil, appErr.New(appErr.ErrConflict, "otp already requested for this email")
		}
		return nil, err
	}
	subject, body, err := otpMail(code, otpTTL)
	if err != nil {
		logutil.GetLogger(ctx).Error("build otp mail failed", zap.Error(err))
		return otp, nil
	}
	sendAsync(ctx, s.sender, email, subject, body)
	return otp, nil
}

// Verify checks code against the pending OTP for email. An expired OTP is
// deleted so a new one can be requested.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*model.OTP, error) {
	email = model.NormalizeEmail(email)
	otp, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrNotFound, "otp not found, request one first")
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return nil, appErr.New(appErr.ErrUnauthorized, "invalid otp")
	}
	if timeutil.Expired(otp.ExpiresAt, s.now()) {
		if err := s.repo.Delete(ctx, otp.ID); err != nil {
			logutil.GetLogger(ctx).Error("delete expired otp failed", zap.String("email", email), zap.Error(err))
		}
		return nil, appErr.New(appErr.ErrExpired, "otp expired")
	}
	return otp, nil
}

func (s *OTPService) Consume(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().Unix())
}
