package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/jwt"
	"github.com/xxxsen/wassup/internal/pkg/timeutil"
)

type PasswordResetService struct {
	users     UserRepository
	sender    EmailSender
	jwtSecret []byte
	cookieTTL time.Duration
	linkBase  string
	now       timeutil.Clock
}

func NewPasswordResetService(users UserRepository, sender EmailSender, secret []byte, cookieTTL time.Duration, linkBase string) *PasswordResetService {
	return &PasswordResetService{
		users:     users,
		sender:    sender,
		jwtSecret: secret,
		cookieTTL: cookieTTL,
		linkBase:  linkBase,
		now:       time.Now,
	}
}

// ResetTicket is the result of a reset request. CookieToken authorizes the
// follow-up reset call; the reset token itself only travels by mail.
type ResetTicket struct {
	User        *model.User
	CookieToken string
}

func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (*ResetTicket, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, appErr.New(appErr.ErrInvalid, "email is required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrNotFound, "user not found")
		}
		return nil, err
	}
	token, err := newResetToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.SetResetToken(ctx, user.ID, token, now.Add(resetTokenTTL).Unix(), now.Unix()); err != nil {
		return nil, err
	}
	cookieToken, err := jwt.GenerateToken(jwt.Claims{UserID: user.ID, Email: user.Email}, jwt.AudiencePasswordReset, s.jwtSecret, s.cookieTTL)
	if err != nil {
		return nil, err
	}
	link, err := s.resetLink(token)
	if err != nil {
		return nil, err
	}
	subject, body, err := resetMail(link, resetTokenTTL)
	if err != nil {
		return nil, err
	}
	sendAsync(ctx, s.sender, user.Email, subject, body)
	logutil.GetLogger(ctx).Info("password reset requested", zap.String("user_id", user.ID))
	return &ResetTicket{User: user, CookieToken: cookieToken}, nil
}

type ResetPasswordInput struct {
	Token              string
	NewPassword        string
	ConfirmNewPassword string
	CookieToken        string
}

// ResetPassword redeems a reset token. The token is cleared on success so
// it works once.
func (s *PasswordResetService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*model.User, error) {
	if in.Token == "" || in.CookieToken == "" {
		return nil, appErr.New(appErr.ErrInvalid, "reset token is required")
	}
	if in.NewPassword == "" || in.ConfirmNewPassword == "" {
		return nil, appErr.New(appErr.ErrInvalid, "all fields are required")
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return nil, appErr.New(appErr.ErrInvalid, "new password and confirm new password do not match")
	}
	claims, err := jwt.ParseToken(in.CookieToken, jwt.AudiencePasswordReset, s.jwtSecret)
	if err != nil {
		return nil, appErr.New(appErr.ErrUnauthorized, "invalid reset session")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrUnauthorized, "invalid reset session")
		}
		return nil, err
	}
	if user.ResetToken == "" || subtle.ConstantTimeCompare([]byte(user.ResetToken), []byte(in.Token)) != 1 {
		return nil, appErr.New(appErr.ErrUnauthorized, "invalid reset token")
	}
	if timeutil.Expired(user.ResetTokenExpiresAt, s.now()) {
		return nil, appErr.New(appErr.ErrExpired, "reset token expired")
	}
	if err := user.SetPassword(in.NewPassword); err != nil {
		return nil, err
	}
	if err := s.users.ResetPassword(ctx, user.ID, user.PasswordHash, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, user.ID)
}

func (s *PasswordResetService) resetLink(token string) (string, error) {
	u, err := url.Parse(s.linkBase)
	if err != nil {
		return "", fmt.Errorf("parse reset link base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
