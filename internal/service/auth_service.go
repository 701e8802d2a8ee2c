package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/jwt"
	"github.com/xxxsen/wassup/internal/pkg/timeutil"
)

const resetTokenTTL = 5 * time.Minute

type AuthService struct {
	users      UserRepository
	otps       *OTPService
	avatars    *AvatarUploader
	jwtSecret  []byte
	sessionTTL time.Duration
	now        timeutil.Clock
}

func NewAuthService(users UserRepository, otps *OTPService, avatars *AvatarUploader, secret []byte, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		otps:       otps,
		avatars:    avatars,
		jwtSecret:  secret,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	OTP       string
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = model.NormalizeUsername(in.Username)
	in.Email = model.NormalizeEmail(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
}

func (in *RegisterInput) complete() bool {
	return in.FirstName != "" && in.LastName != "" && in.Username != "" &&
		in.Email != "" && in.Password != "" && in.OTP != ""
}

// Register validates everything it can before touching the media store,
// then uploads the avatar and creates the user. The avatar is removed
// again if the user cannot be created.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, avatar *Upload) (*model.User, error) {
	in.normalize()
	if !in.complete() {
		return nil, appErr.New(appErr.ErrInvalid, "all fields are required")
	}
	if !model.ValidEmail(in.Email) {
		return nil, appErr.New(appErr.ErrInvalid, "invalid email")
	}
	if avatar == nil || avatar.Path == "" {
		return nil, appErr.New(appErr.ErrInvalid, "avatar is required")
	}
	_, err := s.users.FindByLogin(ctx, in.Email, in.Username)
	if err == nil {
		return nil, appErr.New(appErr.ErrConflict, "user already exists")
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	otp, err := s.otps.Verify(ctx, in.Email, in.OTP)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:                  newID(),
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Username:            in.Username,
		Email:               in.Email,
		ResetTokenExpiresAt: now.Add(resetTokenTTL).Unix(),
		OTPID:               otp.ID,
		Ctime:               now.Unix(),
		Mtime:               now.Unix(),
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	key, url, err := s.avatars.Upload(ctx, user.ID, avatar)
	if err != nil {
		return nil, err
	}
	user.Avatar = url
	if err := s.users.Create(ctx, user); err != nil {
		s.avatars.Discard(ctx, key)
		return nil, err
	}
	if err := s.otps.Consume(ctx, otp.ID); err != nil {
		logutil.GetLogger(ctx).Error("consume otp failed", zap.String("email", in.Email), zap.Error(err))
	}
	logutil.GetLogger(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

type SessionPayload struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"userName"`
}

type Session struct {
	Token   string
	Payload SessionPayload
}

// Login accepts either identifier. When both are given a user matching
// either one is used.
func (s *AuthService) Login(ctx context.Context, username, email, plainPassword string) (*Session, error) {
	username = model.NormalizeUsername(username)
	email = model.NormalizeEmail(email)
	if (username == "" && email == "") || plainPassword == "" {
		return nil, appErr.New(appErr.ErrInvalid, "all fields are required")
	}
	user, err := s.users.FindByLogin(ctx, email, username)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrNotFound, "user not found, register first")
		}
		return nil, err
	}
	if !user.CheckPassword(plainPassword) {
		return nil, appErr.New(appErr.ErrBadCredentials, "invalid credentials")
	}
	payload := SessionPayload{UserID: user.ID, Email: user.Email, Username: user.Username}
	token, err := jwt.GenerateToken(jwt.Claims{
		UserID:   payload.UserID,
		Email:    payload.Email,
		Username: payload.Username,
	}, jwt.AudienceSession, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Payload: payload}, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, appErr.New(appErr.ErrUnauthorized, "token not found")
	}
	claims, err := jwt.ParseToken(token, jwt.AudienceSession, s.jwtSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, appErr.New(appErr.ErrUnauthorized, "token expired")
		}
		return nil, appErr.New(appErr.ErrUnauthorized, "invalid token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.New(appErr.ErrUnauthorized, "invalid token")
		}
		return nil, err
	}
	return user, nil
}
