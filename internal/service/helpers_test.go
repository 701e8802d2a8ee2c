package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/wassup/internal/filestore"
	"github.com/xxxsen/wassup/internal/model"
	"github.com/xxxsen/wassup/internal/repo/memrepo"
)

var testSecret = []byte("test-secret")

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingSender struct {
	mu   sync.Mutex
	mail []sentMail
	err  error
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mail = append(s.mail, sentMail{To: to, Subject: subject, Body: body})
	return s.err
}

func (s *recordingSender) sent() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail(nil), s.mail...)
}

func (s *recordingSender) waitFor(t *testing.T, n int) []sentMail {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.sent()) >= n }, 2*time.Second, 10*time.Millisecond)
	return s.sent()
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Type() string { return "memory" }

func (s *memStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStore) URL(key string) string { return "https://cdn.test/" + key }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// failingCreateRepo simulates a user insert losing a race on the unique index.
type failingCreateRepo struct {
	UserRepository
	err error
}

func (r failingCreateRepo) Create(ctx context.Context, user *model.User) error {
	return r.err
}

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

type fixture struct {
	users  *memrepo.UserRepo
	otpRep *memrepo.OTPRepo
	store  *memStore
	sender *recordingSender
	clock  *fakeClock
	otps   *OTPService
	auth   *AuthService
	user   *UserService
	reset  *PasswordResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  memrepo.NewUserRepo(),
		otpRep: memrepo.NewOTPRepo(),
		store:  newMemStore(),
		sender: &recordingSender{},
		clock:  newFakeClock(),
	}
	avatars := NewAvatarUploader(f.store)
	f.otps = NewOTPService(f.otpRep, f.sender)
	f.otps.now = f.clock.Now
	f.auth = NewAuthService(f.users, f.otps, avatars, testSecret, 72*time.Hour)
	f.auth.now = f.clock.Now
	f.user = NewUserService(f.users, avatars)
	f.user.now = f.clock.Now
	f.reset = NewPasswordResetService(f.users, f.sender, testSecret, 24*time.Hour, "http://localhost:5000/user/reset-password")
	f.reset.now = f.clock.Now
	return f
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, name string, data []byte) *Upload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return &Upload{Filename: name, Path: path, Size: int64(len(data))}
}

func writeAvatar(t *testing.T) *Upload {
	t.Helper()
	return writeFile(t, "avatar.png", pngHeader)
}

func registerInput(email, username, code string) RegisterInput {
	return RegisterInput{
		FirstName: "Alice",
		LastName:  "Liddell",
		Username:  username,
		Email:     email,
		Password:  "wonderland",
		OTP:       code,
	}
}

// registerUser runs the full OTP + registration flow.
func (f *fixture) registerUser(t *testing.T, email, username string) *model.User {
	t.Helper()
	ctx := context.Background()
	otp, err := f.otps.RequestOTP(ctx, email)
	require.NoError(t, err)
	user, err := f.auth.Register(ctx, registerInput(email, username, otp.Code), writeAvatar(t))
	require.NoError(t, err)
	return user
}

var errBoom = errors.New("boom")
