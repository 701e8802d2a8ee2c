package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/wassup/internal/config"
	"github.com/xxxsen/wassup/internal/filestore"
	"github.com/xxxsen/wassup/internal/handler"
	"github.com/xxxsen/wassup/internal/middleware"
	"github.com/xxxsen/wassup/internal/repo/memrepo"
	"github.com/xxxsen/wassup/internal/service"
)

type noopSender struct{}

func (noopSender) Send(to, subject, body string) error {
	return nil
}

type testEnv struct {
	router http.Handler
	users  *memrepo.UserRepo
	otps   *memrepo.OTPRepo
}

type envOptions struct {
	rateLimit   time.Duration
	uploadLimit int64
}

func setupRouter(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := memrepo.NewUserRepo()
	otpRepo := memrepo.NewOTPRepo()
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	jwtSecret := []byte("test-secret")
	avatars := service.NewAvatarUploader(store)
	otpService := service.NewOTPService(otpRepo, noopSender{})
	authService := service.NewAuthService(userRepo, otpService, avatars, jwtSecret, time.Hour)
	userService := service.NewUserService(userRepo, avatars)
	resetService := service.NewPasswordResetService(userRepo, noopSender{}, jwtSecret, time.Hour, "http://localhost/user/reset-password")

	if opts.uploadLimit == 0 {
		opts.uploadLimit = 1024 * 1024
	}
	cookies := handler.CookieOptions{Secure: true, SessionTTL: time.Hour, ResetTTL: time.Hour}
	uploads := handler.UploadOptions{Dir: t.TempDir(), Limit: opts.uploadLimit}
	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService, otpService, cookies, uploads),
		Users:     handler.NewUserHandler(userService, resetService, cookies, uploads),
		Files:     handler.NewFileHandler(store),
		Session:   authService,
		Uploads:   uploads,
		RateLimit: opts.rateLimit,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
		),
	)
	require.NoError(t, err)
	return &testEnv{router: engine, users: userRepo, otps: otpRepo}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	var env envelope
	if resp.Header().Get("Content-Type") != "" && bytes.HasPrefix(resp.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, cookies...)
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, avatar []byte, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if avatar != nil {
		part, err := w.CreateFormFile("avatar", "me.png")
		require.NoError(t, err)
		_, err = part.Write(avatar)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req, cookies...)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-avatar")

func registerFields(email, username, otp string) map[string]string {
	return map[string]string{
		"firstName": "Alice",
		"lastName":  "Liddell",
		"userName":  username,
		"email":     email,
		"password":  "wonderland",
		"otp":       otp,
	}
}

// register runs send-otp and register for a new account.
func (e *testEnv) register(t *testing.T, email, username string) {
	t.Helper()
	resp, _ := e.postJSON(t, "/api/v1/auth/send-otp", map[string]string{"email": email})
	require.Equal(t, http.StatusCreated, resp.Code)
	otp, err := e.otps.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	resp, env := e.postMultipart(t, "/api/v1/auth/register", registerFields(email, username, otp.Code), pngBytes)
	require.Equal(t, http.StatusCreated, resp.Code, env.Message)
}

// login returns the session cookie.
func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	resp, env := e.postJSON(t, "/api/v1/auth/login", map[string]string{"userName": username, "password": password})
	require.Equal(t, http.StatusOK, resp.Code, env.Message)
	return findCookie(t, resp, middleware.SessionCookie)
}

func findCookie(t *testing.T, resp *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

