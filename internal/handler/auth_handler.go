package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/wassup/internal/middleware"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/response"
	"github.com/xxxsen/wassup/internal/service"
)

type CookieOptions struct {
	Secure     bool
	SessionTTL time.Duration
	ResetTTL   time.Duration
}

func (o CookieOptions) set(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", o.Secure, true)
}

func (o CookieOptions) clear(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", o.Secure, true)
}

type AuthHandler struct {
	auth    *service.AuthService
	otps    *service.OTPService
	cookies CookieOptions
	uploads UploadOptions
}

func NewAuthHandler(auth *service.AuthService, otps *service.OTPService, cookies CookieOptions, uploads UploadOptions) *AuthHandler {
	return &AuthHandler{auth: auth, otps: otps, cookies: cookies, uploads: uploads}
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	otp, err := h.otps.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "otp sent successfully", otp.View())
}

type registerRequest struct {
	FirstName string `form:"firstName"`
	LastName  string `form:"lastName"`
	Username  string `form:"userName"`
	Email     string `form:"email"`
	Password  string `form:"password"`
	OTP       string `form:"otp"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		handleError(c, h.uploads.bindError(err))
		return
	}
	avatar, cleanup, err := h.uploads.spool(c, "avatar")
	defer cleanup()
	if err != nil {
		handleError(c, err)
		return
	}
	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		OTP:       req.OTP,
	}, avatar)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "user created successfully", user.Public())
}

type loginRequest struct {
	Username string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string                 `json:"token"`
	User  service.SessionPayload `json:"user"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	h.cookies.set(c, middleware.SessionCookie, session.Token, h.cookies.SessionTTL)
	response.Success(c, http.StatusOK, "user logged in successfully", loginResponse{
		Token: session.Token,
		User:  session.Payload,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.clear(c, middleware.SessionCookie)
	response.Success(c, http.StatusOK, "user logged out successfully", nil)
}
