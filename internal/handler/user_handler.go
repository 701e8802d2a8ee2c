package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/response"
	"github.com/xxxsen/wassup/internal/service"
)

const ResetCookie = "resetToken"

type UserHandler struct {
	users   *service.UserService
	reset   *service.PasswordResetService
	cookies CookieOptions
	uploads UploadOptions
}

func NewUserHandler(users *service.UserService, reset *service.PasswordResetService, cookies CookieOptions, uploads UploadOptions) *UserHandler {
	return &UserHandler{users: users, reset: reset, cookies: cookies, uploads: uploads}
}

func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	avatar, cleanup, err := h.uploads.spool(c, "avatar")
	defer cleanup()
	if err != nil {
		handleError(c, err)
		return
	}
	user, err := h.users.UpdateAvatar(c.Request.Context(), getUserID(c), avatar)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "avatar updated successfully", user.Public())
}

type updateDetailsRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Username  *string `json:"userName"`
}

func (h *UserHandler) UpdateDetails(c *gin.Context) {
	var req updateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	user, err := h.users.UpdateDetails(c.Request.Context(), getUserID(c), model.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user details updated successfully", user.Public())
}

type changePasswordRequest struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	user, err := h.users.ChangePassword(c.Request.Context(), getUserID(c), service.ChangePasswordInput{
		OldPassword:        req.OldPassword,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "password changed successfully", user.Public())
}

type resetTokenRequest struct {
	Email string `json:"email"`
}

func (h *UserHandler) RequestResetToken(c *gin.Context) {
	var req resetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	ticket, err := h.reset.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	h.cookies.set(c, ResetCookie, ticket.CookieToken, h.cookies.ResetTTL)
	response.Success(c, http.StatusOK, "reset password mail sent successfully", ticket.User.Public())
}

type resetPasswordRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.New(appErr.ErrInvalid, "invalid request"))
		return
	}
	cookie, _ := c.Cookie(ResetCookie)
	user, err := h.reset.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Token:              req.Token,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
		CookieToken:        cookie,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	h.cookies.clear(c, ResetCookie)
	response.Success(c, http.StatusOK, "password reset successfully", user.Public())
}
