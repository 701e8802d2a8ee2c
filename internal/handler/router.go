package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/wassup/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Files     *FileHandler
	Session   middleware.Authenticator
	Uploads   UploadOptions
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	limited := middleware.RateLimit(deps.RateLimit)
	session := middleware.SessionAuth(deps.Session)
	multipart := deps.Uploads.limitBody()

	auth := api.Group("/auth")
	auth.POST("/send-otp", limited, deps.Auth.SendOTP)
	auth.POST("/register", multipart, deps.Auth.Register)
	auth.POST("/login", deps.Auth.Login)
	auth.GET("/logout", session, deps.Auth.Logout)

	user := api.Group("/user")
	user.POST("/reset-token", limited, deps.Users.RequestResetToken)
	user.POST("/reset-password", deps.Users.ResetPassword)

	authed := user.Group("")
	authed.Use(session)
	authed.POST("/update-avatar", multipart, deps.Users.UpdateAvatar)
	authed.POST("/update-details", deps.Users.UpdateDetails)
	authed.POST("/change-password", deps.Users.ChangePassword)

	if deps.Files.Enabled() {
		api.GET("/files/:key", deps.Files.Get)
	}
}
