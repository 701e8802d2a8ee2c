package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/wassup/internal/handler"
)

func TestUpdateDetails(t *testing.T) {
	env := setupRouter(t, envOptions{})
	env.register(t, "alice@example.com", "alice")
	env.register(t, "bob@example.com", "bob")
	session := env.login(t, "alice", "wonderland")

	resp, _ := env.postJSON(t, "/api/v1/user/update-details", map[string]string{"firstName": "Alicia"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, body := env.postJSON(t, "/api/v1/user/update-details", map[string]string{}, session)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "at least one field is required", body.Message)

	resp, body = env.postJSON(t, "/api/v1/user/update-details", map[string]string{"userName": "bob"}, session)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "username already used", body.Message)

	resp, body = env.postJSON(t, "/api/v1/user/update-details", map[string]string{"userName": "alice", "firstName": "Alicia"}, session)
	require.Equal(t, http.StatusOK, resp.Code, body.Message)
	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, "Alicia", user["firstName"])
	require.Equal(t, "alice", user["userName"])
}

func TestChangePassword(t *testing.T) {
	env := setupRouter(t, envOptions{})
	env.register(t, "alice@example.com", "alice")
	session := env.login(t, "alice", "wonderland")

	resp, body := env.postJSON(t, "/api/v1/user/change-password", map[string]string{
		"oldPassword": "wonderland", "newPassword": "queen", "confirmNewPassword": "king",
	}, session)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.False(t, body.Success)

	resp, _ = env.postJSON(t, "/api/v1/user/change-password", map[string]string{
		"oldPassword": "nope", "newPassword": "queen", "confirmNewPassword": "queen",
	}, session)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, body = env.postJSON(t, "/api/v1/user/change-password", map[string]string{
		"oldPassword": "wonderland", "newPassword": "queen", "confirmNewPassword": "queen",
	}, session)
	require.Equal(t, http.StatusOK, resp.Code, body.Message)
	require.NotContains(t, string(body.Data), "queen")

	env.login(t, "alice", "queen")
}

func TestUpdateAvatar(t *testing.T) {
	env := setupRouter(t, envOptions{})
	env.register(t, "alice@example.com", "alice")
	session := env.login(t, "alice", "wonderland")
	before, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	resp, body := env.postMultipart(t, "/api/v1/user/update-avatar", nil, nil, session)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "avatar is required", body.Message)

	resp, body = env.postMultipart(t, "/api/v1/user/update-avatar", nil, pngBytes, session)
	require.Equal(t, http.StatusOK, resp.Code, body.Message)
	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.NotEqual(t, before.Avatar, user["avatar"])
}

func TestPasswordReset(t *testing.T) {
	env := setupRouter(t, envOptions{})
	ctx := context.Background()
	env.register(t, "alice@example.com", "alice")

	resp, _ := env.postJSON(t, "/api/v1/user/reset-token", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp, body := env.postJSON(t, "/api/v1/user/reset-token", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.Code, body.Message)
	require.NotContains(t, string(body.Data), "resetToken")
	resetCookie := findCookie(t, resp, handler.ResetCookie)
	require.True(t, resetCookie.HttpOnly)

	stored, err := env.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, stored.ResetToken, 64)

	reset := map[string]string{"token": stored.ResetToken, "newPassword": "queen", "confirmNewPassword": "queen"}

	resp, _ = env.postJSON(t, "/api/v1/user/reset-password", reset)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	wrong := map[string]string{"token": "deadbeef", "newPassword": "queen", "confirmNewPassword": "queen"}
	resp, _ = env.postJSON(t, "/api/v1/user/reset-password", wrong, resetCookie)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, body = env.postJSON(t, "/api/v1/user/reset-password", reset, resetCookie)
	require.Equal(t, http.StatusOK, resp.Code, body.Message)
	cleared := findCookie(t, resp, handler.ResetCookie)
	require.Empty(t, cleared.Value)

	resp, _ = env.postJSON(t, "/api/v1/user/reset-password", reset, resetCookie)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	env.login(t, "alice", "queen")
}
