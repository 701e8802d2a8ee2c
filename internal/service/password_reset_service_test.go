package service

import (
	"context"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/jwt"
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// requestReset starts a reset and returns the ticket and the mailed token.
func (f *fixture) requestReset(t *testing.T, email string) (*ResetTicket, string) {
	t.Helper()
	before := len(f.sender.sent())
	ticket, err := f.reset.RequestReset(context.Background(), email)
	require.NoError(t, err)
	mail := f.sender.waitFor(t, before+1)
	last := mail[len(mail)-1]
	require.Equal(t, "Reset Password Mail", last.Subject)

	m := hrefPattern.FindStringSubmatch(last.Body)
	require.Len(t, m, 2)
	link, err := url.Parse(m[1])
	require.NoError(t, err)
	require.Equal(t, "/user/reset-password", link.Path)
	return ticket, link.Query().Get("token")
}

func TestRequestReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerUser(t, "alice@example.com", "alice")

	_, err := f.reset.RequestReset(ctx, "")
	require.True(t, appErr.Is(err, appErr.ErrInvalid))

	_, err = f.reset.RequestReset(ctx, "nobody@example.com")
	require.True(t, appErr.IsNotFound(err))

	ticket, token := f.requestReset(t, "alice@example.com")
	require.Equal(t, user.ID, ticket.User.ID)
	require.Regexp(t, `^[0-9a-f]{64}$`, token)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, token, stored.ResetToken)
	require.Equal(t, f.clock.Now().Add(5*time.Minute).Unix(), stored.ResetTokenExpiresAt)

	claims, err := jwt.ParseToken(ticket.CookieToken, jwt.AudiencePasswordReset, testSecret)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerUser(t, "alice@example.com", "alice")
	ticket, token := f.requestReset(t, "alice@example.com")

	in := ResetPasswordInput{Token: token, NewPassword: "queen", ConfirmNewPassword: "queen", CookieToken: ticket.CookieToken}
	updated, err := f.reset.ResetPassword(ctx, in)
	require.NoError(t, err)
	require.Equal(t, user.ID, updated.ID)
	require.True(t, updated.CheckPassword("queen"))
	require.Empty(t, updated.ResetToken)

	// a token works once
	_, err = f.reset.ResetPassword(ctx, in)
	require.True(t, appErr.Is(err, appErr.ErrUnauthorized))

	_, err = f.auth.Login(ctx, "", "alice@example.com", "queen")
	require.NoError(t, err)
}

func TestResetPasswordRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerUser(t, "alice@example.com", "alice")
	ticket, token := f.requestReset(t, "alice@example.com")
	session, err := f.auth.Login(ctx, "alice", "", "wonderland")
	require.NoError(t, err)

	valid := ResetPasswordInput{Token: token, NewPassword: "queen", ConfirmNewPassword: "queen", CookieToken: ticket.CookieToken}
	cases := []struct {
		name   string
		mutate func(in *ResetPasswordInput)
		kind   error
	}{
		{"missing token", func(in *ResetPasswordInput) { in.Token = "" }, appErr.ErrInvalid},
		{"missing cookie", func(in *ResetPasswordInput) { in.CookieToken = "" }, appErr.ErrInvalid},
		{"missing password", func(in *ResetPasswordInput) { in.NewPassword = "" }, appErr.ErrInvalid},
		{"mismatch", func(in *ResetPasswordInput) { in.ConfirmNewPassword = "king" }, appErr.ErrInvalid},
		{"garbage cookie", func(in *ResetPasswordInput) { in.CookieToken = "garbage" }, appErr.ErrUnauthorized},
		{"session cookie", func(in *ResetPasswordInput) { in.CookieToken = session.Token }, appErr.ErrUnauthorized},
		{"wrong token", func(in *ResetPasswordInput) { in.Token = "deadbeef" }, appErr.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := f.reset.ResetPassword(ctx, in)
			require.True(t, appErr.Is(err, tc.kind), "got %v", err)
		})
	}

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.CheckPassword("wonderland"))
}

func TestResetPasswordExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerUser(t, "alice@example.com", "alice")
	ticket, token := f.requestReset(t, "alice@example.com")

	f.clock.Advance(5*time.Minute + time.Second)
	_, err := f.reset.ResetPassword(ctx, ResetPasswordInput{
		Token: token, NewPassword: "queen", ConfirmNewPassword: "queen", CookieToken: ticket.CookieToken,
	})
	require.True(t, appErr.Is(err, appErr.ErrExpired))

	// a fresh request issues a new token
	ticket, token2 := f.requestReset(t, "alice@example.com")
	require.NotEqual(t, token, token2)
	_, err = f.reset.ResetPassword(ctx, ResetPasswordInput{
		Token: token2, NewPassword: "queen", ConfirmNewPassword: "queen", CookieToken: ticket.CookieToken,
	})
	require.NoError(t, err)
}

func TestMailTemplates(t *testing.T) {
	subject, body, err := otpMail("123456", 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "Verification Mail", subject)
	require.Contains(t, body, "<strong>123456</strong>")
	require.Contains(t, body, "5 minutes")

	subject, body, err = resetMail("http://x.test/reset?token=abc", 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "Reset Password Mail", subject)
	require.Contains(t, body, `href="http://x.test/reset?token=abc"`)
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("Wassup Team", "noreply@x.test", "a@x.test", "Hello", "<p>hi</p>"))
	require.Contains(t, msg, "From: Wassup Team <noreply@x.test>\r\n")
	require.Contains(t, msg, "To: a@x.test\r\n")
	require.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	require.True(t, len(msg) > 0 && msg[len(msg)-len("<p>hi</p>"):] == "<p>hi</p>")
}
