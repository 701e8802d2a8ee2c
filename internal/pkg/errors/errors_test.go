package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeepsKind(t *testing.T) {
	err := New(ErrConflict, "username already used")
	require.True(t, IsConflict(err))
	require.False(t, IsNotFound(err))
	require.Equal(t, "username already used", err.Error())

	wrapped := fmt.Errorf("create user: %w", err)
	require.True(t, stderrors.Is(wrapped, ErrConflict))
	require.Equal(t, "username already used", Message(wrapped, "fallback"))
}

func TestMessageFallback(t *testing.T) {
	require.Equal(t, "fallback", Message(ErrNotFound, "fallback"))
	require.Equal(t, "fallback", Message(stderrors.New("boom"), "fallback"))
}

func TestBadCredentialsIsUnauthorized(t *testing.T) {
	err := New(ErrBadCredentials, "invalid credentials")
	require.True(t, Is(err, ErrBadCredentials))
	require.True(t, Is(err, ErrUnauthorized))
	require.False(t, Is(New(ErrUnauthorized, "x"), ErrBadCredentials))
}
