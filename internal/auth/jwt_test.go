package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	token, err := iss.Generate(42)
	require.NoError(t, err)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	token, err := NewIssuer("other", time.Hour).Generate(1)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old := NewIssuer("secret", time.Minute)
	old.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err = old.Generate(1)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
