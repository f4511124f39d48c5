package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	tok, err := iss.Issue("alice", "game-1")
	require.NoError(t, err)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.PlayerID)
	assert.Equal(t, "game-1", claims.SessionID)

	other, err := iss.Issue("alice", "game-1")
	require.NoError(t, err)
	assert.NotEqual(t, tok, other, "tokens for the same seat must differ")
}

func TestVerifyRejectsForeignAndExpired(t *testing.T) {
	a, err := NewIssuer(0)
	require.NoError(t, err)
	b, err := NewIssuer(0)
	require.NoError(t, err)

	tok, err := a.Issue("alice", "g")
	require.NoError(t, err)
	_, err = b.Verify(tok)
	assert.Error(t, err)

	_, err = a.Verify("not-a-token")
	assert.Error(t, err)

	exp, err := NewIssuer(time.Minute)
	require.NoError(t, err)
	exp.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := exp.Issue("alice", "g")
	require.NoError(t, err)
	_, err = exp.Verify(old)
	assert.Error(t, err)
}

func TestParseTTL(t *testing.T) {
	for _, s := range []string{"", "0", "never"} {
		d, err := ParseTTL(s)
		require.NoError(t, err)
		assert.Zero(t, d)
	}
	d, err := ParseTTL("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseTTL("soon")
	assert.Error(t, err)
}
