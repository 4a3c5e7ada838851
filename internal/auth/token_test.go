package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerify(t *testing.T) {
	s, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	game, player := uuid.New(), uuid.New()
	tok, err := s.Issue(game, player, "alice")
	require.NoError(t, err)

	got, err := s.Verify(game, tok)
	require.NoError(t, err)
	assert.Equal(t, player, got)
}

func TestVerifyRejects(t *testing.T) {
	s, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	game, player := uuid.New(), uuid.New()
	tok, err := s.Issue(game, player, "alice")
	require.NoError(t, err)

	t.Run("other game", func(t *testing.T) {
		_, err := s.Verify(uuid.New(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("other secret", func(t *testing.T) {
		other, err := NewSigner("another-secret", time.Hour)
		require.NoError(t, err)
		_, err = other.Verify(game, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { s.now = time.Now }()
		_, err := s.Verify(game, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := s.Verify(game, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRandomSecret(t *testing.T) {
	a, err := NewSigner("", 0)
	require.NoError(t, err)
	b, err := NewSigner("", 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.key, b.key)
	assert.Equal(t, 12*time.Hour, a.ttl)
}
