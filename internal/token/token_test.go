package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-portal/internal/apperr"
)

func TestNewRejectsEmptySecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		g, err := New(secret)
		assert.Nil(t, g)
		require.Error(t, err)
		assert.True(t, apperr.HasCode(err, apperr.CodeConfiguration))
	}
}

func TestMakeUserTokenIsDeterministic(t *testing.T) {
	g, err := New("s3cret")
	require.NoError(t, err)

	first := g.MakeUserToken(42, "moderation")
	assert.Equal(t, first, g.MakeUserToken(42, "moderation"))
	assert.Len(t, first, 64)
}

func TestMakeUserTokenSegregatesContexts(t *testing.T) {
	g, err := New("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, g.MakeUserToken(42, "moderation"), g.MakeUserToken(42, "analytics"))
	assert.NotEqual(t, g.MakeUserToken(42, "moderation"), g.MakeUserToken(43, "moderation"))
}

func TestEmptyContextMeansModeration(t *testing.T) {
	g, err := New("s3cret")
	require.NoError(t, err)

	assert.Equal(t, g.MakeUserToken(7, DefaultContext), g.MakeUserToken(7, ""))
}

func TestTokenDependsOnSecret(t *testing.T) {
	a, err := New("first-secret")
	require.NoError(t, err)
	b, err := New("second-secret")
	require.NoError(t, err)

	assert.NotEqual(t, a.MakeUserToken(1, DefaultContext), b.MakeUserToken(1, DefaultContext))
}

func TestTokenDoesNotLeakUserID(t *testing.T) {
	g, err := New("s3cret")
	require.NoError(t, err)

	assert.NotContains(t, g.MakeUserToken(123456789, DefaultContext), "123456789")
}
