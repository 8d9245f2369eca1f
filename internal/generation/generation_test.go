package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/config"
)

const testSecret = "a-very-long-test-secret-of-32-bytes!!"

func testRemote() config.RemoteConfig {
	return config.RemoteConfig{
		BaseURL:     "https://api.example.com/v1",
		TokenSecret: testSecret,
		TokenTTL:    15 * time.Minute,
	}
}

func TestNewJWTTokenProviderValidation(t *testing.T) {
	t.Parallel()

	short := testRemote()
	short.TokenSecret = "short"
	_, err := NewJWTTokenProvider(short, "decks")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	brief := testRemote()
	brief.TokenTTL = time.Second
	_, err = NewJWTTokenProvider(brief, "decks")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestJWTTokenProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p, err := NewJWTTokenProvider(testRemote(), "decks")
	require.NoError(t, err)
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	p.timeFunc = func() time.Time { return now }

	first, err := p.Token(ctx)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(first, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "decks", claims.Subject)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())

	now = now.Add(10 * time.Minute)
	cached, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached, "a fresh token is reused")

	now = now.Add(5 * time.Minute)
	renewed, err := p.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, renewed, "a token close to expiry is replaced")
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	tokens := TokenFunc(func(context.Context) (string, error) { return "t", nil })

	tests := []struct {
		name    string
		baseURL string
		tokens  TokenProvider
	}{
		{"missing url", "", tokens},
		{"relative url", "api/v1", tokens},
		{"missing provider", "https://api.example.com", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testRemote()
			cfg.BaseURL = tc.baseURL
			_, err := NewClient(cfg, tc.tokens)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestClientNewRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := NewClient(testRemote(), TokenFunc(func(context.Context) (string, error) {
		return "abc", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", c.BaseURL())

	req, err := c.NewRequest(ctx, "POST", "/cards", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/cards", req.URL.String())
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	get, err := c.NewRequest(ctx, "GET", "voices", nil)
	require.NoError(t, err)
	assert.Empty(t, get.Header.Get("Content-Type"))

	failing, err := NewClient(testRemote(), TokenFunc(func(context.Context) (string, error) {
		return "", ErrTokenUnavailable
	}))
	require.NoError(t, err)
	_, err = failing.NewRequest(ctx, "GET", "voices", nil)
	assert.True(t, errors.Is(err, ErrTokenUnavailable))
}
