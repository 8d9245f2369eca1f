package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
)

// TokenProvider supplies bearer tokens for the remote API. Implementations
// may block, for example to refresh a token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenProvider interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = 30 * time.Second

// JWTTokenProvider signs short-lived HS256 tokens with a shared secret and
// reuses each one until it is close to expiry.
type JWTTokenProvider struct {
	signingKey []byte
	subject    string
	ttl        time.Duration
	timeFunc   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Verify interface compliance at compile time
var _ TokenProvider = (*JWTTokenProvider)(nil)

// NewJWTTokenProvider creates a provider for tokens issued to subject.
func NewJWTTokenProvider(cfg config.RemoteConfig, subject string) (*JWTTokenProvider, error) {
	if len(cfg.TokenSecret) < 32 {
		return nil, fmt.Errorf("%w: token secret must be at least 32 characters", ErrInvalidConfig)
	}
	if cfg.TokenTTL <= refreshMargin {
		return nil, fmt.Errorf("%w: token ttl must exceed %s", ErrInvalidConfig, refreshMargin)
	}
	return &JWTTokenProvider{
		signingKey: []byte(cfg.TokenSecret),
		subject:    subject,
		ttl:        cfg.TokenTTL,
		timeFunc:   time.Now,
	}, nil
}

// Token implements TokenProvider.
func (p *JWTTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.timeFunc()
	if p.token != "" && now.Add(refreshMargin).Before(p.expires) {
		return p.token, nil
	}

	expires := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   p.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign bearer token",
			slog.String("error", err.Error()),
			slog.String("signing_method", jwt.SigningMethodHS256.Name))
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}

	p.token, p.expires = signed, expires
	logger.FromContext(ctx).Debug("issued bearer token",
		slog.String("subject", p.subject),
		slog.Time("expires", expires))
	return signed, nil
}
