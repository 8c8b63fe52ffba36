package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callpower/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenType   = errors.New("auth: unexpected token type")
	ErrIncomplete  = errors.New("auth: token grant incomplete")
	ErrTokenReused = errors.New("auth: refresh token already used")
)

const clockSkew = 30 * time.Second

// ReplayGuard records refresh token ids. FirstUse reports true only the
// first time jti is seen before until.
type ReplayGuard interface {
	FirstUse(ctx context.Context, jti string, until time.Time) (bool, error)
}

type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	replay ReplayGuard
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// WithReplayGuard makes refresh tokens single use.
func (m *Manager) WithReplayGuard(g ReplayGuard) *Manager {
	m.replay = g
	return m
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IssuePair mints an access/refresh pair for g.
func (m *Manager) IssuePair(now time.Time, g Grant) (TokenPair, error) {
	if g.UserID == "" || g.Role == "" {
		return TokenPair{}, ErrIncomplete
	}
	access, err := m.sign(now, TokenTypeAccess, g, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(now, TokenTypeRefresh, g, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair with the same grant.
// With a replay guard the presented token cannot be exchanged twice.
func (m *Manager) Refresh(ctx context.Context, now time.Time, refreshToken string) (TokenPair, error) {
	claims, err := m.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, err
	}
	if m.replay != nil {
		first, err := m.replay.FirstUse(ctx, claims.ID, claims.ExpiresAt.Time.Add(clockSkew))
		if err != nil {
			return TokenPair{}, fmt.Errorf("auth: replay check: %w", err)
		}
		if !first {
			return TokenPair{}, ErrTokenReused
		}
	}
	return m.IssuePair(now, claims.Grant())
}

// Verify checks signature, registered claims and token type at now.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims
	_, err := m.parser(now).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != expected {
		return Claims{}, ErrTokenType
	}
	if claims.UserID == "" || claims.Role == "" || claims.ID == "" {
		return Claims{}, ErrIncomplete
	}
	return claims, nil
}

func (m *Manager) parser(now time.Time) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return jwt.NewParser(opts...)
}

func (m *Manager) sign(now time.Time, typ TokenType, g Grant, ttl time.Duration) (string, error) {
	var aud jwt.ClaimStrings
	if m.audience != "" {
		aud = jwt.ClaimStrings{m.audience}
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   g.UserID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:      g.UserID,
		Role:        g.Role,
		CampaignIDs: g.CampaignIDs,
		TokenType:   typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
