// Package token issues, verifies and revokes access and refresh tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RevocationLedger stores revoked refresh token ids.
type RevocationLedger interface {
	// Insert records tid. It fails with models.ErrConflict if tid is already present.
	Insert(ctx context.Context, tid string) (models.RevokedToken, error)
	Exists(ctx context.Context, tid string) (bool, error)
}

type typeConfig struct {
	method jwt.SigningMethod
	opts   Options
}

// Manager signs and verifies both token types. Each type has its own key pair,
// so a token of one type never verifies as the other.
type Manager struct {
	types  map[models.TokenType]typeConfig
	ledger RevocationLedger
	logger *zap.Logger
	now    func() time.Time
}

// NewManager validates both option sets and returns a Manager.
func NewManager(access, refresh Options, ledger RevocationLedger, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		types:  make(map[models.TokenType]typeConfig, 2),
		ledger: ledger,
		logger: logger.Named("TokenManager"),
		now:    time.Now,
	}
	for typ, opts := range map[models.TokenType]Options{
		models.TokenTypeAccess:  access,
		models.TokenTypeRefresh: refresh,
	} {
		method, err := signingMethod(opts.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%s token: %w", typ, err)
		}
		if opts.Keys.Private == nil || opts.Keys.Public == nil {
			return nil, fmt.Errorf("%s token: key pair is incomplete", typ)
		}
		if opts.TTL <= 0 {
			return nil, fmt.Errorf("%s token: ttl must be positive", typ)
		}
		m.types[typ] = typeConfig{method: method, opts: opts}
	}
	if access.Keys.Public.Equal(refresh.Keys.Public) || access.Keys.Private.Equal(refresh.Keys.Private) {
		return nil, errors.New("access and refresh tokens must use distinct key pairs")
	}
	return m, nil
}

// TTL returns the lifetime of tokens of typ.
func (m *Manager) TTL(typ models.TokenType) time.Duration {
	return m.types[typ].opts.TTL
}

// Sign issues a token of typ for the user.
func (m *Manager) Sign(typ models.TokenType, uid uuid.UUID, role string, isVerified bool) (string, error) {
	cfg, ok := m.types[typ]
	if !ok {
		return "", fmt.Errorf("%w: unknown token type %q", models.ErrInvalidParameters, typ)
	}
	if uid == uuid.Nil {
		return "", fmt.Errorf("%w: uid is required", models.ErrInvalidParameters)
	}

	tid, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate tid: %v", models.ErrSigningFailure, err)
	}

	now := m.now()
	claims := models.Claims{
		TID:        tid.String(),
		UserID:     uid,
		Role:       role,
		IsVerified: isVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tid.String(),
			Subject:   uid.String(),
			Issuer:    cfg.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.opts.TTL)),
		},
	}
	if cfg.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.opts.Audience}
	}

	signed, err := jwt.NewWithClaims(cfg.method, claims).SignedString(cfg.opts.Keys.Private)
	if err != nil {
		m.logger.Error("Failed to sign token", zap.String("type", string(typ)), zap.String("userID", uid.String()), zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrSigningFailure, err)
	}
	if signed == "" {
		return "", fmt.Errorf("%w: empty token", models.ErrSigningFailure)
	}
	m.logger.Debug("Token signed", zap.String("type", string(typ)), zap.String("userID", uid.String()), zap.String("tid", claims.TID))
	return signed, nil
}

// Verify checks signature, algorithm, expiry, issuer and audience of a token of typ.
func (m *Manager) Verify(typ models.TokenType, tokenString string) (*models.Claims, error) {
	cfg, ok := m.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token type %q", models.ErrInvalidParameters, typ)
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", models.ErrInvalidToken)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if cfg.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.opts.Issuer))
	}
	if cfg.opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.opts.Audience))
	}

	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.opts.Keys.Public, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		m.logger.Debug("Token verification failed", zap.String("type", string(typ)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}
	if claims.TID == "" || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing tid or uid", models.ErrInvalidToken)
	}
	return claims, nil
}

// RevokeRefreshToken writes tid to the revocation ledger. Revoking the same tid
// twice fails with models.ErrAlreadyRevoked.
func (m *Manager) RevokeRefreshToken(ctx context.Context, tid string) (models.RevokedToken, error) {
	if tid == "" {
		return models.RevokedToken{}, fmt.Errorf("%w: tid is required", models.ErrInvalidParameters)
	}
	rec, err := m.ledger.Insert(ctx, tid)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			m.logger.Warn("Refresh token revoked twice", zap.String("tid", tid))
			return models.RevokedToken{}, models.ErrAlreadyRevoked
		}
		return models.RevokedToken{}, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	m.logger.Info("Refresh token revoked", zap.String("tid", tid))
	return rec, nil
}

// IsRevoked reports whether tid is in the revocation ledger.
func (m *Manager) IsRevoked(ctx context.Context, tid string) (bool, error) {
	revoked, err := m.ledger.Exists(ctx, tid)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation ledger: %w", err)
	}
	return revoked, nil
}
