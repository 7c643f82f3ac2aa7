package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/sessionstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrRevokedSession = errors.New("session has been revoked")
)

type Service struct {
	config *config.TokensConfig
	store  sessionstore.Store
	cache  *sessionstore.LivenessCache
	logger *logging.Service
}

func NewService(cfg *config.Config, store sessionstore.Store, cache *sessionstore.LivenessCache, logger *logging.Service) *Service {
	return &Service{
		config: &cfg.Tokens,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (s *Service) AccessExpirySeconds() int {
	return int(s.config.AccessExpiry.Seconds())
}

// IssuePair signs a fresh access/refresh pair bound to sessionID and
// records the refresh credential. Any earlier unrevoked credential for
// the same (user, session) pair is revoked in the same transaction, so
// at most one stays active.
func (s *Service) IssuePair(ctx context.Context, userID uuid.UUID, username, sessionID, deviceInfo string) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := s.sign(userID, username, sessionID, KindAccess, now, now.Add(s.config.AccessExpiry))
	if err != nil {
		return nil, err
	}

	refreshExpiresAt := now.Add(s.config.RefreshExpiry)
	refreshToken, err := s.sign(userID, username, sessionID, KindRefresh, now, refreshExpiresAt)
	if err != nil {
		return nil, err
	}

	credential := &sessionstore.RefreshCredential{
		ID:         uuid.New(),
		TokenHash:  HashToken(refreshToken),
		UserID:     userID,
		SessionID:  sessionID,
		IssuedAt:   now,
		ExpiresAt:  refreshExpiresAt,
		DeviceInfo: deviceInfo,
	}

	if err := s.store.Insert(ctx, credential); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store refresh credential", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to store refresh credential: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The old token must
// carry a valid signature, be unexpired, match the caller's sessionID
// and still be active in the store; its credential is revoked when the
// new pair is inserted.
func (s *Service) Rotate(ctx context.Context, refreshToken, sessionID string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, ErrInvalidToken
	}
	if claims.SessionID != sessionID {
		if s.logger != nil {
			s.logger.Warn("refresh token session mismatch",
				zap.String("user_id", claims.UserID.String()),
				zap.String("token_session", claims.SessionID),
				zap.String("request_session", sessionID))
		}
		return nil, ErrRevokedSession
	}

	credential, err := s.store.FindByHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, sessionstore.ErrCredentialNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load refresh credential: %w", err)
	}
	if credential.Revoked {
		return nil, ErrRevokedSession
	}
	if credential.Expired(time.Now()) {
		return nil, ErrExpiredToken
	}

	pair, err := s.IssuePair(ctx, claims.UserID, claims.Username, sessionID, credential.DeviceInfo)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(claims.UserID, sessionID)
	return pair, nil
}

// Validate checks an access token in two tiers: the local signature
// and expiry check, then a liveness check that the token's session
// still has an active refresh credential. A signed token from a logged
// out session fails the second tier.
func (s *Service) Validate(ctx context.Context, accessToken string) (*Claims, error) {
	claims, err := s.parse(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, ErrInvalidToken
	}

	// Only positive liveness results are cached, so a cache miss means
	// the store decides.
	alive := s.cache.Get(claims.UserID, claims.SessionID)
	if !alive {
		alive, err = s.store.HasActive(ctx, claims.UserID, claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check session liveness: %w", err)
		}
		if alive {
			s.cache.Put(claims.UserID, claims.SessionID)
		}
	}
	if !alive {
		if s.logger != nil {
			s.logger.Warn("access token for dead session rejected",
				zap.String("user_id", claims.UserID.String()),
				zap.String("session_id", claims.SessionID))
		}
		return nil, ErrRevokedSession
	}

	return claims, nil
}

// RevokeSession revokes every refresh credential for the (user,
// session) pair. Revoking a session with no active credentials is a
// no-op, not an error.
func (s *Service) RevokeSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	count, err := s.store.RevokeAll(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.cache.Invalidate(userID, sessionID)

	if s.logger != nil {
		s.logger.Info("session revoked",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sessionID),
			zap.Int64("credentials_revoked", count))
	}
	return nil
}

// SoonExpiring reports whether the token expires within the configured
// threshold, signalling the client to rotate ahead of time.
func (s *Service) SoonExpiring(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return time.Now().Add(s.config.SoonExpiringThreshold).After(claims.ExpiresAt.Time)
}

func (s *Service) sign(userID uuid.UUID, username, sessionID string, kind TokenKind, now, expiresAt time.Time) (string, error) {
	jti := uuid.New().String()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		SessionID: sessionID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.Issuer,
			Subject:   userID.String(),
			Audience:  []string{s.config.Issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign token", zap.String("kind", string(kind)), zap.Error(err))
		}
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	})

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("token validation failed", zap.Error(err))
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken is the stable lookup key for refresh credentials. Only the
// hash is persisted, never the signed token itself.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
