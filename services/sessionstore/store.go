package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrCredentialNotFound = errors.New("refresh credential not found")

// Store is the persistence contract consumed by the token service. All
// operations must be race-safe under concurrent callers for the same
// (userID, sessionID) pair.
type Store interface {
	// Insert persists a new credential, atomically revoking any
	// still-unrevoked credential for the same (userID, sessionID) pair.
	Insert(ctx context.Context, cred *RefreshCredential) error
	FindByHash(ctx context.Context, hash string) (*RefreshCredential, error)
	// HasActive reports whether an unrevoked, unexpired credential exists
	// for the pair. This is the liveness check behind access validation.
	HasActive(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error)
	// RevokeAll marks every credential for the pair revoked and returns
	// the number of rows touched. Revoking nothing is not an error.
	RevokeAll(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error)
	DeleteExpiredOrRevoked(ctx context.Context) (int64, error)
}

type GormStore struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewGormStore(db *gorm.DB, logger *logging.Service) *GormStore {
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) Insert(ctx context.Context, cred *RefreshCredential) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Revoke-then-insert inside one transaction: two racing rotations
		// for the same pair cannot both leave a row active.
		if err := tx.Model(&RefreshCredential{}).
			Where("user_id = ? AND session_id = ? AND revoked = ?", cred.UserID, cred.SessionID, false).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(cred).Error
	})
	if err != nil {
		s.logger.Error("failed to insert refresh credential",
			zap.String("user_id", cred.UserID.String()),
			zap.String("session_id", cred.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to insert refresh credential: %w", err)
	}

	s.logger.Debug("refresh credential inserted",
		zap.String("user_id", cred.UserID.String()),
		zap.String("session_id", cred.SessionID),
		zap.Time("expires_at", cred.ExpiresAt))
	return nil
}

func (s *GormStore) FindByHash(ctx context.Context, hash string) (*RefreshCredential, error) {
	var cred RefreshCredential
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		s.logger.Error("failed to look up refresh credential", zap.Error(err))
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &cred, nil
}

func (s *GormStore) HasActive(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&RefreshCredential{}).
		Where("user_id = ? AND session_id = ? AND revoked = ? AND expires_at > ?",
			userID, sessionID, false, time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		s.logger.Error("session liveness check failed",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return false, fmt.Errorf("database error: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) RevokeAll(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&RefreshCredential{}).
		Where("user_id = ? AND session_id = ? AND revoked = ?", userID, sessionID, false).
		Update("revoked", true)
	if result.Error != nil {
		s.logger.Error("failed to revoke refresh credentials",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sessionID),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to revoke refresh credentials: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("refresh credentials revoked",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sessionID),
			zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteExpiredOrRevoked(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", time.Now().UTC(), true).
		Delete(&RefreshCredential{})
	if result.Error != nil {
		s.logger.Error("failed to delete stale refresh credentials", zap.Error(result.Error))
		return 0, fmt.Errorf("failed to delete stale refresh credentials: %w", result.Error)
	}
	return result.RowsAffected, nil
}
