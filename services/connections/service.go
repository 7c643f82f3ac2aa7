package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{db: db, logger: logger}
}

// Record upserts the row for a connection id. A reconnecting session
// reuses its id, so conflicts update in place.
func (s *Service) Record(ctx context.Context, connectionID, sessionID string, userID uuid.UUID, deviceInfo string) error {
	row := &Connection{
		ConnectionID: connectionID,
		SessionID:    sessionID,
		UserID:       userID,
		DeviceInfo:   deviceInfo,
		ConnectedAt:  time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to record connection: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, connectionID string) error {
	err := s.db.WithContext(ctx).Delete(&Connection{}, "connection_id = ?", connectionID).Error
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

func (s *Service) ByUser(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	var rows []Connection
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return rows, nil
}

// Purge drops every row. Run on startup: rows from a previous process
// describe sockets that no longer exist.
func (s *Service) Purge(ctx context.Context) error {
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&Connection{})
	if result.Error != nil {
		return fmt.Errorf("failed to purge connections: %w", result.Error)
	}
	if s.logger != nil && result.RowsAffected > 0 {
		s.logger.Info("purged stale connection rows", zap.Int64("count", result.RowsAffected))
	}
	return nil
}
