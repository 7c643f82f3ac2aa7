package sessionstore

import (
	"time"

	"github.com/google/uuid"
)

// RefreshCredential is the persisted side of one logical session. The
// session id is supplied by the client (one per device/tab); at most one
// row per (UserID, SessionID) pair is unrevoked at any instant.
type RefreshCredential struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TokenHash  string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_refresh_user_session;not null"`
	SessionID  string    `json:"session_id" gorm:"index:idx_refresh_user_session;size:100;not null"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"index;not null"`
	Revoked    bool      `json:"revoked" gorm:"not null;default:false"`
	DeviceInfo string    `json:"device_info" gorm:"size:500"`
}

func (RefreshCredential) TableName() string {
	return "refresh_credentials"
}

func (c *RefreshCredential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *RefreshCredential) Active(now time.Time) bool {
	return !c.Revoked && !c.Expired(now)
}
