package connections

import (
	"time"

	"github.com/google/uuid"
)

// Connection records a live gateway attachment. Rows exist only while
// the socket is up; they back the "which devices are online" queries.
type Connection struct {
	ConnectionID string    `gorm:"primaryKey;size:64" json:"connectionId"`
	SessionID    string    `gorm:"index;size:64;not null" json:"sessionId"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	DeviceInfo   string    `gorm:"size:500" json:"deviceInfo"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

func (Connection) TableName() string {
	return "connections"
}
