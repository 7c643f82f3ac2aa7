package chats

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:128" json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	Participants []ChatParticipant `gorm:"foreignKey:ChatID" json:"-"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatParticipant struct {
	ChatID uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_participant_chat" json:"chatId"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_participant_user" json:"userId"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID   uuid.UUID `gorm:"type:uuid;index:idx_message_chat;not null" json:"chatId"`
	SenderID uuid.UUID `gorm:"type:uuid;not null" json:"senderId"`
	Content  string    `gorm:"size:4096;not null" json:"content"`
	SentAt   time.Time `gorm:"index" json:"sentAt"`
}

func (Message) TableName() string {
	return "messages"
}

// ChatSummary is a chat as one participant sees it: the other side
// resolved into a peer.
type ChatSummary struct {
	ChatID       uuid.UUID `json:"chatId"`
	PeerID       uuid.UUID `json:"peerId"`
	PeerUsername string    `json:"peerUsername"`
	CreatedAt    time.Time `json:"createdAt"`
}
