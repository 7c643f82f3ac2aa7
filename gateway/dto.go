package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Frame kinds exchanged over the chat socket.
const (
	FrameSendMessage    = "SendMessage"
	FrameReceiveMessage = "ReceiveMessage"
	FrameAck            = "Ack"
	FrameError          = "Error"
)

// Envelope wraps every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessageRequest is the inbound payload. A first message to a user
// carries IsNew with a client-chosen placeholder ChatID; the service
// creates the chat and rewrites ChatID before persisting, so the
// placeholder never reaches storage.
type SendMessageRequest struct {
	ChatID     string    `json:"chatId"`
	ChatName   string    `json:"chatName"`
	IsNew      bool      `json:"isNew"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
}

// MessagePush is fanned out to every live connection of both
// participants. IsMine is computed per recipient; IsRead is false on
// push and flips once the recipient fetches history.
type MessagePush struct {
	MessageID      uuid.UUID `json:"messageId"`
	ChatID         uuid.UUID `json:"chatId"`
	SenderID       uuid.UUID `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
	IsMine         bool      `json:"isMine"`
	IsRead         bool      `json:"isRead"`
}

// SendMessageAck describes the chat the message landed in. After a
// lazy creation the ChatID differs from the placeholder the client
// sent; IsNew is always false on the way back.
type SendMessageAck struct {
	MessageID  uuid.UUID `json:"messageId"`
	ChatID     uuid.UUID `json:"chatId"`
	ChatName   string    `json:"chatName"`
	ReceiverID uuid.UUID `json:"receiverId"`
	IsNew      bool      `json:"isNew"`
	SentAt     time.Time `json:"sentAt"`
}

// ErrorFrame mirrors the HTTP error body shape.
type ErrorFrame struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// envelope wraps a known payload struct; marshalling one cannot fail.
func envelope(frameType string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Type: frameType, Payload: raw}
}
