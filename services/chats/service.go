package chats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/users"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotMember         = errors.New("user is not a chat participant")
	ErrSelfChat          = errors.New("cannot open a chat with yourself")
	ErrPeerNotFound      = errors.New("peer user not found")
	ErrEmptyParticipants = errors.New("chat requires two participants")
)

type Service struct {
	db     *gorm.DB
	users  *users.Service
	logger *logging.Service
}

func NewService(db *gorm.DB, usersSvc *users.Service, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		users:  usersSvc,
		logger: logger,
	}
}

// CreateDirect opens a new direct chat between two users. Concurrent
// creations for the same pair may produce parallel chats; callers that
// care address an existing chat by id instead.
func (s *Service) CreateDirect(ctx context.Context, senderID, receiverID uuid.UUID, name string) (*Chat, error) {
	if senderID == receiverID {
		return nil, ErrSelfChat
	}
	if senderID == uuid.Nil || receiverID == uuid.Nil {
		return nil, ErrEmptyParticipants
	}

	if _, err := s.users.FindByID(ctx, receiverID); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrPeerNotFound
		}
		return nil, err
	}

	chat := &Chat{ID: uuid.New(), Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		participants := []ChatParticipant{
			{ChatID: chat.ID, UserID: senderID},
			{ChatID: chat.ID, UserID: receiverID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("chat created",
			zap.String("chat_id", chat.ID.String()),
			zap.String("sender_id", senderID.String()),
			zap.String("receiver_id", receiverID.String()))
	}
	return chat, nil
}

// Peer returns the other participant of a direct chat, verifying that
// userID belongs to it.
func (s *Service) Peer(ctx context.Context, chatID, userID uuid.UUID) (uuid.UUID, error) {
	var participants []ChatParticipant
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&participants).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		return uuid.Nil, ErrChatNotFound
	}

	var peer uuid.UUID
	member := false
	for _, p := range participants {
		if p.UserID == userID {
			member = true
		} else {
			peer = p.UserID
		}
	}
	if !member {
		return uuid.Nil, ErrNotMember
	}
	return peer, nil
}

func (s *Service) SaveMessage(ctx context.Context, chatID, senderID uuid.UUID, content string) (*Message, error) {
	message := &Message{
		ID:       uuid.New(),
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		SentAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return message, nil
}

// Messages returns a page of chat history, oldest first within the
// page. Pages are counted from the newest message.
func (s *Service) Messages(ctx context.Context, chatID, userID uuid.UUID, page, pageSize int) ([]Message, error) {
	if _, err := s.Peer(ctx, chatID, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var messages []Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ChatsByUser lists every chat the user participates in, each with the
// peer resolved to a username.
func (s *Service) ChatsByUser(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error) {
	var memberships []ChatParticipant
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat memberships: %w", err)
	}

	summaries := make([]ChatSummary, 0, len(memberships))
	for _, m := range memberships {
		var chat Chat
		if err := s.db.WithContext(ctx).First(&chat, "id = ?", m.ChatID).Error; err != nil {
			return nil, fmt.Errorf("failed to load chat: %w", err)
		}

		peerID, err := s.Peer(ctx, m.ChatID, userID)
		if err != nil {
			return nil, err
		}

		summary := ChatSummary{
			ChatID:    m.ChatID,
			PeerID:    peerID,
			CreatedAt: chat.CreatedAt,
		}
		if peer, err := s.users.FindByID(ctx, peerID); err == nil {
			summary.PeerUsername = peer.Username
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
