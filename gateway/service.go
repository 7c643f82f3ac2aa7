package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/services/chats"
	"github.com/flashtalk/flashtalk/services/events"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the message path behind the socket: it resolves the chat,
// persists the message and fans it out to every live connection of
// both participants.
type Service struct {
	registry *registry.Registry
	chats    *chats.Service
	events   *events.Service
	metrics  *metrics.Service
	logger   *logging.Service
}

func NewService(reg *registry.Registry, chatsSvc *chats.Service, eventsSvc *events.Service, metricsSvc *metrics.Service, logger *logging.Service) *Service {
	return &Service{
		registry: reg,
		chats:    chatsSvc,
		events:   eventsSvc,
		metrics:  metricsSvc,
		logger:   logger,
	}
}

// HandleSendMessage runs one inbound message end to end. The returned
// error is already an *apierr.Error suitable for an error frame.
func (s *Service) HandleSendMessage(ctx context.Context, sender *registry.Conn, req SendMessageRequest) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveMessageProcessing(time.Since(start))
		if err != nil {
			s.metrics.MessageSendFailed()
		}
	}()

	if req.Content == "" {
		return apierr.EmptyContent("message content must not be empty")
	}

	chatID, receiverID, err := s.resolveChat(ctx, sender.UserID, &req)
	if err != nil {
		return err
	}

	message, err := s.chats.SaveMessage(ctx, chatID, sender.UserID, req.Content)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to persist message", zap.Error(err))
		}
		return apierr.Internal()
	}

	push := MessagePush{
		MessageID:      message.ID,
		ChatID:         message.ChatID,
		SenderID:       sender.UserID,
		SenderUsername: sender.Username,
		Content:        message.Content,
		SentAt:         message.SentAt,
	}
	s.fanOut(sender.UserID, push, true)
	if receiverID != sender.UserID {
		s.fanOut(receiverID, push, false)
	}
	s.metrics.MessageSent()

	if ackErr := sender.Push(envelope(FrameAck, SendMessageAck{
		MessageID:  message.ID,
		ChatID:     message.ChatID,
		ChatName:   req.ChatName,
		ReceiverID: receiverID,
		IsNew:      false,
		SentAt:     message.SentAt,
	})); ackErr != nil {
		if s.logger != nil {
			s.logger.Warn("failed to ack message",
				zap.String("connection_id", sender.ID),
				zap.Error(ackErr))
		}
		return connError(ackErr)
	}

	s.events.Publish(ctx, events.TopicChat, events.Event{
		Kind:   "message.sent",
		UserID: sender.UserID,
		ChatID: message.ChatID,
	})
	return nil
}

// resolveChat maps the request to a concrete chat. IsNew creates one
// and rewrites the request in place: the client's placeholder chatId
// is replaced with the created chat's id, IsNew drops to false and
// ChatName takes whatever the row holds. Without IsNew the chat id is
// mandatory and must belong to the sender.
func (s *Service) resolveChat(ctx context.Context, senderID uuid.UUID, req *SendMessageRequest) (uuid.UUID, uuid.UUID, error) {
	if req.IsNew {
		if req.ReceiverID == uuid.Nil {
			return uuid.Nil, uuid.Nil, apierr.Validation("receiverId is required for a new chat")
		}
		chat, err := s.chats.CreateDirect(ctx, senderID, req.ReceiverID, req.ChatName)
		if err != nil {
			switch {
			case errors.Is(err, chats.ErrPeerNotFound):
				return uuid.Nil, uuid.Nil, apierr.UserNotFound("receiver does not exist")
			case errors.Is(err, chats.ErrSelfChat):
				return uuid.Nil, uuid.Nil, apierr.Validation("cannot open a chat with yourself")
			default:
				if s.logger != nil {
					s.logger.Error("failed to create chat", zap.Error(err))
				}
				return uuid.Nil, uuid.Nil, apierr.Internal()
			}
		}
		req.ChatID = chat.ID.String()
		req.IsNew = false
		req.ChatName = chat.Name
		return chat.ID, req.ReceiverID, nil
	}

	if req.ChatID == "" {
		return uuid.Nil, uuid.Nil, apierr.MissingChatID("chatId is required")
	}
	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apierr.MissingChatID("chatId is not a valid id")
	}

	receiverID, err := s.chats.Peer(ctx, chatID, senderID)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrChatNotFound), errors.Is(err, chats.ErrNotMember):
			return uuid.Nil, uuid.Nil, apierr.ChatNotFound("chat does not exist or you are not a participant")
		default:
			if s.logger != nil {
				s.logger.Error("failed to resolve chat peer", zap.Error(err))
			}
			return uuid.Nil, uuid.Nil, apierr.Internal()
		}
	}
	return chatID, receiverID, nil
}

// fanOut pushes to every live connection of one user. A failed push is
// logged and skipped; the socket's own read pump notices the death and
// cleans up.
func (s *Service) fanOut(userID uuid.UUID, push MessagePush, isMine bool) {
	push.IsMine = isMine
	frame := envelope(FrameReceiveMessage, push)

	for _, conn := range s.registry.ConnectionsByUser(userID) {
		if err := conn.Push(frame); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to push message",
					zap.String("connection_id", conn.ID),
					zap.String("session_id", conn.SessionID),
					zap.Error(err))
			}
		}
	}
}

// connError classifies a push failure against the sender's own handle.
func connError(err error) *apierr.Error {
	switch {
	case errors.Is(err, registry.ErrStillConnecting):
		return apierr.StillConnecting("connection is not ready for messages yet")
	case errors.Is(err, registry.ErrNotStarted):
		return apierr.NotStarted("connection is not started")
	}
	return apierr.Internal()
}
