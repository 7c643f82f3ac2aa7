package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flashtalk/flashtalk/apierr"
	"github.com/flashtalk/flashtalk/middleware/tokenauth"
	"github.com/flashtalk/flashtalk/services/chats"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ChatsHandler struct {
	chats  *chats.Service
	logger *logging.Service
}

func NewChatsHandler(chatsSvc *chats.Service, logger *logging.Service) *ChatsHandler {
	return &ChatsHandler{
		chats:  chatsSvc,
		logger: logger,
	}
}

func (h *ChatsHandler) List(c echo.Context) error {
	summaries, err := h.chats.ChatsByUser(c.Request().Context(), tokenauth.GetUserID(c))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to list chats", zap.Error(err))
		}
		return apierr.Internal()
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *ChatsHandler) Messages(c echo.Context) error {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		return apierr.MissingChatID("chatId is not a valid id")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	messages, err := h.chats.Messages(c.Request().Context(), chatID, tokenauth.GetUserID(c), page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrChatNotFound), errors.Is(err, chats.ErrNotMember):
			return apierr.ChatNotFound("chat does not exist or you are not a participant")
		default:
			if h.logger != nil {
				h.logger.Error("failed to load messages", zap.Error(err))
			}
			return apierr.Internal()
		}
	}
	return c.JSON(http.StatusOK, messages)
}
