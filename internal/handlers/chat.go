package handlers

import (
	"errors"

	"thomas-backend/internal/middleware"
	"thomas-backend/internal/services"
	"thomas-backend/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chat *services.ChatService
	news *services.NewsService
}

func NewChatHandler(chat *services.ChatService, news *services.NewsService) *ChatHandler {
	return &ChatHandler{chat: chat, news: news}
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	message := validate.Text(req.Message, validate.MaxMessageLength)
	if message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Message is required",
		})
	}

	var conversationID *uuid.UUID
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid conversation ID",
			})
		}
		conversationID = &id
	}

	result, err := h.chat.HandleTurn(c.UserContext(), middleware.UserID(c), message, conversationID)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   true,
				"message": "Conversation not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to process message",
		})
	}

	return c.JSON(fiber.Map{
		"response":        result.Reply,
		"conversation_id": result.ConversationID,
	})
}

func (h *ChatHandler) News(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}
	// An empty body is fine; the service falls back to the default query.
	_ = c.BodyParser(&req)

	query := validate.Text(req.Query, 200)
	news := h.news.Fetch(c.UserContext(), query)

	return c.JSON(fiber.Map{"news": news})
}
