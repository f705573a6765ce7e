package handlers

import (
	"time"

	"thomas-backend/internal/middleware"
	"thomas-backend/internal/models"
	"thomas-backend/internal/services"
	"thomas-backend/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationHandler serves the ownership-scoped conversation CRUD. Every
// query filters by the session user; a conversation owned by someone else
// yields the same 404 as one that does not exist.
type ConversationHandler struct {
	db    *gorm.DB
	audit *services.Audit
}

func NewConversationHandler(db *gorm.DB, audit *services.Audit) *ConversationHandler {
	return &ConversationHandler{db: db, audit: audit}
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var convs []models.Conversation
	if err := h.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load conversations",
		})
	}

	type convSummary struct {
		ID        uuid.UUID `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	summaries := make([]convSummary, len(convs))
	for i, conv := range convs {
		summaries[i] = convSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		}
	}

	return c.JSON(fiber.Map{"conversations": summaries})
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conv, ok := h.owned(c)
	if !ok {
		return nil
	}

	var msgs []models.Message
	if err := h.db.Where("conversation_id = ?", conv.ID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load messages",
		})
	}

	return c.JSON(fiber.Map{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
		"updated_at": conv.UpdatedAt,
		"messages":   msgs,
	})
}

func (h *ConversationHandler) New(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	conv := models.Conversation{ID: uuid.New(), UserID: userID, Title: models.DefaultConversationTitle}
	if err := h.db.Create(&conv).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create conversation",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
	})
}

func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	conv, ok := h.owned(c)
	if !ok {
		return nil
	}

	// Messages go with the conversation via the FK cascade.
	if err := h.db.Delete(&models.Conversation{}, "id = ?", conv.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete conversation",
		})
	}

	userID := middleware.UserID(c)
	h.audit.Record(&userID, "conversation_delete", c.IP(), map[string]interface{}{"conversation_id": conv.ID})

	return c.JSON(fiber.Map{"message": "Conversation deleted"})
}

func (h *ConversationHandler) Rename(c *fiber.Ctx) error {
	conv, ok := h.owned(c)
	if !ok {
		return nil
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	title := validate.Text(req.Title, 100)
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Title is required",
		})
	}

	if err := h.db.Model(conv).Update("title", title).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to rename conversation",
		})
	}

	userID := middleware.UserID(c)
	h.audit.Record(&userID, "conversation_rename", c.IP(), map[string]interface{}{"conversation_id": conv.ID})

	return c.JSON(fiber.Map{"id": conv.ID, "title": title})
}

// owned resolves the :id param to a conversation belonging to the session
// user. On failure it writes the response itself and returns ok=false.
func (h *ConversationHandler) owned(c *fiber.Ctx) (*models.Conversation, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid conversation ID",
		})
		return nil, false
	}

	var conv models.Conversation
	if err := h.db.First(&conv, "id = ? AND user_id = ?", id, middleware.UserID(c)).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Conversation not found",
		})
		return nil, false
	}
	return &conv, true
}
