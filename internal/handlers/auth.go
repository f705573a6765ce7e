package handlers

import (
	"errors"
	"log/slog"

	"thomas-backend/internal/config"
	"thomas-backend/internal/middleware"
	"thomas-backend/internal/models"
	"thomas-backend/internal/services"
	"thomas-backend/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Login failures use one message for unknown email and wrong password so the
// response never reveals which accounts exist.
const invalidCredentialsMsg = "Invalid email or password"

type AuthHandler struct {
	cfg   *config.Config
	db    *gorm.DB
	audit *services.Audit
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, audit *services.Audit) *AuthHandler {
	return &AuthHandler{cfg: cfg, db: db, audit: audit}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	req.Username = validate.Text(req.Username, 30)
	req.Email = validate.Text(req.Email, 255)

	if err := validate.Username(req.Username); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
	if err := validate.Email(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
	if err := validate.Password(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}

	var existing int64
	if err := h.db.Model(&models.User{}).Where("email = ? OR username = ?", req.Email, req.Username).Count(&existing).Error; err != nil {
		slog.Error("Failed to check for existing user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create account",
		})
	}
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   true,
			"message": "Email or username already taken",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create account",
		})
	}

	user := models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.db.Create(&user).Error; err != nil {
		// Concurrent signups can still trip the unique indexes.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   true,
				"message": "Email or username already taken",
			})
		}
		slog.Error("Failed to create user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create account",
		})
	}

	// Every new account starts with an empty conversation.
	conv := models.Conversation{ID: uuid.New(), UserID: user.ID, Title: models.DefaultConversationTitle}
	if err := h.db.Create(&conv).Error; err != nil {
		slog.Error("Failed to create initial conversation", "user_id", user.ID, "error", err)
	}

	token, err := middleware.NewSessionToken(user.ID, user.Username, h.cfg.SessionSecret)
	if err != nil {
		slog.Error("Failed to mint session token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to establish session",
		})
	}
	middleware.SetSessionCookie(c, token)

	h.audit.Record(&user.ID, "signup", c.IP(), map[string]interface{}{"username": user.Username})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	req.Email = validate.Text(req.Email, 255)

	var user models.User
	if err := h.db.First(&user, "email = ?", req.Email).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": invalidCredentialsMsg,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": invalidCredentialsMsg,
		})
	}

	token, err := middleware.NewSessionToken(user.ID, user.Username, h.cfg.SessionSecret)
	if err != nil {
		slog.Error("Failed to mint session token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to establish session",
		})
	}
	middleware.SetSessionCookie(c, token)

	h.audit.Record(&user.ID, "login", c.IP(), nil)

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	middleware.ClearSessionCookie(c)
	h.audit.Record(&userID, "logout", c.IP(), nil)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Account no longer exists",
		})
	}

	return c.JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}
