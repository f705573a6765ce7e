package services

import (
	"encoding/json"
	"log/slog"

	"thomas-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit is an append-only trail of auth and resource events. Writes are
// best-effort: a failed insert is logged, never propagated.
type Audit struct {
	db *gorm.DB
}

func NewAudit(db *gorm.DB) *Audit {
	return &Audit{db: db}
}

func (a *Audit) Record(userID *uuid.UUID, action, ip string, details map[string]interface{}) {
	entry := models.AuditLog{
		ID:     uuid.New(),
		UserID: userID,
		Action: action,
		IP:     ip,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	if err := a.db.Create(&entry).Error; err != nil {
		slog.Error("Failed to write audit entry", "action", action, "error", err)
	}
}

// Recent returns the newest entries for one user.
func (a *Audit) Recent(userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.AuditLog
	err := a.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
