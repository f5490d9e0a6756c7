package audit

import (
	"encoding/json"
	"fmt"

	"farm-backend/internal/access"
	"farm-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LogOptions struct {
	OwnerID     uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Logger persists audit entries. A nil *Logger discards everything.
type Logger struct {
	log *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{log: logger}
}

// Write stores an entry through tx so it commits or rolls back with the change it describes.
func (l *Logger) Write(tx *gorm.DB, actor *access.Principal, opts LogOptions) error {
	if l == nil {
		return nil
	}

	entry := models.AuditLog{
		OwnerID:     opts.OwnerID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: truncate(opts.Description, 255),
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	if actor != nil {
		entry.UserID = actor.ID
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	l.log.Debug("audit",
		zap.String("entity", opts.EntityType),
		zap.Uint("entity_id", opts.EntityID),
		zap.String("action", string(opts.Action)),
		zap.Uint("user_id", entry.UserID),
	)
	return nil
}

// snapshot encodes v as JSON, "null" when absent or not encodable.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
