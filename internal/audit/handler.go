package audit

import (
	"strconv"

	"farm-backend/internal/access"
	"farm-backend/internal/auth"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var sortable = pagination.Sortable{
	"id":         "id",
	"createdAt":  "created_at",
	"entityType": "entity_type",
	"action":     "action",
}

func Register(r fiber.Router, db *gorm.DB) {
	r.Get("/audit-logs", auth.Authenticated(), ListAuditLogsHandler(db))
}

// GET /api/audit-logs?entityType=&entityId=&action=&userId=
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		params, err := pagination.Parse(c, sortable)
		if err != nil {
			return err
		}

		var filter access.Filter
		if v := c.Query("entityType"); v != "" {
			filter = filter.And(access.Eq("entity_type", v))
		}
		if v := c.Query("action"); v != "" {
			filter = filter.And(access.Eq("action", v))
		}
		for _, q := range []struct{ param, column string }{
			{"entityId", "entity_id"},
			{"userId", "user_id"},
		} {
			raw := c.Query(q.param)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return response.FieldError(q.param, "must be a positive integer")
			}
			filter = filter.And(access.Eq(q.column, uint(id)))
		}

		q := access.ScopeFilter(p, filter).Apply(db.Model(&models.AuditLog{}))
		logs, meta, err := pagination.Paginate[models.AuditLog](q, params, sortable)
		if err != nil {
			return response.Internal(err)
		}
		return response.List(c, "Audit logs retrieved", logs, meta)
	}
}
