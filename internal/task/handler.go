package task

import (
	"strings"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	OwnerID     *uint   `json:"ownerId"`
	Title       string  `json:"title" validate:"required,max=150"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AnimalID    *uint   `json:"animalId"`
	AssetID     *uint   `json:"assetId"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status      *string `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS CANCELLED"`
	AnimalID    *uint   `json:"animalId"`
	AssetID     *uint   `json:"assetId"`
}

var sortable = pagination.Base.With(pagination.Sortable{
	"title":    "title",
	"dueDate":  "due_date",
	"priority": "priority",
	"status":   "status",
})

type Handler struct {
	env crud.Env
	now func() time.Time
}

func NewHandler(env crud.Env) *Handler {
	return &Handler{env: env, now: time.Now}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/tasks/:id/complete", auth.Authenticated(), h.CompleteHandler())
	h.resource().Register(r)
}

func (h *Handler) resource() *crud.Resource[models.Task, CreateTaskRequest, UpdateTaskRequest] {
	return &crud.Resource[models.Task, CreateTaskRequest, UpdateTaskRequest]{
		Env:      h.env,
		Name:     "Task",
		Entity:   "task",
		Path:     "/tasks",
		Sortable: sortable,
		Filters:  filters,
		Query: func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
			if c.Query("overdue") != "true" {
				return q, nil
			}
			return q.Where("due_date < ? AND status IN ?", h.now().UTC(), []models.TaskStatus{models.TaskPending, models.TaskInProgress}), nil
		},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateTaskRequest) (*models.Task, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			due, err := validation.ParseOptionalDate("dueDate", req.DueDate)
			if err != nil {
				return nil, err
			}
			if err := crud.RequireOwnedOpt[models.Animal](tx, owner, "animalId", req.AnimalID); err != nil {
				return nil, err
			}
			if err := crud.RequireOwnedOpt[models.Asset](tx, owner, "assetId", req.AssetID); err != nil {
				return nil, err
			}
			priority := models.PriorityMedium
			if req.Priority != "" {
				priority = models.TaskPriority(req.Priority)
			}
			return &models.Task{
				OwnerID:     owner,
				Title:       strings.TrimSpace(req.Title),
				Description: req.Description,
				DueDate:     due,
				Priority:    priority,
				Status:      models.TaskPending,
				AnimalID:    req.AnimalID,
				AssetID:     req.AssetID,
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.Task, req *UpdateTaskRequest) error {
			if m.Status == models.TaskCompleted {
				return response.FieldError("status", "completed tasks cannot be edited")
			}
			if req.Title != nil {
				m.Title = strings.TrimSpace(*req.Title)
			}
			if req.Description != nil {
				m.Description = *req.Description
			}
			if req.DueDate != nil {
				due, err := validation.ParseOptionalDate("dueDate", req.DueDate)
				if err != nil {
					return err
				}
				m.DueDate = due
			}
			if req.Priority != nil {
				m.Priority = models.TaskPriority(*req.Priority)
			}
			if req.Status != nil {
				m.Status = models.TaskStatus(*req.Status)
			}
			if req.AnimalID != nil {
				if err := crud.RequireOwned[models.Animal](tx, m.OwnerID, "animalId", *req.AnimalID); err != nil {
					return err
				}
				m.AnimalID = req.AnimalID
			}
			if req.AssetID != nil {
				if err := crud.RequireOwned[models.Asset](tx, m.OwnerID, "assetId", *req.AssetID); err != nil {
					return err
				}
				m.AssetID = req.AssetID
			}
			return nil
		},
	}
}

func filters(c *fiber.Ctx) (access.Filter, error) {
	var f access.Filter
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(strings.ToUpper(v))
		switch status {
		case models.TaskPending, models.TaskInProgress, models.TaskCompleted, models.TaskCancelled:
		default:
			return nil, response.FieldError("status", "must be one of PENDING, IN_PROGRESS, COMPLETED, CANCELLED")
		}
		f = f.And(access.Eq("status", status))
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(strings.ToUpper(v))
		switch priority {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		default:
			return nil, response.FieldError("priority", "must be one of LOW, MEDIUM, HIGH, URGENT")
		}
		f = f.And(access.Eq("priority", priority))
	}
	return f, nil
}

// POST /api/tasks/:id/complete
func (h *Handler) CompleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			t, err := crud.Load[models.Task](tx, p, "Task", id)
			if err != nil {
				return err
			}
			from := t.Status
			if from == models.TaskCompleted || from == models.TaskCancelled {
				return response.FieldError("status", "task is already "+strings.ToLower(string(from)))
			}
			now := h.now().UTC()
			t.Status = models.TaskCompleted
			t.CompletedAt = &now
			if err := tx.Save(t).Error; err != nil {
				return err
			}
			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     t.OwnerID,
				EntityType:  "task",
				EntityID:    t.ID,
				Action:      models.AuditActionState,
				Description: "Task " + t.Title + " completed",
				Before:      map[string]any{"status": from},
				After:       map[string]any{"status": t.Status},
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		t, err := crud.Load[models.Task](h.env.DB, p, "Task", id)
		if err != nil {
			return err
		}
		return response.OK(c, "Task completed", t)
	}
}
