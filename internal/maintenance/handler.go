package maintenance

import (
	"errors"
	"strings"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/financial"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request Types
// -------------------------

type CreateAssetRequest struct {
	OwnerID      *uint            `json:"ownerId"`
	Name         string           `json:"name" validate:"required,max=150"`
	AssetType    string           `json:"assetType" validate:"required,max=50"`
	SerialNumber string           `json:"serialNumber" validate:"max=100"`
	PurchaseDate *string          `json:"purchaseDate"`
	PurchaseCost *decimal.Decimal `json:"purchaseCost" validate:"omitempty,gte=0,scale=2"`
	Location     string           `json:"location" validate:"max=100"`
	Status       string           `json:"status" validate:"omitempty,oneof=ACTIVE MAINTENANCE RETIRED"`
}

type UpdateAssetRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=150"`
	AssetType    *string          `json:"assetType" validate:"omitempty,min=1,max=50"`
	SerialNumber *string          `json:"serialNumber" validate:"omitempty,max=100"`
	PurchaseDate *string          `json:"purchaseDate"`
	PurchaseCost *decimal.Decimal `json:"purchaseCost" validate:"omitempty,gte=0,scale=2"`
	Location     *string          `json:"location" validate:"omitempty,max=100"`
	Status       *string          `json:"status" validate:"omitempty,oneof=ACTIVE MAINTENANCE RETIRED"`
}

// ScheduleRequest is shared by POST /api/assets/:id/schedule and POST /api/maintenance.
type ScheduleRequest struct {
	AssetID       uint             `json:"assetId"`
	Title         string           `json:"title" validate:"required,max=150"`
	Description   string           `json:"description"`
	ScheduledDate string           `json:"scheduledDate" validate:"required"`
	Cost          *decimal.Decimal `json:"cost" validate:"omitempty,gte=0,scale=2"`
	PerformedBy   string           `json:"performedBy" validate:"max=100"`
	Recurrence    string           `json:"recurrence" validate:"max=100"`
}

type UpdateRecordRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=1,max=150"`
	Description   *string          `json:"description"`
	ScheduledDate *string          `json:"scheduledDate"`
	Cost          *decimal.Decimal `json:"cost" validate:"omitempty,gte=0,scale=2"`
	PerformedBy   *string          `json:"performedBy" validate:"omitempty,max=100"`
	Recurrence    *string          `json:"recurrence" validate:"omitempty,max=100"`
}

type CompleteRequest struct {
	Cost        *decimal.Decimal `json:"cost" validate:"omitempty,gte=0,scale=2"`
	PerformedBy *string          `json:"performedBy" validate:"omitempty,max=100"`
}

var assetSortable = pagination.Base.With(pagination.Sortable{
	"name":         "name",
	"assetType":    "asset_type",
	"purchaseDate": "purchase_date",
	"purchaseCost": "purchase_cost",
	"status":       "status",
})

var recordSortable = pagination.Base.With(pagination.Sortable{
	"scheduledDate": "scheduled_date",
	"completedDate": "completed_date",
	"cost":          "cost",
	"status":        "status",
	"title":         "title",
})

type Handler struct {
	env crud.Env
	now func() time.Time
}

func NewHandler(env crud.Env) *Handler {
	return &Handler{env: env, now: time.Now}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/assets/:id/schedule", auth.Authenticated(), h.ScheduleHandler())
	h.assets().Register(r)

	records := h.records()
	g := r.Group("/maintenance", auth.Authenticated())
	g.Get("/", records.ListHandler())
	g.Get("/:id", records.GetHandler())
	g.Post("/", records.CreateHandler())
	g.Put("/:id", records.UpdateHandler())
	g.Delete("/:id", records.DeleteHandler())
	g.Post("/:id/start", h.TransitionHandler(models.MaintenanceInProgress))
	g.Post("/:id/complete", h.TransitionHandler(models.MaintenanceCompleted))
	g.Post("/:id/cancel", h.TransitionHandler(models.MaintenanceCancelled))
}

func (h *Handler) assets() *crud.Resource[models.Asset, CreateAssetRequest, UpdateAssetRequest] {
	return &crud.Resource[models.Asset, CreateAssetRequest, UpdateAssetRequest]{
		Env:      h.env,
		Name:     "Asset",
		Entity:   "asset",
		Path:     "/assets",
		Sortable: assetSortable,
		Filters: func(c *fiber.Ctx) (access.Filter, error) {
			var f access.Filter
			if v := c.Query("status"); v != "" {
				f = f.And(access.Eq("status", strings.ToUpper(v)))
			}
			if v := c.Query("assetType"); v != "" {
				f = f.And(access.Eq("asset_type", v))
			}
			return f, nil
		},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateAssetRequest) (*models.Asset, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			purchased, err := validation.ParseOptionalDate("purchaseDate", req.PurchaseDate)
			if err != nil {
				return nil, err
			}
			status := models.AssetActive
			if req.Status != "" {
				status = models.AssetStatus(req.Status)
			}
			cost := decimal.Zero
			if req.PurchaseCost != nil {
				cost = *req.PurchaseCost
			}
			return &models.Asset{
				OwnerID:      owner,
				Name:         strings.TrimSpace(req.Name),
				AssetType:    req.AssetType,
				SerialNumber: req.SerialNumber,
				PurchaseDate: purchased,
				PurchaseCost: cost,
				Location:     req.Location,
				Status:       status,
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.Asset, req *UpdateAssetRequest) error {
			if req.Name != nil {
				m.Name = strings.TrimSpace(*req.Name)
			}
			if req.AssetType != nil {
				m.AssetType = *req.AssetType
			}
			if req.SerialNumber != nil {
				m.SerialNumber = *req.SerialNumber
			}
			if req.PurchaseDate != nil {
				d, err := validation.ParseOptionalDate("purchaseDate", req.PurchaseDate)
				if err != nil {
					return err
				}
				m.PurchaseDate = d
			}
			if req.PurchaseCost != nil {
				m.PurchaseCost = *req.PurchaseCost
			}
			if req.Location != nil {
				m.Location = *req.Location
			}
			if req.Status != nil {
				m.Status = models.AssetStatus(*req.Status)
			}
			return nil
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.Asset) error {
			if err := tx.Model(&models.Task{}).Where("asset_id = ?", m.ID).Update("asset_id", nil).Error; err != nil {
				return err
			}
			return tx.Where("asset_id = ?", m.ID).Delete(&models.MaintenanceRecord{}).Error
		},
	}
}

func (h *Handler) records() *crud.Resource[models.MaintenanceRecord, ScheduleRequest, UpdateRecordRequest] {
	return &crud.Resource[models.MaintenanceRecord, ScheduleRequest, UpdateRecordRequest]{
		Env:      h.env,
		Name:     "Maintenance record",
		Entity:   "maintenance_record",
		Path:     "/maintenance",
		Sortable: recordSortable,
		Filters: func(c *fiber.Ctx) (access.Filter, error) {
			f, err := financial.IDFilters(c, map[string]string{"assetId": "asset_id"})
			if err != nil {
				return nil, err
			}
			if v := c.Query("status"); v != "" {
				status := models.MaintenanceStatus(strings.ToUpper(v))
				if !lo.Contains(Statuses, status) {
					return nil, response.FieldError("status", "must be one of SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED")
				}
				f = f.And(access.Eq("status", status))
			}
			return f, nil
		},
		Query: financial.DateRange("scheduled_date"),
		New: func(tx *gorm.DB, p *access.Principal, req *ScheduleRequest) (*models.MaintenanceRecord, error) {
			if req.AssetID == 0 {
				return nil, response.FieldError("assetId", "is required")
			}
			asset, err := crud.Load[models.Asset](tx, p, "Asset", req.AssetID)
			if err != nil {
				var re *response.Error
				if errors.As(err, &re) && re.Status == fiber.StatusNotFound {
					return nil, response.FieldError("assetId", "does not reference an existing asset")
				}
				return nil, err
			}
			return newRecord(asset, req)
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.MaintenanceRecord, req *UpdateRecordRequest) error {
			if m.Status == models.MaintenanceCompleted || m.Status == models.MaintenanceCancelled {
				return response.FieldError("status", "completed or cancelled maintenance cannot be edited")
			}
			if req.Title != nil {
				m.Title = strings.TrimSpace(*req.Title)
			}
			if req.Description != nil {
				m.Description = *req.Description
			}
			if req.ScheduledDate != nil {
				d, err := validation.ParseDate("scheduledDate", *req.ScheduledDate)
				if err != nil {
					return err
				}
				m.ScheduledDate = d
			}
			if req.Cost != nil {
				m.Cost = *req.Cost
			}
			if req.PerformedBy != nil {
				m.PerformedBy = *req.PerformedBy
			}
			if req.Recurrence != nil {
				if _, err := ParseRecurrence(*req.Recurrence); err != nil {
					return response.FieldError("recurrence", "must be a five-field cron expression")
				}
				m.Recurrence = strings.TrimSpace(*req.Recurrence)
			}
			return nil
		},
	}
}

func newRecord(asset *models.Asset, req *ScheduleRequest) (*models.MaintenanceRecord, error) {
	if asset.Status == models.AssetRetired {
		return nil, response.FieldError("assetId", "retired assets cannot be scheduled")
	}
	at, err := validation.ParseDate("scheduledDate", req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	if _, err := ParseRecurrence(req.Recurrence); err != nil {
		return nil, response.FieldError("recurrence", "must be a five-field cron expression")
	}
	cost := decimal.Zero
	if req.Cost != nil {
		cost = *req.Cost
	}
	return &models.MaintenanceRecord{
		OwnerID:       asset.OwnerID,
		AssetID:       asset.ID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		ScheduledDate: at,
		Status:        models.MaintenanceScheduled,
		Cost:          cost,
		PerformedBy:   req.PerformedBy,
		Recurrence:    strings.TrimSpace(req.Recurrence),
	}, nil
}

// POST /api/assets/:id/schedule
func (h *Handler) ScheduleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body ScheduleRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		var recordID uint
		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			asset, err := crud.Load[models.Asset](tx, p, "Asset", id)
			if err != nil {
				return err
			}
			rec, err := newRecord(asset, &body)
			if err != nil {
				return err
			}
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
			recordID = rec.ID
			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     rec.OwnerID,
				EntityType:  "maintenance_record",
				EntityID:    rec.ID,
				Action:      models.AuditActionCreate,
				Description: "Maintenance scheduled for " + asset.Name,
				After:       rec,
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		rec, err := crud.Load[models.MaintenanceRecord](h.env.DB, p, "Maintenance record", recordID)
		if err != nil {
			return err
		}
		return response.Created(c, "Maintenance scheduled", rec)
	}
}

// POST /api/maintenance/:id/start | /complete | /cancel
func (h *Handler) TransitionHandler(next models.MaintenanceStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body CompleteRequest
		if next == models.MaintenanceCompleted && len(c.Body()) > 0 {
			if err := validation.Bind(c, &body); err != nil {
				return err
			}
		}

		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			rec, err := crud.Load[models.MaintenanceRecord](tx, p, "Maintenance record", id)
			if err != nil {
				return err
			}
			from := rec.Status
			if !CanTransition(from, next) {
				return response.FieldError("status", "cannot change status from "+string(from)+" to "+string(next))
			}
			rec.Status = next

			if next == models.MaintenanceCompleted {
				now := h.now().UTC()
				rec.CompletedDate = &now
				if body.Cost != nil {
					rec.Cost = *body.Cost
				}
				if body.PerformedBy != nil {
					rec.PerformedBy = *body.PerformedBy
				}
			}
			if err := tx.Save(rec).Error; err != nil {
				return err
			}
			if err := syncAsset(tx, rec); err != nil {
				return err
			}

			if next == models.MaintenanceCompleted {
				follow, err := FollowUp(*rec)
				if err != nil {
					return response.FieldError("recurrence", "must be a five-field cron expression")
				}
				if follow != nil {
					if err := tx.Create(follow).Error; err != nil {
						return err
					}
				}
			}

			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     rec.OwnerID,
				EntityType:  "maintenance_record",
				EntityID:    rec.ID,
				Action:      models.AuditActionState,
				Description: "Maintenance " + rec.Title + ": " + string(from) + " -> " + string(next),
				Before:      map[string]any{"status": from},
				After:       map[string]any{"status": next},
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		rec, err := crud.Load[models.MaintenanceRecord](h.env.DB, p, "Maintenance record", id)
		if err != nil {
			return err
		}
		return response.OK(c, "Maintenance "+strings.ToLower(strings.ReplaceAll(string(next), "_", " ")), rec)
	}
}

// syncAsset marks the asset as under maintenance while any of its records is in progress.
func syncAsset(tx *gorm.DB, rec *models.MaintenanceRecord) error {
	var asset models.Asset
	if err := tx.First(&asset, rec.AssetID).Error; err != nil {
		return err
	}
	if asset.Status == models.AssetRetired {
		return nil
	}

	var running int64
	if err := tx.Model(&models.MaintenanceRecord{}).
		Where("asset_id = ? AND status = ?", asset.ID, models.MaintenanceInProgress).
		Count(&running).Error; err != nil {
		return err
	}

	status := models.AssetActive
	if running > 0 {
		status = models.AssetMaintenance
	}
	if status == asset.Status {
		return nil
	}
	return tx.Model(&asset).Update("status", status).Error
}
