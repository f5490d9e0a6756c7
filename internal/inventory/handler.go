package inventory

import (
	"errors"
	"strconv"
	"strings"

	"farm-backend/internal/access"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request Types
// -------------------------

type CreateItemRequest struct {
	OwnerID         *uint            `json:"ownerId"`
	Name            string           `json:"name" validate:"required,max=150"`
	SKU             string           `json:"sku" validate:"max=50"`
	Category        string           `json:"category" validate:"max=50"`
	Unit            string           `json:"unit" validate:"required,max=20"`
	CurrentQuantity *decimal.Decimal `json:"currentQuantity" validate:"omitempty,gte=0,scale=3"`
	ReorderLevel    *decimal.Decimal `json:"reorderLevel" validate:"omitempty,gte=0,scale=3"`
	UnitCost        *decimal.Decimal `json:"unitCost" validate:"omitempty,gte=0,scale=2"`
	Location        string           `json:"location" validate:"max=100"`
	SupplierID      *uint            `json:"supplierId"`
}

// UpdateItemRequest cannot change the quantity; use adjust-quantity so every change is recorded.
type UpdateItemRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=150"`
	SKU          *string          `json:"sku" validate:"omitempty,max=50"`
	Category     *string          `json:"category" validate:"omitempty,max=50"`
	Unit         *string          `json:"unit" validate:"omitempty,min=1,max=20"`
	ReorderLevel *decimal.Decimal `json:"reorderLevel" validate:"omitempty,gte=0,scale=3"`
	UnitCost     *decimal.Decimal `json:"unitCost" validate:"omitempty,gte=0,scale=2"`
	Location     *string          `json:"location" validate:"omitempty,max=100"`
	SupplierID   *uint            `json:"supplierId"`
}

type AdjustQuantityRequest struct {
	Delta  decimal.Decimal `json:"delta" validate:"scale=3"`
	Reason string          `json:"reason" validate:"required,max=255"`
}

var sortable = pagination.Base.With(pagination.Sortable{
	"name":            "name",
	"category":        "category",
	"currentQuantity": "current_quantity",
	"reorderLevel":    "reorder_level",
	"unitCost":        "unit_cost",
})

func Register(r fiber.Router, env crud.Env) {
	r.Post("/inventory/:id/adjust-quantity", auth.Authenticated(), AdjustQuantityHandler(env))
	r.Get("/inventory/:id/movements", auth.Authenticated(), ListMovementsHandler(env.DB))
	Items(env).Register(r)
}

func Items(env crud.Env) *crud.Resource[models.InventoryItem, CreateItemRequest, UpdateItemRequest] {
	return &crud.Resource[models.InventoryItem, CreateItemRequest, UpdateItemRequest]{
		Env:      env,
		Name:     "Inventory item",
		Entity:   "inventory_item",
		Path:     "/inventory",
		Sortable: sortable,
		Filters: func(c *fiber.Ctx) (access.Filter, error) {
			if v := c.Query("category"); v != "" {
				return access.Eq("category", v), nil
			}
			return nil, nil
		},
		Query: func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
			raw := c.Query("lowStock")
			if raw == "" {
				return q, nil
			}
			low, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, response.FieldError("lowStock", "must be true or false")
			}
			if low {
				return q.Where("current_quantity <= reorder_level"), nil
			}
			return q.Where("current_quantity > reorder_level"), nil
		},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateItemRequest) (*models.InventoryItem, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			if err := crud.RequireOwnedOpt[models.Supplier](tx, owner, "supplierId", req.SupplierID); err != nil {
				return nil, err
			}
			return &models.InventoryItem{
				OwnerID:         owner,
				Name:            strings.TrimSpace(req.Name),
				SKU:             req.SKU,
				Category:        req.Category,
				Unit:            req.Unit,
				CurrentQuantity: orZero(req.CurrentQuantity),
				ReorderLevel:    orZero(req.ReorderLevel),
				UnitCost:        orZero(req.UnitCost),
				Location:        req.Location,
				SupplierID:      req.SupplierID,
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.InventoryItem, req *UpdateItemRequest) error {
			if req.Name != nil {
				m.Name = strings.TrimSpace(*req.Name)
			}
			if req.SKU != nil {
				m.SKU = *req.SKU
			}
			if req.Category != nil {
				m.Category = *req.Category
			}
			if req.Unit != nil {
				m.Unit = *req.Unit
			}
			if req.ReorderLevel != nil {
				m.ReorderLevel = *req.ReorderLevel
			}
			if req.UnitCost != nil {
				m.UnitCost = *req.UnitCost
			}
			if req.Location != nil {
				m.Location = *req.Location
			}
			if req.SupplierID != nil {
				m.SupplierID = nil
				if *req.SupplierID != 0 {
					if err := crud.RequireOwned[models.Supplier](tx, m.OwnerID, "supplierId", *req.SupplierID); err != nil {
						return err
					}
					m.SupplierID = req.SupplierID
				}
			}
			return nil
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.InventoryItem) error {
			if err := tx.Model(&models.PurchaseOrderItem{}).Where("inventory_item_id = ?", m.ID).Update("inventory_item_id", nil).Error; err != nil {
				return err
			}
			return tx.Where("inventory_item_id = ?", m.ID).Delete(&models.InventoryMovement{}).Error
		},
	}
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// POST /api/inventory/:id/adjust-quantity
func AdjustQuantityHandler(env crud.Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body AdjustQuantityRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		if body.Delta.IsZero() {
			return response.FieldError("delta", "must not be zero")
		}

		var item *models.InventoryItem
		err = env.DB.Transaction(func(tx *gorm.DB) error {
			current, err := crud.Load[models.InventoryItem](tx, p, "Inventory item", id)
			if err != nil {
				return err
			}
			item, err = Adjust(tx, current.ID, Adjustment{Delta: body.Delta, Reason: body.Reason, UserID: p.ID})
			if err != nil {
				if errors.Is(err, ErrInsufficientStock) {
					return response.FieldError("delta", "would take the quantity below zero")
				}
				return err
			}
			return env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     item.OwnerID,
				EntityType:  "inventory_item",
				EntityID:    item.ID,
				Action:      models.AuditActionUpdate,
				Description: "Quantity adjusted by " + body.Delta.String() + ": " + body.Reason,
				Before:      map[string]any{"currentQuantity": current.CurrentQuantity},
				After:       map[string]any{"currentQuantity": item.CurrentQuantity},
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}
		return response.OK(c, "Inventory quantity adjusted", item)
	}
}

var movementSortable = pagination.Sortable{"id": "id", "createdAt": "created_at"}

// GET /api/inventory/:id/movements
func ListMovementsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		if _, err := crud.Load[models.InventoryItem](db, p, "Inventory item", id); err != nil {
			return err
		}

		params, err := pagination.Parse(c, movementSortable)
		if err != nil {
			return err
		}
		q := db.Model(&models.InventoryMovement{}).Where("inventory_item_id = ?", id)
		items, meta, err := pagination.Paginate[models.InventoryMovement](q, params, movementSortable)
		if err != nil {
			return response.Internal(err)
		}
		return response.List(c, "Inventory movements retrieved", items, meta)
	}
}
