package purchasing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/financial"
	"farm-backend/internal/inventory"
	"farm-backend/internal/invoice"
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

type ItemRequest struct {
	InventoryItemID *uint           `json:"inventoryItemId"`
	Description     string          `json:"description" validate:"required,max=255"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	UnitPrice       decimal.Decimal `json:"unitPrice" validate:"gte=0,scale=2"`
}

type CreateOrderRequest struct {
	OwnerID      *uint            `json:"ownerId"`
	SupplierID   uint             `json:"supplierId" validate:"required"`
	OrderDate    string           `json:"orderDate" validate:"required"`
	ExpectedDate *string          `json:"expectedDate"`
	TaxRate      *decimal.Decimal `json:"taxRate" validate:"omitempty,gte=0,lte=1,scale=4"`
	Notes        string           `json:"notes"`
	Items        []ItemRequest    `json:"items" validate:"min=1,dive"`
}

type UpdateOrderRequest struct {
	SupplierID   *uint            `json:"supplierId"`
	OrderDate    *string          `json:"orderDate"`
	ExpectedDate *string          `json:"expectedDate"`
	TaxRate      *decimal.Decimal `json:"taxRate" validate:"omitempty,gte=0,lte=1,scale=4"`
	Notes        *string          `json:"notes"`
	Items        []ItemRequest    `json:"items" validate:"omitempty,min=1,dive"`
}

type ReceiptRequest struct {
	ItemID   uint            `json:"itemId" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
}

// ReceiveRequest without items receives everything outstanding.
// CategoryID books the received value as an expense.
type ReceiveRequest struct {
	Items      []ReceiptRequest `json:"items" validate:"omitempty,dive"`
	CategoryID *uint            `json:"categoryId"`
}

var sortable = pagination.Base.With(pagination.Sortable{
	"orderNumber":  "order_number",
	"orderDate":    "order_date",
	"expectedDate": "expected_date",
	"totalAmount":  "total_amount",
	"status":       "status",
})

var preload = []string{"Supplier", "Items"}

type Handler struct {
	env     crud.Env
	seq     *invoice.Sequencer
	taxRate decimal.Decimal
	now     func() time.Time
}

// NewHandler shares the invoice sequencer; purchase orders use their own counter.
func NewHandler(env crud.Env, seq *invoice.Sequencer, taxRate decimal.Decimal) *Handler {
	return &Handler{env: env, seq: seq, taxRate: taxRate, now: time.Now}
}

func (h *Handler) Register(r fiber.Router) {
	res := h.resource()
	g := r.Group("/purchase-orders", auth.Authenticated())
	g.Get("/", res.ListHandler())
	g.Get("/:id", res.GetHandler())
	g.Post("/", h.CreateHandler())
	g.Put("/:id", h.UpdateHandler())
	g.Delete("/:id", res.DeleteHandler())
	g.Post("/:id/send", h.SendHandler())
	g.Post("/:id/receive", h.ReceiveHandler())
	g.Post("/:id/cancel", h.CancelHandler())
}

func (h *Handler) resource() *crud.Resource[models.PurchaseOrder, CreateOrderRequest, UpdateOrderRequest] {
	return &crud.Resource[models.PurchaseOrder, CreateOrderRequest, UpdateOrderRequest]{
		Env:      h.env,
		Name:     "Purchase order",
		Entity:   "purchase_order",
		Path:     "/purchase-orders",
		Sortable: sortable,
		Preload:  preload,
		Filters: func(c *fiber.Ctx) (access.Filter, error) {
			filter, err := financial.IDFilters(c, map[string]string{"supplierId": "supplier_id"})
			if err != nil {
				return nil, err
			}
			if raw := c.Query("status"); raw != "" {
				status := models.PurchaseOrderStatus(strings.ToUpper(raw))
				if !lo.Contains(Statuses, status) {
					return nil, response.FieldError("status", "must be one of DRAFT, SENT, PARTIAL, RECEIVED, CANCELLED")
				}
				filter = filter.And(access.Eq("status", status))
			}
			return filter, nil
		},
		Query:       financial.DateRange("order_date"),
		Present:     present,
		DeleteRoles: []access.Role{access.RoleAdmin, access.RoleManager},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, po *models.PurchaseOrder) error {
			if po.Status != models.PurchaseDraft && po.Status != models.PurchaseCancelled {
				return response.FieldError("status", "only DRAFT or CANCELLED purchase orders can be deleted")
			}
			return tx.Where("purchase_order_id = ?", po.ID).Delete(&models.PurchaseOrderItem{}).Error
		},
	}
}

func present(po models.PurchaseOrder) any {
	po.Subtotal = financial.Round2(po.Subtotal)
	po.TaxAmount = financial.Round2(po.TaxAmount)
	po.TotalAmount = financial.Round2(po.TotalAmount)
	po.Items = lo.Map(po.Items, func(it models.PurchaseOrderItem, _ int) models.PurchaseOrderItem {
		it.TotalPrice = financial.Round2(it.TotalPrice)
		return it
	})
	return po
}

func buildItems(tx *gorm.DB, ownerID uint, reqs []ItemRequest) ([]models.PurchaseOrderItem, []financial.Line, error) {
	items := make([]models.PurchaseOrderItem, 0, len(reqs))
	lines := make([]financial.Line, 0, len(reqs))
	for i, r := range reqs {
		if err := crud.RequireOwnedOpt[models.InventoryItem](tx, ownerID, fmt.Sprintf("items[%d].inventoryItemId", i), r.InventoryItemID); err != nil {
			return nil, nil, err
		}
		items = append(items, models.PurchaseOrderItem{
			InventoryItemID:  r.InventoryItemID,
			Description:      strings.TrimSpace(r.Description),
			Quantity:         r.Quantity,
			ReceivedQuantity: decimal.Zero,
			UnitPrice:        r.UnitPrice,
			TotalPrice:       financial.LineTotal(r.Quantity, r.UnitPrice),
		})
		lines = append(lines, financial.Line{Quantity: r.Quantity, UnitPrice: r.UnitPrice})
	}
	return items, lines, nil
}

func applyTotals(po *models.PurchaseOrder, lines []financial.Line, taxRate decimal.Decimal) {
	totals := financial.InvoiceTotals(lines, taxRate)
	po.Subtotal = totals.Subtotal
	po.TaxAmount = totals.Tax
	po.TotalAmount = totals.Total
}

// taxRateOf recovers the rate an order was created with.
func taxRateOf(po *models.PurchaseOrder) decimal.Decimal {
	if po.Subtotal.IsZero() {
		return decimal.Zero
	}
	return po.TaxAmount.DivRound(po.Subtotal, 4)
}

func checkSupplier(tx *gorm.DB, ownerID, supplierID uint) error {
	var supplier models.Supplier
	if err := tx.Where("id = ? AND owner_id = ?", supplierID, ownerID).First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.FieldError("supplierId", "does not reference an existing supplier")
		}
		return err
	}
	if !supplier.IsActive {
		return response.FieldError("supplierId", "supplier is inactive")
	}
	return nil
}

// POST /api/purchase-orders
func (h *Handler) CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		var body CreateOrderRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		owner, err := auth.OwnerFor(p, body.OwnerID)
		if err != nil {
			return err
		}
		orderDate, err := validation.ParseDate("orderDate", body.OrderDate)
		if err != nil {
			return err
		}
		expected, err := validation.ParseOptionalDate("expectedDate", body.ExpectedDate)
		if err != nil {
			return err
		}
		taxRate := h.taxRate
		if body.TaxRate != nil {
			taxRate = *body.TaxRate
		}

		var id uint
		err = invoice.Retry(func() error {
			return h.env.DB.Transaction(func(tx *gorm.DB) error {
				if err := checkSupplier(tx, owner, body.SupplierID); err != nil {
					return err
				}
				items, lines, err := buildItems(tx, owner, body.Items)
				if err != nil {
					return err
				}
				number, err := h.seq.Next(tx, owner, invoice.KindPurchaseOrder)
				if err != nil {
					return err
				}

				po := models.PurchaseOrder{
					OwnerID:      owner,
					OrderNumber:  number,
					SupplierID:   body.SupplierID,
					OrderDate:    orderDate,
					ExpectedDate: expected,
					Status:       models.PurchaseDraft,
					Notes:        body.Notes,
					Items:        items,
				}
				applyTotals(&po, lines, taxRate)

				if err := tx.Omit("Supplier").Create(&po).Error; err != nil {
					return err
				}
				id = po.ID
				return h.env.Audit.Write(tx, p, audit.LogOptions{
					OwnerID:     owner,
					EntityType:  "purchase_order",
					EntityID:    po.ID,
					Action:      models.AuditActionCreate,
					Description: "Purchase order " + number + " created",
					After:       po,
				})
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		po, err := crud.Load[models.PurchaseOrder](h.env.DB, p, "Purchase order", id, preload...)
		if err != nil {
			return err
		}
		return response.Created(c, "Purchase order created", present(*po))
	}
}

// PUT /api/purchase-orders/:id
func (h *Handler) UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body UpdateOrderRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			po, err := crud.Load[models.PurchaseOrder](tx, p, "Purchase order", id, "Items")
			if err != nil {
				return err
			}
			if po.Status != models.PurchaseDraft {
				return response.FieldError("status", "only DRAFT purchase orders can be edited")
			}
			before := *po
			taxRate := taxRateOf(po)

			if body.SupplierID != nil {
				if err := checkSupplier(tx, po.OwnerID, *body.SupplierID); err != nil {
					return err
				}
				po.SupplierID = *body.SupplierID
			}
			if body.OrderDate != nil {
				if po.OrderDate, err = validation.ParseDate("orderDate", *body.OrderDate); err != nil {
					return err
				}
			}
			if body.ExpectedDate != nil {
				if po.ExpectedDate, err = validation.ParseOptionalDate("expectedDate", body.ExpectedDate); err != nil {
					return err
				}
			}
			if body.TaxRate != nil {
				taxRate = *body.TaxRate
			}
			if body.Notes != nil {
				po.Notes = *body.Notes
			}

			lines := lo.Map(po.Items, func(it models.PurchaseOrderItem, _ int) financial.Line {
				return financial.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
			})
			if body.Items != nil {
				var items []models.PurchaseOrderItem
				if items, lines, err = buildItems(tx, po.OwnerID, body.Items); err != nil {
					return err
				}
				if err := tx.Where("purchase_order_id = ?", po.ID).Delete(&models.PurchaseOrderItem{}).Error; err != nil {
					return err
				}
				for i := range items {
					items[i].PurchaseOrderID = po.ID
				}
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
				po.Items = items
			}
			applyTotals(po, lines, taxRate)

			if err := tx.Omit("Supplier", "Items").Save(po).Error; err != nil {
				return err
			}
			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     po.OwnerID,
				EntityType:  "purchase_order",
				EntityID:    po.ID,
				Action:      models.AuditActionUpdate,
				Description: "Purchase order " + po.OrderNumber + " updated",
				Before:      before,
				After:       po,
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		po, err := crud.Load[models.PurchaseOrder](h.env.DB, p, "Purchase order", id, preload...)
		if err != nil {
			return err
		}
		return response.OK(c, "Purchase order updated", present(*po))
	}
}

// transition loads the order, runs change and records the status move.
func (h *Handler) transition(c *fiber.Ctx, change func(tx *gorm.DB, p *access.Principal, po *models.PurchaseOrder) (models.PurchaseOrderStatus, error)) error {
	p := auth.PrincipalFrom(c)
	id, err := crud.ParseID(c)
	if err != nil {
		return err
	}

	err = h.env.DB.Transaction(func(tx *gorm.DB) error {
		po, err := crud.Load[models.PurchaseOrder](tx, p, "Purchase order", id, "Items")
		if err != nil {
			return err
		}
		from := po.Status
		next, err := change(tx, p, po)
		if err != nil {
			return err
		}
		if !CanTransition(from, next) {
			return response.FieldError("status", fmt.Sprintf("cannot change status from %s to %s", from, next))
		}
		po.Status = next
		if err := tx.Omit("Supplier", "Items").Save(po).Error; err != nil {
			return err
		}
		return h.env.Audit.Write(tx, p, audit.LogOptions{
			OwnerID:     po.OwnerID,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionState,
			Description: "Purchase order " + po.OrderNumber + ": " + string(from) + " -> " + string(next),
			Before:      map[string]any{"status": from},
			After:       map[string]any{"status": next},
		})
	})
	if err != nil {
		return crud.Wrap(err)
	}

	po, err := crud.Load[models.PurchaseOrder](h.env.DB, p, "Purchase order", id, preload...)
	if err != nil {
		return err
	}
	return response.OK(c, "Purchase order "+strings.ToLower(string(po.Status)), present(*po))
}

// POST /api/purchase-orders/:id/send
func (h *Handler) SendHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.transition(c, func(*gorm.DB, *access.Principal, *models.PurchaseOrder) (models.PurchaseOrderStatus, error) {
			return models.PurchaseSent, nil
		})
	}
}

// POST /api/purchase-orders/:id/cancel
func (h *Handler) CancelHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.transition(c, func(*gorm.DB, *access.Principal, *models.PurchaseOrder) (models.PurchaseOrderStatus, error) {
			return models.PurchaseCancelled, nil
		})
	}
}

// POST /api/purchase-orders/:id/receive
// Received quantities are added to linked inventory items.
func (h *Handler) ReceiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReceiveRequest
		if len(c.Body()) > 0 {
			if err := validation.Bind(c, &body); err != nil {
				return err
			}
		}

		return h.transition(c, func(tx *gorm.DB, p *access.Principal, po *models.PurchaseOrder) (models.PurchaseOrderStatus, error) {
			if !Receivable(po.Status) {
				return "", response.FieldError("status", "only SENT or PARTIAL purchase orders can be received")
			}

			receipts := lo.Map(body.Items, func(r ReceiptRequest, _ int) Receipt {
				return Receipt{ItemID: r.ItemID, Quantity: r.Quantity}
			})
			updated, next, err := ApplyReceipts(po.Items, receipts)
			if err != nil {
				var le *LineError
				if errors.As(err, &le) {
					return "", response.FieldError(fmt.Sprintf("items[%d]", le.Index), le.Message)
				}
				return "", err
			}

			value := decimal.Zero
			for i, it := range updated {
				delta := it.ReceivedQuantity.Sub(po.Items[i].ReceivedQuantity)
				if delta.IsZero() {
					continue
				}
				if err := tx.Model(&it).Update("received_quantity", it.ReceivedQuantity).Error; err != nil {
					return "", err
				}
				value = value.Add(financial.LineTotal(delta, it.UnitPrice))
				if it.InventoryItemID == nil {
					continue
				}
				if _, err := inventory.Adjust(tx, *it.InventoryItemID, inventory.Adjustment{
					Delta:           delta,
					Reason:          "Received on " + po.OrderNumber,
					PurchaseOrderID: &po.ID,
					UserID:          p.ID,
				}); err != nil {
					return "", err
				}
			}
			po.Items = updated

			if next == models.PurchaseReceived {
				now := h.now().UTC()
				po.ReceivedAt = &now
			}
			if body.CategoryID != nil {
				if err := h.bookExpense(tx, po, *body.CategoryID, value); err != nil {
					return "", err
				}
			}
			return next, nil
		})
	}
}

// bookExpense records the value of the received goods, tax included, as an expense.
func (h *Handler) bookExpense(tx *gorm.DB, po *models.PurchaseOrder, categoryID uint, value decimal.Decimal) error {
	var cat models.FinancialCategory
	if err := tx.Where("id = ? AND owner_id = ?", categoryID, po.OwnerID).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.FieldError("categoryId", "does not reference an existing category")
		}
		return err
	}
	if cat.Type != models.CategoryExpense {
		return response.FieldError("categoryId", "must be an EXPENSE category")
	}

	amount := financial.Round2(value.Add(value.Mul(taxRateOf(po))))
	record := models.FinancialRecord{
		OwnerID:         po.OwnerID,
		TransactionType: models.TransactionExpense,
		CategoryID:      cat.ID,
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       amount,
		Amount:          amount,
		SupplierID:      &po.SupplierID,
		TransactionDate: h.now().UTC(),
		Description:     "Goods received on " + po.OrderNumber,
		Reference:       po.OrderNumber,
	}
	return tx.Create(&record).Error
}
