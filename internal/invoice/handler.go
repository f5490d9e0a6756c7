package invoice

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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type LineItemRequest struct {
	Description string          `json:"description" validate:"required,max=255"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0,scale=2"`
}

type CreateInvoiceRequest struct {
	OwnerID     *uint             `json:"ownerId"`
	CustomerID  uint              `json:"customerId" validate:"required"`
	InvoiceDate string            `json:"invoiceDate" validate:"required"`
	DueDate     string            `json:"dueDate" validate:"required"`
	TaxRate     *decimal.Decimal  `json:"taxRate" validate:"omitempty,gte=0,lte=1,scale=4"`
	Notes       string            `json:"notes"`
	LineItems   []LineItemRequest `json:"lineItems" validate:"min=1,dive"`
}

type UpdateInvoiceRequest struct {
	CustomerID  *uint             `json:"customerId"`
	InvoiceDate *string           `json:"invoiceDate"`
	DueDate     *string           `json:"dueDate"`
	TaxRate     *decimal.Decimal  `json:"taxRate" validate:"omitempty,gte=0,lte=1,scale=4"`
	Notes       *string           `json:"notes"`
	LineItems   []LineItemRequest `json:"lineItems" validate:"omitempty,min=1,dive"`
}

// MarkPaidRequest optionally books the payment as income in the given category.
type MarkPaidRequest struct {
	CategoryID *uint `json:"categoryId"`
}

type LineItemResponse struct {
	ID          uint            `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type InvoiceResponse struct {
	ID            uint                 `json:"id"`
	OwnerID       uint                 `json:"ownerId"`
	InvoiceNumber string               `json:"invoiceNumber"`
	CustomerID    uint                 `json:"customerId"`
	Customer      *models.Customer     `json:"customer,omitempty"`
	InvoiceDate   string               `json:"invoiceDate"`
	DueDate       string               `json:"dueDate"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TaxRate       decimal.Decimal      `json:"taxRate"`
	TaxAmount     decimal.Decimal      `json:"taxAmount"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	Status        models.InvoiceStatus `json:"status"`
	Notes         string               `json:"notes"`
	SentAt        *time.Time           `json:"sentAt"`
	PaidAt        *time.Time           `json:"paidAt"`
	LineItems     []LineItemResponse   `json:"lineItems"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

var sortable = pagination.Base.With(pagination.Sortable{
	"invoiceNumber": "invoice_number",
	"invoiceDate":   "invoice_date",
	"dueDate":       "due_date",
	"totalAmount":   "total_amount",
	"status":        "status",
})

var preload = []string{"Customer", "LineItems"}

type Handler struct {
	env     crud.Env
	seq     *Sequencer
	taxRate decimal.Decimal
	now     func() time.Time
}

func NewHandler(env crud.Env, seq *Sequencer, taxRate decimal.Decimal) *Handler {
	return &Handler{env: env, seq: seq, taxRate: taxRate, now: time.Now}
}

func (h *Handler) Register(r fiber.Router) {
	res := h.resource()
	g := r.Group("/invoices", auth.Authenticated())
	g.Get("/", res.ListHandler())
	g.Get("/:id", res.GetHandler())
	g.Post("/", h.CreateHandler())
	g.Put("/:id", h.UpdateHandler())
	g.Delete("/:id", res.DeleteHandler())
	g.Post("/:id/send", h.TransitionHandler(models.InvoiceSent))
	g.Post("/:id/mark-paid", h.TransitionHandler(models.InvoicePaid))
	g.Post("/:id/cancel", h.TransitionHandler(models.InvoiceCancelled))
}

// resource serves list, detail and delete. Create and update go through the sequencer.
func (h *Handler) resource() *crud.Resource[models.Invoice, CreateInvoiceRequest, UpdateInvoiceRequest] {
	return &crud.Resource[models.Invoice, CreateInvoiceRequest, UpdateInvoiceRequest]{
		Env:         h.env,
		Name:        "Invoice",
		Entity:      "invoice",
		Path:        "/invoices",
		Sortable:    sortable,
		Preload:     preload,
		Filters:     h.filters,
		Query:       h.query,
		Present:     func(inv models.Invoice) any { return h.present(inv) },
		DeleteRoles: []access.Role{access.RoleAdmin, access.RoleManager},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, inv *models.Invoice) error {
			if inv.Status != models.InvoiceDraft && inv.Status != models.InvoiceCancelled {
				return response.FieldError("status", "only DRAFT or CANCELLED invoices can be deleted")
			}
			return tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLineItem{}).Error
		},
	}
}

func (h *Handler) present(inv models.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		OwnerID:       inv.OwnerID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Customer:      inv.Customer,
		InvoiceDate:   inv.InvoiceDate.Format("2006-01-02"),
		DueDate:       inv.DueDate.Format("2006-01-02"),
		Subtotal:      financial.Round2(inv.Subtotal),
		TaxRate:       inv.TaxRate,
		TaxAmount:     financial.Round2(inv.TaxAmount),
		TotalAmount:   financial.Round2(inv.TotalAmount),
		Status:        DisplayStatus(inv, h.now()),
		Notes:         inv.Notes,
		SentAt:        inv.SentAt,
		PaidAt:        inv.PaidAt,
		LineItems: lo.Map(inv.LineItems, func(li models.InvoiceLineItem, _ int) LineItemResponse {
			return LineItemResponse{
				ID:          li.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   financial.Round2(li.UnitPrice),
				TotalPrice:  financial.Round2(li.TotalPrice),
			}
		}),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

func (h *Handler) filters(c *fiber.Ctx) (access.Filter, error) {
	return financial.IDFilters(c, map[string]string{"customerId": "customer_id"})
}

// query handles ?status= with OVERDUE derived from the due date, plus invoice date ranges.
func (h *Handler) query(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
	today := startOfDay(h.now())
	switch status := models.InvoiceStatus(strings.ToUpper(c.Query("status"))); status {
	case "":
	case models.InvoiceOverdue:
		q = q.Where("status = ? AND due_date < ?", models.InvoiceSent, today)
	case models.InvoiceSent:
		q = q.Where("status = ? AND due_date >= ?", models.InvoiceSent, today)
	case models.InvoiceDraft, models.InvoicePaid, models.InvoiceCancelled:
		q = q.Where("status = ?", status)
	default:
		return nil, response.FieldError("status", "must be one of DRAFT, SENT, PAID, OVERDUE, CANCELLED")
	}
	return financial.DateRange("invoice_date")(c, q)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func buildLines(reqs []LineItemRequest) ([]models.InvoiceLineItem, []financial.Line) {
	items := make([]models.InvoiceLineItem, 0, len(reqs))
	lines := make([]financial.Line, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, models.InvoiceLineItem{
			Description: strings.TrimSpace(r.Description),
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			TotalPrice:  financial.LineTotal(r.Quantity, r.UnitPrice),
		})
		lines = append(lines, financial.Line{Quantity: r.Quantity, UnitPrice: r.UnitPrice})
	}
	return items, lines
}

func applyTotals(inv *models.Invoice, lines []financial.Line) {
	totals := financial.InvoiceTotals(lines, inv.TaxRate)
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.Tax
	inv.TotalAmount = totals.Total
}

// checkCustomer requires an active customer of the invoice owner.
func checkCustomer(tx *gorm.DB, ownerID, customerID uint) error {
	var customer models.Customer
	if err := tx.Where("id = ? AND owner_id = ?", customerID, ownerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.FieldError("customerId", "does not reference an existing customer")
		}
		return err
	}
	if !customer.IsActive {
		return response.FieldError("customerId", "customer is inactive")
	}
	return nil
}

func checkDates(invoiceDate, dueDate time.Time) error {
	if dueDate.Before(invoiceDate) {
		return response.FieldError("dueDate", "must not be before invoiceDate")
	}
	return nil
}

// POST /api/invoices
func (h *Handler) CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		var body CreateInvoiceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		owner, err := auth.OwnerFor(p, body.OwnerID)
		if err != nil {
			return err
		}
		invoiceDate, err := validation.ParseDate("invoiceDate", body.InvoiceDate)
		if err != nil {
			return err
		}
		dueDate, err := validation.ParseDate("dueDate", body.DueDate)
		if err != nil {
			return err
		}
		if err := checkDates(invoiceDate, dueDate); err != nil {
			return err
		}
		taxRate := h.taxRate
		if body.TaxRate != nil {
			taxRate = *body.TaxRate
		}

		var id uint
		err = Retry(func() error {
			return h.env.DB.Transaction(func(tx *gorm.DB) error {
				if err := checkCustomer(tx, owner, body.CustomerID); err != nil {
					return err
				}
				number, err := h.seq.Next(tx, owner, KindInvoice)
				if err != nil {
					return err
				}

				items, lines := buildLines(body.LineItems)
				inv := models.Invoice{
					OwnerID:       owner,
					InvoiceNumber: number,
					CustomerID:    body.CustomerID,
					InvoiceDate:   invoiceDate,
					DueDate:       dueDate,
					TaxRate:       taxRate,
					Status:        models.InvoiceDraft,
					Notes:         body.Notes,
					LineItems:     items,
				}
				applyTotals(&inv, lines)

				if err := tx.Omit("Customer").Create(&inv).Error; err != nil {
					return err
				}
				id = inv.ID
				return h.env.Audit.Write(tx, p, audit.LogOptions{
					OwnerID:     owner,
					EntityType:  "invoice",
					EntityID:    inv.ID,
					Action:      models.AuditActionCreate,
					Description: "Invoice " + number + " created",
					After:       inv,
				})
			})
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				h.env.Logger().Error("invoice number collision persisted", zap.Uint("owner_id", owner), zap.Error(err))
			}
			return crud.Wrap(err)
		}

		inv, err := crud.Load[models.Invoice](h.env.DB, p, "Invoice", id, preload...)
		if err != nil {
			return err
		}
		return response.Created(c, "Invoice created", h.present(*inv))
	}
}

// PUT /api/invoices/:id
// Only drafts are editable. Line items, when given, replace the existing ones.
func (h *Handler) UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body UpdateInvoiceRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			inv, err := crud.Load[models.Invoice](tx, p, "Invoice", id, "LineItems")
			if err != nil {
				return err
			}
			if !Editable(*inv) {
				return response.FieldError("status", "only DRAFT invoices can be edited")
			}
			before := *inv

			if body.CustomerID != nil {
				if err := checkCustomer(tx, inv.OwnerID, *body.CustomerID); err != nil {
					return err
				}
				inv.CustomerID = *body.CustomerID
			}
			if body.InvoiceDate != nil {
				if inv.InvoiceDate, err = validation.ParseDate("invoiceDate", *body.InvoiceDate); err != nil {
					return err
				}
			}
			if body.DueDate != nil {
				if inv.DueDate, err = validation.ParseDate("dueDate", *body.DueDate); err != nil {
					return err
				}
			}
			if err := checkDates(inv.InvoiceDate, inv.DueDate); err != nil {
				return err
			}
			if body.TaxRate != nil {
				inv.TaxRate = *body.TaxRate
			}
			if body.Notes != nil {
				inv.Notes = *body.Notes
			}

			lines := lo.Map(inv.LineItems, func(li models.InvoiceLineItem, _ int) financial.Line {
				return financial.Line{Quantity: li.Quantity, UnitPrice: li.UnitPrice}
			})
			if body.LineItems != nil {
				if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLineItem{}).Error; err != nil {
					return err
				}
				var items []models.InvoiceLineItem
				items, lines = buildLines(body.LineItems)
				for i := range items {
					items[i].InvoiceID = inv.ID
				}
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
				inv.LineItems = items
			}
			applyTotals(inv, lines)

			if err := tx.Omit("Customer", "LineItems").Save(inv).Error; err != nil {
				return err
			}
			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     inv.OwnerID,
				EntityType:  "invoice",
				EntityID:    inv.ID,
				Action:      models.AuditActionUpdate,
				Description: "Invoice " + inv.InvoiceNumber + " updated",
				Before:      before,
				After:       inv,
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		inv, err := crud.Load[models.Invoice](h.env.DB, p, "Invoice", id, preload...)
		if err != nil {
			return err
		}
		return response.OK(c, "Invoice updated", h.present(*inv))
	}
}

// POST /api/invoices/:id/send | /mark-paid | /cancel
func (h *Handler) TransitionHandler(next models.InvoiceStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}

		var body MarkPaidRequest
		if next == models.InvoicePaid && len(c.Body()) > 0 {
			if err := validation.Bind(c, &body); err != nil {
				return err
			}
		}

		err = h.env.DB.Transaction(func(tx *gorm.DB) error {
			inv, err := crud.Load[models.Invoice](tx, p, "Invoice", id)
			if err != nil {
				return err
			}
			from := inv.Status
			now := h.now().UTC()

			if err := Transition(inv, next, now); err != nil {
				var te *TransitionError
				if errors.As(err, &te) {
					return response.FieldError("status", te.Error())
				}
				return err
			}
			if err := tx.Omit("Customer", "LineItems").Save(inv).Error; err != nil {
				return err
			}

			if next == models.InvoicePaid && body.CategoryID != nil {
				if err := bookPayment(tx, inv, *body.CategoryID, now); err != nil {
					return err
				}
			}

			return h.env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     inv.OwnerID,
				EntityType:  "invoice",
				EntityID:    inv.ID,
				Action:      models.AuditActionState,
				Description: "Invoice " + inv.InvoiceNumber + ": " + string(from) + " -> " + string(next),
				Before:      map[string]any{"status": from},
				After:       map[string]any{"status": next},
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}

		inv, err := crud.Load[models.Invoice](h.env.DB, p, "Invoice", id, preload...)
		if err != nil {
			return err
		}
		return response.OK(c, "Invoice "+strings.ToLower(string(next)), h.present(*inv))
	}
}

// bookPayment records the paid total as income for the invoice owner.
func bookPayment(tx *gorm.DB, inv *models.Invoice, categoryID uint, now time.Time) error {
	var cat models.FinancialCategory
	if err := tx.Where("id = ? AND owner_id = ?", categoryID, inv.OwnerID).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.FieldError("categoryId", "does not reference an existing category")
		}
		return err
	}
	if cat.Type != models.CategoryIncome {
		return response.FieldError("categoryId", "must be an INCOME category")
	}

	total := financial.Round2(inv.TotalAmount)
	record := models.FinancialRecord{
		OwnerID:         inv.OwnerID,
		TransactionType: models.TransactionIncome,
		CategoryID:      cat.ID,
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       total,
		Amount:          total,
		CustomerID:      &inv.CustomerID,
		TransactionDate: now,
		Description:     "Payment for invoice " + inv.InvoiceNumber,
		Reference:       inv.InvoiceNumber,
	}
	return tx.Create(&record).Error
}
