package financial

import (
	"errors"
	"strconv"
	"strings"

	"farm-backend/internal/access"
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

type CreateCategoryRequest struct {
	OwnerID     *uint  `json:"ownerId"`
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Description string `json:"description" validate:"max=255"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Type        *string `json:"type" validate:"omitempty,oneof=INCOME EXPENSE"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type CreateRecordRequest struct {
	OwnerID         *uint            `json:"ownerId"`
	TransactionType string           `json:"transactionType" validate:"required,oneof=INCOME EXPENSE TRANSFER"`
	CategoryID      uint             `json:"categoryId" validate:"required"`
	Amount          *decimal.Decimal `json:"amount" validate:"omitempty,gte=0,scale=2"`
	Quantity        *decimal.Decimal `json:"quantity" validate:"omitempty,gt=0,scale=3"`
	UnitPrice       *decimal.Decimal `json:"unitPrice" validate:"omitempty,gte=0,scale=2"`
	AnimalID        *uint            `json:"animalId"`
	BatchID         *uint            `json:"batchId"`
	CustomerID      *uint            `json:"customerId"`
	SupplierID      *uint            `json:"supplierId"`
	TransactionDate string           `json:"transactionDate" validate:"required"`
	Description     string           `json:"description" validate:"max=255"`
	Reference       string           `json:"reference" validate:"max=100"`
}

type UpdateRecordRequest struct {
	TransactionType *string          `json:"transactionType" validate:"omitempty,oneof=INCOME EXPENSE TRANSFER"`
	CategoryID      *uint            `json:"categoryId"`
	Amount          *decimal.Decimal `json:"amount" validate:"omitempty,gte=0,scale=2"`
	Quantity        *decimal.Decimal `json:"quantity" validate:"omitempty,gt=0,scale=3"`
	UnitPrice       *decimal.Decimal `json:"unitPrice" validate:"omitempty,gte=0,scale=2"`
	AnimalID        *uint            `json:"animalId"`
	BatchID         *uint            `json:"batchId"`
	CustomerID      *uint            `json:"customerId"`
	SupplierID      *uint            `json:"supplierId"`
	TransactionDate *string          `json:"transactionDate"`
	Description     *string          `json:"description" validate:"omitempty,max=255"`
	Reference       *string          `json:"reference" validate:"omitempty,max=100"`
}

var (
	categorySortable = pagination.Base.With(pagination.Sortable{"name": "name", "type": "type"})
	recordSortable   = pagination.Base.With(pagination.Sortable{
		"transactionDate": "transaction_date",
		"amount":          "amount",
		"transactionType": "transaction_type",
	})
)

// Register mounts categories, records and reports.
func Register(r fiber.Router, env crud.Env) {
	Categories(env).Register(r)
	Records(env).Register(r)
	r.Get("/reports/financial-summary", auth.Authenticated(), SummaryHandler(env.DB))
}

// -------------------------
// Categories
// -------------------------

func Categories(env crud.Env) *crud.Resource[models.FinancialCategory, CreateCategoryRequest, UpdateCategoryRequest] {
	return &crud.Resource[models.FinancialCategory, CreateCategoryRequest, UpdateCategoryRequest]{
		Env:         env,
		Name:        "Financial category",
		Entity:      "financial_category",
		Path:        "/financial-categories",
		Sortable:    categorySortable,
		Filters:     func(c *fiber.Ctx) (access.Filter, error) { return typeFilter(c, "type", "type") },
		WriteRoles:  []access.Role{access.RoleAdmin, access.RoleManager},
		DeleteRoles: []access.Role{access.RoleAdmin, access.RoleManager},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateCategoryRequest) (*models.FinancialCategory, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			return &models.FinancialCategory{
				OwnerID:     owner,
				Name:        strings.TrimSpace(req.Name),
				Type:        models.CategoryType(req.Type),
				Description: req.Description,
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.FinancialCategory, req *UpdateCategoryRequest) error {
			if req.Name != nil {
				m.Name = strings.TrimSpace(*req.Name)
			}
			if req.Type != nil && models.CategoryType(*req.Type) != m.Type {
				n, err := recordsUsing(tx, m.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return response.FieldError("type", "cannot change while financial records use this category")
				}
				m.Type = models.CategoryType(*req.Type)
			}
			if req.Description != nil {
				m.Description = *req.Description
			}
			return nil
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.FinancialCategory) error {
			n, err := recordsUsing(tx, m.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return response.BadRequest("Category is used by financial records and cannot be deleted")
			}
			return nil
		},
	}
}

// recordsUsing counts the financial records filed under a category.
func recordsUsing(tx *gorm.DB, categoryID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.FinancialRecord{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// -------------------------
// Records
// -------------------------

func Records(env crud.Env) *crud.Resource[models.FinancialRecord, CreateRecordRequest, UpdateRecordRequest] {
	return &crud.Resource[models.FinancialRecord, CreateRecordRequest, UpdateRecordRequest]{
		Env:         env,
		Name:        "Financial record",
		Entity:      "financial_record",
		Path:        "/financial-records",
		Sortable:    recordSortable,
		Preload:     []string{"Category"},
		Filters:     recordFilters,
		Query:       DateRange("transaction_date"),
		DeleteRoles: []access.Role{access.RoleAdmin, access.RoleManager},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateRecordRequest) (*models.FinancialRecord, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			date, err := validation.ParseDate("transactionDate", req.TransactionDate)
			if err != nil {
				return nil, err
			}
			if req.Amount == nil && req.UnitPrice == nil {
				return nil, response.FieldError("amount", "is required when unitPrice is not given")
			}

			m := &models.FinancialRecord{
				OwnerID:         owner,
				TransactionType: models.TransactionType(req.TransactionType),
				CategoryID:      req.CategoryID,
				AnimalID:        req.AnimalID,
				BatchID:         req.BatchID,
				CustomerID:      req.CustomerID,
				SupplierID:      req.SupplierID,
				TransactionDate: date,
				Description:     req.Description,
				Reference:       req.Reference,
			}
			price(m, req.Quantity, req.UnitPrice, req.Amount)
			return m, checkRecordRefs(tx, m)
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.FinancialRecord, req *UpdateRecordRequest) error {
			if req.TransactionType != nil {
				m.TransactionType = models.TransactionType(*req.TransactionType)
			}
			if req.CategoryID != nil {
				m.CategoryID = *req.CategoryID
			}
			if req.AnimalID != nil {
				m.AnimalID = zeroToNil(*req.AnimalID)
			}
			if req.BatchID != nil {
				m.BatchID = zeroToNil(*req.BatchID)
			}
			if req.CustomerID != nil {
				m.CustomerID = zeroToNil(*req.CustomerID)
			}
			if req.SupplierID != nil {
				m.SupplierID = zeroToNil(*req.SupplierID)
			}
			if req.TransactionDate != nil {
				date, err := validation.ParseDate("transactionDate", *req.TransactionDate)
				if err != nil {
					return err
				}
				m.TransactionDate = date
			}
			if req.Description != nil {
				m.Description = *req.Description
			}
			if req.Reference != nil {
				m.Reference = *req.Reference
			}
			switch {
			case req.UnitPrice != nil || (req.Quantity != nil && req.Amount == nil):
				q, u := &m.Quantity, &m.UnitPrice
				if req.Quantity != nil {
					q = req.Quantity
				}
				if req.UnitPrice != nil {
					u = req.UnitPrice
				}
				price(m, q, u, nil)
			case req.Amount != nil:
				price(m, nil, nil, req.Amount)
			}
			m.Category = nil
			return checkRecordRefs(tx, m)
		},
	}
}

// price keeps amount == quantity × unitPrice. A bare amount is one unit at that price.
func price(m *models.FinancialRecord, quantity, unitPrice, amount *decimal.Decimal) {
	m.Quantity = decimal.NewFromInt(1)
	if unitPrice != nil {
		if quantity != nil {
			m.Quantity = *quantity
		}
		m.UnitPrice = *unitPrice
	} else {
		m.UnitPrice = *amount
	}
	m.Amount = LineTotal(m.Quantity, m.UnitPrice)
}

func zeroToNil(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// checkRecordRefs keeps every reference inside the record owner's data.
func checkRecordRefs(tx *gorm.DB, m *models.FinancialRecord) error {
	var cat models.FinancialCategory
	if err := tx.Where("id = ? AND owner_id = ?", m.CategoryID, m.OwnerID).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.FieldError("categoryId", "does not reference an existing category")
		}
		return err
	}
	if m.TransactionType != models.TransactionTransfer && string(cat.Type) != string(m.TransactionType) {
		return response.FieldError("categoryId", "category type must match the transaction type")
	}
	if err := crud.RequireOwnedOpt[models.Animal](tx, m.OwnerID, "animalId", m.AnimalID); err != nil {
		return err
	}
	if err := crud.RequireOwnedOpt[models.AnimalBatch](tx, m.OwnerID, "batchId", m.BatchID); err != nil {
		return err
	}
	if err := crud.RequireOwnedOpt[models.Customer](tx, m.OwnerID, "customerId", m.CustomerID); err != nil {
		return err
	}
	return crud.RequireOwnedOpt[models.Supplier](tx, m.OwnerID, "supplierId", m.SupplierID)
}

func recordFilters(c *fiber.Ctx) (access.Filter, error) {
	f, err := typeFilter(c, "type", "transaction_type")
	if err != nil {
		return nil, err
	}
	ids, err := IDFilters(c, map[string]string{
		"categoryId": "category_id",
		"animalId":   "animal_id",
		"batchId":    "batch_id",
		"customerId": "customer_id",
		"supplierId": "supplier_id",
	})
	if err != nil {
		return nil, err
	}
	return f.And(ids), nil
}

func typeFilter(c *fiber.Ctx, param, column string) (access.Filter, error) {
	v := strings.ToUpper(c.Query(param))
	if v == "" {
		return nil, nil
	}
	switch models.TransactionType(v) {
	case models.TransactionIncome, models.TransactionExpense, models.TransactionTransfer:
		return access.Eq(column, v), nil
	}
	return nil, response.FieldError(param, "must be INCOME, EXPENSE or TRANSFER")
}

// IDFilters turns numeric query parameters into equality conditions, in a stable order.
func IDFilters(c *fiber.Ctx, params map[string]string) (access.Filter, error) {
	var f access.Filter
	for _, name := range sortedKeys(params) {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, response.FieldError(name, "must be a positive integer")
		}
		f = f.And(access.Eq(params[name], uint(id)))
	}
	return f, nil
}

// DateRange filters column by the from and to query parameters, both inclusive days.
func DateRange(column string) func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
	return func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
		from, to, err := ParsePeriod(c)
		if err != nil {
			return nil, err
		}
		if from != nil {
			q = q.Where(column+" >= ?", *from)
		}
		if to != nil {
			q = q.Where(column+" < ?", to.AddDate(0, 0, 1))
		}
		return q, nil
	}
}
