package trade

import (
	"strconv"
	"strings"

	"farm-backend/internal/access"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// -------------------------
// Request Types
// -------------------------

type CreateCustomerRequest struct {
	OwnerID   *uint  `json:"ownerId"`
	Name      string `json:"name" validate:"required,max=150"`
	Email     string `json:"email" validate:"omitempty,email,max=150"`
	Phone     string `json:"phone" validate:"max=50"`
	Address   string `json:"address" validate:"max=255"`
	TaxNumber string `json:"taxNumber" validate:"max=50"`
	IsActive  *bool  `json:"isActive"`
}

type UpdateCustomerRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=150"`
	Email     *string `json:"email" validate:"omitempty,email,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	TaxNumber *string `json:"taxNumber" validate:"omitempty,max=50"`
	IsActive  *bool   `json:"isActive"`
}

type CreateSupplierRequest struct {
	OwnerID       *uint  `json:"ownerId"`
	Name          string `json:"name" validate:"required,max=150"`
	ContactPerson string `json:"contactPerson" validate:"max=100"`
	Email         string `json:"email" validate:"omitempty,email,max=150"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=255"`
	IsActive      *bool  `json:"isActive"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=150"`
	ContactPerson *string `json:"contactPerson" validate:"omitempty,max=100"`
	Email         *string `json:"email" validate:"omitempty,email,max=150"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Address       *string `json:"address" validate:"omitempty,max=255"`
	IsActive      *bool   `json:"isActive"`
}

var sortable = pagination.Base.With(pagination.Sortable{"name": "name", "email": "email"})

func Register(r fiber.Router, env crud.Env) {
	Customers(env).Register(r)
	Suppliers(env).Register(r)
}

// partyFilters handles ?isActive=true|false.
func partyFilters(c *fiber.Ctx) (access.Filter, error) {
	raw := c.Query("isActive")
	if raw == "" {
		return nil, nil
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, response.FieldError("isActive", "must be true or false")
	}
	return access.Eq("is_active", active), nil
}

// search matches ?search= against name, email and phone.
func search(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
	s := strings.TrimSpace(c.Query("search"))
	if s == "" {
		return q, nil
	}
	like := "%" + strings.ToLower(s) + "%"
	return q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like), nil
}

func activeOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// -------------------------
// Customers
// -------------------------

func Customers(env crud.Env) *crud.Resource[models.Customer, CreateCustomerRequest, UpdateCustomerRequest] {
	return &crud.Resource[models.Customer, CreateCustomerRequest, UpdateCustomerRequest]{
		Env:      env,
		Name:     "Customer",
		Entity:   "customer",
		Path:     "/customers",
		Sortable: sortable,
		Filters:  partyFilters,
		Query:    search,
		New: func(tx *gorm.DB, p *access.Principal, req *CreateCustomerRequest) (*models.Customer, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			return &models.Customer{
				OwnerID:   owner,
				Name:      strings.TrimSpace(req.Name),
				Email:     strings.ToLower(strings.TrimSpace(req.Email)),
				Phone:     req.Phone,
				Address:   req.Address,
				TaxNumber: req.TaxNumber,
				IsActive:  activeOrDefault(req.IsActive),
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.Customer, req *UpdateCustomerRequest) error {
			set(&m.Name, req.Name)
			set(&m.Email, req.Email)
			set(&m.Phone, req.Phone)
			set(&m.Address, req.Address)
			set(&m.TaxNumber, req.TaxNumber)
			if req.IsActive != nil {
				m.IsActive = *req.IsActive
			}
			return nil
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.Customer) error {
			var n int64
			if err := tx.Model(&models.Invoice{}).Where("customer_id = ?", m.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return response.BadRequest("Customer has invoices; deactivate it instead")
			}
			return tx.Model(&models.FinancialRecord{}).Where("customer_id = ?", m.ID).Update("customer_id", nil).Error
		},
	}
}

// -------------------------
// Suppliers
// -------------------------

func Suppliers(env crud.Env) *crud.Resource[models.Supplier, CreateSupplierRequest, UpdateSupplierRequest] {
	return &crud.Resource[models.Supplier, CreateSupplierRequest, UpdateSupplierRequest]{
		Env:      env,
		Name:     "Supplier",
		Entity:   "supplier",
		Path:     "/suppliers",
		Sortable: sortable,
		Filters:  partyFilters,
		Query:    search,
		New: func(tx *gorm.DB, p *access.Principal, req *CreateSupplierRequest) (*models.Supplier, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			return &models.Supplier{
				OwnerID:       owner,
				Name:          strings.TrimSpace(req.Name),
				ContactPerson: req.ContactPerson,
				Email:         strings.ToLower(strings.TrimSpace(req.Email)),
				Phone:         req.Phone,
				Address:       req.Address,
				IsActive:      activeOrDefault(req.IsActive),
			}, nil
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.Supplier, req *UpdateSupplierRequest) error {
			set(&m.Name, req.Name)
			set(&m.ContactPerson, req.ContactPerson)
			set(&m.Email, req.Email)
			set(&m.Phone, req.Phone)
			set(&m.Address, req.Address)
			if req.IsActive != nil {
				m.IsActive = *req.IsActive
			}
			return nil
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.Supplier) error {
			var n int64
			if err := tx.Model(&models.PurchaseOrder{}).Where("supplier_id = ?", m.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return response.BadRequest("Supplier has purchase orders; deactivate it instead")
			}
			if err := tx.Model(&models.InventoryItem{}).Where("supplier_id = ?", m.ID).Update("supplier_id", nil).Error; err != nil {
				return err
			}
			return tx.Model(&models.FinancialRecord{}).Where("supplier_id = ?", m.ID).Update("supplier_id", nil).Error
		},
	}
}
