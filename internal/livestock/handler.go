package livestock

import (
	"strings"

	"farm-backend/internal/access"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/financial"
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

type CreateAnimalRequest struct {
	OwnerID       *uint            `json:"ownerId"`
	TagNumber     string           `json:"tagNumber" validate:"required,max=50"`
	Name          string           `json:"name" validate:"max=100"`
	Species       string           `json:"species" validate:"required,max=50"`
	Breed         string           `json:"breed" validate:"max=100"`
	Gender        string           `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	BirthDate     *string          `json:"birthDate"`
	BatchID       *uint            `json:"batchId"`
	CurrentWeight *decimal.Decimal `json:"currentWeight" validate:"omitempty,gte=0,scale=3"`
	HealthStatus  string           `json:"healthStatus" validate:"omitempty,oneof=HEALTHY SICK INJURED QUARANTINE RECOVERING"`
	Status        string           `json:"status" validate:"omitempty,oneof=ACTIVE SOLD DECEASED"`
	Notes         string           `json:"notes"`
}

type UpdateAnimalRequest struct {
	TagNumber     *string          `json:"tagNumber" validate:"omitempty,min=1,max=50"`
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Species       *string          `json:"species" validate:"omitempty,min=1,max=50"`
	Breed         *string          `json:"breed" validate:"omitempty,max=100"`
	Gender        *string          `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	BirthDate     *string          `json:"birthDate"`
	BatchID       *uint            `json:"batchId"`
	CurrentWeight *decimal.Decimal `json:"currentWeight" validate:"omitempty,gte=0,scale=3"`
	HealthStatus  *string          `json:"healthStatus" validate:"omitempty,oneof=HEALTHY SICK INJURED QUARANTINE RECOVERING"`
	Status        *string          `json:"status" validate:"omitempty,oneof=ACTIVE SOLD DECEASED"`
	Notes         *string          `json:"notes"`
}

type CreateBatchRequest struct {
	OwnerID         *uint            `json:"ownerId"`
	BatchNumber     string           `json:"batchNumber" validate:"required,max=50"`
	Species         string           `json:"species" validate:"required,max=50"`
	InitialQuantity int              `json:"initialQuantity" validate:"gt=0"`
	CurrentQuantity *int             `json:"currentQuantity" validate:"omitempty,gte=0"`
	StartDate       string           `json:"startDate" validate:"required"`
	TotalCost       *decimal.Decimal `json:"totalCost" validate:"omitempty,gte=0,scale=2"`
	AverageWeight   *decimal.Decimal `json:"averageWeight" validate:"omitempty,gte=0,scale=3"`
	BatchStatus     string           `json:"batchStatus" validate:"omitempty,oneof=ACTIVE COMPLETED SOLD CANCELLED"`
	Notes           string           `json:"notes"`
}

type UpdateBatchRequest struct {
	BatchNumber     *string          `json:"batchNumber" validate:"omitempty,min=1,max=50"`
	Species         *string          `json:"species" validate:"omitempty,min=1,max=50"`
	InitialQuantity *int             `json:"initialQuantity" validate:"omitempty,gt=0"`
	CurrentQuantity *int             `json:"currentQuantity" validate:"omitempty,gte=0"`
	StartDate       *string          `json:"startDate"`
	TotalCost       *decimal.Decimal `json:"totalCost" validate:"omitempty,gte=0,scale=2"`
	AverageWeight   *decimal.Decimal `json:"averageWeight" validate:"omitempty,gte=0,scale=3"`
	BatchStatus     *string          `json:"batchStatus" validate:"omitempty,oneof=ACTIVE COMPLETED SOLD CANCELLED"`
	Notes           *string          `json:"notes"`
}

var (
	animalSortable = pagination.Base.With(pagination.Sortable{
		"tagNumber":     "tag_number",
		"species":       "species",
		"birthDate":     "birth_date",
		"currentWeight": "current_weight",
		"healthStatus":  "health_status",
		"status":        "status",
	})
	batchSortable = pagination.Base.With(pagination.Sortable{
		"batchNumber":     "batch_number",
		"startDate":       "start_date",
		"currentQuantity": "current_quantity",
		"totalCost":       "total_cost",
	})
)

func Register(r fiber.Router, env crud.Env) {
	r.Get("/animals/:id/profit-loss", auth.Authenticated(), AnimalProfitLossHandler(env.DB))
	r.Get("/batches/:id/performance", auth.Authenticated(), BatchPerformanceHandler(env.DB))
	r.Get("/batches/:id/profit-loss", auth.Authenticated(), BatchProfitLossHandler(env.DB))

	Animals(env).Register(r)
	Batches(env).Register(r)
}

// -------------------------
// Animals
// -------------------------

func Animals(env crud.Env) *crud.Resource[models.Animal, CreateAnimalRequest, UpdateAnimalRequest] {
	return &crud.Resource[models.Animal, CreateAnimalRequest, UpdateAnimalRequest]{
		Env:      env,
		Name:     "Animal",
		Entity:   "animal",
		Path:     "/animals",
		Sortable: animalSortable,
		Filters:  animalFilters,
		Query: func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error) {
			if s := strings.TrimSpace(c.Query("search")); s != "" {
				like := "%" + strings.ToLower(s) + "%"
				q = q.Where("LOWER(tag_number) LIKE ? OR LOWER(name) LIKE ?", like, like)
			}
			return q, nil
		},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateAnimalRequest) (*models.Animal, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			birth, err := validation.ParseOptionalDate("birthDate", req.BirthDate)
			if err != nil {
				return nil, err
			}
			m := &models.Animal{
				OwnerID:      owner,
				TagNumber:    strings.TrimSpace(req.TagNumber),
				Name:         req.Name,
				Species:      strings.ToLower(strings.TrimSpace(req.Species)),
				Breed:        req.Breed,
				Gender:       req.Gender,
				BirthDate:    birth,
				BatchID:      req.BatchID,
				HealthStatus: models.HealthHealthy,
				Status:       models.AnimalActive,
				Notes:        req.Notes,
			}
			if req.CurrentWeight != nil {
				m.CurrentWeight = decimal.NewNullDecimal(*req.CurrentWeight)
			}
			if req.HealthStatus != "" {
				m.HealthStatus = models.HealthStatus(req.HealthStatus)
			}
			if req.Status != "" {
				m.Status = models.AnimalStatus(req.Status)
			}
			return m, checkAnimal(tx, m)
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.Animal, req *UpdateAnimalRequest) error {
			if req.TagNumber != nil {
				m.TagNumber = strings.TrimSpace(*req.TagNumber)
			}
			if req.Name != nil {
				m.Name = *req.Name
			}
			if req.Species != nil {
				m.Species = strings.ToLower(strings.TrimSpace(*req.Species))
			}
			if req.Breed != nil {
				m.Breed = *req.Breed
			}
			if req.Gender != nil {
				m.Gender = *req.Gender
			}
			if req.BirthDate != nil {
				birth, err := validation.ParseOptionalDate("birthDate", req.BirthDate)
				if err != nil {
					return err
				}
				m.BirthDate = birth
			}
			if req.BatchID != nil {
				m.BatchID = nil
				if *req.BatchID != 0 {
					m.BatchID = req.BatchID
				}
			}
			if req.CurrentWeight != nil {
				m.CurrentWeight = decimal.NewNullDecimal(*req.CurrentWeight)
			}
			if req.HealthStatus != nil {
				m.HealthStatus = models.HealthStatus(*req.HealthStatus)
			}
			if req.Status != nil {
				m.Status = models.AnimalStatus(*req.Status)
			}
			if req.Notes != nil {
				m.Notes = *req.Notes
			}
			return checkAnimal(tx, m)
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.Animal) error {
			return tx.Model(&models.FinancialRecord{}).
				Where("animal_id = ?", m.ID).
				Update("animal_id", nil).Error
		},
	}
}

// checkAnimal enforces a unique tag per owner and a batch owned by the same user.
func checkAnimal(tx *gorm.DB, m *models.Animal) error {
	var n int64
	if err := tx.Model(&models.Animal{}).
		Where("owner_id = ? AND tag_number = ? AND id <> ?", m.OwnerID, m.TagNumber, m.ID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return response.FieldError("tagNumber", "is already used by another animal")
	}
	return crud.RequireOwnedOpt[models.AnimalBatch](tx, m.OwnerID, "batchId", m.BatchID)
}

func animalFilters(c *fiber.Ctx) (access.Filter, error) {
	var f access.Filter
	if v := c.Query("species"); v != "" {
		f = f.And(access.Eq("species", strings.ToLower(v)))
	}
	if v := c.Query("healthStatus"); v != "" {
		f = f.And(access.Eq("health_status", strings.ToUpper(v)))
	}
	if v := c.Query("status"); v != "" {
		f = f.And(access.Eq("status", strings.ToUpper(v)))
	}
	ids, err := financial.IDFilters(c, map[string]string{"batchId": "batch_id"})
	if err != nil {
		return nil, err
	}
	return f.And(ids), nil
}

// -------------------------
// Batches
// -------------------------

func Batches(env crud.Env) *crud.Resource[models.AnimalBatch, CreateBatchRequest, UpdateBatchRequest] {
	return &crud.Resource[models.AnimalBatch, CreateBatchRequest, UpdateBatchRequest]{
		Env:      env,
		Name:     "Batch",
		Entity:   "animal_batch",
		Path:     "/batches",
		Sortable: batchSortable,
		Filters: func(c *fiber.Ctx) (access.Filter, error) {
			var f access.Filter
			if v := c.Query("batchStatus"); v != "" {
				f = f.And(access.Eq("batch_status", strings.ToUpper(v)))
			}
			if v := c.Query("species"); v != "" {
				f = f.And(access.Eq("species", strings.ToLower(v)))
			}
			return f, nil
		},
		New: func(tx *gorm.DB, p *access.Principal, req *CreateBatchRequest) (*models.AnimalBatch, error) {
			owner, err := auth.OwnerFor(p, req.OwnerID)
			if err != nil {
				return nil, err
			}
			start, err := validation.ParseDate("startDate", req.StartDate)
			if err != nil {
				return nil, err
			}
			m := &models.AnimalBatch{
				OwnerID:         owner,
				BatchNumber:     strings.TrimSpace(req.BatchNumber),
				Species:         strings.ToLower(strings.TrimSpace(req.Species)),
				InitialQuantity: req.InitialQuantity,
				CurrentQuantity: req.InitialQuantity,
				StartDate:       start,
				TotalCost:       decimal.Zero,
				BatchStatus:     models.BatchActive,
				Notes:           req.Notes,
			}
			if req.CurrentQuantity != nil {
				m.CurrentQuantity = *req.CurrentQuantity
			}
			if req.TotalCost != nil {
				m.TotalCost = *req.TotalCost
			}
			if req.AverageWeight != nil {
				m.AverageWeight = decimal.NewNullDecimal(*req.AverageWeight)
			}
			if req.BatchStatus != "" {
				m.BatchStatus = models.BatchStatus(req.BatchStatus)
			}
			return m, checkBatch(m)
		},
		Apply: func(tx *gorm.DB, p *access.Principal, m *models.AnimalBatch, req *UpdateBatchRequest) error {
			if req.BatchNumber != nil {
				m.BatchNumber = strings.TrimSpace(*req.BatchNumber)
			}
			if req.Species != nil {
				m.Species = strings.ToLower(strings.TrimSpace(*req.Species))
			}
			if req.InitialQuantity != nil {
				m.InitialQuantity = *req.InitialQuantity
			}
			if req.CurrentQuantity != nil {
				m.CurrentQuantity = *req.CurrentQuantity
			}
			if req.StartDate != nil {
				start, err := validation.ParseDate("startDate", *req.StartDate)
				if err != nil {
					return err
				}
				m.StartDate = start
			}
			if req.TotalCost != nil {
				m.TotalCost = *req.TotalCost
			}
			if req.AverageWeight != nil {
				m.AverageWeight = decimal.NewNullDecimal(*req.AverageWeight)
			}
			if req.BatchStatus != nil {
				m.BatchStatus = models.BatchStatus(*req.BatchStatus)
			}
			if req.Notes != nil {
				m.Notes = *req.Notes
			}
			return checkBatch(m)
		},
		BeforeDelete: func(tx *gorm.DB, p *access.Principal, m *models.AnimalBatch) error {
			if err := tx.Model(&models.Animal{}).Where("batch_id = ?", m.ID).Update("batch_id", nil).Error; err != nil {
				return err
			}
			return tx.Model(&models.FinancialRecord{}).Where("batch_id = ?", m.ID).Update("batch_id", nil).Error
		},
	}
}

func checkBatch(m *models.AnimalBatch) error {
	if m.CurrentQuantity > m.InitialQuantity {
		return response.FieldError("currentQuantity", "must not exceed initialQuantity")
	}
	return nil
}

// -------------------------
// Metrics
// -------------------------

// GET /api/batches/:id/performance
func BatchPerformanceHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		batch, err := crud.Load[models.AnimalBatch](db, auth.PrincipalFrom(c), "Batch", id)
		if err != nil {
			return err
		}

		var animals []models.Animal
		if err := db.Where("batch_id = ? AND owner_id = ?", batch.ID, batch.OwnerID).Find(&animals).Error; err != nil {
			return response.Internal(err)
		}
		return response.OK(c, "Batch performance", Performance(*batch, animals))
	}
}

// GET /api/batches/:id/profit-loss
// Counts records tagged with the batch and records of animals in the batch.
func BatchProfitLossHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		batch, err := crud.Load[models.AnimalBatch](db, auth.PrincipalFrom(c), "Batch", id)
		if err != nil {
			return err
		}

		animalIDs := db.Model(&models.Animal{}).Select("id").Where("batch_id = ? AND owner_id = ?", batch.ID, batch.OwnerID)

		var records []models.FinancialRecord
		if err := db.Preload("Category").
			Where("owner_id = ?", batch.OwnerID).
			Where(db.Where("batch_id = ?", batch.ID).Or("animal_id IN (?)", animalIDs)).
			Find(&records).Error; err != nil {
			return response.Internal(err)
		}
		return response.OK(c, "Batch profit and loss", financial.NewProfitLossReport(records))
	}
}

// GET /api/animals/:id/profit-loss
func AnimalProfitLossHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		animal, err := crud.Load[models.Animal](db, auth.PrincipalFrom(c), "Animal", id)
		if err != nil {
			return err
		}

		var records []models.FinancialRecord
		if err := db.Preload("Category").
			Where("owner_id = ? AND animal_id = ?", animal.OwnerID, animal.ID).
			Find(&records).Error; err != nil {
			return response.Internal(err)
		}
		return response.OK(c, "Animal profit and loss", financial.NewProfitLossReport(records))
	}
}
