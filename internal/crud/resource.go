// Package crud turns an owned model into list, detail, create, update and
// delete handlers that all pass through the same gate, scope and audit trail.
package crud

import (
	"errors"
	"fmt"
	"strconv"

	"farm-backend/internal/access"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/models"
	"farm-backend/internal/pagination"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env carries the dependencies every feature handler needs.
type Env struct {
	DB    *gorm.DB
	Audit *audit.Logger
	Log   *zap.Logger
}

func (e Env) Logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Resource describes one owned model. C is the create payload and U the partial update payload.
type Resource[M models.Owned, C any, U any] struct {
	Env

	// Name is used in messages ("Animal not found"), Entity in the audit trail.
	Name     string
	Entity   string
	Path     string
	Sortable pagination.Sortable
	Preload  []string

	// Filters turns query parameters into equality conditions.
	Filters func(c *fiber.Ctx) (access.Filter, error)
	// Query adds conditions that are not plain equalities (search, ranges).
	Query func(c *fiber.Ctx, q *gorm.DB) (*gorm.DB, error)

	New   func(tx *gorm.DB, p *access.Principal, req *C) (*M, error)
	Apply func(tx *gorm.DB, p *access.Principal, m *M, req *U) error

	// AfterSave runs in the write transaction after create or update.
	AfterSave func(tx *gorm.DB, p *access.Principal, m *M) error
	// BeforeDelete may veto a delete or clean up dependent rows.
	BeforeDelete func(tx *gorm.DB, p *access.Principal, m *M) error
	// Present converts a row for output. Rows are returned as is when nil.
	Present func(m M) any

	// WriteRoles and DeleteRoles restrict mutations. Empty means any authenticated user.
	WriteRoles  []access.Role
	DeleteRoles []access.Role
}

// Register mounts the five handlers under r.Path.
func (r *Resource[M, C, U]) Register(router fiber.Router) {
	g := router.Group(r.Path, auth.Authenticated())
	g.Get("/", r.ListHandler())
	g.Get("/:id", r.GetHandler())
	g.Post("/", r.CreateHandler())
	g.Put("/:id", r.UpdateHandler())
	g.Delete("/:id", r.DeleteHandler())
}

func (r *Resource[M, C, U]) present(m M) any {
	if r.Present == nil {
		return m
	}
	return r.Present(m)
}

func gate(p *access.Principal, roles []access.Role) error {
	if len(roles) == 0 {
		return access.RequireAuthenticated(p).Err()
	}
	return access.RequireRole(p, roles...).Err()
}

// GET /api/<resource>
func (r *Resource[M, C, U]) ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		params, err := pagination.Parse(c, r.Sortable)
		if err != nil {
			return err
		}

		var filter access.Filter
		if r.Filters != nil {
			if filter, err = r.Filters(c); err != nil {
				return err
			}
		}
		// ownerId narrows the list; for non-admins it can only intersect their own scope.
		if raw := c.Query("ownerId"); raw != "" {
			owner, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || owner == 0 {
				return response.FieldError("ownerId", "must be a positive integer")
			}
			filter = filter.And(access.Eq(access.OwnerColumn, uint(owner)))
		}

		q := access.ScopeFilter(p, filter).Apply(r.DB.Model(new(M)))
		if r.Query != nil {
			if q, err = r.Query(c, q); err != nil {
				return err
			}
		}
		for _, rel := range r.Preload {
			q = q.Preload(rel)
		}

		items, meta, err := pagination.Paginate[M](q, params, r.Sortable)
		if err != nil {
			return response.Internal(err)
		}
		if r.Present == nil {
			return response.List(c, r.Name+" list retrieved", items, meta)
		}
		return response.List(c, r.Name+" list retrieved", lo.Map(items, func(m M, _ int) any { return r.Present(m) }), meta)
	}
}

// GET /api/<resource>/:id
func (r *Resource[M, C, U]) GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := ParseID(c)
		if err != nil {
			return err
		}
		m, err := Load[M](r.DB, auth.PrincipalFrom(c), r.Name, id, r.Preload...)
		if err != nil {
			return err
		}
		return response.OK(c, r.Name+" retrieved", r.present(*m))
	}
}

// POST /api/<resource>
func (r *Resource[M, C, U]) CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		if err := gate(p, r.WriteRoles); err != nil {
			return err
		}

		var req C
		if err := validation.Bind(c, &req); err != nil {
			return err
		}

		var id uint
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			m, err := r.New(tx, p, &req)
			if err != nil {
				return err
			}
			if err := tx.Omit(r.Preload...).Create(m).Error; err != nil {
				return err
			}
			if r.AfterSave != nil {
				if err := r.AfterSave(tx, p, m); err != nil {
					return err
				}
			}
			id = (*m).Key()
			return r.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     (*m).OwnedBy(),
				EntityType:  r.Entity,
				EntityID:    id,
				Action:      models.AuditActionCreate,
				Description: r.Name + " created",
				After:       m,
			})
		})
		if err != nil {
			return wrap(err)
		}

		m, err := Load[M](r.DB, p, r.Name, id, r.Preload...)
		if err != nil {
			return err
		}
		return response.Created(c, r.Name+" created", r.present(*m))
	}
}

// PUT /api/<resource>/:id
func (r *Resource[M, C, U]) UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		if err := gate(p, r.WriteRoles); err != nil {
			return err
		}
		id, err := ParseID(c)
		if err != nil {
			return err
		}

		var req U
		if err := validation.Bind(c, &req); err != nil {
			return err
		}

		err = r.DB.Transaction(func(tx *gorm.DB) error {
			m, err := Load[M](tx, p, r.Name, id)
			if err != nil {
				return err
			}
			before := *m

			if err := r.Apply(tx, p, m, &req); err != nil {
				return err
			}
			if err := tx.Omit(r.Preload...).Save(m).Error; err != nil {
				return err
			}
			if r.AfterSave != nil {
				if err := r.AfterSave(tx, p, m); err != nil {
					return err
				}
			}
			return r.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     (*m).OwnedBy(),
				EntityType:  r.Entity,
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: r.Name + " updated",
				Before:      before,
				After:       m,
			})
		})
		if err != nil {
			return wrap(err)
		}

		m, err := Load[M](r.DB, p, r.Name, id, r.Preload...)
		if err != nil {
			return err
		}
		return response.OK(c, r.Name+" updated", r.present(*m))
	}
}

// DELETE /api/<resource>/:id
func (r *Resource[M, C, U]) DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		if err := gate(p, r.DeleteRoles); err != nil {
			return err
		}
		id, err := ParseID(c)
		if err != nil {
			return err
		}

		err = r.DB.Transaction(func(tx *gorm.DB) error {
			m, err := Load[M](tx, p, r.Name, id)
			if err != nil {
				return err
			}
			if r.BeforeDelete != nil {
				if err := r.BeforeDelete(tx, p, m); err != nil {
					return err
				}
			}
			if err := tx.Delete(m).Error; err != nil {
				return err
			}
			return r.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     (*m).OwnedBy(),
				EntityType:  r.Entity,
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: r.Name + " deleted",
				Before:      m,
			})
		})
		if err != nil {
			return wrap(err)
		}
		return response.NoContent(c)
	}
}

// ParseID reads the :id route parameter.
func ParseID(c *fiber.Ctx) (uint, error) {
	return ParseParam(c, "id")
}

func ParseParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, response.FieldError(name, "must be a positive integer")
	}
	return uint(id), nil
}

// Load fetches one row inside the principal's scope.
// A row owned by someone else is reported exactly like a missing row.
func Load[M any](db *gorm.DB, p *access.Principal, resource string, id uint, preload ...string) (*M, error) {
	q := access.ScopeFilter(p, access.Eq("id", id)).Apply(db.Model(new(M)))
	for _, rel := range preload {
		q = q.Preload(rel)
	}

	var m M
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(resource)
		}
		return nil, response.Internal(fmt.Errorf("load %s %d: %w", resource, id, err))
	}
	return &m, nil
}

// RequireOwned checks that a referenced row exists and belongs to ownerID.
// Admins creating on behalf of a user can only link that user's rows.
func RequireOwned[M any](tx *gorm.DB, ownerID uint, field string, id uint) error {
	var count int64
	if err := tx.Model(new(M)).Where("id = ? AND owner_id = ?", id, ownerID).Count(&count).Error; err != nil {
		return response.Internal(err)
	}
	if count == 0 {
		return response.FieldError(field, "does not reference an existing record")
	}
	return nil
}

// RequireOwnedOpt is RequireOwned for optional references.
func RequireOwnedOpt[M any](tx *gorm.DB, ownerID uint, field string, id *uint) error {
	if id == nil {
		return nil
	}
	return RequireOwned[M](tx, ownerID, field, *id)
}

// wrap leaves public errors alone and hides everything else behind a 500.
func wrap(err error) error {
	var re *response.Error
	if errors.As(err, &re) {
		return re
	}
	return response.Internal(err)
}

// Wrap is exported for handlers that run their own transactions.
func Wrap(err error) error { return wrap(err) }
