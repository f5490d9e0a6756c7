package admin

import (
	"errors"
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
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER USER"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER USER"`
}

var sortable = pagination.Base.With(pagination.Sortable{
	"name":  "name",
	"email": "email",
	"role":  "role",
})

func Register(r fiber.Router, env crud.Env) {
	admin := auth.RequireRole(access.RoleAdmin)

	g := r.Group("/users", auth.Authenticated())
	g.Get("/", admin, ListUsersHandler(env.DB))
	g.Post("/", admin, CreateUserHandler(env))
	g.Get("/:id", GetUserHandler(env.DB))
	g.Put("/:id", UpdateUserHandler(env))
	g.Delete("/:id", admin, DeleteUserHandler(env))
}

// GET /api/users?role=&search=
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, err := pagination.Parse(c, sortable)
		if err != nil {
			return err
		}

		q := db.Model(&models.User{})
		if raw := c.Query("role"); raw != "" {
			role, err := access.ParseRole(raw)
			if err != nil {
				return response.FieldError("role", "must be one of ADMIN, MANAGER, USER")
			}
			q = q.Where("role = ?", role)
		}
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("LOWER(name) LIKE ? OR email LIKE ?", like, like)
		}

		users, meta, err := pagination.Paginate[models.User](q, params, sortable)
		if err != nil {
			return response.Internal(err)
		}
		return response.List(c, "User list retrieved", users, meta)
	}
}

// POST /api/users
func CreateUserHandler(env crud.Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		var body CreateUserRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		email := auth.NormalizeEmail(body.Email)
		if err := auth.EmailTaken(env.DB, email, 0); err != nil {
			return err
		}
		role := access.RoleUser
		if body.Role != "" {
			role = access.Role(body.Role)
		}
		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return response.Internal(err)
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		}
		err = env.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     user.ID,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionCreate,
				Description: "User " + user.Email + " created with role " + string(role),
				After:       user,
			})
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.FieldError("email", "is already registered")
			}
			return crud.Wrap(err)
		}

		env.Logger().Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
		return response.Created(c, "User created", user)
	}
}

func loadUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound("User")
		}
		return nil, response.Internal(err)
	}
	return &user, nil
}

// GET /api/users/:id
// Users may read themselves; admins anyone.
func GetUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		if err := access.RequireSelfOrRole(auth.PrincipalFrom(c), id, access.RoleAdmin).Err(); err != nil {
			return err
		}
		user, err := loadUser(db, id)
		if err != nil {
			return err
		}
		return response.OK(c, "User retrieved", user)
	}
}

// PUT /api/users/:id
// Only admins change roles.
func UpdateUserHandler(env crud.Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		if err := access.RequireSelfOrRole(p, id, access.RoleAdmin).Err(); err != nil {
			return err
		}

		var body UpdateUserRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		if body.Role != nil {
			if err := access.RequireRole(p, access.RoleAdmin).Err(); err != nil {
				return err
			}
		}

		var user *models.User
		err = env.DB.Transaction(func(tx *gorm.DB) error {
			user, err = loadUser(tx, id)
			if err != nil {
				return err
			}
			before := *user

			if body.Name != nil {
				user.Name = strings.TrimSpace(*body.Name)
			}
			if body.Email != nil {
				email := auth.NormalizeEmail(*body.Email)
				if err := auth.EmailTaken(tx, email, user.ID); err != nil {
					return err
				}
				user.Email = email
			}
			if body.Password != nil {
				hash, err := auth.HashPassword(*body.Password)
				if err != nil {
					return err
				}
				user.PasswordHash = hash
			}
			if body.Role != nil {
				role := access.Role(*body.Role)
				if before.Role == access.RoleAdmin && role != access.RoleAdmin {
					if err := keepOneAdmin(tx); err != nil {
						return err
					}
				}
				user.Role = role
			}

			if err := tx.Save(user).Error; err != nil {
				return err
			}
			return env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     user.ID,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionUpdate,
				Description: "User " + user.Email + " updated",
				Before:      before,
				After:       user,
			})
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.FieldError("email", "is already registered")
			}
			return crud.Wrap(err)
		}
		return response.OK(c, "User updated", user)
	}
}

// DELETE /api/users/:id
// Users that still own farm records cannot be removed.
func DeleteUserHandler(env crud.Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)
		id, err := crud.ParseID(c)
		if err != nil {
			return err
		}
		if id == p.ID {
			return response.BadRequest("You cannot delete your own account")
		}

		err = env.DB.Transaction(func(tx *gorm.DB) error {
			user, err := loadUser(tx, id)
			if err != nil {
				return err
			}
			if user.Role == access.RoleAdmin {
				if err := keepOneAdmin(tx); err != nil {
					return err
				}
			}
			if err := ensureNoRecords(tx, id); err != nil {
				return err
			}
			if err := tx.Where("owner_id = ?", id).Delete(&models.Sequence{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(user).Error; err != nil {
				return err
			}
			return env.Audit.Write(tx, p, audit.LogOptions{
				OwnerID:     id,
				EntityType:  "user",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: "User " + user.Email + " deleted",
				Before:      user,
			})
		})
		if err != nil {
			return crud.Wrap(err)
		}
		return response.NoContent(c)
	}
}

// keepOneAdmin fails when the last administrator would disappear.
func keepOneAdmin(tx *gorm.DB) error {
	var admins int64
	if err := tx.Model(&models.User{}).Where("role = ?", access.RoleAdmin).Count(&admins).Error; err != nil {
		return err
	}
	if admins <= 1 {
		return response.FieldError("role", "at least one administrator must remain")
	}
	return nil
}

func ensureNoRecords(tx *gorm.DB, ownerID uint) error {
	owned := lo.Filter(models.All(), func(m any, _ int) bool {
		_, ok := m.(models.Owned)
		return ok
	})
	for _, m := range owned {
		var n int64
		if err := tx.Model(m).Where("owner_id = ?", ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return response.BadRequest("User still owns farm records")
		}
	}
	return nil
}
