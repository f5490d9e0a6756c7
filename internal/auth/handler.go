package auth

import (
	"errors"
	"strings"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/models"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Handler struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
	log    *zap.Logger
}

func NewHandler(db *gorm.DB, secret string, ttl time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, secret: secret, ttl: ttl, log: logger}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/auth/register-admin", h.RegisterAdminHandler())
	r.Post("/auth/register", h.RegisterHandler())
	r.Post("/auth/login", h.LoginHandler())
	r.Get("/auth/me", Authenticated(), h.MeHandler())
}

// HashPassword is shared with user administration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeEmail lowercases and trims an address before it is stored or compared.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// EmailTaken reports a 400 when another user already uses email.
func EmailTaken(db *gorm.DB, email string, exceptID uint) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error; err != nil {
		return response.Internal(err)
	}
	if count > 0 {
		return response.FieldError("email", "is already registered")
	}
	return nil
}

func (h *Handler) createUser(body RegisterRequest, role access.Role) (*models.User, error) {
	email := NormalizeEmail(body.Email)
	if err := EmailTaken(h.db, email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return nil, response.Internal(err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(body.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.FieldError("email", "is already registered")
		}
		return nil, response.Internal(err)
	}
	return user, nil
}

func (h *Handler) issue(c *fiber.Ctx, status int, message string, user *models.User) error {
	token, err := GenerateToken(h.secret, h.ttl, user)
	if err != nil {
		return response.Internal(err)
	}
	return response.Success(c, status, message, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.ttl).UTC(),
		User:      user,
	})
}

// POST /api/auth/register-admin
// Only allowed while no administrator exists.
func (h *Handler) RegisterAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		var count int64
		if err := h.db.Model(&models.User{}).Where("role = ?", access.RoleAdmin).Count(&count).Error; err != nil {
			return response.Internal(err)
		}
		if count > 0 {
			return response.Forbidden("An administrator already exists")
		}

		user, err := h.createUser(body, access.RoleAdmin)
		if err != nil {
			return err
		}
		h.log.Info("administrator registered", zap.Uint("user_id", user.ID))
		return h.issue(c, fiber.StatusCreated, "Administrator registered", user)
	}
}

// POST /api/auth/register
func (h *Handler) RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}
		user, err := h.createUser(body, access.RoleUser)
		if err != nil {
			return err
		}
		return h.issue(c, fiber.StatusCreated, "User registered", user)
	}
}

// POST /api/auth/login
func (h *Handler) LoginHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := h.db.Where("email = ?", NormalizeEmail(body.Email)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.Unauthorized("Invalid email or password")
			}
			return response.Internal(err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return response.Unauthorized("Invalid email or password")
		}

		return h.issue(c, fiber.StatusOK, "Login successful", &user)
	}
}

// GET /api/auth/me
func (h *Handler) MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)

		var user models.User
		if err := h.db.First(&user, p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.Unauthorized("User no longer exists")
			}
			return response.Internal(err)
		}
		return response.OK(c, "Current user", user)
	}
}
