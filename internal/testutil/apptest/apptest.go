// Package apptest mounts handlers on a fiber app with the production error
// handler and token middleware, and sends authenticated requests to it.
package apptest

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/crud"
	"farm-backend/internal/models"
	"farm-backend/internal/response"
	"farm-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type App struct {
	*fiber.App
	t *testing.T
}

// Env is the handler environment tests pass to Register functions.
func Env(db *gorm.DB) crud.Env {
	return crud.Env{DB: db, Audit: audit.NewLogger(nil)}
}

// New builds an app whose /api group is populated by register.
func New(t *testing.T, register func(r fiber.Router)) *App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(nil)})
	app.Use(auth.Resolve(testutil.JWTSecret))
	register(app.Group("/api"))
	return &App{App: app, t: t}
}

// Wrap adapts an already assembled app.
func Wrap(t *testing.T, app *fiber.App) *App {
	return &App{App: app, t: t}
}

// Result is a decoded response envelope.
type Result struct {
	Status int
	Body   map[string]any
}

func (r Result) Data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (r Result) List() []any {
	d, _ := r.Body["data"].([]any)
	return d
}

func (r Result) Pagination() map[string]any {
	p, _ := r.Body["pagination"].(map[string]any)
	return p
}

func (r Result) Error() map[string]any {
	e, _ := r.Body["error"].(map[string]any)
	return e
}

// Details returns the error details as field -> message.
func (r Result) Details() map[string]string {
	out := map[string]string{}
	raw, _ := r.Error()["details"].([]any)
	for _, d := range raw {
		m := d.(map[string]any)
		field, _ := m["field"].(string)
		out[field], _ = m["message"].(string)
	}
	return out
}

// Do sends body as JSON. A nil user sends no token.
func (a *App) Do(method, path, body string, user *models.User) Result {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := auth.GenerateToken(testutil.JWTSecret, time.Hour, user)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	res := Result{Status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &res.Body), string(raw))
	}
	return res
}
