package auth

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/response"
	"farm-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthApp(t *testing.T) (*fiber.App, *gorm.DB) {
	db := testutil.DB(t)
	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(nil)})
	app.Use(Resolve(testutil.JWTSecret))
	NewHandler(db, testutil.JWTSecret, time.Hour, nil).Register(app.Group("/api"))
	return app, db
}

func do(t *testing.T, app *fiber.App, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestRegisterAdmin_OnlyOnce(t *testing.T) {
	app, _ := newAuthApp(t)
	body := `{"name":"Ada","email":"ADA@farm.test","password":"supersecret"}`

	status, out := do(t, app, "POST", "/api/auth/register-admin", body, "")
	require.Equal(t, 201, status)
	user := out["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "ada@farm.test", user["email"])
	assert.Equal(t, "ADMIN", user["role"])
	assert.NotContains(t, user, "PasswordHash")

	status, _ = do(t, app, "POST", "/api/auth/register-admin",
		`{"name":"Eve","email":"eve@farm.test","password":"supersecret"}`, "")
	assert.Equal(t, 403, status)
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := newAuthApp(t)

	status, _ := do(t, app, "POST", "/api/auth/register", `{"name":"Bo","email":"bo@farm.test","password":"password1"}`, "")
	require.Equal(t, 201, status)

	status, out := do(t, app, "POST", "/api/auth/register", `{"name":"Bo","email":"bo@farm.test","password":"password1"}`, "")
	assert.Equal(t, 400, status)
	assert.Equal(t, "email", out["error"].(map[string]any)["details"].([]any)[0].(map[string]any)["field"])

	status, _ = do(t, app, "POST", "/api/auth/login", `{"email":"bo@farm.test","password":"wrong-one"}`, "")
	assert.Equal(t, 401, status)

	status, out = do(t, app, "POST", "/api/auth/login", `{"email":"bo@farm.test","password":"password1"}`, "")
	require.Equal(t, 200, status)
	token := out["data"].(map[string]any)["token"].(string)

	status, out = do(t, app, "GET", "/api/auth/me", "", token)
	require.Equal(t, 200, status)
	assert.Equal(t, "USER", out["data"].(map[string]any)["role"])
}

func TestRegister_ValidationDetails(t *testing.T) {
	app, _ := newAuthApp(t)

	status, out := do(t, app, "POST", "/api/auth/register", `{"email":"nope","password":"short"}`, "")
	require.Equal(t, 400, status)
	details := out["error"].(map[string]any)["details"].([]any)
	require.Len(t, details, 3)
	assert.Equal(t, "name", details[0].(map[string]any)["field"])
	assert.Equal(t, "email", details[1].(map[string]any)["field"])
	assert.Equal(t, "password", details[2].(map[string]any)["field"])

	status, _ = do(t, app, "POST", "/api/auth/register", `{not json`, "")
	assert.Equal(t, 400, status)
}

func TestMe_RequiresToken(t *testing.T) {
	app, _ := newAuthApp(t)

	status, out := do(t, app, "GET", "/api/auth/me", "", "")
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", out["error"].(map[string]any)["code"])

	status, _ = do(t, app, "GET", "/api/auth/me", "", "tampered")
	assert.Equal(t, 401, status)
}

func TestOwnerFor(t *testing.T) {
	other := uint(9)
	user := &access.Principal{ID: 7, Role: access.RoleUser}
	admin := &access.Principal{ID: 1, Role: access.RoleAdmin}

	id, err := OwnerFor(user, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = OwnerFor(user, &other)
	assert.Error(t, err)

	id, err = OwnerFor(admin, &other)
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)
}
