package admin

import (
	"fmt"
	"testing"

	"farm-backend/internal/access"
	"farm-backend/internal/models"
	"farm-backend/internal/testutil"
	"farm-backend/internal/testutil/apptest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newApp(t *testing.T) (*apptest.App, *gorm.DB) {
	db := testutil.DB(t)
	env := apptest.Env(db)
	return apptest.New(t, func(r fiber.Router) { Register(r, env) }), db
}

func TestUsers_AdminOnlyCollection(t *testing.T) {
	app, db := newApp(t)
	admin := testutil.User(t, db, access.RoleAdmin)
	manager := testutil.User(t, db, access.RoleManager)

	assert.Equal(t, 403, app.Do("GET", "/api/users", "", manager).Status)
	assert.Equal(t, 401, app.Do("GET", "/api/users", "", nil).Status)

	res := app.Do("POST", "/api/users", `{"name":"Field hand","email":"Hand@Farm.test","password":"longenough","role":"MANAGER"}`, admin)
	require.Equal(t, 201, res.Status, res.Body)
	assert.Equal(t, "hand@farm.test", res.Data()["email"])
	assert.Equal(t, "MANAGER", res.Data()["role"])
	assert.NotContains(t, res.Data(), "passwordHash")

	res = app.Do("POST", "/api/users", `{"name":"Dup","email":"hand@farm.test","password":"longenough"}`, admin)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "email")

	res = app.Do("GET", "/api/users?role=manager&sortBy=email&sortOrder=asc", "", admin)
	require.Equal(t, 200, res.Status)
	assert.Len(t, res.List(), 2)
	assert.EqualValues(t, 2, res.Pagination()["total"])
}

func TestUsers_SelfOrAdmin(t *testing.T) {
	app, db := newApp(t)
	admin := testutil.User(t, db, access.RoleAdmin)
	user := testutil.User(t, db, access.RoleUser)
	other := testutil.User(t, db, access.RoleUser)
	self := fmt.Sprintf("/api/users/%d", user.ID)

	assert.Equal(t, 200, app.Do("GET", self, "", user).Status)
	assert.Equal(t, 200, app.Do("GET", self, "", admin).Status)
	assert.Equal(t, 403, app.Do("GET", self, "", other).Status)
	assert.Equal(t, 404, app.Do("GET", "/api/users/999", "", admin).Status)

	res := app.Do("PUT", self, `{"name":"Renamed"}`, user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "Renamed", res.Data()["name"])

	// promoting yourself is an admin decision
	assert.Equal(t, 403, app.Do("PUT", self, `{"role":"ADMIN"}`, user).Status)

	res = app.Do("PUT", self, `{"role":"MANAGER"}`, admin)
	require.Equal(t, 200, res.Status)
	assert.Equal(t, "MANAGER", res.Data()["role"])

	res = app.Do("PUT", self, fmt.Sprintf(`{"email":%q}`, other.Email), user)
	assert.Equal(t, 400, res.Status)
}

func TestUsers_Delete(t *testing.T) {
	app, db := newApp(t)
	admin := testutil.User(t, db, access.RoleAdmin)
	idle := testutil.User(t, db, access.RoleUser)
	farmer := testutil.User(t, db, access.RoleUser)
	testutil.Customer(t, db, farmer.ID)

	assert.Equal(t, 400, app.Do("DELETE", fmt.Sprintf("/api/users/%d", admin.ID), "", admin).Status)
	assert.Equal(t, 400, app.Do("DELETE", fmt.Sprintf("/api/users/%d", farmer.ID), "", admin).Status)
	assert.Equal(t, 403, app.Do("DELETE", fmt.Sprintf("/api/users/%d", idle.ID), "", farmer).Status)
	assert.Equal(t, 204, app.Do("DELETE", fmt.Sprintf("/api/users/%d", idle.ID), "", admin).Status)

	var n int64
	db.Model(&models.User{}).Where("id = ?", idle.ID).Count(&n)
	assert.Zero(t, n)
}

func TestUsers_LastAdminKeepsRole(t *testing.T) {
	app, db := newApp(t)
	admin := testutil.User(t, db, access.RoleAdmin)

	res := app.Do("PUT", fmt.Sprintf("/api/users/%d", admin.ID), `{"role":"USER"}`, admin)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "role")
}
