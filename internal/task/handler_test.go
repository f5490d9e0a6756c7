package task

import (
	"fmt"
	"testing"
	"time"

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
	h := NewHandler(apptest.Env(db))
	h.now = func() time.Time { return time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC) }
	return apptest.New(t, func(r fiber.Router) { h.Register(r) }), db
}

func TestTask_CreateFilterComplete(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)

	res := app.Do("POST", "/api/tasks", `{"title":"Vaccinate calves","priority":"HIGH","dueDate":"2025-06-01"}`, user)
	require.Equal(t, 201, res.Status, res.Body)
	assert.Equal(t, "PENDING", res.Data()["status"])
	id := uint(res.Data()["id"].(float64))

	res = app.Do("POST", "/api/tasks", `{"title":"Fix fence"}`, user)
	require.Equal(t, 201, res.Status)
	assert.Equal(t, "MEDIUM", res.Data()["priority"])

	res = app.Do("GET", "/api/tasks?priority=high", "", user)
	require.Equal(t, 200, res.Status)
	assert.Len(t, res.List(), 1)

	res = app.Do("GET", "/api/tasks?overdue=true", "", user)
	require.Equal(t, 200, res.Status)
	assert.Len(t, res.List(), 1)

	res = app.Do("POST", fmt.Sprintf("/api/tasks/%d/complete", id), "", user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "COMPLETED", res.Data()["status"])
	assert.NotNil(t, res.Data()["completedAt"])

	assert.Equal(t, 400, app.Do("POST", fmt.Sprintf("/api/tasks/%d/complete", id), "", user).Status)
	assert.Equal(t, 400, app.Do("PUT", fmt.Sprintf("/api/tasks/%d", id), `{"title":"again"}`, user).Status)

	res = app.Do("GET", "/api/tasks?status=PENDING", "", user)
	assert.Len(t, res.List(), 1)
}

func TestTask_OwnershipAndValidation(t *testing.T) {
	app, db := newApp(t)
	owner := testutil.User(t, db, access.RoleUser)
	other := testutil.User(t, db, access.RoleUser)
	animal := testutil.Create(t, db, &models.Animal{OwnerID: owner.ID, TagNumber: "A-1", Species: "cattle",
		HealthStatus: models.HealthHealthy, Status: models.AnimalActive})
	task := testutil.Create(t, db, &models.Task{OwnerID: owner.ID, Title: "Weigh", Priority: models.PriorityLow, Status: models.TaskPending})

	path := fmt.Sprintf("/api/tasks/%d", task.ID)
	assert.Equal(t, 404, app.Do("GET", path, "", other).Status)
	assert.Equal(t, 404, app.Do("POST", path+"/complete", "", other).Status)

	res := app.Do("POST", "/api/tasks", fmt.Sprintf(`{"title":"Check","animalId":%d}`, animal.ID), other)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "animalId")

	res = app.Do("POST", "/api/tasks", `{"title":"","priority":"SOON"}`, owner)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "title")
	assert.Contains(t, res.Details(), "priority")

	assert.Equal(t, 400, app.Do("GET", "/api/tasks?status=DONE", "", owner).Status)
}
