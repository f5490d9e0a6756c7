package livestock

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
	return apptest.New(t, func(r fiber.Router) { Register(r, apptest.Env(db)) }), db
}

func TestBatch_CurrentQuantityNeverExceedsInitial(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)

	res := app.Do("POST", "/api/batches",
		`{"batchNumber":"B-7","species":"Chicken","initialQuantity":100,"currentQuantity":101,"startDate":"2025-02-01"}`, user)
	assert.Equal(t, 400, res.Status, res.Body)
	assert.Contains(t, res.Details(), "currentQuantity")

	res = app.Do("POST", "/api/batches",
		`{"batchNumber":"B-7","species":"Chicken","initialQuantity":100,"startDate":"2025-02-01"}`, user)
	require.Equal(t, 201, res.Status, res.Body)
	assert.EqualValues(t, 100, res.Data()["currentQuantity"])
	assert.Equal(t, "chicken", res.Data()["species"])
	path := fmt.Sprintf("/api/batches/%d", uint(res.Data()["id"].(float64)))

	// lowering the initial count below the current one is rejected as well
	res = app.Do("PUT", path, `{"initialQuantity":90}`, user)
	assert.Equal(t, 400, res.Status, res.Body)
	assert.Contains(t, res.Details(), "currentQuantity")

	res = app.Do("PUT", path, `{"currentQuantity":96}`, user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.EqualValues(t, 96, res.Data()["currentQuantity"])
}

func TestBatchPerformance(t *testing.T) {
	// GIVEN a batch of 10 with two weighed active animals and one death
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	other := testutil.User(t, db, access.RoleUser)
	batch := testutil.Create(t, db, &models.AnimalBatch{
		OwnerID: user.ID, BatchNumber: "B-1", Species: "goat", InitialQuantity: 10, CurrentQuantity: 9,
		StartDate: testutil.Date("2025-01-10"), TotalCost: testutil.Dec("1500"), BatchStatus: models.BatchActive,
	})
	for i, a := range []models.Animal{
		{HealthStatus: models.HealthHealthy, Status: models.AnimalActive, CurrentWeight: weight("40")},
		{HealthStatus: models.HealthSick, Status: models.AnimalActive, CurrentWeight: weight("35")},
		{HealthStatus: models.HealthHealthy, Status: models.AnimalDeceased},
	} {
		a.OwnerID, a.BatchID, a.Species = user.ID, &batch.ID, "goat"
		a.TagNumber = fmt.Sprintf("G-%d", i)
		testutil.Create(t, db, &a)
	}
	path := fmt.Sprintf("/api/batches/%d/performance", batch.ID)

	// WHEN the owner asks for its performance
	res := app.Do("GET", path, "", user)

	// THEN the metrics come from the batch's animals
	require.Equal(t, 200, res.Status, res.Body)
	perf := res.Data()
	assert.Equal(t, "37.5", perf["averageWeight"])
	assert.Equal(t, "90", perf["survivalRate"])
	assert.Equal(t, "150", perf["costPerHead"])
	assert.EqualValues(t, 1, perf["mortalityRate"])
	assert.EqualValues(t, 2, perf["activeAnimals"])
	assert.Equal(t, map[string]any{"HEALTHY": 1.0, "SICK": 1.0}, perf["healthStatusDistribution"])

	// AND to anyone else the batch does not exist
	res = app.Do("GET", path, "", other)
	assert.Equal(t, 404, res.Status)
	assert.Equal(t, "RESOURCE_NOT_FOUND", res.Error()["code"])

	assert.Equal(t, 401, app.Do("GET", path, "", nil).Status)
}
