package trade

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

func names(res apptest.Result) []string {
	out := []string{}
	for _, v := range res.List() {
		out = append(out, v.(map[string]any)["name"].(string))
	}
	return out
}

func TestCustomer_DeactivateAndFilter(t *testing.T) {
	// GIVEN two customers
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	for _, name := range []string{"Green Grocer", "Hill Bakery"} {
		res := app.Do("POST", "/api/customers", fmt.Sprintf(`{"name":%q,"email":"Shop@Farm.Test"}`, name), user)
		require.Equal(t, 201, res.Status, res.Body)
		assert.Equal(t, true, res.Data()["isActive"])
		assert.Equal(t, "shop@farm.test", res.Data()["email"])
	}
	var bakery models.Customer
	require.NoError(t, db.Where("name = ?", "Hill Bakery").First(&bakery).Error)

	// WHEN one is deactivated
	res := app.Do("PUT", fmt.Sprintf("/api/customers/%d", bakery.ID), `{"isActive":false}`, user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, false, res.Data()["isActive"])

	// THEN it is kept but filtered by isActive
	res = app.Do("GET", "/api/customers?isActive=true", "", user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, []string{"Green Grocer"}, names(res))

	res = app.Do("GET", "/api/customers?isActive=false", "", user)
	assert.Equal(t, []string{"Hill Bakery"}, names(res))

	res = app.Do("GET", "/api/customers?search=bakery", "", user)
	assert.Equal(t, []string{"Hill Bakery"}, names(res))

	res = app.Do("GET", "/api/customers?isActive=sometimes", "", user)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "isActive")
}

func TestCustomer_DeleteBlockedByInvoices(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	billed := testutil.Customer(t, db, user.ID)
	unbilled := testutil.Customer(t, db, user.ID)
	testutil.Create(t, db, &models.Invoice{
		OwnerID: user.ID, InvoiceNumber: "INV-000001", CustomerID: billed.ID,
		InvoiceDate: testutil.Date("2025-03-01"), DueDate: testutil.Date("2025-03-31"), Status: models.InvoiceDraft,
	})

	res := app.Do("DELETE", fmt.Sprintf("/api/customers/%d", billed.ID), "", user)
	assert.Equal(t, 400, res.Status, res.Body)
	assert.Contains(t, res.Error()["message"], "deactivate")

	var n int64
	require.NoError(t, db.Model(&models.Customer{}).Where("id = ?", billed.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, 204, app.Do("DELETE", fmt.Sprintf("/api/customers/%d", unbilled.ID), "", user).Status)
}

func TestSupplier_DeleteBlockedByPurchaseOrders(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	supplier := testutil.Supplier(t, db, user.ID)
	testutil.Create(t, db, &models.PurchaseOrder{
		OwnerID: user.ID, OrderNumber: "PO-000001", SupplierID: supplier.ID,
		OrderDate: testutil.Date("2025-03-01"), Status: models.PurchaseDraft,
	})

	res := app.Do("DELETE", fmt.Sprintf("/api/suppliers/%d", supplier.ID), "", user)

	assert.Equal(t, 400, res.Status, res.Body)
}
