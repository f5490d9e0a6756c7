package purchasing

import (
	"fmt"
	"testing"

	"farm-backend/internal/access"
	"farm-backend/internal/invoice"
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
	h := NewHandler(apptest.Env(db), invoice.NewSequencer("INV-", "PO-"), testutil.Dec("0.1"))
	return apptest.New(t, func(r fiber.Router) { h.Register(r) }), db
}

func TestPurchaseOrder_ReceiveFlow(t *testing.T) {
	// GIVEN a user with a supplier, a stocked item and an expense category
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	supplier := testutil.Supplier(t, db, user.ID)
	feed := testutil.Create(t, db, &models.InventoryItem{
		OwnerID: user.ID, Name: "Layer feed", Unit: "kg",
		CurrentQuantity: testutil.Dec("5"), ReorderLevel: testutil.Dec("20"), UnitCost: testutil.Dec("1.2"),
	})
	cat := testutil.Category(t, db, user.ID, models.CategoryExpense)

	// WHEN an order for 100 kg of feed and a spare part is created
	body := fmt.Sprintf(`{"supplierId":%d,"orderDate":"2025-04-01","items":[
		{"inventoryItemId":%d,"description":"Layer feed","quantity":"100","unitPrice":"1.20"},
		{"description":"Drinker valve","quantity":"2","unitPrice":"7.50"}]}`, supplier.ID, feed.ID)
	res := app.Do("POST", "/api/purchase-orders", body, user)

	// THEN it is numbered, priced and in draft
	require.Equal(t, 201, res.Status, res.Body)
	po := res.Data()
	assert.Equal(t, "PO-000001", po["orderNumber"])
	assert.Equal(t, "DRAFT", po["status"])
	assert.Equal(t, "135", po["subtotal"])
	assert.Equal(t, "13.5", po["taxAmount"])
	assert.Equal(t, "148.5", po["totalAmount"])
	id := uint(po["id"].(float64))
	items := po["items"].([]any)
	feedLine := uint(items[0].(map[string]any)["id"].(float64))

	// AND drafts cannot be received
	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/receive", id), "", user)
	assert.Equal(t, 400, res.Status)

	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/send", id), "", user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "SENT", res.Data()["status"])

	// WHEN 60 kg arrive
	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/receive", id),
		fmt.Sprintf(`{"items":[{"itemId":%d,"quantity":"60"}],"categoryId":%d}`, feedLine, cat.ID), user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "PARTIAL", res.Data()["status"])

	var stocked models.InventoryItem
	require.NoError(t, db.First(&stocked, feed.ID).Error)
	assert.True(t, stocked.CurrentQuantity.Equal(testutil.Dec("65")), stocked.CurrentQuantity.String())

	var expense models.FinancialRecord
	require.NoError(t, db.Where("reference = ?", "PO-000001").First(&expense).Error)
	assert.Equal(t, models.TransactionExpense, expense.TransactionType)
	assert.True(t, expense.Amount.Equal(testutil.Dec("79.2")), expense.Amount.String())

	// AND receiving more than is outstanding is rejected
	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/receive", id),
		fmt.Sprintf(`{"items":[{"itemId":%d,"quantity":"41"}]}`, feedLine), user)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "items[0]")

	// WHEN the rest arrives without a line list
	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/receive", id), "", user)
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "RECEIVED", res.Data()["status"])
	assert.NotNil(t, res.Data()["receivedAt"])

	require.NoError(t, db.First(&stocked, feed.ID).Error)
	assert.True(t, stocked.CurrentQuantity.Equal(testutil.Dec("105")))

	var movements int64
	db.Model(&models.InventoryMovement{}).Where("purchase_order_id = ?", id).Count(&movements)
	assert.EqualValues(t, 2, movements)

	// AND a received order can no longer be cancelled
	res = app.Do("POST", fmt.Sprintf("/api/purchase-orders/%d/cancel", id), "", user)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "status")
}

func TestPurchaseOrder_OwnerIsolation(t *testing.T) {
	app, db := newApp(t)
	owner := testutil.User(t, db, access.RoleUser)
	other := testutil.User(t, db, access.RoleUser)
	admin := testutil.User(t, db, access.RoleAdmin)
	supplier := testutil.Supplier(t, db, owner.ID)

	body := fmt.Sprintf(`{"supplierId":%d,"orderDate":"2025-04-01","items":[{"description":"Twine","quantity":"1","unitPrice":"3"}]}`, supplier.ID)
	res := app.Do("POST", "/api/purchase-orders", body, owner)
	require.Equal(t, 201, res.Status, res.Body)
	path := fmt.Sprintf("/api/purchase-orders/%d", uint(res.Data()["id"].(float64)))

	assert.Equal(t, 404, app.Do("GET", path, "", other).Status)
	assert.Equal(t, 200, app.Do("GET", path, "", admin).Status)

	// other users cannot order from someone else's supplier
	res = app.Do("POST", "/api/purchase-orders", body, other)
	assert.Equal(t, 400, res.Status)
	assert.Contains(t, res.Details(), "supplierId")

	// deleting is reserved to managers and admins
	assert.Equal(t, 403, app.Do("DELETE", path, "", owner).Status)
	assert.Equal(t, 204, app.Do("DELETE", path, "", admin).Status)
}

func TestPurchaseOrder_Validation(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)

	res := app.Do("POST", "/api/purchase-orders", `{"orderDate":"2025-04-01","items":[{"description":"","quantity":"0","unitPrice":"1"}]}`, user)
	require.Equal(t, 400, res.Status)
	details := res.Details()
	assert.Contains(t, details, "supplierId")
	assert.Contains(t, details, "items[0].description")
	assert.Contains(t, details, "items[0].quantity")

	assert.Equal(t, 401, app.Do("GET", "/api/purchase-orders", "", nil).Status)
}
