package invoice

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
	h := NewHandler(apptest.Env(db), NewSequencer("INV-", "PO-"), testutil.Dec("0.1"))
	return apptest.New(t, func(r fiber.Router) { h.Register(r) }), db
}

func TestCreateInvoice_RejectsMoreDecimalsThanStored(t *testing.T) {
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	customer := testutil.Customer(t, db, user.ID)

	body := fmt.Sprintf(`{"customerId":%d,"invoiceDate":"2025-05-01","dueDate":"2025-05-31","taxRate":"0.07125",
		"lineItems":[{"description":"Eggs","quantity":"3.0005","unitPrice":"0.333"}]}`, customer.ID)
	res := app.Do("POST", "/api/invoices", body, user)

	require.Equal(t, 400, res.Status, res.Body)
	details := res.Details()
	assert.Contains(t, details, "taxRate")
	assert.Contains(t, details, "lineItems[0].quantity")
	assert.Equal(t, "must have at most 2 decimal places", details["lineItems[0].unitPrice"])

	var n int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateInvoice_NotesKeepExactTotals(t *testing.T) {
	// GIVEN a draft whose tax has more than two decimals
	app, db := newApp(t)
	user := testutil.User(t, db, access.RoleUser)
	customer := testutil.Customer(t, db, user.ID)

	body := fmt.Sprintf(`{"customerId":%d,"invoiceDate":"2025-05-01","dueDate":"2025-05-31","taxRate":"0.0725",
		"lineItems":[{"description":"Eggs","quantity":"3","unitPrice":"0.33"}]}`, customer.ID)
	res := app.Do("POST", "/api/invoices", body, user)
	require.Equal(t, 201, res.Status, res.Body)
	id := uint(res.Data()["id"].(float64))
	assert.Equal(t, "0.99", res.Data()["subtotal"])
	assert.Equal(t, "1.06", res.Data()["totalAmount"])

	// WHEN only the notes change
	res = app.Do("PUT", fmt.Sprintf("/api/invoices/%d", id), `{"notes":"leave at the gate"}`, user)

	// THEN the stored totals are untouched
	require.Equal(t, 200, res.Status, res.Body)
	assert.Equal(t, "1.06", res.Data()["totalAmount"])

	var inv models.Invoice
	require.NoError(t, db.Preload("LineItems").First(&inv, id).Error)
	assert.True(t, inv.Subtotal.Equal(testutil.Dec("0.99")), inv.Subtotal.String())
	assert.True(t, inv.TaxAmount.Equal(testutil.Dec("0.071775")), inv.TaxAmount.String())
	assert.True(t, inv.TotalAmount.Equal(inv.Subtotal.Add(inv.TaxAmount)))
	require.Len(t, inv.LineItems, 1)
	li := inv.LineItems[0]
	assert.True(t, li.TotalPrice.Equal(li.Quantity.Mul(li.UnitPrice)), li.TotalPrice.String())
}
