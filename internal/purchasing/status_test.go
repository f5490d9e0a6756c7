package purchasing

import (
	"errors"
	"testing"

	"farm-backend/internal/models"
	"farm-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]models.PurchaseOrderStatus]bool{
		{models.PurchaseDraft, models.PurchaseSent}:       true,
		{models.PurchaseDraft, models.PurchaseCancelled}:  true,
		{models.PurchaseSent, models.PurchasePartial}:     true,
		{models.PurchaseSent, models.PurchaseReceived}:    true,
		{models.PurchaseSent, models.PurchaseCancelled}:   true,
		{models.PurchasePartial, models.PurchasePartial}:  true,
		{models.PurchasePartial, models.PurchaseReceived}: true,
	}
	for _, from := range Statuses {
		for _, to := range Statuses {
			assert.Equal(t, allowed[[2]models.PurchaseOrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func lines() []models.PurchaseOrderItem {
	return []models.PurchaseOrderItem{
		{ID: 1, Quantity: testutil.Dec("10"), ReceivedQuantity: testutil.Dec("0")},
		{ID: 2, Quantity: testutil.Dec("4"), ReceivedQuantity: testutil.Dec("1")},
	}
}

func TestApplyReceipts_Partial(t *testing.T) {
	items := lines()
	out, status, err := ApplyReceipts(items, []Receipt{{ItemID: 1, Quantity: testutil.Dec("7.5")}})
	require.NoError(t, err)

	assert.Equal(t, models.PurchasePartial, status)
	assert.True(t, out[0].ReceivedQuantity.Equal(testutil.Dec("7.5")))
	assert.True(t, out[1].ReceivedQuantity.Equal(testutil.Dec("1")))
	assert.True(t, items[0].ReceivedQuantity.IsZero(), "input must not be modified")
}

func TestApplyReceipts_CompletesOrder(t *testing.T) {
	out, status, err := ApplyReceipts(lines(), []Receipt{
		{ItemID: 1, Quantity: testutil.Dec("10")},
		{ItemID: 2, Quantity: testutil.Dec("3")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseReceived, status)
	assert.True(t, out[1].Outstanding().IsZero())
}

func TestApplyReceipts_EmptyReceivesEverything(t *testing.T) {
	out, status, err := ApplyReceipts(lines(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseReceived, status)
	for _, it := range out {
		assert.True(t, it.ReceivedQuantity.Equal(it.Quantity))
	}
}

func TestApplyReceipts_Rejects(t *testing.T) {
	cases := map[string]Receipt{
		"unknown line": {ItemID: 9, Quantity: testutil.Dec("1")},
		"over receipt": {ItemID: 2, Quantity: testutil.Dec("3.001")},
		"zero":         {ItemID: 1, Quantity: testutil.Dec("0")},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ApplyReceipts(lines(), []Receipt{{ItemID: 1, Quantity: testutil.Dec("1")}, r})
			var le *LineError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, 1, le.Index)
		})
	}
}
