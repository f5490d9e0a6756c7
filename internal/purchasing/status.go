package purchasing

import (
	"fmt"

	"farm-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var Statuses = []models.PurchaseOrderStatus{
	models.PurchaseDraft, models.PurchaseSent, models.PurchasePartial, models.PurchaseReceived, models.PurchaseCancelled,
}

var transitions = map[models.PurchaseOrderStatus][]models.PurchaseOrderStatus{
	models.PurchaseDraft:   {models.PurchaseSent, models.PurchaseCancelled},
	models.PurchaseSent:    {models.PurchasePartial, models.PurchaseReceived, models.PurchaseCancelled},
	models.PurchasePartial: {models.PurchasePartial, models.PurchaseReceived},
}

func CanTransition(from, next models.PurchaseOrderStatus) bool {
	return lo.Contains(transitions[from], next)
}

// Receivable is true while goods may still be booked against the order.
func Receivable(s models.PurchaseOrderStatus) bool {
	return s == models.PurchaseSent || s == models.PurchasePartial
}

// Receipt is a quantity received against one order line.
type Receipt struct {
	ItemID   uint
	Quantity decimal.Decimal
}

// LineError points at the receipt that could not be applied.
type LineError struct {
	Index   int
	Message string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("items[%d]: %s", e.Index, e.Message)
}

// ApplyReceipts adds the received quantities to the order lines and returns the
// resulting status. An empty receipt list receives everything outstanding.
func ApplyReceipts(items []models.PurchaseOrderItem, receipts []Receipt) ([]models.PurchaseOrderItem, models.PurchaseOrderStatus, error) {
	out := make([]models.PurchaseOrderItem, len(items))
	copy(out, items)

	if len(receipts) == 0 {
		for i := range out {
			out[i].ReceivedQuantity = out[i].Quantity
		}
		return out, models.PurchaseReceived, nil
	}

	index := make(map[uint]int, len(out))
	for i, it := range out {
		index[it.ID] = i
	}
	for n, r := range receipts {
		i, ok := index[r.ItemID]
		if !ok {
			return nil, "", &LineError{Index: n, Message: "is not a line of this order"}
		}
		if !r.Quantity.IsPositive() {
			return nil, "", &LineError{Index: n, Message: "quantity must be greater than 0"}
		}
		if r.Quantity.GreaterThan(out[i].Outstanding()) {
			return nil, "", &LineError{Index: n, Message: "quantity exceeds the outstanding " + out[i].Outstanding().String()}
		}
		out[i].ReceivedQuantity = out[i].ReceivedQuantity.Add(r.Quantity)
	}

	complete := lo.EveryBy(out, func(it models.PurchaseOrderItem) bool {
		return !it.Outstanding().IsPositive()
	})
	if complete {
		return out, models.PurchaseReceived, nil
	}
	return out, models.PurchasePartial, nil
}
