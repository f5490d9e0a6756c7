package invoice

import (
	"errors"
	"testing"
	"time"

	"farm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []models.InvoiceStatus{
	models.InvoiceDraft, models.InvoiceSent, models.InvoicePaid, models.InvoiceOverdue, models.InvoiceCancelled,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]models.InvoiceStatus]bool{
		{models.InvoiceDraft, models.InvoiceSent}:      true,
		{models.InvoiceDraft, models.InvoiceCancelled}: true,
		{models.InvoiceSent, models.InvoicePaid}:       true,
		{models.InvoiceSent, models.InvoiceCancelled}:  true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]models.InvoiceStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_StampsTimes(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	inv := &models.Invoice{Status: models.InvoiceDraft}

	require.NoError(t, Transition(inv, models.InvoiceSent, now))
	assert.Equal(t, &now, inv.SentAt)

	require.NoError(t, Transition(inv, models.InvoicePaid, now))
	assert.Equal(t, &now, inv.PaidAt)

	err := Transition(inv, models.InvoiceCancelled, now)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, models.InvoicePaid, inv.Status)
}

func TestDisplayStatus(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	sent := models.Invoice{Status: models.InvoiceSent, DueDate: due}

	assert.Equal(t, models.InvoiceSent, DisplayStatus(sent, due.Add(23*time.Hour)))
	assert.Equal(t, models.InvoiceOverdue, DisplayStatus(sent, due.AddDate(0, 0, 1)))

	paid := models.Invoice{Status: models.InvoicePaid, DueDate: due}
	assert.Equal(t, models.InvoicePaid, DisplayStatus(paid, due.AddDate(1, 0, 0)))

	assert.True(t, Outstanding(sent, due.AddDate(0, 1, 0)))
	assert.False(t, Outstanding(paid, due))
}
