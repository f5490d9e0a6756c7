package invoice

import (
	"errors"
	"fmt"
	"time"

	"farm-backend/internal/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError names the rejected move.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

var transitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceDraft: {models.InvoiceSent, models.InvoiceCancelled},
	models.InvoiceSent:  {models.InvoicePaid, models.InvoiceCancelled},
}

// CanTransition reports whether a stored status may move to next.
// PAID and CANCELLED are terminal; OVERDUE is never stored.
func CanTransition(from, next models.InvoiceStatus) bool {
	for _, s := range transitions[from] {
		if s == next {
			return true
		}
	}
	return false
}

// Transition moves inv to next and stamps the matching timestamp.
func Transition(inv *models.Invoice, next models.InvoiceStatus, now time.Time) error {
	if !CanTransition(inv.Status, next) {
		return &TransitionError{From: string(inv.Status), To: string(next)}
	}
	inv.Status = next
	switch next {
	case models.InvoiceSent:
		inv.SentAt = &now
	case models.InvoicePaid:
		inv.PaidAt = &now
	}
	return nil
}

// DisplayStatus derives OVERDUE for a sent invoice once its due day has ended.
func DisplayStatus(inv models.Invoice, now time.Time) models.InvoiceStatus {
	if inv.Status != models.InvoiceSent {
		return inv.Status
	}
	due := inv.DueDate.UTC()
	endOfDue := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if !now.UTC().Before(endOfDue) {
		return models.InvoiceOverdue
	}
	return models.InvoiceSent
}

func Editable(inv models.Invoice) bool {
	return inv.Status == models.InvoiceDraft
}

// Outstanding is true for invoices still awaiting payment.
func Outstanding(inv models.Invoice, now time.Time) bool {
	switch DisplayStatus(inv, now) {
	case models.InvoiceSent, models.InvoiceOverdue:
		return true
	}
	return false
}
