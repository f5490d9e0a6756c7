package invoice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"farm-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	KindInvoice       = "invoice"
	KindPurchaseOrder = "purchase_order"

	numberWidth = 6

	// MaxAttempts bounds retries when a generated number collides with an existing one.
	MaxAttempts = 3
)

// FormatNumber renders a sequence value as prefix + zero padded digits, "INV-000042".
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, numberWidth, seq)
}

// ParseSequence extracts the numeric suffix of a number carrying prefix.
func ParseSequence(prefix, number string) (int64, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextNumber returns the number following last. An empty or foreign last starts the sequence at 1.
func NextNumber(last, prefix string) string {
	n, ok := ParseSequence(prefix, last)
	if !ok {
		n = 0
	}
	return FormatNumber(prefix, n+1)
}

// Sequencer hands out per-owner document numbers.
type Sequencer struct {
	Prefixes map[string]string
}

func NewSequencer(invoicePrefix, purchasePrefix string) *Sequencer {
	return &Sequencer{Prefixes: map[string]string{
		KindInvoice:       invoicePrefix,
		KindPurchaseOrder: purchasePrefix,
	}}
}

func (s *Sequencer) Prefix(kind string) string { return s.Prefixes[kind] }

// Next allocates the next number inside tx. The counter row is incremented in a single
// UPDATE, so concurrent transactions serialize on the row instead of reading a stale maximum.
func (s *Sequencer) Next(tx *gorm.DB, ownerID uint, kind string) (string, error) {
	prefix, ok := s.Prefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown sequence kind %q", kind)
	}

	res := tx.Model(&models.Sequence{}).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Update("last_value", gorm.Expr("last_value + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("advance %s sequence: %w", kind, res.Error)
	}

	if res.RowsAffected == 0 {
		// first document of this kind for the owner; continue after any numbers
		// that exist from before the counter row did
		start, err := s.highestExisting(tx, ownerID, kind, prefix)
		if err != nil {
			return "", err
		}
		seq := models.Sequence{OwnerID: ownerID, Kind: kind, LastValue: start + 1}
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq)
		if created.Error != nil {
			return "", fmt.Errorf("create %s sequence: %w", kind, created.Error)
		}
		if created.RowsAffected > 0 {
			return FormatNumber(prefix, seq.LastValue), nil
		}
		// lost the race to create the row; advance it like everyone else
		return s.Next(tx, ownerID, kind)
	}

	var seq models.Sequence
	if err := tx.Where("owner_id = ? AND kind = ?", ownerID, kind).First(&seq).Error; err != nil {
		return "", fmt.Errorf("read %s sequence: %w", kind, err)
	}
	return FormatNumber(prefix, seq.LastValue), nil
}

func (s *Sequencer) highestExisting(tx *gorm.DB, ownerID uint, kind, prefix string) (int64, error) {
	var numbers []string
	var err error
	switch kind {
	case KindInvoice:
		err = tx.Model(&models.Invoice{}).Where("owner_id = ?", ownerID).Pluck("invoice_number", &numbers).Error
	case KindPurchaseOrder:
		err = tx.Model(&models.PurchaseOrder{}).Where("owner_id = ?", ownerID).Pluck("order_number", &numbers).Error
	}
	if err != nil {
		return 0, fmt.Errorf("scan existing %s numbers: %w", kind, err)
	}

	var max int64
	for _, n := range numbers {
		if v, ok := ParseSequence(prefix, n); ok && v > max {
			max = v
		}
	}
	return max, nil
}

// Retry runs fn up to MaxAttempts times while it fails with a unique violation.
func Retry(fn func() error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err = fn(); err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}
