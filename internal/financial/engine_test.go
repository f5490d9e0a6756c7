package financial

import (
	"math/rand"
	"testing"

	"farm-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestInvoiceTotals_NoFloatDrift(t *testing.T) {
	lines := make([]Line, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, Line{Quantity: d("1"), UnitPrice: d("0.1")})
	}

	got := InvoiceTotals(lines, d("0.15"))

	assert.True(t, got.Subtotal.Equal(d("1")), got.Subtotal.String())
	assert.True(t, got.Tax.Equal(d("0.15")), got.Tax.String())
	assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax)))
}

func TestInvoiceTotals_RoundingOnlyAtPresentation(t *testing.T) {
	got := InvoiceTotals([]Line{{Quantity: d("3"), UnitPrice: d("3.335")}}, d("0.075"))

	assert.Equal(t, "10.005", got.Subtotal.String())
	assert.Equal(t, "0.750375", got.Tax.String())
	assert.Equal(t, "10.76", Round2(got.Total).String())
}

func TestInvoiceTotals_Empty(t *testing.T) {
	got := InvoiceTotals(nil, d("0.2"))
	assert.True(t, got.Total.IsZero())
}

func TestInvoiceTotals_RandomLinesSumExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		var lines []Line
		expected := decimal.Zero
		for i := 0; i < rng.Intn(8)+1; i++ {
			q := decimal.New(int64(rng.Intn(1000)+1), -1)
			p := decimal.New(int64(rng.Intn(100000)), -2)
			lines = append(lines, Line{Quantity: q, UnitPrice: p})
			expected = expected.Add(q.Mul(p))
		}
		got := InvoiceTotals(lines, d("0.18"))
		assert.True(t, got.Subtotal.Equal(expected))
		assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax)))
	}
}

func TestProfitLoss_Scenario(t *testing.T) {
	// GIVEN one income of 2500 and one expense of 450 for a batch
	entries := []Entry{
		{Type: models.CategoryIncome, Quantity: d("1"), UnitPrice: d("2500")},
		{Type: models.CategoryExpense, Quantity: d("1"), UnitPrice: d("450")},
	}

	// WHEN profit/loss is computed
	got := ProfitLoss(entries)

	// THEN the batch made 2050
	assert.True(t, got.Income.Equal(d("2500")))
	assert.True(t, got.Expenses.Equal(d("450")))
	assert.True(t, got.Net.Equal(d("2050")))
	assert.Equal(t, StatusProfit, got.Status)
}

func TestProfitLoss_LossAndBreakEven(t *testing.T) {
	loss := ProfitLoss([]Entry{{Type: models.CategoryExpense, Quantity: d("2"), UnitPrice: d("10")}})
	assert.Equal(t, StatusLoss, loss.Status)
	assert.True(t, loss.Net.Equal(d("-20")))

	even := ProfitLoss(nil)
	assert.Equal(t, StatusProfit, even.Status)
	assert.True(t, even.Net.IsZero())
}

func TestClassify(t *testing.T) {
	income := &models.FinancialCategory{Type: models.CategoryIncome}

	typ, ok := Classify(models.FinancialRecord{TransactionType: models.TransactionExpense, Category: income})
	assert.True(t, ok)
	assert.Equal(t, models.CategoryIncome, typ, "category type wins")

	typ, ok = Classify(models.FinancialRecord{TransactionType: models.TransactionExpense})
	assert.True(t, ok)
	assert.Equal(t, models.CategoryExpense, typ)

	_, ok = Classify(models.FinancialRecord{TransactionType: models.TransactionTransfer, Category: income})
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	got := Summarize([]models.FinancialRecord{
		{TransactionType: models.TransactionIncome, Amount: d("100.10")},
		{TransactionType: models.TransactionIncome, Amount: d("0.20")},
		{TransactionType: models.TransactionExpense, Amount: d("50.05")},
		{TransactionType: models.TransactionTransfer, Amount: d("999")},
	})
	assert.Equal(t, "100.3", got.Revenue.String())
	assert.Equal(t, "50.05", got.Expenses.String())
	assert.Equal(t, "50.25", got.Net.String())

	zero := Summarize(nil)
	assert.True(t, zero.Net.IsZero())
}

func TestNewProfitLossReport(t *testing.T) {
	report := NewProfitLossReport([]models.FinancialRecord{
		{TransactionType: models.TransactionIncome, Quantity: d("3"), UnitPrice: d("10.005")},
		{TransactionType: models.TransactionTransfer, Quantity: d("1"), UnitPrice: d("5")},
	})
	assert.Equal(t, "30.02", report.Income.String())
	assert.Equal(t, 1, report.RecordCount)
}
