package financial

import (
	"farm-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	StatusProfit = "Profit"
	StatusLoss   = "Loss"
)

// Line is one priced quantity, an invoice line or a financial record.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// InvoiceTotals sums the lines at full precision. Rounding happens only when presenting.
func InvoiceTotals(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.Quantity, l.UnitPrice))
	}
	tax := subtotal.Mul(taxRate)
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// Entry is a record classified for profit/loss.
type Entry struct {
	Type      models.CategoryType
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type ProfitLossResult struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Status   string
}

func ProfitLoss(entries []Entry) ProfitLossResult {
	income, expenses := decimal.Zero, decimal.Zero
	for _, e := range entries {
		v := LineTotal(e.Quantity, e.UnitPrice)
		switch e.Type {
		case models.CategoryIncome:
			income = income.Add(v)
		case models.CategoryExpense:
			expenses = expenses.Add(v)
		}
	}

	net := income.Sub(expenses)
	status := StatusLoss
	if !net.IsNegative() {
		status = StatusProfit
	}
	return ProfitLossResult{Income: income, Expenses: expenses, Net: net, Status: status}
}

// Classify returns the profit/loss side of a record: its category's type when loaded,
// otherwise its transaction type. Transfers belong to neither side.
func Classify(r models.FinancialRecord) (models.CategoryType, bool) {
	if r.TransactionType == models.TransactionTransfer {
		return "", false
	}
	if r.Category != nil && r.Category.Type != "" {
		return r.Category.Type, true
	}
	return models.CategoryType(r.TransactionType), true
}

func EntriesFromRecords(records []models.FinancialRecord) []Entry {
	return lo.FilterMap(records, func(r models.FinancialRecord, _ int) (Entry, bool) {
		typ, ok := Classify(r)
		if !ok {
			return Entry{}, false
		}
		return Entry{Type: typ, Quantity: r.Quantity, UnitPrice: r.UnitPrice}, true
	})
}

type Summary struct {
	Revenue  decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// Summarize totals record amounts by transaction type. An empty slice yields zeros.
func Summarize(records []models.FinancialRecord) Summary {
	if len(records) == 0 {
		return Summary{Revenue: decimal.Zero, Expenses: decimal.Zero, Net: decimal.Zero}
	}
	s := Summary{Revenue: decimal.Zero, Expenses: decimal.Zero}
	for _, r := range records {
		switch r.TransactionType {
		case models.TransactionIncome:
			s.Revenue = s.Revenue.Add(r.Amount)
		case models.TransactionExpense:
			s.Expenses = s.Expenses.Add(r.Amount)
		}
	}
	s.Net = s.Revenue.Sub(s.Expenses)
	return s
}

// Round2 is the presentation rounding for money.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ProfitLossReport is the rendered form of a ProfitLossResult.
type ProfitLossReport struct {
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetProfit   decimal.Decimal `json:"netProfit"`
	Status      string          `json:"status"`
	RecordCount int             `json:"recordCount"`
}

func NewProfitLossReport(records []models.FinancialRecord) ProfitLossReport {
	entries := EntriesFromRecords(records)
	pl := ProfitLoss(entries)
	return ProfitLossReport{
		Income:      Round2(pl.Income),
		Expenses:    Round2(pl.Expenses),
		NetProfit:   Round2(pl.Net),
		Status:      pl.Status,
		RecordCount: len(entries),
	}
}
