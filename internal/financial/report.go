package financial

import (
	"sort"
	"strconv"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/auth"
	"farm-backend/internal/models"
	"farm-backend/internal/response"
	"farm-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CategoryTotal struct {
	CategoryID   uint                `json:"categoryId"`
	CategoryName string              `json:"categoryName"`
	Type         models.CategoryType `json:"type"`
	Total        decimal.Decimal     `json:"total"`
	Count        int                 `json:"count"`
}

type SummaryResponse struct {
	From          *string         `json:"from"`
	To            *string         `json:"to"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`
	Status        string          `json:"status"`
	Categories    []CategoryTotal `json:"categories"`
}

// -----------------------------------
// GET /api/reports/financial-summary
// ?from=2025-01-01&to=2025-01-31 or ?year=2025&month=1
// -----------------------------------
func SummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := auth.PrincipalFrom(c)

		from, to, err := ParsePeriod(c)
		if err != nil {
			return err
		}

		q := db.Model(&models.FinancialRecord{}).Scopes(access.Scope(p)).Preload("Category")
		if from != nil {
			q = q.Where("transaction_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("transaction_date < ?", to.AddDate(0, 0, 1))
		}

		var records []models.FinancialRecord
		if err := q.Find(&records).Error; err != nil {
			return response.Internal(err)
		}

		return response.OK(c, "Financial summary", BuildSummary(records, from, to))
	}
}

// BuildSummary totals records overall and per category.
func BuildSummary(records []models.FinancialRecord, from, to *time.Time) SummaryResponse {
	s := Summarize(records)
	status := StatusLoss
	if !s.Net.IsNegative() {
		status = StatusProfit
	}

	grouped := lo.GroupBy(
		lo.Filter(records, func(r models.FinancialRecord, _ int) bool {
			return r.TransactionType != models.TransactionTransfer
		}),
		func(r models.FinancialRecord) uint { return r.CategoryID },
	)

	categories := make([]CategoryTotal, 0, len(grouped))
	for id, rs := range grouped {
		ct := CategoryTotal{CategoryID: id, Total: decimal.Zero, Count: len(rs)}
		if cat := rs[0].Category; cat != nil {
			ct.CategoryName = cat.Name
			ct.Type = cat.Type
		}
		for _, r := range rs {
			ct.Total = ct.Total.Add(r.Amount)
		}
		ct.Total = Round2(ct.Total)
		categories = append(categories, ct)
	}
	sort.Slice(categories, func(i, j int) bool {
		if !categories[i].Total.Equal(categories[j].Total) {
			return categories[i].Total.GreaterThan(categories[j].Total)
		}
		return categories[i].CategoryID < categories[j].CategoryID
	})

	return SummaryResponse{
		From:          formatDay(from),
		To:            formatDay(to),
		TotalRevenue:  Round2(s.Revenue),
		TotalExpenses: Round2(s.Expenses),
		NetProfit:     Round2(s.Net),
		Status:        status,
		Categories:    categories,
	}
}

// ParsePeriod reads from/to days or a year/month pair. Missing bounds are nil.
func ParsePeriod(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	if year, month := c.Query("year"), c.Query("month"); year != "" || month != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y < 2000 || y > 9999 {
			return nil, nil, response.FieldError("year", "must be a year from 2000")
		}
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return nil, nil, response.FieldError("month", "must be between 1 and 12")
		}
		first := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return &first, &last, nil
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := validation.ParseDate("from", v)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := validation.ParseDate("to", v)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, response.FieldError("to", "must not be before from")
	}
	return from, to, nil
}

func formatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
