package dashboard

import (
	"strconv"
	"time"

	"farm-backend/internal/financial"
	"farm-backend/internal/models"
	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

var defaultCounts = map[string]int{PeriodDaily: 7, PeriodWeekly: 8, PeriodMonthly: 12}

type CashChartPoint struct {
	Label    string          `json:"label"` // first day of the bucket
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

type CashChartTotals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

type CashChartResponse struct {
	OwnerID     *uint            `json:"ownerId"`
	Period      string           `json:"period"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Points      []CashChartPoint `json:"points"`
	GrandTotals CashChartTotals  `json:"grandTotals"`
}

// bucketStart truncates t to the start of its day, ISO week (Monday) or month.
func bucketStart(t time.Time, period string) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func nextBucket(t time.Time, period string) time.Time {
	switch period {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Buckets returns count consecutive bucket starts ending with the one containing now.
func Buckets(now time.Time, period string, count int) []time.Time {
	last := bucketStart(now, period)
	out := make([]time.Time, count)
	out[count-1] = last
	for i := count - 2; i >= 0; i-- {
		switch period {
		case PeriodWeekly:
			out[i] = out[i+1].AddDate(0, 0, -7)
		case PeriodMonthly:
			out[i] = out[i+1].AddDate(0, -1, 0)
		default:
			out[i] = out[i+1].AddDate(0, 0, -1)
		}
	}
	return out
}

// BuildCashChart sums records into the given buckets. Every bucket appears, empty ones as zero.
func BuildCashChart(records []models.FinancialRecord, buckets []time.Time, period string) ([]CashChartPoint, CashChartTotals) {
	index := make(map[time.Time]int, len(buckets))
	points := make([]CashChartPoint, len(buckets))
	for i, b := range buckets {
		index[b] = i
		points[i] = CashChartPoint{Label: b.Format("2006-01-02"), Income: decimal.Zero, Expenses: decimal.Zero}
	}

	totals := CashChartTotals{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, r := range records {
		i, ok := index[bucketStart(r.TransactionDate, period)]
		if !ok {
			continue
		}
		kind, counted := financial.Classify(r)
		if !counted {
			continue
		}
		if kind == models.CategoryIncome {
			points[i].Income = points[i].Income.Add(r.Amount)
			totals.Income = totals.Income.Add(r.Amount)
		} else {
			points[i].Expenses = points[i].Expenses.Add(r.Amount)
			totals.Expenses = totals.Expenses.Add(r.Amount)
		}
	}

	for i := range points {
		points[i].Net = financial.Round2(points[i].Income.Sub(points[i].Expenses))
		points[i].Income = financial.Round2(points[i].Income)
		points[i].Expenses = financial.Round2(points[i].Expenses)
	}
	totals.Net = financial.Round2(totals.Income.Sub(totals.Expenses))
	totals.Income = financial.Round2(totals.Income)
	totals.Expenses = financial.Round2(totals.Expenses)
	return points, totals
}

// GET /api/dashboard/cash-chart?period=daily&count=7&ownerId=1
func (h *Handler) CashChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, owner, err := ownerFilter(c)
		if err != nil {
			return err
		}

		period := c.Query("period", PeriodDaily)
		count, ok := defaultCounts[period]
		if !ok {
			return response.FieldError("period", "must be one of daily, weekly, monthly")
		}
		if raw := c.Query("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 366 {
				return response.FieldError("count", "must be between 1 and 366")
			}
			count = n
		}

		buckets := Buckets(h.now(), period, count)
		start := buckets[0]
		end := nextBucket(buckets[len(buckets)-1], period)

		var records []models.FinancialRecord
		err = filter.Apply(h.db.Model(&models.FinancialRecord{})).
			Preload("Category").
			Where("transaction_date >= ? AND transaction_date < ?", start, end).
			Find(&records).Error
		if err != nil {
			return response.Internal(err)
		}

		points, totals := BuildCashChart(records, buckets, period)
		return response.OK(c, "Cash chart", CashChartResponse{
			OwnerID:     owner,
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points:      points,
			GrandTotals: totals,
		})
	}
}
