// Package dashboard serves read-only aggregates over a caller's farm data.
package dashboard

import (
	"strconv"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/auth"
	"farm-backend/internal/financial"
	"farm-backend/internal/invoice"
	"farm-backend/internal/models"
	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStats struct {
	Outstanding       int             `json:"outstanding"`
	Overdue           int             `json:"overdue"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
}

type Overview struct {
	OwnerID             *uint           `json:"ownerId"`
	TotalRevenue        decimal.Decimal `json:"totalRevenue"`
	TotalExpenses       decimal.Decimal `json:"totalExpenses"`
	NetProfit           decimal.Decimal `json:"netProfit"`
	Status              string          `json:"status"`
	Invoices            InvoiceStats    `json:"invoices"`
	LowStockItems       int64           `json:"lowStockItems"`
	ActiveBatches       int64           `json:"activeBatches"`
	ActiveAnimals       int64           `json:"activeAnimals"`
	PendingTasks        int64           `json:"pendingTasks"`
	UpcomingMaintenance int64           `json:"upcomingMaintenance"`
}

type Handler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, now: time.Now}
}

func (h *Handler) Register(r fiber.Router) {
	g := r.Group("/dashboard", auth.Authenticated())
	g.Get("/overview", h.OverviewHandler())
	g.Get("/cash-chart", h.CashChartHandler())
}

// ownerFilter scopes to the caller. Admins see everything unless ?ownerId= narrows it;
// other users may only name themselves.
func ownerFilter(c *fiber.Ctx) (access.Filter, *uint, error) {
	p := auth.PrincipalFrom(c)
	raw := c.Query("ownerId")
	if raw == "" {
		if p.IsAdmin() {
			return nil, nil, nil
		}
		return access.ScopeFilter(p, nil), &p.ID, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, nil, response.FieldError("ownerId", "must be a positive integer")
	}
	owner := uint(id)
	if err := access.RequireSelfOrRole(p, owner, access.RoleAdmin).Err(); err != nil {
		return nil, nil, err
	}
	return access.Eq(access.OwnerColumn, owner), &owner, nil
}

// GET /api/dashboard/overview?ownerId=&from=&to=
func (h *Handler) OverviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, owner, err := ownerFilter(c)
		if err != nil {
			return err
		}
		from, to, err := financial.ParsePeriod(c)
		if err != nil {
			return err
		}

		out, err := h.overview(filter, from, to)
		if err != nil {
			return response.Internal(err)
		}
		out.OwnerID = owner
		return response.OK(c, "Dashboard overview", out)
	}
}

func (h *Handler) overview(filter access.Filter, from, to *time.Time) (*Overview, error) {
	scoped := func(model any) *gorm.DB {
		return filter.Apply(h.db.Model(model))
	}
	now := h.now().UTC()
	var out Overview

	q := scoped(&models.FinancialRecord{}).Preload("Category")
	if from != nil {
		q = q.Where("transaction_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("transaction_date < ?", to.AddDate(0, 0, 1))
	}
	var records []models.FinancialRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	sum := financial.Summarize(records)
	out.TotalRevenue = financial.Round2(sum.Revenue)
	out.TotalExpenses = financial.Round2(sum.Expenses)
	out.NetProfit = financial.Round2(sum.Net)
	out.Status = financial.StatusLoss
	if !sum.Net.IsNegative() {
		out.Status = financial.StatusProfit
	}

	var sent []models.Invoice
	if err := scoped(&models.Invoice{}).Where("status = ?", models.InvoiceSent).Find(&sent).Error; err != nil {
		return nil, err
	}
	out.Invoices = invoiceStats(sent, now)

	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&out.LowStockItems, &models.InventoryItem{}, "current_quantity <= reorder_level", nil},
		{&out.ActiveBatches, &models.AnimalBatch{}, "batch_status = ?", []any{models.BatchActive}},
		{&out.ActiveAnimals, &models.Animal{}, "status = ?", []any{models.AnimalActive}},
		{&out.PendingTasks, &models.Task{}, "status IN ?", []any{[]models.TaskStatus{models.TaskPending, models.TaskInProgress}}},
		{&out.UpcomingMaintenance, &models.MaintenanceRecord{}, "status = ? AND scheduled_date < ?", []any{models.MaintenanceScheduled, now.AddDate(0, 0, 7)}},
	}
	for _, n := range counts {
		if err := scoped(n.model).Where(n.where, n.args...).Count(n.dst).Error; err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func invoiceStats(sent []models.Invoice, now time.Time) InvoiceStats {
	if len(sent) == 0 {
		return InvoiceStats{OutstandingAmount: decimal.Zero}
	}
	amount := decimal.Zero
	for _, inv := range sent {
		amount = amount.Add(inv.TotalAmount)
	}
	return InvoiceStats{
		Outstanding: lo.CountBy(sent, func(inv models.Invoice) bool { return invoice.Outstanding(inv, now) }),
		Overdue: lo.CountBy(sent, func(inv models.Invoice) bool {
			return invoice.DisplayStatus(inv, now) == models.InvoiceOverdue
		}),
		OutstandingAmount: financial.Round2(amount),
	}
}
