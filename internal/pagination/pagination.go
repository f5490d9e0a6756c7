// Package pagination parses list query parameters and pages gorm queries.
package pagination

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	Asc  = "asc"
	Desc = "desc"
)

// Sortable maps API sort keys to whitelisted columns.
type Sortable map[string]string

// Common keys every owned resource can sort by.
var Base = Sortable{
	"id":        "id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// With returns a copy of s extended with extra.
func (s Sortable) With(extra Sortable) Sortable {
	out := make(Sortable, len(s)+len(extra))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (s Sortable) keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewMeta computes pages = ceil(total/limit); zero rows yield zero pages.
func NewMeta(page, limit int, total int64) Meta {
	m := Meta{Page: page, Limit: limit, Total: total}
	if total > 0 && limit > 0 {
		m.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	return m
}

// Parse reads page, limit, sortBy and sortOrder from the query string.
// Every invalid parameter is reported in the returned validation error.
func Parse(c *fiber.Ctx, sortable Sortable) (Params, error) {
	return FromValues(c.Query("page"), c.Query("limit"), c.Query("sortBy"), c.Query("sortOrder"), sortable)
}

func FromValues(page, limit, sortBy, sortOrder string, sortable Sortable) (Params, error) {
	p := Params{Page: DefaultPage, Limit: DefaultLimit, SortBy: "createdAt", SortOrder: Desc}
	var details []response.Detail

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			details = append(details, response.Detail{Field: "page", Message: "must be a positive integer"})
		} else {
			p.Page = n
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxLimit {
			details = append(details, response.Detail{
				Field:   "limit",
				Message: fmt.Sprintf("must be an integer between 1 and %d", MaxLimit),
			})
		} else {
			p.Limit = n
		}
	}

	if _, ok := sortable[p.SortBy]; !ok {
		p.SortBy = "id"
	}
	if sortBy != "" {
		if _, ok := sortable[sortBy]; !ok {
			details = append(details, response.Detail{
				Field:   "sortBy",
				Message: "must be one of: " + strings.Join(sortable.keys(), ", "),
			})
		} else {
			p.SortBy = sortBy
		}
	}
	if sortOrder != "" {
		switch o := strings.ToLower(sortOrder); o {
		case Asc, Desc:
			p.SortOrder = o
		default:
			details = append(details, response.Detail{Field: "sortOrder", Message: "must be asc or desc"})
		}
	}

	if len(details) > 0 {
		return Params{}, response.Validation(details...)
	}
	return p, nil
}

// OrderClause sorts nulls as the minimum for asc and the maximum for desc,
// so they lead in both directions, then breaks ties by id.
func OrderClause(column, order string) string {
	if order != Desc {
		order = Asc
	}
	if column == "id" {
		return "id " + order
	}
	return fmt.Sprintf("CASE WHEN %s IS NULL THEN 0 ELSE 1 END ASC, %s %s, id ASC", column, column, order)
}

// Paginate counts and pages db, which must already carry every filter.
// The count and the page share the same conditions.
func Paginate[T any](db *gorm.DB, p Params, sortable Sortable) ([]T, Meta, error) {
	column, ok := sortable[p.SortBy]
	if !ok {
		column = "id"
	}

	q := db.Model(new(T))

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("count: %w", err)
	}

	items := make([]T, 0, p.Limit)
	if err := q.Session(&gorm.Session{}).
		Order(OrderClause(column, p.SortOrder)).
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&items).Error; err != nil {
		return nil, Meta{}, fmt.Errorf("find page: %w", err)
	}

	return items, NewMeta(p.Page, p.Limit, total), nil
}
