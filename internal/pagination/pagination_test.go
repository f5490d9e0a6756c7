package pagination

import (
	"errors"
	"fmt"
	"testing"

	"farm-backend/internal/access"
	"farm-backend/internal/models"
	"farm-backend/internal/response"
	"farm-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var animalSort = Base.With(Sortable{"tagNumber": "tag_number", "currentWeight": "current_weight"})

func seedAnimals(t *testing.T, db *gorm.DB, ownerID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		testutil.Create(t, db, &models.Animal{
			OwnerID:      ownerID,
			TagNumber:    fmt.Sprintf("T-%03d", i),
			Species:      "cattle",
			HealthStatus: models.HealthHealthy,
			Status:       models.AnimalActive,
		})
	}
}

func TestFromValues_Defaults(t *testing.T) {
	p, err := FromValues("", "", "", "", Base)
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: Desc}, p)
}

func TestFromValues_InvalidCollectsAllDetails(t *testing.T) {
	_, err := FromValues("0", "500", "password", "sideways", Base)

	var re *response.Error
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Details, 4)
	assert.Equal(t, "page", re.Details[0].Field)
	assert.Equal(t, "limit", re.Details[1].Field)
	assert.Equal(t, "sortBy", re.Details[2].Field)
	assert.Equal(t, "sortOrder", re.Details[3].Field)
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, Meta{Page: 3, Limit: 10, Total: 25, Pages: 3}, NewMeta(3, 10, 25))
	assert.Equal(t, int64(0), NewMeta(1, 10, 0).Pages)
	assert.Equal(t, int64(1), NewMeta(1, 10, 10).Pages)
	assert.Equal(t, int64(2), NewMeta(1, 10, 11).Pages)
}

func TestPaginate_ThirdPageOfTwentyFive(t *testing.T) {
	// GIVEN 25 animals for owner 1 and 4 for owner 2
	db := testutil.DB(t)
	seedAnimals(t, db, 1, 25)
	seedAnimals(t, db, 2, 4)

	scoped := access.ScopeFilter(&access.Principal{ID: 1, Role: access.RoleUser}, nil).Apply(db)

	// WHEN page 3 is requested with limit 10
	items, meta, err := Paginate[models.Animal](scoped, Params{Page: 3, Limit: 10, SortBy: "id", SortOrder: Asc}, animalSort)

	// THEN the tail of the owner's rows is returned with the true total
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, Meta{Page: 3, Limit: 10, Total: 25, Pages: 3}, meta)
	for _, a := range items {
		assert.Equal(t, uint(1), a.OwnerID)
	}
}

func TestPaginate_PagesDoNotOverlap(t *testing.T) {
	db := testutil.DB(t)
	seedAnimals(t, db, 1, 23)

	seen := map[uint]bool{}
	for page := 1; page <= 3; page++ {
		items, _, err := Paginate[models.Animal](db, Params{Page: page, Limit: 10, SortBy: "tagNumber", SortOrder: Desc}, animalSort)
		require.NoError(t, err)
		for _, a := range items {
			assert.False(t, seen[a.ID], "animal %d returned twice", a.ID)
			seen[a.ID] = true
		}
	}
	assert.Len(t, seen, 23)
}

func TestPaginate_BeyondLastPage(t *testing.T) {
	db := testutil.DB(t)
	seedAnimals(t, db, 1, 3)

	items, meta, err := Paginate[models.Animal](db, Params{Page: 9, Limit: 10, SortBy: "id", SortOrder: Asc}, animalSort)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, int64(1), meta.Pages)
}

func TestPaginate_NullsLeadInBothDirections(t *testing.T) {
	db := testutil.DB(t)
	weights := []string{"40", "", "25", "", "60"}
	for i, w := range weights {
		a := &models.Animal{OwnerID: 1, TagNumber: fmt.Sprintf("W-%d", i), Species: "goat",
			HealthStatus: models.HealthHealthy, Status: models.AnimalActive}
		if w != "" {
			a.CurrentWeight = decimal.NewNullDecimal(decimal.RequireFromString(w))
		}
		testutil.Create(t, db, a)
	}

	tags := func(order string) []string {
		items, _, err := Paginate[models.Animal](db, Params{Page: 1, Limit: 10, SortBy: "currentWeight", SortOrder: order}, animalSort)
		require.NoError(t, err)
		out := make([]string, len(items))
		for i, a := range items {
			out[i] = a.TagNumber
		}
		return out
	}

	// nulls are the minimum ascending and the maximum descending, ties broken by id
	assert.Equal(t, []string{"W-1", "W-3", "W-2", "W-0", "W-4"}, tags(Asc))
	assert.Equal(t, []string{"W-1", "W-3", "W-4", "W-0", "W-2"}, tags(Desc))
}
