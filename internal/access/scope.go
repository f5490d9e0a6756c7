package access

import "gorm.io/gorm"

// OwnerColumn is the column every owned table carries.
const OwnerColumn = "owner_id"

// Condition is a single column equality.
type Condition struct {
	Column string
	Value  any
}

// Filter is a conjunction of equality conditions.
type Filter []Condition

func Eq(column string, value any) Filter {
	return Filter{{Column: column, Value: value}}
}

// And returns a new filter holding the conditions of both sides.
func (f Filter) And(other Filter) Filter {
	out := make(Filter, 0, len(f)+len(other))
	out = append(out, f...)
	return append(out, other...)
}

// Has reports whether the filter constrains column.
func (f Filter) Has(column string) bool {
	for _, c := range f {
		if c.Column == column {
			return true
		}
	}
	return false
}

// Apply adds every condition as a WHERE clause.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	for _, c := range f {
		db = db.Where(db.Statement.Quote(c.Column)+" = ?", c.Value)
	}
	return db
}

// ScopeFilter narrows base to the principal's rows. Admins get base unchanged.
// A nil principal is narrowed to owner 0, which matches nothing.
func ScopeFilter(p *Principal, base Filter) Filter {
	if p.IsAdmin() {
		return base
	}
	var id uint
	if p != nil {
		id = p.ID
	}
	return base.And(Eq(OwnerColumn, id))
}

// Scope is ScopeFilter as a gorm scope, for queries built with chained Where calls.
func Scope(p *Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return ScopeFilter(p, nil).Apply(db)
	}
}
