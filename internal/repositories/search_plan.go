package repositories

import (
	"sort"
	"strings"

	"realestate/internal/models"
	"realestate/internal/utils"
)

// Document field names used in search conditions and orderings.
const (
	FieldTitleNormalized = "titleNormalized"
	FieldHasPool         = "hasPool"
	FieldPrice           = "price"
)

// Comparison operators, spelled the way the document store expects them.
const (
	OpGTE = ">="
	OpLTE = "<="
	OpEQ  = "=="
)

// PrefixSentinel is a code point above every character a normalized title
// can contain, so [p, p+PrefixSentinel] spans all strings starting with p.
const PrefixSentinel = "\uf8ff"

// Condition is one filter clause.
type Condition struct {
	Field string
	Op    string
	Value interface{}
}

// Order is one sort key.
type Order struct {
	Field     string
	Direction models.SortDirection
}

// SearchPlan is a backend-neutral description of a listing query.
type SearchPlan struct {
	// Prefix is the normalized title every result starts with.
	Prefix     string
	Conditions []Condition
	// Orders is empty when the store's natural (ID) order applies.
	Orders []Order
}

// BuildSearchPlan turns the search form into a query: a prefix range on the
// normalized title, and, only when the extra filters are active, the pool
// filter, the price ordering and a final ordering by title.
func BuildSearchPlan(filters models.PropertyFilters) SearchPlan {
	prefix := utils.NormalizeString(filters.Title)
	plan := SearchPlan{
		Prefix: prefix,
		Conditions: []Condition{
			{Field: FieldTitleNormalized, Op: OpGTE, Value: prefix},
			{Field: FieldTitleNormalized, Op: OpLTE, Value: prefix + PrefixSentinel},
		},
	}

	if !filters.ActiveMoreFilters {
		return plan
	}

	if filters.HasPool != nil {
		plan.Conditions = append(plan.Conditions, Condition{Field: FieldHasPool, Op: OpEQ, Value: *filters.HasPool})
	}
	if filters.PriceSort != models.SortNone {
		plan.Orders = append(plan.Orders, Order{Field: FieldPrice, Direction: filters.PriceSort})
	}
	plan.Orders = append(plan.Orders, Order{Field: FieldTitleNormalized, Direction: models.SortAsc})

	return plan
}

// Matches evaluates the plan's conditions against p in memory.
func (sp SearchPlan) Matches(p models.Property) bool {
	for _, c := range sp.Conditions {
		if !c.matches(p) {
			return false
		}
	}
	return true
}

func (c Condition) matches(p models.Property) bool {
	switch c.Field {
	case FieldTitleNormalized:
		v, _ := c.Value.(string)
		switch c.Op {
		case OpGTE:
			return p.TitleNormalized >= v
		case OpLTE:
			return p.TitleNormalized <= v
		case OpEQ:
			return p.TitleNormalized == v
		}
	case FieldHasPool:
		v, _ := c.Value.(bool)
		return c.Op == OpEQ && p.HasPool == v
	case FieldPrice:
		v, _ := c.Value.(float64)
		switch c.Op {
		case OpGTE:
			return p.Price >= v
		case OpLTE:
			return p.Price <= v
		case OpEQ:
			return p.Price == v
		}
	}
	return false
}

// Sort orders ps in place following the plan, falling back to ID order.
func (sp SearchPlan) Sort(ps []models.Property) {
	sort.SliceStable(ps, func(i, j int) bool {
		for _, o := range sp.Orders {
			cmp := compareField(ps[i], ps[j], o.Field)
			if cmp == 0 {
				continue
			}
			if o.Direction == models.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return ps[i].ID < ps[j].ID
	})
}

func compareField(a, b models.Property, field string) int {
	switch field {
	case FieldTitleNormalized:
		return strings.Compare(a.TitleNormalized, b.TitleNormalized)
	case FieldPrice:
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
	case FieldHasPool:
		if a.HasPool != b.HasPool {
			if a.HasPool {
				return 1
			}
			return -1
		}
	}
	return 0
}

// CacheParams renders the filters as the parameters of a cache key.
func CacheParams(filters models.PropertyFilters) map[string]string {
	params := map[string]string{
		"title":       utils.NormalizeString(filters.Title),
		"moreFilters": "false",
	}
	if filters.ActiveMoreFilters {
		params["moreFilters"] = "true"
		params["priceSort"] = string(filters.PriceSort)
		if filters.HasPool != nil {
			params["hasPool"] = "false"
			if *filters.HasPool {
				params["hasPool"] = "true"
			}
		}
	}
	return params
}
