package core

import (
	"sort"
	"time"
)

// RevenueRow is one flat row from the dispatched-revenue aggregation:
// the calendar month, the summed amount, and the grouping key (a sales
// rep email or a customer name).
type RevenueRow struct {
	Month  int
	Amount Money
	Key    string
}

// MonthAmounts holds one group's totals keyed by calendar month, with the
// months remembered in first-seen order.
type MonthAmounts struct {
	Months  []int
	Amounts map[int]Money
}

// Total sums the group's amounts across all months.
func (ma MonthAmounts) Total() Money {
	var t Money
	for _, m := range ma.Months {
		t = t.Add(ma.Amounts[m])
	}
	return t
}

// Report is the pivoted revenue table: grouping key -> month -> total.
// Keys preserve the first-seen order of the input rows.
type Report struct {
	Keys   []string
	Groups map[string]MonthAmounts
}

// Pivot reshapes flat (month, amount, key) rows into a Report, merging
// duplicate (key, month) pairs by addition. The query already aggregates,
// but the join can still emit the same pair twice, so merging here is not
// optional.
func Pivot(rows []RevenueRow) Report {
	r := Report{Groups: make(map[string]MonthAmounts, len(rows))}
	for _, row := range rows {
		g, ok := r.Groups[row.Key]
		if !ok {
			r.Keys = append(r.Keys, row.Key)
			g = MonthAmounts{Amounts: make(map[int]Money)}
		}
		if _, ok := g.Amounts[row.Month]; !ok {
			g.Months = append(g.Months, row.Month)
		}
		g.Amounts[row.Month] = g.Amounts[row.Month].Add(row.Amount)
		r.Groups[row.Key] = g
	}
	return r
}

// Flatten is the inverse of Pivot up to merging: it re-emits one row per
// (key, month) pair in report order. Pivot(Flatten(Pivot(rows))) equals
// Pivot(rows).
func (r Report) Flatten() []RevenueRow {
	var rows []RevenueRow
	for _, k := range r.Keys {
		g := r.Groups[k]
		for _, m := range g.Months {
			rows = append(rows, RevenueRow{Month: m, Amount: g.Amounts[m], Key: k})
		}
	}
	return rows
}

// Amount returns the total for a (key, month) cell.
func (r Report) Amount(key string, month int) (Money, bool) {
	g, ok := r.Groups[key]
	if !ok {
		return Money{}, false
	}
	a, ok := g.Amounts[month]
	return a, ok
}

// GrandTotal sums every cell in the report.
func (r Report) GrandTotal() Money {
	var t Money
	for _, k := range r.Keys {
		t = t.Add(r.Groups[k].Total())
	}
	return t
}

// SortByTotalDesc reorders the keys by group total, highest first. Ties
// keep their previous relative order.
func (r Report) SortByTotalDesc() {
	sort.SliceStable(r.Keys, func(i, j int) bool {
		return r.Groups[r.Keys[i]].Total().Pence > r.Groups[r.Keys[j]].Total().Pence
	})
}

// MonthName maps 1..12 to "January".."December" for the presentation layer.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
