package core

import (
	"reflect"
	"testing"
)

func row(month int, pence int64, key string) RevenueRow {
	return RevenueRow{Month: month, Amount: Money{Pence: pence}, Key: key}
}

func TestPivotEmpty(t *testing.T) {
	r := Pivot(nil)
	if len(r.Keys) != 0 || len(r.Groups) != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestPivotMergesSameKeyAndMonth(t *testing.T) {
	r := Pivot([]RevenueRow{
		row(3, 1000, "Acme"),
		row(3, 550, "Acme"),
	})
	if len(r.Keys) != 1 || r.Keys[0] != "Acme" {
		t.Fatalf("keys = %v", r.Keys)
	}
	got, ok := r.Amount("Acme", 3)
	if !ok || got.Pence != 1550 {
		t.Fatalf("Acme march = %v (ok=%v), want 15.50", got, ok)
	}
}

func TestPivotFirstSeenOrder(t *testing.T) {
	r := Pivot([]RevenueRow{
		row(1, 10000, "Bob"),
		row(2, 5000, "Bob"),
		row(1, 2000, "Carol"),
	})
	if !reflect.DeepEqual(r.Keys, []string{"Bob", "Carol"}) {
		t.Fatalf("keys = %v", r.Keys)
	}
	bob := r.Groups["Bob"]
	if !reflect.DeepEqual(bob.Months, []int{1, 2}) {
		t.Fatalf("bob months = %v", bob.Months)
	}
	if bob.Amounts[1].Pence != 10000 || bob.Amounts[2].Pence != 5000 {
		t.Fatalf("bob amounts = %v", bob.Amounts)
	}
	carol := r.Groups["Carol"]
	if len(carol.Months) != 1 || carol.Amounts[1].Pence != 2000 {
		t.Fatalf("carol = %v", carol)
	}
}

func TestPivotConservesTotal(t *testing.T) {
	rows := []RevenueRow{
		row(1, 123, "a"),
		row(1, 456, "a"),
		row(12, 789, "b"),
		row(6, 1, "c"),
		row(6, 2, "b"),
		row(1, 99, "c"),
	}
	var want int64
	for _, r := range rows {
		want += r.Amount.Pence
	}
	r := Pivot(rows)
	if got := r.GrandTotal().Pence; got != want {
		t.Fatalf("grand total = %d, want %d", got, want)
	}
	// Every distinct key appears exactly once.
	seen := map[string]int{}
	for _, k := range r.Keys {
		seen[k]++
	}
	for _, k := range []string{"a", "b", "c"} {
		if seen[k] != 1 {
			t.Fatalf("key %q appears %d times", k, seen[k])
		}
	}
}

func TestPivotIdempotentViaFlatten(t *testing.T) {
	rows := []RevenueRow{
		row(2, 100, "x"),
		row(2, 200, "x"),
		row(1, 300, "y"),
		row(2, 400, "y"),
	}
	once := Pivot(rows)
	twice := Pivot(once.Flatten())
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-pivot changed the report:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestSortByTotalDesc(t *testing.T) {
	r := Pivot([]RevenueRow{
		row(1, 100, "small"),
		row(1, 900, "big"),
		row(2, 50, "small"),
		row(3, 500, "mid"),
	})
	r.SortByTotalDesc()
	if !reflect.DeepEqual(r.Keys, []string{"big", "mid", "small"}) {
		t.Fatalf("keys = %v", r.Keys)
	}
}

func TestMonthName(t *testing.T) {
	cases := map[int]string{1: "January", 6: "June", 12: "December", 0: "", 13: ""}
	for m, want := range cases {
		if got := MonthName(m); got != want {
			t.Errorf("MonthName(%d) = %q, want %q", m, got, want)
		}
	}
}
