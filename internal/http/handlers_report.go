package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"orderdesk/internal/core"
)

// reportCell is one month's revenue for a group.
type reportCell struct {
	Month  string
	Amount string
}

type reportGroup struct {
	Key   string
	Cells []reportCell
	Total string
}

type reportTable struct {
	Groups     []reportGroup
	GrandTotal string
}

// reportView is the rendered monthly dispatched-revenue report: one
// table per sales rep email, one per customer name.
type reportView struct {
	Year       int
	BySalesRep reportTable
	ByCustomer reportTable
}

// handleReport renders the monthly dispatched-revenue report. It is
// superuser-only and hides its existence from everyone else.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.isSuperuser(r) {
		http.NotFound(w, r)
		return
	}

	year := s.opts.ReportYear
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1000 || y > 9999 {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = y
	}

	view, err := s.getReport(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report error", "error", err, "year", year)
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "report.html", view)
}

func (s *Server) reportCacheKey(year int) string {
	return strconv.Itoa(year)
}

func (s *Server) invalidateReport(year int) {
	s.reportCache.Delete(s.reportCacheKey(year))
}

func (s *Server) getReport(ctx context.Context, year int) (reportView, error) {
	key := s.reportCacheKey(year)
	if view, found := s.reportCache.Get(key); found {
		slog.DebugContext(ctx, "Report cache hit", "year", year)
		return view, nil
	}

	repRows, err := s.repo.DispatchedRevenueBySalesRep(ctx, year)
	if err != nil {
		return reportView{}, fmt.Errorf("revenue by sales rep (year=%d): %w", year, err)
	}
	customerRows, err := s.repo.DispatchedRevenueByCustomer(ctx, year)
	if err != nil {
		return reportView{}, fmt.Errorf("revenue by customer (year=%d): %w", year, err)
	}

	byRep := core.Pivot(repRows)
	byCustomer := core.Pivot(customerRows)
	// Customers sorted by who spent most; reps stay in email order.
	byCustomer.SortByTotalDesc()

	view := reportView{
		Year:       year,
		BySalesRep: buildReportTable(byRep),
		ByCustomer: buildReportTable(byCustomer),
	}

	s.reportCache.Set(key, view)
	slog.DebugContext(ctx, "Report cached", "year", year,
		"reps", len(view.BySalesRep.Groups), "customers", len(view.ByCustomer.Groups))
	return view, nil
}

func buildReportTable(report core.Report) reportTable {
	t := reportTable{GrandTotal: report.GrandTotal().GBP()}
	for _, key := range report.Keys {
		g := report.Groups[key]
		group := reportGroup{Key: key, Total: g.Total().GBP()}
		for _, m := range g.Months {
			group.Cells = append(group.Cells, reportCell{
				Month:  core.MonthName(m),
				Amount: g.Amounts[m].GBP(),
			})
		}
		t.Groups = append(t.Groups, group)
	}
	return t
}
