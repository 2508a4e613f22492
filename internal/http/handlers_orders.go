package http

import (
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"orderdesk/internal/core"
	"orderdesk/internal/storage"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := storage.OrderFilter{
		Search: sanitizeInput(r.URL.Query().Get("q")),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := core.OrderStatus(v)
		if !status.Valid() {
			http.Error(w, "unknown status filter", http.StatusBadRequest)
			return
		}
		filter.Status = status
	}

	// Staff see their own orders; superusers see everything.
	super := s.isSuperuser(r)
	var orders []storage.OrderSummary
	if !super {
		filter.RepEmail = staffEmail(r)
	}
	if super || filter.RepEmail != "" {
		var err error
		orders, err = s.repo.ListOrders(r.Context(), filter)
		if err != nil {
			slog.ErrorContext(r.Context(), "Order list error", "error", err)
			http.Error(w, "failed to load orders", http.StatusInternalServerError)
			return
		}
	}

	type row struct {
		ID       int64
		Status   string
		RepEmail string
		Customer string
		Created  string
	}
	type statusOption struct {
		Value, Label string
	}
	data := struct {
		Search      string
		Status      string
		Statuses    []statusOption
		IsSuperuser bool
		Rows        []row
	}{
		Search:      filter.Search,
		Status:      string(filter.Status),
		IsSuperuser: super,
	}
	for _, st := range core.Statuses() {
		data.Statuses = append(data.Statuses, statusOption{Value: string(st), Label: st.Label()})
	}
	for _, o := range orders {
		data.Rows = append(data.Rows, row{
			ID:       o.ID,
			Status:   o.Status.Label(),
			RepEmail: o.SalesRepEmail,
			Customer: o.CustomerName,
			Created:  o.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	s.render(w, r, "orders.html", data)
}

func (s *Server) handleNewOrderForm(w http.ResponseWriter, r *http.Request) {
	customers, err := s.repo.ListCustomers(r.Context(), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer list error", "error", err)
		http.Error(w, "failed to load customers", http.StatusInternalServerError)
		return
	}
	products, err := s.repo.ListProducts(r.Context(), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "Product list error", "error", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}

	type option struct {
		ID    int64
		Label string
	}
	data := struct {
		Customers []option
		Products  []option
		LineSlots []int
	}{LineSlots: make([]int, 5)}
	for _, c := range customers {
		data.Customers = append(data.Customers, option{ID: c.ID, Label: c.Name})
	}
	for _, p := range products {
		data.Products = append(data.Products, option{ID: p.ID, Label: p.Name + " (" + p.Price.GBP() + ")"})
	}

	s.render(w, r, "order_form.html", data)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	customerID, err := strconv.ParseInt(r.Form.Get("customer_id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Choose a customer</div>`))
		return
	}

	// The form repeats product_id/quantity pairs; blank rows are skipped.
	productIDs := r.Form["product_id"]
	quantities := r.Form["quantity"]
	var lines []core.OrderLine
	for i, pidStr := range productIDs {
		if pidStr == "" {
			continue
		}
		pid, err := strconv.ParseInt(pidStr, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid product</div>`))
			return
		}
		qty := 1
		if i < len(quantities) && quantities[i] != "" {
			qty, err = strconv.Atoi(quantities[i])
			if err != nil {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`<div class="error">Invalid quantity</div>`))
				return
			}
		}
		lines = append(lines, core.OrderLine{ProductID: pid, Quantity: qty})
	}

	order := core.Order{
		Notes:      sanitizeInput(r.Form.Get("notes")),
		CustomerID: customerID,
		Lines:      lines,
	}

	id, err := s.svc.CreateOrder(r.Context(), staffEmail(r), staffName(r), order)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNoSalesRepEmail):
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(core.ErrNoSalesRepEmail.Error()) + `</div>`))
		case errors.Is(err, core.ErrNoOrderLines):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">At least one item required.</div>`))
		case errors.Is(err, core.ErrInvalidQuantity), errors.Is(err, core.ErrDuplicateLine):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		default:
			slog.ErrorContext(r.Context(), "Order create error", "error", err, "customer_id", customerID)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<div class="error">Failed to save order</div>`))
		}
		return
	}

	s.invalidateReport(time.Now().Year())
	http.Redirect(w, r, "/orders/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	order, err := s.repo.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Order load error", "error", err, "id", id)
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	// Non-superusers only see their own orders.
	super := s.isSuperuser(r)
	emailData, err := s.repo.GetOrderEmailData(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Order detail error", "error", err, "id", id)
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}
	if !super && emailData.Rep.Email != staffEmail(r) {
		http.NotFound(w, r)
		return
	}

	type line struct {
		Name     string
		Quantity int
		Amount   string
	}
	type statusOption struct {
		Value, Label string
		Selected     bool
	}
	data := struct {
		ID          int64
		Status      string
		Statuses    []statusOption
		Notes       string
		Created     string
		Customer    core.Customer
		Address     string
		RepEmail    string
		RepName     string
		Lines       []line
		Total       string
		IsSuperuser bool
	}{
		ID:          order.ID,
		Status:      order.Status.Label(),
		Notes:       order.Notes,
		Created:     order.CreatedAt.Format("2006-01-02 15:04"),
		Customer:    emailData.Customer,
		Address:     emailData.Customer.FullAddress(),
		RepEmail:    emailData.Rep.Email,
		RepName:     emailData.Rep.FullName,
		Total:       emailData.Total.GBP(),
		IsSuperuser: super,
	}
	for _, st := range core.Statuses() {
		data.Statuses = append(data.Statuses, statusOption{
			Value: string(st), Label: st.Label(), Selected: st == order.Status,
		})
	}
	for _, l := range emailData.Lines {
		data.Lines = append(data.Lines, line{Name: l.Name, Quantity: l.Quantity, Amount: l.Amount.GBP()})
	}

	s.render(w, r, "order_detail.html", data)
}

// handleUpdateOrderStatus moves an order through its lifecycle. Only
// superusers may change status; dispatching is what lands an order in
// the revenue report.
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !s.isSuperuser(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	status := core.OrderStatus(r.Form.Get("status"))
	if !status.Valid() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(core.ErrInvalidStatus.Error()) + `</div>`))
		return
	}

	order, err := s.repo.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Order load error", "error", err, "id", id)
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	if err := s.repo.UpdateOrderStatus(r.Context(), id, status); err != nil {
		slog.ErrorContext(r.Context(), "Order status update error", "error", err, "id", id, "status", string(status))
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}

	// The report only counts dispatched orders, so a status change can
	// move revenue in or out of the order's year.
	s.invalidateReport(order.CreatedAt.Year())
	http.Redirect(w, r, "/orders/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}
