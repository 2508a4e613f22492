package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"orderdesk/internal/core"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	search := sanitizeInput(r.URL.Query().Get("q"))
	customers, err := s.repo.ListCustomers(r.Context(), search)
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer list error", "error", err)
		http.Error(w, "failed to load customers", http.StatusInternalServerError)
		return
	}

	type row struct {
		ID      int64
		Name    string
		Email   string
		Phone   string
		Address string
	}
	data := struct {
		Search string
		Rows   []row
	}{Search: search}
	for _, c := range customers {
		data.Rows = append(data.Rows, row{
			ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone,
			Address: c.FullAddress(),
		})
	}

	s.render(w, r, "customers.html", data)
}

// handleCreateCustomer saves a customer and queues the welcome email
// through the service layer.
func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	c := core.Customer{
		Name:     sanitizeInput(r.Form.Get("name")),
		Email:    sanitizeInput(r.Form.Get("email")),
		Phone:    sanitizeInput(r.Form.Get("phone")),
		Mobile:   sanitizeInput(r.Form.Get("mobile")),
		Address:  sanitizeInput(r.Form.Get("address")),
		City:     sanitizeInput(r.Form.Get("city")),
		County:   sanitizeInput(r.Form.Get("county")),
		Postcode: sanitizeInput(r.Form.Get("postcode")),
	}

	if _, err := s.svc.CreateCustomer(r.Context(), c); err != nil {
		if errors.Is(err, core.ErrEmptyName) || errors.Is(err, core.ErrInvalidPhone) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Customer create error", "error", err, "name", c.Name)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save customer</div>`))
		return
	}

	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}
