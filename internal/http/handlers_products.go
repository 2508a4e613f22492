package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"orderdesk/internal/core"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	search := sanitizeInput(r.URL.Query().Get("q"))
	products, err := s.repo.ListProducts(r.Context(), search)
	if err != nil {
		slog.ErrorContext(r.Context(), "Product list error", "error", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}

	type row struct {
		ID    int64
		Name  string
		SKU   string
		Price string
	}
	data := struct {
		Search string
		Rows   []row
	}{Search: search}
	for _, p := range products {
		data.Rows = append(data.Rows, row{ID: p.ID, Name: p.Name, SKU: p.SKU, Price: p.Price.GBP()})
	}

	s.render(w, r, "products.html", data)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	sku := sanitizeInput(r.Form.Get("sku"))
	priceStr := strings.TrimSpace(r.Form.Get("price"))

	pence, err := core.ParseDecimalToPence(priceStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid price</div>`))
		return
	}

	p := core.Product{Name: name, SKU: sku, Price: core.Money{Pence: pence}}
	if err := p.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	if _, err := s.repo.CreateProduct(r.Context(), p); err != nil {
		slog.ErrorContext(r.Context(), "Product create error", "error", err, "name", name, "sku", sku)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save product</div>`))
		return
	}

	http.Redirect(w, r, "/products", http.StatusSeeOther)
}
