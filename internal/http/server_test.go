package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"orderdesk/internal/services"
	"orderdesk/internal/storage"
)

const testAdminToken = "sesame"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "orderdesk.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := services.NewOrderService(repo, nil)
	srv := NewServer(":0", svc, repo, Options{AdminToken: testAdminToken, ReportYear: time.Now().Year()})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = svc.Close()
	})
	return srv
}

type reqOpt func(*http.Request)

func asStaff(email string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Staff-Email", email) }
}

func asSuperuser() reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Admin-Token", testAdminToken) }
}

func do(t *testing.T, srv *Server, method, path string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func createProduct(t *testing.T, srv *Server, name, sku, price string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/products", url.Values{
		"name": {name}, "sku": {sku}, "price": {price},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create product %s: status %d: %s", name, rec.Code, rec.Body.String())
	}
}

func createCustomer(t *testing.T, srv *Server, name, email string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/customers", url.Values{
		"name": {name}, "email": {email},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create customer %s: status %d: %s", name, rec.Code, rec.Body.String())
	}
}

func placeOrder(t *testing.T, srv *Server, repEmail, customerID, productID, qty string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/orders", url.Values{
		"customer_id": {customerID},
		"product_id":  {productID},
		"quantity":    {qty},
	}, asStaff(repEmail))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("place order: status %d: %s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	return strings.TrimPrefix(loc, "/orders/")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestReportHiddenWithoutAdminToken(t *testing.T) {
	srv := newTestServer(t)

	if rec := do(t, srv, http.MethodGet, "/report", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous report status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/report", nil, asStaff("alice@example.test")); rec.Code != http.StatusNotFound {
		t.Fatalf("staff report status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/report", nil, asSuperuser()); rec.Code != http.StatusOK {
		t.Fatalf("superuser report status = %d, want 200", rec.Code)
	}

	// The cookie form works too.
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: testAdminToken})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie report status = %d, want 200", rec.Code)
	}
}

func TestCreateOrderRequiresStaffEmail(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "Widget", "W-1", "10.00")
	createCustomer(t, srv, "Acme", "orders@acme.test")

	rec := do(t, srv, http.MethodPost, "/orders", url.Values{
		"customer_id": {"1"}, "product_id": {"1"}, "quantity": {"2"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mandatory to add orders") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateOrderRequiresItems(t *testing.T) {
	srv := newTestServer(t)
	createCustomer(t, srv, "Acme", "orders@acme.test")

	rec := do(t, srv, http.MethodPost, "/orders", url.Values{
		"customer_id": {"1"},
		"product_id":  {""},
		"quantity":    {""},
	}, asStaff("alice@example.test"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "At least one item required.") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOrderLifecycleAndReport(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "Widget", "W-1", "10.00")
	createCustomer(t, srv, "Acme", "orders@acme.test")
	orderID := placeOrder(t, srv, "alice@example.test", "1", "1", "3")

	// Staff cannot change status.
	rec := do(t, srv, http.MethodPost, "/orders/"+orderID+"/status",
		url.Values{"status": {"dispatched"}}, asStaff("alice@example.test"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff status update = %d, want 403", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/orders/"+orderID+"/status",
		url.Values{"status": {"dispatched"}}, asSuperuser())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("superuser status update = %d: %s", rec.Code, rec.Body.String())
	}

	year := strconv.Itoa(time.Now().Year())
	rec = do(t, srv, http.MethodGet, "/report?year="+year, nil, asSuperuser())
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"alice@example.test", "Acme", "£30.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "Widget", "W-1", "10.00")
	createCustomer(t, srv, "Acme", "orders@acme.test")
	orderID := placeOrder(t, srv, "alice@example.test", "1", "1", "1")

	rec := do(t, srv, http.MethodPost, "/orders/"+orderID+"/status",
		url.Values{"status": {"shipped"}}, asSuperuser())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestOrdersListScopedToRep(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "Widget", "W-1", "10.00")
	createCustomer(t, srv, "Acme", "orders@acme.test")
	createCustomer(t, srv, "Globex", "orders@globex.test")
	placeOrder(t, srv, "alice@example.test", "1", "1", "1")
	placeOrder(t, srv, "bob@example.test", "2", "1", "2")

	rec := do(t, srv, http.MethodGet, "/orders", nil, asStaff("bob@example.test"))
	if rec.Code != http.StatusOK {
		t.Fatalf("orders status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Globex") {
		t.Error("bob's order missing from his list")
	}
	if strings.Contains(body, "Acme") {
		t.Error("alice's order leaked into bob's list")
	}

	rec = do(t, srv, http.MethodGet, "/orders", nil, asSuperuser())
	body = rec.Body.String()
	if !strings.Contains(body, "Acme") || !strings.Contains(body, "Globex") {
		t.Error("superuser should see every order")
	}
}

func TestOrderDetailHiddenFromOtherReps(t *testing.T) {
	srv := newTestServer(t)
	createProduct(t, srv, "Widget", "W-1", "10.00")
	createCustomer(t, srv, "Acme", "orders@acme.test")
	orderID := placeOrder(t, srv, "alice@example.test", "1", "1", "1")

	if rec := do(t, srv, http.MethodGet, "/orders/"+orderID, nil, asStaff("bob@example.test")); rec.Code != http.StatusNotFound {
		t.Fatalf("other rep detail status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/orders/"+orderID, nil, asStaff("alice@example.test")); rec.Code != http.StatusOK {
		t.Fatalf("own detail status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/orders/999", nil, asSuperuser()); rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", rec.Code)
	}
}
