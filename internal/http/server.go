package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"orderdesk/internal/cache"
	"orderdesk/internal/services"
	"orderdesk/internal/storage"
	appweb "orderdesk/web"
)

// Options carries the server settings that come from configuration.
type Options struct {
	// AdminToken unlocks superuser pages. Empty means no superuser access.
	AdminToken string
	// ReportYear is the default year for the revenue report.
	ReportYear int
}

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.OrderService
	repo      *storage.SQLiteRepository
	opts      Options

	rateLimiter *rateLimiter

	// Report pages are expensive joins; cache them per year.
	reportCache *cache.LRUCache[reportView]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.OrderService, repo *storage.SQLiteRepository, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		repo:             repo,
		opts:             opts,
		rateLimiter:      newRateLimiter(),
		reportCache:      cache.NewLRUCache[reportView](20, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /products", s.withSecurityHeaders(s.handleListProducts))
	mux.HandleFunc("POST /products", s.withSecurityHeaders(s.handleCreateProduct))

	mux.HandleFunc("GET /customers", s.withSecurityHeaders(s.handleListCustomers))
	mux.HandleFunc("POST /customers", s.withSecurityHeaders(s.handleCreateCustomer))

	mux.HandleFunc("GET /orders", s.withSecurityHeaders(s.handleListOrders))
	mux.HandleFunc("GET /orders/new", s.withSecurityHeaders(s.handleNewOrderForm))
	mux.HandleFunc("POST /orders", s.withSecurityHeaders(s.handleCreateOrder))
	mux.HandleFunc("GET /orders/{id}", s.withSecurityHeaders(s.handleOrderDetail))
	mux.HandleFunc("POST /orders/{id}/status", s.withSecurityHeaders(s.handleUpdateOrderStatus))

	mux.HandleFunc("GET /report", s.withSecurityHeaders(s.handleReport))

	return s
}

// startCacheCleanup runs periodic cleanup for the report cache.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.reportCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "report_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		StaffEmail  string
		IsSuperuser bool
	}{
		StaffEmail:  staffEmail(r),
		IsSuperuser: s.isSuperuser(r),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
