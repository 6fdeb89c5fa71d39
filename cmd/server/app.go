package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/handlers"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/diewo77/go-facture/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	db       *gorm.DB
	gatherer prometheus.Gatherer

	documents *handlers.DocumentHandler
	stock     *handlers.StockHandler
	clients   *handlers.ClientHandler
	company   *handlers.CompanyHandler
}

// Services groups the engine services the routes delegate to.
type Services struct {
	Documents *services.DocumentService
	Stock     *services.StockLedger
	Clients   *services.ClientService
	Company   *services.CompanyService
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, svc Services, gatherer prometheus.Gatherer) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		gatherer:  gatherer,
		documents: handlers.NewDocumentHandler(svc.Documents),
		stock:     handlers.NewStockHandler(svc.Stock),
		clients:   handlers.NewClientHandler(svc.Clients),
		company:   handlers.NewCompanyHandler(svc.Company),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.RequestLogger(withMetrics(a.mux)).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// Documents
	dh := a.documents
	a.mux.HandleFunc("GET /documents", dh.List)
	a.mux.HandleFunc("POST /documents", dh.Create)
	a.mux.HandleFunc("GET /documents/{id}", dh.Get)
	a.mux.HandleFunc("PUT /documents/{id}", dh.Update)
	a.mux.HandleFunc("DELETE /documents/{id}", dh.Delete)
	a.mux.HandleFunc("POST /documents/{id}/status", dh.SetStatus)
	a.mux.HandleFunc("POST /documents/{id}/convert", dh.Convert)
	a.mux.HandleFunc("GET /documents/{id}/snapshot", dh.Snapshot)

	// Stock
	a.mux.HandleFunc("POST /products/{id}/stock", a.stock.Record)
	a.mux.HandleFunc("GET /products/{id}/movements", a.stock.Movements)

	// Clients and company settings
	a.mux.HandleFunc("GET /clients/{id}", a.clients.Get)
	a.mux.HandleFunc("DELETE /clients/{id}", a.clients.Delete)
	a.mux.HandleFunc("POST /clients/{id}/deactivate", a.clients.Deactivate)
	a.mux.HandleFunc("GET /company", a.company.Get)
	a.mux.HandleFunc("PUT /company", a.company.Update)

	// Operations
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	a.mux.HandleFunc("GET /healthz", a.healthz)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "database_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withMetrics records request count and latency per route pattern.
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &httpx.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The mux fills r.Pattern; unmatched paths share one label.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.Status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
