package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/config"
	"github.com/diewo77/go-facture/internal/db"
	"github.com/diewo77/go-facture/internal/dialect"
	"github.com/diewo77/go-facture/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dbConn, err := gorm.Open(dialect.SQLite("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := dbConn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(dbConn))
	require.NoError(t, db.Seed(dbConn, db.DefaultSeedOptions()))

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	billing := config.BillingConfig{InvoicePrefix: "FAC", QuotePrefix: "DEV", PaymentTermDays: 30, DefaultVATRate: "20"}
	opts, err := seedOptions(billing)
	require.NoError(t, err)
	return NewApp(dbConn, newServices(dbConn, billing, opts.DefaultVATRate), reg)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpx.RequestIDHeader))
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "facture_http_requests_total"), "missing request counter")
	assert.Contains(t, body, `path="GET /documents/{id}"`)
}

func TestSeedOptions_InvalidVAT(t *testing.T) {
	_, err := seedOptions(config.BillingConfig{DefaultVATRate: "twenty"})
	assert.Error(t, err)
}
