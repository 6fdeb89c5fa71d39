package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"github.com/shopspring/decimal"
)

const defaultMovementLimit = 50

type stockRequest struct {
	Kind     models.MovementKind `json:"kind"`
	Quantity decimal.Decimal     `json:"quantity"`
	Comment  string              `json:"comment"`
}

type stockResponse struct {
	Movement *models.StockMovement `json:"movement"`
	Warnings []string              `json:"warnings,omitempty"`
}

type StockHandler struct {
	stock *services.StockLedger
}

func NewStockHandler(stock *services.StockLedger) *StockHandler {
	return &StockHandler{stock: stock}
}

// Record handles POST /products/{id}/stock.
func (h *StockHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req stockRequest
	if !httpx.Decode(w, r, &req) {
		return
	}

	var resp stockResponse
	err := services.Retry(r.Context(), retryAttempts, func() error {
		m, warnings, err := h.stock.Record(r.Context(), services.RecordInput{
			ProductID: id,
			Kind:      req.Kind,
			Quantity:  req.Quantity,
			Comment:   req.Comment,
		})
		resp = stockResponse{Movement: m, Warnings: warnings}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

// Movements handles GET /products/{id}/movements?limit=.
func (h *StockHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	limit := defaultMovementLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	movements, err := h.stock.Movements(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}
