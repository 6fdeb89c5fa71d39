package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"github.com/diewo77/go-facture/validation"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type documentRequest struct {
	ClientID     uint                 `json:"client_id"`
	IssueDate    string               `json:"issue_date"`
	DueDate      string               `json:"due_date"`
	Discount     decimal.Decimal      `json:"discount"`
	DiscountKind string               `json:"discount_kind"`
	Notes        string               `json:"notes"`
	PaymentTerms string               `json:"payment_terms"`
	Lines        []services.LineInput `json:"lines"`
}

type createRequest struct {
	Kind   models.DocumentKind   `json:"kind"`
	Status models.DocumentStatus `json:"status"`
	documentRequest
}

type statusRequest struct {
	Status models.DocumentStatus `json:"status"`
}

// toInput parses dates; an empty issue date is left zero so the service picks today.
func (req documentRequest) toInput() (services.DocumentInput, validation.Violations) {
	v := validation.Violations{}
	in := services.DocumentInput{
		ClientID:     req.ClientID,
		Discount:     req.Discount,
		DiscountKind: req.DiscountKind,
		Notes:        req.Notes,
		PaymentTerms: req.PaymentTerms,
		Lines:        req.Lines,
	}
	if req.IssueDate != "" {
		t, err := time.Parse(dateLayout, req.IssueDate)
		if err != nil {
			v["issue_date"] = "invalid_date"
		}
		in.IssueDate = t
	}
	if req.DueDate != "" {
		t, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			v["due_date"] = "invalid_date"
		}
		in.DueDate = &t
	}
	return in, v
}

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// List handles GET /documents?kind=&status=&client_id=.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.ListFilter{
		Kind:   models.DocumentKind(q.Get("kind")),
		Status: models.DocumentStatus(q.Get("status")),
	}
	if c := q.Get("client_id"); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_client_id", nil)
			return
		}
		f.ClientID = uint(id)
	}
	docs, err := h.docs.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

// Create handles POST /documents.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	in, v := req.toInput()
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var doc *models.Document
	err := services.Retry(r.Context(), retryAttempts, func() error {
		var err error
		doc, err = h.docs.Create(r.Context(), services.CreateInput{Kind: req.Kind, Status: req.Status, DocumentInput: in})
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

// Get handles GET /documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Update handles PUT /documents/{id}. The body replaces every editable field and all lines.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req documentRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	in, v := req.toInput()
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var doc *models.Document
	err := services.Retry(r.Context(), retryAttempts, func() error {
		var err error
		doc, err = h.docs.Edit(r.Context(), id, in)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.docs.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus handles POST /documents/{id}/status.
func (h *DocumentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req statusRequest
	if !httpx.Decode(w, r, &req) {
		return
	}

	var doc *models.Document
	err := services.Retry(r.Context(), retryAttempts, func() error {
		var err error
		doc, err = h.docs.SetStatus(r.Context(), id, req.Status)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Convert handles POST /documents/{id}/convert and returns the new invoice.
func (h *DocumentHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var invoice *models.Document
	err := services.Retry(r.Context(), retryAttempts, func() error {
		var err error
		invoice, err = h.docs.ConvertQuoteToInvoice(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// Snapshot handles GET /documents/{id}/snapshot.
func (h *DocumentHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	snap, err := h.docs.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
