package handlers

import (
	"net/http"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
)

type CompanyHandler struct {
	company *services.CompanyService
}

func NewCompanyHandler(company *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{company: company}
}

// Get returns the company settings, creating defaults on first access.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.company.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update saves the company settings.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.Company
	if !httpx.Decode(w, r, &in) {
		return
	}
	c, err := h.company.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
