package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bitdex/dexnode/internal/dexdb"
)

// CatalogHandler serves the reference catalogs and the offer filter list.
type CatalogHandler struct {
	db     *dexdb.DB
	logger *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(db *dexdb.DB, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{db: db, logger: logger.With(slog.String("handler", "catalog"))}
}

type countryDTO struct {
	ISO        string `json:"iso"`
	Name       string `json:"name"`
	CurrencyID int64  `json:"currency_id"`
	Enabled    bool   `json:"enabled"`
	SortOrder  int    `json:"sort_order"`
}

type currencyDTO struct {
	ID        int64  `json:"id"`
	ISO       string `json:"iso"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Enabled   bool   `json:"enabled"`
	SortOrder int    `json:"sort_order"`
}

type paymentMethodDTO struct {
	Type        byte   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// ListCountries returns the country catalog in display order.
// GET /api/catalog/countries
func (h *CatalogHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.Countries(r.Context())
	if err != nil {
		h.logger.Error("list countries", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list countries")
		return
	}
	out := make([]countryDTO, 0, len(list))
	for _, c := range list {
		out = append(out, countryDTO{
			ISO:        c.ISO,
			Name:       c.Name,
			CurrencyID: c.CurrencyID,
			Enabled:    c.Enabled,
			SortOrder:  c.SortOrder,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListCurrencies returns the currency catalog in display order.
// GET /api/catalog/currencies
func (h *CatalogHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.Currencies(r.Context())
	if err != nil {
		h.logger.Error("list currencies", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list currencies")
		return
	}
	out := make([]currencyDTO, 0, len(list))
	for _, c := range list {
		out = append(out, currencyDTO{
			ID:        c.ID,
			ISO:       c.ISO,
			Name:      c.Name,
			Symbol:    c.Symbol,
			Enabled:   c.Enabled,
			SortOrder: c.SortOrder,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListPaymentMethods returns the payment method catalog in display order.
// GET /api/catalog/payment-methods
func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.PaymentMethods(r.Context())
	if err != nil {
		h.logger.Error("list payment methods", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list payment methods")
		return
	}
	out := make([]paymentMethodDTO, 0, len(list))
	for _, pm := range list {
		out = append(out, paymentMethodDTO{
			Type:        pm.Type,
			Name:        pm.Name,
			Description: pm.Description,
			SortOrder:   pm.SortOrder,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListFilters returns the saved offer text filters.
// GET /api/filters
func (h *CatalogHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.Filters(r.Context())
	if err != nil {
		h.logger.Error("list filters", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list filters")
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, list)
}

type filterRequest struct {
	Filter string `json:"filter"`
}

// AddFilter saves a new offer text filter.
// POST /api/filters
func (h *CatalogHandler) AddFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filter == "" {
		writeError(w, http.StatusBadRequest, "filter must not be empty")
		return
	}
	h.db.AddFilter(req.Filter)
	writeJSON(w, http.StatusAccepted, map[string]string{"filter": req.Filter})
}

// DeleteFilter removes a saved offer text filter.
// DELETE /api/filters
func (h *CatalogHandler) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filter == "" {
		writeError(w, http.StatusBadRequest, "filter must not be empty")
		return
	}
	h.db.DeleteFilter(req.Filter)
	w.WriteHeader(http.StatusNoContent)
}
