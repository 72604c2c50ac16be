// Package handler holds the HTTP API handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/bitdex/dexnode/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// pathParam extracts a named path parameter using Go 1.22+ built-in routing.
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// parseTxID decodes the {txid} path parameter. On failure it writes a 400 and
// reports false.
func parseTxID(w http.ResponseWriter, r *http.Request) (domain.Hash256, bool) {
	txID, err := domain.Hash256FromHex(pathParam(r, "txid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return domain.Hash256{}, false
	}
	return txID, true
}

// offerDTO is the JSON shape of a public offer.
type offerDTO struct {
	TxID             string `json:"txid"`
	Hash             string `json:"hash"`
	Country          string `json:"country"`
	Currency         string `json:"currency"`
	PaymentMethod    byte   `json:"payment_method"`
	Price            uint64 `json:"price"`
	MinAmount        uint64 `json:"min_amount"`
	TimeCreate       int64  `json:"time_create"`
	TimeToExpiration uint32 `json:"time_to_expiration"`
	ShortInfo        string `json:"short_info"`
	Details          string `json:"details,omitempty"`
}

// myOfferDTO extends offerDTO with ownership fields.
type myOfferDTO struct {
	offerDTO
	Type   string `json:"type"`
	Status string `json:"status"`
}

func toOfferDTO(o domain.Offer) offerDTO {
	return offerDTO{
		TxID:             o.TxID.Hex(),
		Hash:             o.Hash.Hex(),
		Country:          o.CountryISO,
		Currency:         o.CurrencyISO,
		PaymentMethod:    o.PaymentMethod,
		Price:            o.Price,
		MinAmount:        o.MinAmount,
		TimeCreate:       o.TimeCreate,
		TimeToExpiration: o.TimeToExpiration,
		ShortInfo:        o.ShortInfo,
		Details:          o.Details,
	}
}

func toMyOfferDTO(o domain.MyOffer) myOfferDTO {
	return myOfferDTO{
		offerDTO: toOfferDTO(o.Offer),
		Type:     o.Type.String(),
		Status:   o.Status.String(),
	}
}

func toOfferDTOs(offers []domain.Offer) []offerDTO {
	out := make([]offerDTO, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferDTO(o))
	}
	return out
}
