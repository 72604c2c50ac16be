package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bitdex/dexnode/internal/dex"
	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
)

// OfferHandler serves the offer book and the local user's offer operations.
type OfferHandler struct {
	db     *dexdb.DB
	proto  *dex.Protocol
	logger *slog.Logger
}

// NewOfferHandler creates an OfferHandler.
func NewOfferHandler(db *dexdb.DB, proto *dex.Protocol, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{db: db, proto: proto, logger: logger.With(slog.String("handler", "offers"))}
}

// ListOffers returns one public book.
// GET /api/offers/{book}
func (h *OfferHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	var (
		offers []domain.Offer
		err    error
	)
	switch pathParam(r, "book") {
	case "sell":
		offers, err = h.db.SellOffers(r.Context())
	case "buy":
		offers, err = h.db.BuyOffers(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown book")
		return
	}
	if err != nil {
		h.logger.Error("list offers", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list offers")
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTOs(offers))
}

// GetOffer returns one offer from a public book.
// GET /api/offers/{book}/{txid}
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	txID, ok := parseTxID(w, r)
	if !ok {
		return
	}

	var (
		offer domain.Offer
		err   error
	)
	switch pathParam(r, "book") {
	case "sell":
		offer, err = h.db.SellOffer(r.Context(), txID)
	case "buy":
		offer, err = h.db.BuyOffer(r.Context(), txID)
	default:
		writeError(w, http.StatusNotFound, "unknown book")
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "offer not found")
			return
		}
		h.logger.Error("get offer", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get offer")
		return
	}
	writeJSON(w, http.StatusOK, toOfferDTO(offer))
}

// ListMyOffers returns every local offer with its lifecycle status.
// GET /api/my/offers
func (h *OfferHandler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.MyOffers(r.Context())
	if err != nil {
		h.logger.Error("list my offers", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list offers")
		return
	}
	out := make([]myOfferDTO, 0, len(list))
	for _, o := range list {
		out = append(out, toMyOfferDTO(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// createOfferRequest is the body of POST /api/my/offers.
type createOfferRequest struct {
	Type             string `json:"type"` // buy | sell
	Country          string `json:"country"`
	Currency         string `json:"currency"`
	PaymentMethod    byte   `json:"payment_method"`
	Price            uint64 `json:"price"`
	MinAmount        uint64 `json:"min_amount"`
	TimeToExpiration uint32 `json:"time_to_expiration"`
	ShortInfo        string `json:"short_info"`
	Details          string `json:"details"`

	// Publish broadcasts the offer immediately; otherwise it stays a draft
	// returned to the caller.
	Publish bool `json:"publish"`
}

// CreateOffer validates a new offer and optionally publishes it.
// POST /api/my/offers
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var typ domain.OfferType
	switch req.Type {
	case "buy":
		typ = domain.OfferTypeBuy
	case "sell":
		typ = domain.OfferTypeSell
	default:
		writeError(w, http.StatusBadRequest, "type must be \"buy\" or \"sell\"")
		return
	}

	my, err := h.proto.CreateOffer(r.Context(), typ, domain.Offer{
		CountryISO:       req.Country,
		CurrencyISO:      req.Currency,
		PaymentMethod:    req.PaymentMethod,
		Price:            req.Price,
		MinAmount:        req.MinAmount,
		TimeToExpiration: req.TimeToExpiration,
		ShortInfo:        req.ShortInfo,
		Details:          req.Details,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOffer) || errors.Is(err, domain.ErrInvalidReference) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create offer", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create offer")
		return
	}

	if req.Publish {
		my, err = h.proto.Publish(r.Context(), my)
		if err != nil {
			if errors.Is(err, domain.ErrBroadcastFailed) {
				writeError(w, http.StatusBadGateway, "broadcast rejected by ledger")
				return
			}
			if errors.Is(err, domain.ErrInsufficientConfs) {
				writeError(w, http.StatusConflict, "no settled funding input")
				return
			}
			h.logger.Error("publish offer", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to publish offer")
			return
		}
	}

	writeJSON(w, http.StatusCreated, toMyOfferDTO(my))
}

// CancelOffer marks a local offer cancelled and withdraws it from the public
// book. Offers already in a terminal state stay untouched.
// DELETE /api/my/offers/{txid}
func (h *OfferHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	txID, ok := parseTxID(w, r)
	if !ok {
		return
	}

	my, err := h.db.MyOffer(r.Context(), txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "offer not found")
			return
		}
		h.logger.Error("cancel offer", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to cancel offer")
		return
	}

	switch my.Status {
	case domain.StatusExpired, domain.StatusCancelled, domain.StatusCompleted:
		writeError(w, http.StatusConflict, "offer is already "+my.Status.String())
		return
	}

	my.Status = domain.StatusCancelled
	h.db.EditMyOffer(my)
	if my.Type == domain.OfferTypeBuy {
		h.db.DeleteBuyOffer(my.TxID)
	} else {
		h.db.DeleteSellOffer(my.TxID)
	}

	h.logger.Info("offer cancelled", slog.String("txid", my.TxID.Hex()))
	writeJSON(w, http.StatusOK, toMyOfferDTO(my))
}

// payRequest is the body of POST /api/payments.
type payRequest struct {
	OfferTxID string `json:"offer_txid"`
}

// PayOffer broadcasts a payment transaction for a published offer.
// POST /api/payments
func (h *OfferHandler) PayOffer(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	offerTxID, err := domain.Hash256FromHex(req.OfferTxID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offer_txid")
		return
	}

	paymentTxID, err := h.proto.PayOffer(r.Context(), offerTxID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientConfs) {
			writeError(w, http.StatusConflict, "insufficient confirmations")
			return
		}
		if errors.Is(err, domain.ErrBroadcastFailed) {
			writeError(w, http.StatusBadGateway, "broadcast rejected by ledger")
			return
		}
		h.logger.Error("pay offer", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to pay offer")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"txid": paymentTxID.Hex()})
}
