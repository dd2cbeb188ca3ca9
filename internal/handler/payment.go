package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/valelectronic/DERA-PROJECT/internal/middleware"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
	"github.com/valelectronic/DERA-PROJECT/internal/service"
)

type checkoutProduct struct {
	ID       int64 `json:"_id"`
	Quantity int   `json:"quantity"`
}

type checkoutRequest struct {
	Products   []checkoutProduct `json:"products"`
	CouponCode string            `json:"couponCode"`
}

type checkoutResponse struct {
	PaymentLink string `json:"paymentLink"`
}

// CreateCheckoutSession создаёт платёжную сессию и возвращает ссылку на оплату.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("checkout user lookup error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, service.CheckoutItem{
			ProductID: p.ID,
			Quantity:  p.Quantity,
		})
	}

	link, err := h.service.CreateCheckoutSession(r.Context(), user, items, req.CouponCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCheckout), errors.Is(err, service.ErrInvalidQuantity):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrProductNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("create checkout session error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{PaymentLink: link})
}

// Webhook принимает событие платёжного шлюза. Подпись проверяется
// по сырому телу запроса до разбора JSON.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(paystack.SignatureHeader)
	if !h.verifier.VerifySignature(body, signature) {
		h.logger.Warn("webhook signature mismatch")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), event); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("process webhook error", zap.Error(err), zap.String("event", event.Event))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
