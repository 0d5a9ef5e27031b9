package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"rivalQuestAPI/internal/paystack"
	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

// WebhookHandler receives Paystack event deliveries. The signature check runs
// against the raw body before any parsing; an unverifiable delivery is
// rejected, never processed.
type WebhookHandler struct {
	paymentService *services.PaymentService
	paystackSecret string
}

func NewWebhookHandler(paymentService *services.PaymentService, paystackSecret string) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		paystackSecret: paystackSecret,
	}
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func (h *WebhookHandler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		middleware.CountWebhookEvent("malformed")
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	signature := r.Header.Get("x-paystack-signature")
	if !paystack.VerifySignature(h.paystackSecret, body, signature) {
		middleware.CountWebhookEvent("bad_signature")
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		middleware.CountWebhookEvent("malformed")
		respondWithError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	switch event.Event {
	case "charge.success":
		if event.Data.Reference == "" {
			middleware.CountWebhookEvent("malformed")
			respondWithError(w, http.StatusBadRequest, "Event missing reference")
			return
		}

		result, err := h.paymentService.Reconcile(r.Context(), event.Data.Reference, true)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrPaymentNotFound):
				// A reference we never issued. Acknowledge so Paystack stops
				// retrying, but record it.
				log.Printf("Webhook for unknown reference %s", event.Data.Reference)
				middleware.CountWebhookEvent("unknown_reference")
			case errors.Is(err, services.ErrPaymentConflict):
				log.Printf("Webhook conflict for %s: %v", event.Data.Reference, err)
				middleware.CountWebhookEvent("conflict")
			default:
				// Transient failure: non-2xx makes Paystack redeliver.
				log.Printf("Webhook reconcile failed for %s: %v", event.Data.Reference, err)
				middleware.CountWebhookEvent("error")
				respondWithError(w, http.StatusInternalServerError, "Failed to process event")
				return
			}
		} else {
			if result.AlreadyReconciled {
				middleware.CountWebhookEvent("duplicate")
			} else {
				middleware.CountWebhookEvent("ok")
			}
		}
	default:
		middleware.CountWebhookEvent("ignored")
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
