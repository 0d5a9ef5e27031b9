package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rivalQuestAPI/internal/payment"
	"rivalQuestAPI/internal/paystack"
	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

type PaymentHandler struct {
	paymentService      *services.PaymentService
	subscriptionService *services.SubscriptionService
	questService        *services.QuestService
}

func NewPaymentHandler(paymentService *services.PaymentService, subscriptionService *services.SubscriptionService, questService *services.QuestService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:      paymentService,
		subscriptionService: subscriptionService,
		questService:        questService,
	}
}

func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req payment.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.paymentService.Initialize(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPlan):
			respondWithError(w, http.StatusBadRequest, "Invalid plan. Choose 'monthly' or 'annual'")
		case errors.Is(err, paystack.ErrUnavailable):
			log.Printf("Paystack unavailable initializing payment for %s: %v", userID, err)
			respondWithError(w, http.StatusServiceUnavailable, "Payment provider is unavailable. Please try again.")
		default:
			log.Printf("Failed to initialize payment for %s: %v", userID, err)
			respondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// VerifyPayment reconciles a reference on behalf of the paying client. The
// webhook may already have won the race; the client still gets the settled
// result.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	reference := mux.Vars(r)["reference"]
	if reference == "" {
		respondWithError(w, http.StatusBadRequest, "Payment reference is required")
		return
	}

	// Ownership gate before touching the gateway. Foreign references 404.
	if _, err := h.paymentService.PaymentByReference(r.Context(), userID, reference); err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			respondWithError(w, http.StatusNotFound, "Payment not found")
			return
		}
		log.Printf("Failed to load payment %s for %s: %v", reference, userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to verify payment")
		return
	}

	result, err := h.paymentService.Reconcile(r.Context(), reference, false)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			respondWithError(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, services.ErrPaymentConflict):
			// Terminal local state disagrees with the gateway; needs a human.
			respondWithError(w, http.StatusInternalServerError, "Payment state inconsistency")
		case errors.Is(err, paystack.ErrUnavailable):
			log.Printf("Paystack unavailable verifying %s: %v", reference, err)
			respondWithError(w, http.StatusServiceUnavailable, "Payment provider is unavailable. Please try again.")
		default:
			log.Printf("Failed to reconcile %s: %v", reference, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to verify payment")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) GetSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	status, err := h.subscriptionService.Status(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get subscription status for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get subscription status")
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

func (h *PaymentHandler) GetQuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	status, err := h.questService.QuotaStatus(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get quota status for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get quota status")
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
