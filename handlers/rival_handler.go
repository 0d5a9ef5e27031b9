package handlers

import (
	"errors"
	"log"
	"net/http"

	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

type RivalHandler struct {
	rivalService *services.RivalService
}

func NewRivalHandler(rivalService *services.RivalService) *RivalHandler {
	return &RivalHandler{rivalService: rivalService}
}

func (h *RivalHandler) GetActiveRival(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	resp, err := h.rivalService.Active(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to get active rival for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch rival")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *RivalHandler) GetRivals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	resp, err := h.rivalService.List(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to list rivals for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch rivals")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *RivalHandler) GenerateRival(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	personalityType := r.URL.Query().Get("personality_type")
	if personalityType == "" {
		personalityType = "competitive"
	}

	resp, err := h.rivalService.Generate(r.Context(), userID, personalityType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPersonalityType):
			respondWithError(w, http.StatusBadRequest, "Invalid personality type")
		case errors.Is(err, services.ErrRivalLimitReached):
			respondWithError(w, http.StatusForbidden, "Rival slots full. Upgrade to premium for more rivals!")
		default:
			log.Printf("Failed to generate rival for %s: %v", userID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to generate rival")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}
