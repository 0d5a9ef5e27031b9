package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rivalQuestAPI/internal/quest"
	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

type QuestHandler struct {
	questService *services.QuestService
}

func NewQuestHandler(questService *services.QuestService) *QuestHandler {
	return &QuestHandler{questService: questService}
}

func (h *QuestHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req quest.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q, err := h.questService.Create(r.Context(), userID, req.Title)
	if err != nil {
		if errors.Is(err, services.ErrEmptyTitle) {
			respondWithError(w, http.StatusBadRequest, "Quest title cannot be empty")
			return
		}
		log.Printf("Failed to create quest for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create quest")
		return
	}

	respondWithJSON(w, http.StatusCreated, quest.CreateResponse{
		Quest:   q,
		Message: "Quest created! Time to prove yourself.",
	})
}

func (h *QuestHandler) GetQuests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	resp, err := h.questService.List(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to list quests for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch quests")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *QuestHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req quest.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.QuestID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	resp, err := h.questService.CompleteToday(r.Context(), userID, req.QuestID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestNotFound):
			respondWithError(w, http.StatusNotFound, "Quest not found")
		case errors.Is(err, services.ErrAlreadyCompletedToday):
			respondWithError(w, http.StatusConflict, "Quest already completed today")
		case errors.Is(err, services.ErrQuotaExceeded):
			respondWithError(w, http.StatusForbidden, "Daily completion limit reached. Upgrade to premium for unlimited completions!")
		default:
			log.Printf("Failed to complete quest %d for %s: %v", req.QuestID, userID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to complete quest")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *QuestHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	if err := h.questService.Delete(r.Context(), userID, questID); err != nil {
		if errors.Is(err, services.ErrQuestNotFound) {
			respondWithError(w, http.StatusNotFound, "Quest not found")
			return
		}
		log.Printf("Failed to delete quest %d for %s: %v", questID, userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete quest")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Quest deleted"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
