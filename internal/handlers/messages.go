package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zoq/relay/internal/messaging"
	"github.com/zoq/relay/internal/middleware"
	"github.com/zoq/relay/internal/models"
)

// MessageHandler exposes the read side of the chat path over HTTP. Writes
// stay on the socket.
type MessageHandler struct {
	Service *messaging.Service
}

func (h *MessageHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := h.Service.Conversations(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversations)
}

// GetHistory returns the exchange with one partner, oldest first. Fetching it
// marks the partner's unread messages as read.
func (h *MessageHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	partnerID := mux.Vars(r)["user_id"]

	messages, err := h.Service.History(r.Context(), userID, partnerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
