package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap/zaptest"

	"github.com/zoq/relay/internal/auth"
	"github.com/zoq/relay/internal/event"
	"github.com/zoq/relay/internal/messaging"
	"github.com/zoq/relay/internal/middleware"
	"github.com/zoq/relay/internal/models"
	"github.com/zoq/relay/internal/store/sqlstore"
)

type noopDeliverer struct{}

func (noopDeliverer) Deliver(string, event.Envelope) int { return 0 }

func newTestServer(t *testing.T) (*mux.Router, *sqlstore.SQLStore, *auth.HMACVerifier) {
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	verifier := auth.NewHMACVerifier([]byte("test-secret"))
	svc := messaging.NewService(st, st, noopDeliverer{}, zaptest.NewLogger(t))
	handler := &MessageHandler{Service: svc}

	r := mux.NewRouter()
	api := r.PathPrefix("/messages").Subrouter()
	api.Use(middleware.Auth(verifier))
	api.HandleFunc("/conversations", handler.GetConversations).Methods("GET")
	api.HandleFunc("/{user_id}", handler.GetHistory).Methods("GET")

	return r, st, verifier
}

func bearer(t *testing.T, verifier *auth.HMACVerifier, userID string) string {
	t.Helper()
	token, err := verifier.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func TestGetHistoryMarksRead(t *testing.T) {
	r, st, verifier := newTestServer(t)
	ctx := context.Background()

	st.SaveMessage(ctx, "alice", "bob", "hi bob")

	req := httptest.NewRequest("GET", "/messages/alice", nil)
	req.Header.Set("Authorization", bearer(t, verifier, "bob"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var messages []models.Message
	if err := json.NewDecoder(rr.Body).Decode(&messages); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Content != "hi bob" {
		t.Errorf("expected content 'hi bob', got '%s'", messages[0].Content)
	}

	// The fetch above is bob's read receipt.
	stored, _ := st.MessagesBetween(ctx, "alice", "bob")
	if !stored[0].Read {
		t.Error("expected message to be marked read after bob's fetch")
	}
}

func TestGetHistoryRequiresAuth(t *testing.T) {
	r, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/messages/alice", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestGetConversations(t *testing.T) {
	r, st, verifier := newTestServer(t)
	ctx := context.Background()

	st.CreateUser(ctx, &models.User{ID: "alice", Username: "Alice"})
	st.SaveMessage(ctx, "alice", "bob", "hello")

	req := httptest.NewRequest("GET", "/messages/conversations", nil)
	req.Header.Set("Authorization", bearer(t, verifier, "bob"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var conversations []models.Conversation
	if err := json.NewDecoder(rr.Body).Decode(&conversations); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations))
	}
	if conversations[0].UserID != "alice" || conversations[0].UnreadCount != 1 {
		t.Errorf("unexpected conversation: %+v", conversations[0])
	}
}

func TestGetConversationsEmptyIsJSONArray(t *testing.T) {
	r, _, verifier := newTestServer(t)

	req := httptest.NewRequest("GET", "/messages/conversations", nil)
	req.Header.Set("Authorization", bearer(t, verifier, "loner"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}
