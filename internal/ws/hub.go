package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoq/relay/internal/event"
	"github.com/zoq/relay/internal/messaging"
)

// Hub serves the socket endpoint and dispatches inbound frames to the chat
// and signaling paths. The only event an unauthenticated connection may send
// is authenticate; everything else from it is dropped without a reply.
type Hub struct {
	registry *Registry
	relay    *Relay
	messages *messaging.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHub(registry *Registry, relay *Relay, messages *messaging.Service, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		relay:    relay,
		messages: messages,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and registers the connection. The caller is
// anonymous until an authenticate event succeeds.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn)
	h.registry.Register(c)

	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) handleFrame(c *Client, raw []byte) {
	in, err := event.DecodeInbound(raw)
	if err != nil {
		h.logger.Debug("dropping undecodable frame", zap.Error(err))
		return
	}

	if p, ok := in.(event.Authenticate); ok {
		h.handleAuthenticate(c, p)
		return
	}

	fromUserID, ok := h.registry.UserID(c)
	if !ok {
		// Silently dropped: unauthenticated connections get no error reply.
		return
	}

	ctx := context.Background()
	switch p := in.(type) {
	case event.SendMessage:
		if _, err := h.messages.SendMessage(ctx, fromUserID, p.ToUserID, p.Content); err != nil {
			h.logger.Error("send message failed",
				zap.String("from_user_id", fromUserID),
				zap.String("to_user_id", p.ToUserID),
				zap.Error(err))
			h.reply(c, event.SendError("message could not be saved"))
		}
	case event.CallInvite:
		h.relay.Invite(ctx, fromUserID, p)
	case event.CallAccept:
		h.relay.Accept(p)
	case event.ICECandidate:
		h.relay.Candidate(p)
	}
}

func (h *Hub) handleAuthenticate(c *Client, p event.Authenticate) {
	userID, err := h.registry.Authenticate(c, p.Credential)
	if err != nil {
		h.reply(c, event.AuthError("authentication failed"))
		return
	}
	h.logger.Info("connection authenticated", zap.String("user_id", userID))
	h.reply(c, event.Authenticated(userID))
}

// reply pushes an event to a single handle.
func (h *Hub) reply(c *Client, env event.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		h.logger.Error("encode reply", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}
	c.TrySend(payload)
}
