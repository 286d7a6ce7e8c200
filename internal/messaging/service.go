// Package messaging implements the durable chat path: persist first, deliver
// best-effort, mark read on fetch.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zoq/relay/internal/event"
	"github.com/zoq/relay/internal/models"
	"github.com/zoq/relay/internal/store"
)

// Deliverer pushes an event to every live handle of a user and reports how
// many pushes landed. Satisfied by ws.Router.
type Deliverer interface {
	Deliver(userID string, env event.Envelope) int
}

type Service struct {
	store     store.MessageStore
	directory store.Directory
	deliverer Deliverer
	logger    *zap.Logger
}

func NewService(st store.MessageStore, directory store.Directory, deliverer Deliverer, logger *zap.Logger) *Service {
	return &Service{store: st, directory: directory, deliverer: deliverer, logger: logger}
}

// SendMessage persists the message, then notifies any live handles of the
// recipient. Persistence is the durability guarantee: a store failure fails
// the send, while a fully offline recipient does not.
func (s *Service) SendMessage(ctx context.Context, fromUserID, toUserID, content string) (models.Message, error) {
	msg, err := s.store.SaveMessage(ctx, fromUserID, toUserID, content)
	if err != nil {
		return models.Message{}, fmt.Errorf("save message: %w", err)
	}

	if n := s.deliverer.Deliver(toUserID, event.NewMessage(msg)); n == 0 {
		s.logger.Debug("recipient offline, message persisted only",
			zap.String("to_user_id", toUserID))
	}
	return msg, nil
}

// History returns the full exchange with a partner, chronological ascending,
// and marks every unread partner-to-user message as read. Retrieval is the
// read receipt.
func (s *Service) History(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	messages, err := s.store.MessagesBetween(ctx, userID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if err := s.store.MarkRead(ctx, partnerID, userID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return messages, nil
}

// Conversations folds the user's entire message set into one summary per
// partner, ordered by most recent message descending. The unread count is
// whatever is unread at query time; concurrent sends may race it, which is
// acceptable.
func (s *Service) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	messages, err := s.store.MessagesInvolving(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	byPartner := make(map[string]int)
	skipped := make(map[string]bool)
	var out []models.Conversation

	for _, msg := range messages {
		partnerID := msg.ToUserID
		if partnerID == userID {
			partnerID = msg.FromUserID
		}
		if skipped[partnerID] {
			continue
		}

		idx, ok := byPartner[partnerID]
		if !ok {
			partner, err := s.directory.GetUser(ctx, partnerID)
			if errors.Is(err, store.ErrUserNotFound) {
				// A partner the directory no longer knows contributes no
				// summary.
				skipped[partnerID] = true
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("lookup partner %s: %w", partnerID, err)
			}

			// Messages arrive most recent first, so the first one seen per
			// partner carries the summary fields.
			out = append(out, models.Conversation{
				UserID:          partnerID,
				Username:        partner.Username,
				ProfilePic:      partner.ProfilePic,
				LastMessage:     msg.Content,
				LastMessageTime: msg.CreatedAt,
			})
			idx = len(out) - 1
			byPartner[partnerID] = idx
		}

		if msg.ToUserID == userID && !msg.Read {
			out[idx].UnreadCount++
		}
	}

	return out, nil
}
