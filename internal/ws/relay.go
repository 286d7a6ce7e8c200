package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/zoq/relay/internal/event"
	"github.com/zoq/relay/internal/store"
)

// Relay forwards call-negotiation events between two peers. It holds no
// per-call state: every event is routed by its recipient id and dropped on
// the floor if the recipient is offline. Clients infer the call state from
// the event sequence.
type Relay struct {
	router    *Router
	directory store.Directory
	logger    *zap.Logger
}

func NewRelay(router *Router, directory store.Directory, logger *zap.Logger) *Relay {
	return &Relay{router: router, directory: directory, logger: logger}
}

// Invite forwards a call invite to all of the callee's live handles, enriched
// with the caller's public profile. An offline callee or unknown caller means
// the invite vanishes; the caller learns nothing, which matches the
// fire-and-forget contract.
func (r *Relay) Invite(ctx context.Context, fromUserID string, p event.CallInvite) {
	caller, err := r.directory.GetUser(ctx, fromUserID)
	if err != nil {
		r.logger.Warn("call invite from unknown caller",
			zap.String("from_user_id", fromUserID), zap.Error(err))
		return
	}

	if n := r.router.Deliver(p.ToUserID, event.IncomingCall(*caller, p.Signal, p.CallType)); n == 0 {
		r.logger.Debug("callee offline, invite dropped",
			zap.String("to_user_id", p.ToUserID))
	}
}

// Accept forwards the acceptance payload back to the caller, unenriched.
func (r *Relay) Accept(p event.CallAccept) {
	r.router.Deliver(p.ToUserID, event.CallAccepted(p.Signal))
}

// Candidate forwards an ICE candidate verbatim. Candidates carry no ordering
// guarantee relative to each other.
func (r *Relay) Candidate(p event.ICECandidate) {
	r.router.Deliver(p.ToUserID, event.Candidate(p.Candidate))
}
