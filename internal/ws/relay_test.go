package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zoq/relay/internal/event"
)

func newTestRelay(t *testing.T, directory mapDirectory) (*Relay, *Registry) {
	reg := newTestRegistry()
	router := NewRouter(reg, NewMetrics(prometheus.NewRegistry()), zaptest.NewLogger(t))
	return NewRelay(router, directory, zaptest.NewLogger(t)), reg
}

func TestInviteEnrichesCallerProfile(t *testing.T) {
	relay, reg := newTestRelay(t, mapDirectory{
		"alice": {ID: "alice", Username: "Alice", ProfilePic: "alice.png"},
	})

	callee := newTestClient()
	reg.Register(callee)
	reg.Authenticate(callee, "bob")

	relay.Invite(context.Background(), "alice", event.CallInvite{
		ToUserID: "bob",
		Signal:   json.RawMessage(`{"sdp":"offer"}`),
		CallType: "video",
	})

	frames := drain(callee)
	require.Len(t, frames, 1)

	var env event.Envelope
	require.NoError(t, json.Unmarshal(frames[0], &env))
	assert.Equal(t, event.TypeIncomingCall, env.Type)

	var data struct {
		FromUserID     string          `json:"from_user_id"`
		FromUsername   string          `json:"from_username"`
		FromProfilePic string          `json:"from_profile_pic"`
		Signal         json.RawMessage `json:"signal"`
		CallType       string          `json:"call_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "alice", data.FromUserID)
	assert.Equal(t, "Alice", data.FromUsername)
	assert.Equal(t, "alice.png", data.FromProfilePic)
	assert.Equal(t, "video", data.CallType)
	assert.JSONEq(t, `{"sdp":"offer"}`, string(data.Signal))
}

func TestInviteToOfflineCalleeIsNotQueued(t *testing.T) {
	relay, reg := newTestRelay(t, mapDirectory{
		"alice": {ID: "alice", Username: "Alice"},
	})

	relay.Invite(context.Background(), "alice", event.CallInvite{
		ToUserID: "bob",
		Signal:   json.RawMessage(`{}`),
		CallType: "audio",
	})

	// Bob connects afterwards: the invite must not be replayed.
	callee := newTestClient()
	reg.Register(callee)
	reg.Authenticate(callee, "bob")
	assert.Empty(t, drain(callee))
}

func TestInviteFromUnknownCallerIsDropped(t *testing.T) {
	relay, reg := newTestRelay(t, mapDirectory{})

	callee := newTestClient()
	reg.Register(callee)
	reg.Authenticate(callee, "bob")

	relay.Invite(context.Background(), "ghost", event.CallInvite{ToUserID: "bob"})
	assert.Empty(t, drain(callee))
}

func TestAcceptAndCandidateForwardVerbatim(t *testing.T) {
	relay, reg := newTestRelay(t, mapDirectory{})

	caller := newTestClient()
	reg.Register(caller)
	reg.Authenticate(caller, "alice")

	relay.Accept(event.CallAccept{ToUserID: "alice", Signal: json.RawMessage(`{"sdp":"answer"}`)})
	relay.Candidate(event.ICECandidate{ToUserID: "alice", Candidate: json.RawMessage(`{"candidate":"udp 1"}`)})

	frames := drain(caller)
	require.Len(t, frames, 2)

	var accepted event.Envelope
	require.NoError(t, json.Unmarshal(frames[0], &accepted))
	assert.Equal(t, event.TypeCallAccepted, accepted.Type)
	assert.JSONEq(t, `{"signal":{"sdp":"answer"}}`, string(accepted.Data))

	var cand event.Envelope
	require.NoError(t, json.Unmarshal(frames[1], &cand))
	assert.Equal(t, event.TypeICECandidate, cand.Type)
	assert.JSONEq(t, `{"candidate":{"candidate":"udp 1"}}`, string(cand.Data))
}
