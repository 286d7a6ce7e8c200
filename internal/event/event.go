// Package event defines the framed protocol spoken over the relay socket.
// The inbound side is a closed set of variants: adding an event kind means
// adding a type here and a case to every switch, which is the point.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zoq/relay/internal/models"
)

type Type string

// Inbound event kinds.
const (
	TypeAuthenticate Type = "authenticate"
	TypeSendMessage  Type = "send_message"
	TypeCallInvite   Type = "call_invite"
	TypeCallAccept   Type = "call_accept"
	TypeICECandidate Type = "ice_candidate"
)

// Outbound event kinds. ice_candidate is shared with the inbound set: the
// relay forwards candidates under the same name it receives them.
const (
	TypeAuthenticated Type = "authenticated"
	TypeAuthError     Type = "auth_error"
	TypeSendError     Type = "send_error"
	TypeNewMessage    Type = "new_message"
	TypeIncomingCall  Type = "incoming_call"
	TypeCallAccepted  Type = "call_accepted"
)

// Envelope is the frame on the wire.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

var ErrUnknownType = errors.New("unknown event type")

// Inbound is the closed variant set a client may send.
type Inbound interface{ inbound() }

type Authenticate struct {
	Credential string `json:"credential"`
}

type SendMessage struct {
	ToUserID string `json:"to_user_id"`
	Content  string `json:"content"`
}

type CallInvite struct {
	ToUserID string          `json:"to_user_id"`
	Signal   json.RawMessage `json:"signal"`
	CallType string          `json:"call_type"`
}

type CallAccept struct {
	ToUserID string          `json:"to_user_id"`
	Signal   json.RawMessage `json:"signal"`
}

type ICECandidate struct {
	ToUserID  string          `json:"to_user_id"`
	Candidate json.RawMessage `json:"candidate"`
}

func (Authenticate) inbound() {}
func (SendMessage) inbound()  {}
func (CallInvite) inbound()   {}
func (CallAccept) inbound()   {}
func (ICECandidate) inbound() {}

// DecodeInbound parses a raw frame into one of the inbound variants.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeAuthenticate:
		var p Authenticate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeSendMessage:
		var p SendMessage
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeCallInvite:
		var p CallInvite
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeCallAccept:
		var p CallAccept
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeICECandidate:
		var p ICECandidate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func envelope(t Type, v interface{}) Envelope {
	data, _ := json.Marshal(v)
	return Envelope{Type: t, Data: data}
}

func Authenticated(userID string) Envelope {
	return envelope(TypeAuthenticated, map[string]string{"user_id": userID})
}

func AuthError(message string) Envelope {
	return envelope(TypeAuthError, map[string]string{"message": message})
}

func SendError(message string) Envelope {
	return envelope(TypeSendError, map[string]string{"message": message})
}

func NewMessage(msg models.Message) Envelope {
	return envelope(TypeNewMessage, msg)
}

// IncomingCall carries the caller's public profile so the callee can render
// the ring screen without a directory round trip.
func IncomingCall(from models.User, signal json.RawMessage, callType string) Envelope {
	return envelope(TypeIncomingCall, struct {
		FromUserID     string          `json:"from_user_id"`
		FromUsername   string          `json:"from_username"`
		FromProfilePic string          `json:"from_profile_pic,omitempty"`
		Signal         json.RawMessage `json:"signal"`
		CallType       string          `json:"call_type"`
	}{from.ID, from.Username, from.ProfilePic, signal, callType})
}

func CallAccepted(signal json.RawMessage) Envelope {
	return envelope(TypeCallAccepted, struct {
		Signal json.RawMessage `json:"signal"`
	}{signal})
}

func Candidate(candidate json.RawMessage) Envelope {
	return envelope(TypeICECandidate, struct {
		Candidate json.RawMessage `json:"candidate"`
	}{candidate})
}
