package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is the wire envelope: an action discriminator plus an optional
// action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Actions a client may send.
const (
	ActionIdentifyRequest = "identify:request"
	ActionPlayersRequest  = "players:request"
	ActionWhoAmIRequest   = "whoami:request"
	ActionMoveRequest     = "move:request"
	ActionConcedeRequest  = "concede:request"
)

// Actions the server sends.
const (
	ActionIdentifyResponse = "identify:response"
	ActionRoomEntered      = "room:entered"
	ActionPlayersResponse  = "players:response"
	ActionWhoAmIResponse   = "whoami:response"
	ActionMoveResult       = "move:result"
	ActionWinner           = "match:winner"
	ActionLobbyNotice      = "lobby:notice"
	ActionHeartbeatProbe   = "heartbeat:probe"
)

// New builds a message for an action, marshaling the payload. A nil payload
// produces a bare action envelope.
func New(action string, payload any) (*Message, error) {
	msg := &Message{Action: action}

	if payload == nil {
		return msg, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", action, err)
	}

	msg.Payload = raw

	return msg, nil
}

// MustNew is New for payloads that cannot fail to marshal.
func MustNew(action string, payload any) *Message {
	msg, err := New(action, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Decode unmarshals the payload into v.
func (that *Message) Decode(v any) error {
	if err := json.Unmarshal(that.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", that.Action, err)
	}
	return nil
}
