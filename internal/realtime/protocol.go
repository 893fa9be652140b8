package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names shared by the Socket.IO relay, the /ws endpoint and Go clients.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventTyping         = "typing"
	EventUserTyping     = "userTyping"
	EventError          = "error"
)

// Envelope frames one event on the plain WebSocket transport.
// Socket.IO does its own framing and never sees this type.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}

type JoinRoom struct {
	ChatID string `json:"chatId"`
}

type SendMessage struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
	ClientID string `json:"clientId,omitempty"`
	Sender   string `json:"sender,omitempty"`
}

// ReceiveMessage is message-shaped so clients can append it as-is.
type ReceiveMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Message   string    `json:"message"`
	ClientID  string    `json:"clientId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Typing struct {
	ChatID string `json:"chatId"`
}

type UserTyping struct {
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
