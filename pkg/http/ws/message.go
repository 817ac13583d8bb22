package ws

import "encoding/json"

// MessageType constants for the feed protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeQuestionPublished = "question_published"
	TypePong              = "pong"
	TypeError             = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// QuestionPublishedPayload announces a newly published version.
type QuestionPublishedPayload struct {
	QuestionID  string `json:"question_id"`
	VersionID   string `json:"version_id"`
	PublishedAt string `json:"published_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}
