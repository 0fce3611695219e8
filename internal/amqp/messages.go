package amqp

import (
	"encoding/json"
	"time"

	"expenses/internal/core"

	"github.com/google/uuid"
)

// TagsChangedMessage announces an applied batch tag edit. Consumers
// recompute whatever depends on tags; the ids are informational.
type TagsChangedMessage struct {
	EventID   string    `json:"event_id"`
	IDs       []string  `json:"ids"`
	Op        string    `json:"op"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTagsChangedMessage creates a message with a fresh event id.
func NewTagsChangedMessage(edit core.TagEdit) *TagsChangedMessage {
	edit = edit.Normalized()
	return &TagsChangedMessage{
		EventID:   uuid.NewString(),
		IDs:       edit.IDs,
		Op:        string(edit.Op),
		Tags:      edit.Tags,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TagsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TagsChangedMessageFromJSON parses a delivery body.
func TagsChangedMessageFromJSON(data []byte) (*TagsChangedMessage, error) {
	var msg TagsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
