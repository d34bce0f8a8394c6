package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message types carried on the sync queue.
const (
	TypeSync   = "sync"
	TypeDelete = "delete"
)

// Message asks the worker to export or remove one purchase. It only carries
// identifiers; the worker reads the current row from the database.
type Message struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(id, ownerID string, version int64) *Message {
	return &Message{
		Type:      TypeSync,
		ID:        id,
		OwnerID:   ownerID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewDeleteMessage(id, ownerID string) *Message {
	return &Message{
		Type:      TypeDelete,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks a queued message.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeSync, TypeDelete:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.ID == "" || msg.OwnerID == "" {
		return nil, errors.New("message id and owner_id are required")
	}
	return &msg, nil
}
