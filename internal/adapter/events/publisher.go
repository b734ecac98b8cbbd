// internal/adapter/events/publisher.go

package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	TypeUploaded = "uploaded"
	TypeDeleted  = "deleted"
	TypePurged   = "purged"
)

// Publisher sends messages to a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NoopPublisher drops every message
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(string, []byte) error {
	return nil
}

// DatasetEvent is published when a dataset changes
type DatasetEvent struct {
	Event     string    `json:"event"`
	DatasetID string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Time      time.Time `json:"time"`
}

// Subject returns the subject for an event type under a topic
func Subject(topic, eventType string) string {
	return fmt.Sprintf("%s.%s", topic, eventType)
}

// Wildcard returns the subject matching every event under a topic
func Wildcard(topic string) string {
	return topic + ".>"
}

// PublishDataset serializes and publishes a dataset event
func PublishDataset(p Publisher, topic string, e DatasetEvent) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	return p.Publish(Subject(topic, e.Event), data)
}
