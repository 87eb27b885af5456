// Package events publishes kiosk notifications for staff systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Topics
const (
	TopicFeedbackSubmitted = "kiosk.feedback.submitted"
	TopicFeedbackEscalated = "kiosk.feedback.escalated"
	TopicSessionReset      = "kiosk.session.reset"
)

// Notification is the JSON body of every published message
type Notification struct {
	DeviceID  string    `json:"device_id"`
	SessionID string    `json:"session_id,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	TableID   string    `json:"table_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Failures  int       `json:"failures,omitempty"`
	Rating    int       `json:"overall_rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends raw messages to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
	Close() error
}

// PublishJSON marshals n and publishes it on topic
func PublishJSON(ctx context.Context, p Publisher, topic string, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, body)
}

// NATSPublisher publishes to a NATS server
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url
func NewNATSPublisher(url string, name string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NopPublisher drops every message. Used when no NATS server is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, msg []byte) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

// Message is a message captured by a RecordingPublisher
type Message struct {
	Topic string
	Data  []byte
}

// RecordingPublisher keeps published messages in memory (for testing)
type RecordingPublisher struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (p *RecordingPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, Message{Topic: topic, Data: append([]byte(nil), msg...)})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Messages returns a copy of the recorded messages
func (p *RecordingPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Topics returns the topics of the recorded messages in order
func (p *RecordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.messages))
	for i, m := range p.messages {
		topics[i] = m.Topic
	}
	return topics
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NopPublisher{}
	_ Publisher = (*RecordingPublisher)(nil)
)
