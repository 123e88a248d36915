// Package events publishes lead lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/database/models"
	skafka "github.com/segmentio/kafka-go"
)

const (
	LeadCreated  = "lead.created"
	LeadClaimed  = "lead.claimed"
	LeadAssigned = "lead.assigned"
	LeadMoved    = "lead.moved"
	LeadDeleted  = "lead.deleted"
	LeadRestored = "lead.restored"
	LeadPurged   = "lead.purged"
)

type Event struct {
	ID         uuid.UUID            `json:"id"`
	Type       string               `json:"type"`
	TenantID   uuid.UUID            `json:"tenant_id"`
	LeadID     uuid.UUID            `json:"lead_id"`
	ActorID    uuid.UUID            `json:"actor_id"`
	ActorType  models.PrincipalType `json:"actor_type"`
	OccurredAt time.Time            `json:"occurred_at"`
	Data       map[string]any       `json:"data,omitempty"`
}

// Publisher is the interface used by services to publish events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Writer defines the subset of kafka.Writer we need.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish keys messages by lead so a lead's events stay ordered in one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := skafka.Message{
		Key:   []byte(e.LeadID.String()),
		Value: b,
		Headers: []skafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "tenant_id", Value: []byte(e.TenantID.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// New returns a Kafka publisher when brokers are configured, Noop otherwise.
func New(brokers []string, topic string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info("kafka brokers not configured, lead events disabled")
		return Noop{}
	}
	return NewKafkaPublisher(brokers, topic)
}
