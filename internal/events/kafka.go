package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Envelope is the wire format written to Kafka.
type Envelope struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	EventVersion int       `json:"event_version"`
	OccurredAt   time.Time `json:"occurred_at"`
	Producer     string    `json:"producer"`
	Payload      Event     `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by entity id so one entity's events stay ordered.
type KafkaPublisher struct {
	w        messageWriter
	producer string
}

func NewKafkaPublisher(brokers []string, topic, producer string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		producer: producer,
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := Encode(e, k.producer)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EntityID),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
}

func (k *KafkaPublisher) Close() error { return k.w.Close() }

// Encode wraps e in an Envelope.
func Encode(e Event, producer string) ([]byte, error) {
	return json.Marshal(Envelope{
		EventID:      uuid.NewString(),
		EventType:    e.Type,
		EventVersion: 1,
		OccurredAt:   e.OccurredAt,
		Producer:     producer,
		Payload:      e,
	})
}
