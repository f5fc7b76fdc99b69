// Package events publishes classified machine conditions to Kafka on a
// best-effort basis. The scheduler publishes after every successful
// condition-store call, whether or not that call inserted a row, so the
// feed repeats unchanged conditions. It is purely additive: a publish failure is logged and swallowed,
// never surfaced to the scheduler, and a nil configuration yields a no-op
// publisher so Kafka remains entirely optional.
package events

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ptindo/fleet-worker/models"
)

// Publisher emits a machine condition event. Implementations must not
// block the caller for long or propagate errors; Kafka delivery here is a
// nicety, not part of the correctness contract.
type Publisher interface {
	PublishCondition(machineID int64, cond models.Condition, timestamp time.Time)
	Close() error
}

type conditionEvent struct {
	MachineID int64            `json:"machine_id"`
	Condition models.Condition `json:"condition"`
	Timestamp time.Time        `json:"timestamp"`
}

// KafkaPublisher publishes condition events to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher dials brokers lazily (kafka-go writers connect on first
// write) and targets topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 250 * time.Millisecond,
		},
	}
}

// PublishCondition writes the event with a short timeout, logging and
// discarding any failure.
func (p *KafkaPublisher) PublishCondition(machineID int64, cond models.Condition, timestamp time.Time) {
	payload, err := json.Marshal(conditionEvent{MachineID: machineID, Condition: cond, Timestamp: timestamp})
	if err != nil {
		log.Printf("WARNING: marshaling condition event for machine %d: %v", machineID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(machineID, 10)),
		Value: payload,
	})
	if err != nil {
		log.Printf("WARNING: publishing condition event for machine %d: %v", machineID, err)
	}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards every event. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCondition(int64, models.Condition, time.Time) {}
func (NoopPublisher) Close() error                                       { return nil }
