package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

const subscriberBuffer = 128

var ErrBusClosed = errors.New("event bus closed")

// Kafka is the event bus used by the outbox relay and consumers. Brokers are
// accepted for configuration parity; delivery is in-process, one copy per
// consumer group and topic, in publish order.
type Kafka struct {
	mu      sync.RWMutex
	brokers []string
	groups  map[string]map[string]*subscription
	closed  bool
	logger  *slog.Logger
}

type subscription struct {
	topic  string
	group  string
	events chan ports.EventEnvelope
	done   chan struct{}
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		groups:  make(map[string]map[string]*subscription),
		logger:  logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	topic = strings.TrimSpace(topic)
	k.mu.RLock()
	if k.closed {
		k.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*subscription, 0, len(k.groups[topic]))
	for _, sub := range k.groups[topic] {
		subs = append(subs, sub)
	}
	k.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
		case sub.events <- event:
		}
	}

	k.log().Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"consumer_groups", len(subs),
	)
	return nil
}

// Subscribe registers handler for topic under consumerGroup until ctx ends.
// Handler errors are logged; the event is not redelivered.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	topic = strings.TrimSpace(topic)
	consumerGroup = strings.TrimSpace(consumerGroup)
	if topic == "" || consumerGroup == "" || handler == nil {
		return errors.New("topic, consumer group and handler are required")
	}
	sub := &subscription{
		topic:  topic,
		group:  consumerGroup,
		events: make(chan ports.EventEnvelope, subscriberBuffer),
		done:   make(chan struct{}),
	}

	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return ErrBusClosed
	}
	if _, exists := k.groups[topic][consumerGroup]; exists {
		k.mu.Unlock()
		return errors.New("consumer group already subscribed to topic")
	}
	if k.groups[topic] == nil {
		k.groups[topic] = make(map[string]*subscription)
	}
	k.groups[topic][consumerGroup] = sub
	k.mu.Unlock()

	go k.consume(ctx, sub, handler)
	return nil
}

func (k *Kafka) consume(ctx context.Context, sub *subscription, handler func(context.Context, ports.EventEnvelope) error) {
	defer k.removeSubscription(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case event := <-sub.events:
			if err := handler(ctx, event); err != nil {
				k.log().Error("consumer handler failed",
					"event", "kafka_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", sub.topic,
					"consumer_group", sub.group,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}
}

// Close stops every subscription. Further publishes fail with ErrBusClosed.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	for _, groups := range k.groups {
		for _, sub := range groups {
			close(sub.done)
		}
	}
	k.groups = make(map[string]map[string]*subscription)
	return nil
}

func (k *Kafka) removeSubscription(target *subscription) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if current, ok := k.groups[target.topic][target.group]; ok && current == target {
		delete(k.groups[target.topic], target.group)
		close(target.done)
	}
}

func (k *Kafka) log() *slog.Logger {
	if k.logger == nil {
		return slog.Default()
	}
	return k.logger
}
