// Package events publishes inventory changes to an external sink after commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	commonredis "github.com/jaxongirtoshpolatov1225-droid/inv/common/redis"

	"github.com/go-redis/redis/v8"
)

const (
	EquipmentCreated     = "equipment.created"
	EquipmentTransferred = "equipment.transferred"
	EquipmentDeleted     = "equipment.deleted"
	ContainerDeleted     = "container.deleted"
)

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func New(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// RedisStreamPublisher XADDs events to one stream (fields type / data / timestamp).
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev Event) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev.Type, ev); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisStreamPublisher) Close() error { return nil }

// TopicPublisher is satisfied by common/mqtt.Client.
type TopicPublisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTPublisher publishes to <prefix>/<type with dots as slashes>,
// e.g. inv/events/equipment/transferred.
type MQTTPublisher struct {
	client TopicPublisher
	prefix string
	close  func()
}

func NewMQTTPublisher(client TopicPublisher, prefix string, closeFn func()) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), close: closeFn}
}

func (p *MQTTPublisher) Topic(eventType string) string {
	return p.prefix + "/" + strings.ReplaceAll(eventType, ".", "/")
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(p.Topic(ev.Type), b)
}

func (p *MQTTPublisher) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}

// RoutedPublisher is satisfied by common/amqp.Publisher.
type RoutedPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// AMQPPublisher routes each event by its type.
type AMQPPublisher struct {
	pub RoutedPublisher
}

func NewAMQPPublisher(pub RoutedPublisher) *AMQPPublisher {
	return &AMQPPublisher{pub: pub}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, ev.Type, b)
}

func (p *AMQPPublisher) Close() error { return p.pub.Close() }
