package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventAnalysisCreated = "analysis.created"
	EventAnalysisDeleted = "analysis.deleted"
)

// AnalysisEvent announces a change to an owner's history.
type AnalysisEvent struct {
	Type       string    `json:"type"`
	DatasetID  uint64    `json:"dataset_id"`
	OwnerID    uint      `json:"owner_id"`
	Filename   string    `json:"filename,omitempty"`
	RowCount   int       `json:"row_count,omitempty"`
	EvictedIDs []uint64  `json:"evicted_ids,omitempty"`
	At         time.Time `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, ev AnalysisEvent) error
}

// OwnerChannel is the Redis channel carrying one owner's events.
func OwnerChannel(owner uint) string {
	return fmt.Sprintf("equiviz:analyses:%d", owner)
}

// RedisEventPublisher fans events out to websocket subscribers.
type RedisEventPublisher struct {
	cache *CacheService
}

func NewRedisEventPublisher(cache *CacheService) *RedisEventPublisher {
	return &RedisEventPublisher{cache: cache}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev AnalysisEvent) error {
	return p.cache.Publish(ctx, OwnerChannel(ev.OwnerID), ev)
}

// BrokerPublisher sends events to a RabbitMQ topic exchange, routed by event
// type, for downstream consumers such as the report renderer.
type BrokerPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewBrokerPublisher(url, exchange string) (*BrokerPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &BrokerPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *BrokerPublisher) Publish(ctx context.Context, ev AnalysisEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		ev.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    ev.At,
			Body:         body,
		},
	)
}

func (p *BrokerPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// MultiPublisher publishes to every publisher and joins their errors.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, ev AnalysisEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
