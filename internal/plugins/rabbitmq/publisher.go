package rabbitmq

import (
	"context"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"
)

// DealUpdatedType is both the event type and the routing key.
const DealUpdatedType = "deals.updated.v1"

const publishTimeout = 5 * time.Second

type eventMeta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Producer      string    `json:"producer,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type dealEvent struct {
	Meta eventMeta   `json:"meta"`
	Data domain.Deal `json:"data"`
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventPublisher forwards committed deal snapshots to a topic exchange so
// services outside this process can react to them. It is a post-commit
// hook and never fails the mutation that triggered it.
type EventPublisher struct {
	mu       sync.Mutex
	ch       publishChannel
	exchange string
	producer string
	log      *slog.Logger
}

// NewEventPublisher opens a channel on conn and declares the exchange.
func NewEventPublisher(log *slog.Logger, conn *amqp091.Connection, exchange, producer string) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return newEventPublisher(log, ch, exchange, producer), nil
}

func newEventPublisher(log *slog.Logger, ch publishChannel, exchange, producer string) *EventPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &EventPublisher{ch: ch, exchange: exchange, producer: producer, log: log}
}

func (p *EventPublisher) OnDealCommitted(ctx context.Context, deal domain.Deal) {
	if err := p.Publish(ctx, deal); err != nil {
		p.log.ErrorContext(ctx, "rabbitmq - publish deal updated - failed", logging.Deal(deal.ID), logging.Err(err))
	}
}

func (p *EventPublisher) Publish(ctx context.Context, deal domain.Deal) error {
	ev := newDealEvent(ctx, deal, p.producer)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, DealUpdatedType, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Persistent,
		MessageId:     ev.Meta.ID,
		CorrelationId: ev.Meta.CorrelationID,
		Type:          ev.Meta.Type,
		Timestamp:     ev.Meta.Time,
		AppId:         p.producer,
	})
}

func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}

// newDealEvent correlates the event with the active trace when there is one.
func newDealEvent(ctx context.Context, deal domain.Deal, producer string) dealEvent {
	meta := eventMeta{
		ID:       uuid.NewString(),
		Type:     DealUpdatedType,
		Time:     time.Now().UTC(),
		Producer: producer,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		meta.CorrelationID = sc.TraceID().String()
	} else {
		meta.CorrelationID = meta.ID
	}
	return dealEvent{Meta: meta, Data: deal}
}
