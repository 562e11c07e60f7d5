package broadcast

import (
	"context"
	"dealwire/internal/core/contracts"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"dealwire/pkg/protocol"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("broadcaster")

// Broadcaster routes deal updates to the two participants of each deal
// and to nobody else.
type Broadcaster struct {
	registry contracts.Registry
	log      *slog.Logger
}

func NewBroadcaster(log *slog.Logger, registry contracts.Registry) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{registry: registry, log: log}
}

// OnDealCommitted satisfies contracts.DealCommitHook.
func (b *Broadcaster) OnDealCommitted(ctx context.Context, deal domain.Deal) {
	b.BroadcastDealUpdate(ctx, deal)
}

// BroadcastDealUpdate queues one deal-update envelope on every open
// connection owned by the deal's artist or exec and returns how many were
// queued. Per-recipient failures are logged and the failing connection is
// dropped; they never reach the caller.
//
// Envelopes are queued synchronously on each client's FIFO outbox, so two
// calls made in sequence arrive in that order.
func (b *Broadcaster) BroadcastDealUpdate(ctx context.Context, deal domain.Deal) int {
	ctx, span := tracer.Start(ctx, "Broadcaster.BroadcastDealUpdate", trace.WithAttributes(
		attribute.Int64("deal.id", deal.ID),
		attribute.Int64("deal.version", deal.Version),
	))
	defer span.End()

	env, err := protocol.NewDealUpdate(deal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode envelope failed")
		b.log.ErrorContext(ctx, "broadcaster - broadcast deal update - encode envelope failed", logging.Deal(deal.ID), logging.Err(err))
		return 0
	}
	data, err := env.Marshal()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode envelope failed")
		b.log.ErrorContext(ctx, "broadcaster - broadcast deal update - encode envelope failed", logging.Deal(deal.ID), logging.Err(err))
		return 0
	}

	delivered := 0
	b.registry.ForEachOpen(func(c contracts.Client) {
		if !deal.IsParticipant(c.Identity().UserID) {
			return
		}
		if err := c.Send(ctx, data); err != nil {
			span.RecordError(err)
			b.log.WarnContext(ctx, "broadcaster - broadcast deal update - send failed, dropping client",
				logging.Deal(deal.ID), logging.Connection(c.ID()), logging.User(c.Identity().UserID), logging.Err(err))
			b.registry.Unregister(c)
			c.Close()
			return
		}
		delivered++
	})

	span.SetAttributes(attribute.Int("broadcast.recipients", delivered))
	b.log.InfoContext(ctx, "broadcaster - broadcast deal update - queued",
		logging.Deal(deal.ID), logging.Version(deal.Version), slog.Int("recipients", delivered))
	return delivered
}
