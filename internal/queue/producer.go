package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Publish(ctx context.Context, event WorkshopEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, event WorkshopEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	fields := map[string]any{
		"event_type":   string(event.Type),
		"workshop_id":  event.WorkshopID,
		"current_step": event.CurrentStep,
		"total_steps":  event.TotalSteps,
		"occurred_at":  occurredAt.Format(time.RFC3339Nano),
	}
	if event.StepID != nil {
		fields["step_id"] = *event.StepID
	}
	if event.Actor != "" {
		fields["actor"] = event.Actor
	}
	if event.TraceID != nil && *event.TraceID != "" {
		fields["trace_id"] = *event.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish workshop event: %w", err)
	}

	p.logger.DebugContext(ctx, "published workshop event", "event_type", event.Type, "workshop_id", event.WorkshopID)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

type noopProducer struct{}

// NewNoopProducer is used when no Redis stream is configured.
func NewNoopProducer() Producer {
	return noopProducer{}
}

func (noopProducer) Publish(context.Context, WorkshopEvent) error { return nil }

func (noopProducer) Close() error { return nil }
