package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ribbon-app/ribbon/internal/events"
)

// Consumer drains audit events from JetStream into Postgres.
type Consumer struct {
	repo *Repository
}

func NewConsumer(repo *Repository) *Consumer {
	return &Consumer{repo: repo}
}

// Start creates the durable consumer and begins processing messages until
// ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, cm *events.ConsumerManager) error {
	consumer, err := cm.EnsureConsumer(ctx, events.StreamEvents, "audit-writer", events.SubjectAuditEvent)
	if err != nil {
		return err
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := c.handle(ctx, msg.Data()); err != nil {
			slog.Error("processing audit event", "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	slog.Info("audit consumer started")
	return nil
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	var ev events.AuditEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// Malformed events are logged and acked, not retried.
		slog.Warn("dropping malformed audit event", "error", err)
		return nil
	}

	return c.repo.Insert(ctx, &Log{
		UserID:    ev.UserID,
		EventType: ev.EventType,
		Severity:  ev.Severity,
		Details:   ev.Details,
		CreatedAt: ev.Timestamp,
	})
}
