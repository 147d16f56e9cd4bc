package auditpublisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nyumbapay/paycore/internal/domain"
	"github.com/nyumbapay/paycore/internal/infrastructure/metrics"
	"github.com/nyumbapay/paycore/internal/usecase"
)

// Publisher delivers one audit event to the external audit sink.
type Publisher interface {
	Publish(ctx context.Context, event *domain.AuditEvent) error
}

// AuditPublisher drains the audit outbox to the sink. Events are written to
// the outbox in the same transaction as the reconciliation's final step and
// delivered here at least once; the sink is expected to dedupe on event id.
type AuditPublisher struct {
	outboxRepo usecase.AuditOutboxRepository
	publisher  Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
}

// Config for AuditPublisher.
type Config struct {
	OutboxRepo usecase.AuditOutboxRepository
	Publisher  Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int
	Interval   time.Duration
}

// New creates a new AuditPublisher.
func New(cfg Config) *AuditPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AuditPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start runs the publishing loop until the context is cancelled.
func (p *AuditPublisher) Start(ctx context.Context) error {
	p.logger.Info("audit publisher started",
		slog.Int("batch_size", p.batchSize),
		slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.processBatch(ctx); err != nil {
		p.logger.Error("error publishing audit events on start", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("error publishing audit events", slog.String("error", err.Error()))
			}
		}
	}
}

func (p *AuditPublisher) processBatch(ctx context.Context) error {
	events, err := p.outboxRepo.GetUnpublished(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish audit event",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			p.count("error")
			// Leave unpublished; the next tick retries.
			continue
		}

		if err := p.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			p.logger.Error("failed to mark audit event published",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			continue
		}
		p.count("published")
	}

	return nil
}

func (p *AuditPublisher) count(status string) {
	if p.metrics != nil {
		p.metrics.AuditEventsPublished.WithLabelValues(status).Inc()
	}
}

// NATSPublisher publishes audit events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher creates a NATS-backed publisher.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// Publish sends the event as JSON.
func (p *NATSPublisher) Publish(_ context.Context, event *domain.AuditEvent) error {
	data, err := json.Marshal(auditPayload(event))
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// LogPublisher writes audit events to the log. Used when no NATS sink is
// configured, so the audit trail is still observable in development.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.AuditEvent) error {
	data, err := json.Marshal(auditPayload(event))
	if err != nil {
		return err
	}
	p.logger.Info("audit event", slog.String("event", string(data)))
	return nil
}

func auditPayload(event *domain.AuditEvent) map[string]any {
	return map[string]any{
		"id":              event.ID,
		"event_type":      event.EventType,
		"notification_id": event.NotificationID,
		"tenant_id":       event.TenantID,
		"amount":          event.Amount,
		"source":          string(event.Source),
		"manual_resolved": event.ManualResolved,
		"invoice_ids":     event.InvoiceIDs,
		"remainder":       event.Remainder,
		"created_at":      event.CreatedAt.Format(time.RFC3339),
	}
}
