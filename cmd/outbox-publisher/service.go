package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           config.OutboxConfig
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
	PublisherFactory publisherFactory
	Now              func() time.Time
}

// Service relays committed rental events from outbox_events to Pub/Sub.
// Rows that can never be delivered are copied to the DLQ and pinned at the
// attempt ceiling.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	dlq          dlqRepository
	metrics      *metrics.OutboxMetrics
	publishers   publisherFactory
	now          func() time.Time
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		client := params.PubSub
		factory = func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	cfg := params.Config
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := time.Duration(cfg.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		publishers:   factory,
		now:          now,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: poll,
	}, nil
}

// Run polls until ctx is canceled. Batch errors back off exponentially; a
// full batch is followed immediately by the next one.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps := []struct {
		name string
		ping func(context.Context) error
	}{{"database", s.db.Ping}, {"pubsub", s.pubsub.Ping}}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		n, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
		case n >= s.batchSize:
			backoff = s.pollInterval
		default:
			backoff = s.pollInterval
			if err := sleep(ctx, withJitter(s.pollInterval)); err != nil {
				return err
			}
		}
	}
}

// processBatch handles one locked batch and reports how many rows it saw.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	seen := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		seen = len(events)
		for _, event := range events {
			if err := s.handle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return seen, err
}

// handle publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, s.eventFields(event, nil))
	}

	fields := s.eventFields(event, resolved)
	err = s.publish(ctx, event, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.metrics.Inc(string(event.EventType), metrics.OutboxPublished)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	s.metrics.Inc(string(event.EventType), metrics.OutboxRetried)
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", cause.Error()), "outbox event moved to dlq")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.Inc(string(event.EventType), metrics.OutboxDeadLettered)
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved.Envelope),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// messageAttributes lets subscribers filter by event and aggregate without
// decoding the payload.
func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"occurred_at":    envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if envelope.Actor != nil {
		attrs["actor_id"] = envelope.Actor.UserID.String()
		if envelope.Actor.Role != "" {
			attrs["actor_role"] = string(envelope.Actor.Role)
		}
	} else {
		attrs["actor_role"] = "system"
	}
	return attrs
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < max {
		return next
	}
	return max
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}
