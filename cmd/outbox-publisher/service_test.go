package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
	"github.com/angelmondragon/carrental-backend/pkg/outbox"
	"github.com/angelmondragon/carrental-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/carrental-backend/pkg/outbox/registry"
)

const rentalTopic = "rental-events"

type publisherHarness struct {
	svc  *Service
	repo *fakeRepo
	pub  *fakePublisher
	dlq  *fakeDLQRepo
	reg  *prometheus.Registry
}

func newPublisherHarness(t *testing.T, cfg config.OutboxConfig, events ...models.OutboxEvent) *publisherHarness {
	t.Helper()
	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{RentalTopic: rentalTopic})
	require.NoError(t, err)

	h := &publisherHarness{
		repo: &fakeRepo{events: events},
		pub:  &fakePublisher{},
		dlq:  &fakeDLQRepo{},
		reg:  prometheus.NewRegistry(),
	}
	svc, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            fakeDB{},
		PubSub:        fakePubSubClient{},
		Repository:    h.repo,
		Registry:      eventRegistry,
		DLQRepository: h.dlq,
		Metrics:       metrics.NewOutboxMetrics(h.reg),
		PublisherFactory: func(topic string) publisher {
			if topic != rentalTopic {
				return nil
			}
			return h.pub
		},
		Now: func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *publisherHarness) outcome(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := h.reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "rental_outbox_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func contractCreatedRow(t *testing.T, actor *outbox.ActorRef) models.OutboxEvent {
	t.Helper()
	contractID := uuid.New()
	data, err := json.Marshal(payloads.ContractEvent{
		ContractID: contractID,
		CarID:      uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.ContractStatusActive,
		StartDate:  time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC),
		Actor:      actor,
		Data:       data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventContractCreated,
		AggregateType: enums.AggregateContract,
		AggregateID:   contractID,
		Payload:       envelope,
	}
}

func TestProcessBatchPublishesWithAttributes(t *testing.T) {
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: enums.RoleEditor}
	row := contractCreatedRow(t, actor)
	system := contractCreatedRow(t, nil)
	system.EventType = enums.EventContractExpired
	h := newPublisherHarness(t, config.OutboxConfig{}, row, system)
	h.pub.results = []publishResult{fakePublishResult{}, fakePublishResult{}}

	n, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{row.ID, system.ID}, h.repo.published)

	require.Len(t, h.pub.messages, 2)
	attrs := h.pub.messages[0].Attributes
	assert.Equal(t, "contract_created", attrs["event_type"])
	assert.Equal(t, row.AggregateID.String(), attrs["aggregate_id"])
	assert.Equal(t, actor.UserID.String(), attrs["actor_id"])
	assert.Equal(t, string(enums.RoleEditor), attrs["actor_role"])
	assert.Equal(t, "system", h.pub.messages[1].Attributes["actor_role"])
	assert.JSONEq(t, string(row.Payload), string(h.pub.messages[0].Data))
	assert.Equal(t, float64(2), h.outcome(t, metrics.OutboxPublished))
}

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := contractCreatedRow(t, nil)
	second := contractCreatedRow(t, nil)
	h := newPublisherHarness(t, config.OutboxConfig{MaxAttempts: 5}, first, second)
	h.pub.results = []publishResult{fakePublishResult{err: errors.New("unavailable")}, fakePublishResult{}}

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	assert.Empty(t, h.dlq.entries)
	assert.Equal(t, float64(1), h.outcome(t, metrics.OutboxRetried))
}

func TestProcessBatchDeadLettersUnknownEvents(t *testing.T) {
	row := contractCreatedRow(t, nil)
	row.EventType = "order_created"
	mismatch := contractCreatedRow(t, nil)
	mismatch.AggregateType = enums.AggregatePayment
	h := newPublisherHarness(t, config.OutboxConfig{MaxAttempts: 4}, row, mismatch)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 2)
	for i, entry := range h.dlq.entries {
		assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
		assert.NotNil(t, entry.ErrorMessage)
		assert.Equal(t, time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), entry.FailedAt)
		assert.Equal(t, h.repo.terminal[i], entry.EventID)
	}
	assert.Equal(t, []int{4, 4}, h.repo.terminalAttempts)
	assert.Empty(t, h.pub.messages)
	assert.Equal(t, float64(2), h.outcome(t, metrics.OutboxDeadLettered))
}

func TestProcessBatchDeadLettersAtAttemptCeiling(t *testing.T) {
	row := contractCreatedRow(t, nil)
	row.AttemptCount = 1
	h := newPublisherHarness(t, config.OutboxConfig{MaxAttempts: 2}, row)
	h.pub.results = []publishResult{fakePublishResult{err: errors.New("deadline exceeded")}}

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	assert.Empty(t, h.repo.failed)
}

func TestProcessBatchNilResultIsNonRetryable(t *testing.T) {
	row := contractCreatedRow(t, nil)
	h := newPublisherHarness(t, config.OutboxConfig{}, row)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
}

func TestProcessBatchSurfacesBookkeepingErrors(t *testing.T) {
	row := contractCreatedRow(t, nil)
	h := newPublisherHarness(t, config.OutboxConfig{}, row)
	h.pub.results = []publishResult{fakePublishResult{}}
	h.repo.markErr = errors.New("connection reset")

	_, err := h.svc.processBatch(context.Background())
	require.Error(t, err)
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	h := newPublisherHarness(t, config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, h.svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, h.svc.maxAttempts)
	assert.Equal(t, defaultPollInterval, h.svc.pollInterval)

	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(base, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
	assert.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
	d := withJitter(time.Second)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, time.Second+jitterWindow)
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts []int
	markErr          error
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = append(f.terminalAttempts, terminalAttempts)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	if len(f.results) == 0 {
		return nil
	}
	f.messages = append(f.messages, msg)
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
