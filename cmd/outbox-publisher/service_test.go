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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trato-app/trato-backend/pkg/config"
	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	"github.com/trato-app/trato-backend/pkg/logger"
)

type fakeOutboxRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    map[uuid.UUID]string
}

func (f *fakeOutboxRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeOutboxRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id uuid.UUID, err error) error {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[id] = err.Error()
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakePubSub struct{ err error }

func (f fakePubSub) Ping(ctx context.Context) error        { return f.err }
func (f fakePubSub) DomainPublisher() *gcppubsub.Publisher { return nil }

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(ctx context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	messages []*gcppubsub.Message
	errFor   func(msg *gcppubsub.Message) error
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if p.errFor != nil {
		if err := p.errFor(msg); err != nil {
			return fakeResult{err: err}
		}
	}
	return fakeResult{id: "server-id"}
}

func newPublisherService(t *testing.T, repo *fakeOutboxRepo, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         fakePinger{},
		PubSub:     fakePubSub{},
		Repository: repo,
		Publisher:  pub,
	})
	require.NoError(t, err)
	return svc
}

func outboxEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"eventId":"x"}`),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	first := outboxEvent(enums.EventOrderPlaced)
	second := outboxEvent(enums.EventOrderAccepted)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{}
	svc := newPublisherService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, repo.published)
	require.Len(t, pub.messages, 2)
	assert.Equal(t, string(enums.EventOrderPlaced), pub.messages[0].Attributes["event_type"])
	assert.Equal(t, first.AggregateID.String(), pub.messages[0].Attributes["aggregate_id"])
	assert.JSONEq(t, `{"eventId":"x"}`, string(pub.messages[0].Data))
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	bad := outboxEvent(enums.EventOrderPlaced)
	good := outboxEvent(enums.EventOrderAccepted)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{bad, good}}
	pub := &fakePublisher{
		errFor: func(msg *gcppubsub.Message) error {
			if msg.Attributes["event_type"] == string(enums.EventOrderPlaced) {
				return errors.New("topic unavailable")
			}
			return nil
		},
	}
	svc := newPublisherService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, []uuid.UUID{good.ID}, repo.published)
	assert.Equal(t, "topic unavailable", repo.failed[bad.ID])
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeOutboxRepo{}
	svc := newPublisherService(t, repo, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, repo.published)
}

func TestProcessBatchPropagatesFetchError(t *testing.T) {
	repo := &fakeOutboxRepo{fetchErr: errors.New("connection reset")}
	svc := newPublisherService(t, repo, &fakePublisher{})

	_, err := svc.processBatch(context.Background())
	require.Error(t, err)
}

func TestNewServiceDefaults(t *testing.T) {
	svc := newPublisherService(t, &fakeOutboxRepo{}, &fakePublisher{})
	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, svc.maxAttempts)
	assert.Equal(t, time.Duration(defaultPollMs)*time.Millisecond, svc.pollInterval)
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(base, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff, base, maxBackoff))
	assert.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRepo{}
	svc := newPublisherService(t, repo, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
