package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/partstrack-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second
	pollJitter            = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	ActivityPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, terminalAttempts int) error
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

// delivery is what happened to one outbox row in a batch.
type delivery int

const (
	delivered delivery = iota
	retryLater
	deadLettered
)

type batchSummary struct {
	published    int
	retried      int
	deadLettered int
}

func (b *batchSummary) add(d delivery) {
	switch d {
	case delivered:
		b.published++
	case retryLater:
		b.retried++
	case deadLettered:
		b.deadLettered++
	}
}

func (b batchSummary) total() int {
	return b.published + b.retried + b.deadLettered
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// Service drains outbox_events to Pub/Sub. Rows that cannot be delivered are
// copied to outbox_dlq and never retried.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
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
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = topicPublishers(params.PubSub, params.Config.PubSub.ActivityTopic)
	}

	outboxCfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		publisherFactory: factory,
		batchSize:        positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

// topicPublishers resolves each topic to a publisher once. The activity topic
// uses the client's preconfigured publisher.
func topicPublishers(client pubSubClient, activityTopic string) publisherFactory {
	cache := map[string]publisher{}
	return func(topic string) publisher {
		if cached, ok := cache[topic]; ok {
			return cached
		}
		var pub *gcppubsub.Publisher
		if topic == activityTopic {
			pub = client.ActivityPublisher()
		} else {
			pub = client.Publisher(topic)
		}
		if pub == nil {
			return nil
		}
		wrapped := &gcpPublisher{Publisher: pub}
		cache[topic] = wrapped
		return wrapped
	}
}

func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.idleBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox batch failed", err)
		}
		if processed && err == nil {
			backoff = s.idleBackoff()
			continue
		}

		wait, _ := backoff.Next()
		if err == nil {
			// idle poll: keep the base interval until a batch fails
			backoff = s.idleBackoff()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// idleBackoff doubles the poll wait after each failed batch, up to
// maxIdleBackoff.
func (s *Service) idleBackoff() retry.Backoff {
	b := retry.NewExponential(s.pollInterval)
	b = retry.WithCappedDuration(maxIdleBackoff, b)
	return retry.WithJitter(pollJitter, b)
}

// processBatch delivers one page of pending rows inside a transaction. It
// reports whether any rows were found.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	summary, err := s.runBatch(ctx)
	return summary.total() > 0, err
}

// Drain publishes until a batch makes no progress: nothing pending, or only
// rows that failed again and wait for a later retry.
func (s *Service) Drain(ctx context.Context) (batchSummary, error) {
	var drained batchSummary
	for {
		if err := ctx.Err(); err != nil {
			return drained, err
		}
		summary, err := s.runBatch(ctx)
		if err != nil {
			return drained, err
		}
		drained.published += summary.published
		drained.retried += summary.retried
		drained.deadLettered += summary.deadLettered
		if summary.published+summary.deadLettered == 0 {
			return drained, nil
		}
	}
}

func (s *Service) runBatch(ctx context.Context) (batchSummary, error) {
	var summary batchSummary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending events: %w", err)
		}
		for _, event := range events {
			outcome, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			summary.add(outcome)
		}
		return nil
	})
	if err != nil {
		return batchSummary{}, err
	}
	if summary.total() > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"published":     summary.published,
			"retried":       summary.retried,
			"dead_lettered": summary.deadLettered,
		})
		if summary.deadLettered > 0 {
			s.logg.Warn(logCtx, "outbox batch delivered with dead letters")
		} else {
			s.logg.Info(logCtx, "outbox batch delivered")
		}
	}
	return summary, nil
}

// deliver publishes one row and records the result on it. The returned error
// is a bookkeeping failure that aborts the batch; publish failures are
// recorded on the row instead.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (delivery, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		reason := enums.OutboxDLQReasonNonRetryable
		if errors.Is(err, registry.ErrUnroutable) {
			reason = enums.OutboxDLQReasonUnroutable
		}
		return deadLettered, s.deadLetter(ctx, tx, event, "", reason, err)
	}

	msg := buildMessage(event, resolved)
	topic := resolved.Descriptor.Topic
	logCtx := s.logg.WithFields(ctx, messageLogFields(event, msg, topic))

	pubErr := s.publish(ctx, topic, msg)
	var nonRetry registry.NonRetryableError
	switch {
	case pubErr == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return delivered, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Debug(logCtx, "outbox event published")
		return delivered, nil
	case errors.As(pubErr, &nonRetry):
		return deadLettered, s.deadLetter(logCtx, tx, event, topic, enums.OutboxDLQReasonNonRetryable, pubErr)
	case event.AttemptCount+1 >= s.maxAttempts:
		err := fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, pubErr)
		return deadLettered, s.deadLetter(logCtx, tx, event, topic, enums.OutboxDLQReasonMaxAttempts, err)
	default:
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"attempt_count": event.AttemptCount + 1,
			"error":         pubErr.Error(),
		}), "outbox publish failed, will retry")
		if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return retryLater, fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		return retryLater, nil
	}
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, topic string, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := map[string]any{
		"outbox_id":    event.ID.String(),
		"event_type":   string(event.EventType),
		"error_reason": string(reason),
		"error":        cause.Error(),
	}
	if topic != "" {
		fields["topic"] = topic
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	return s.repo.DeadLetterTx(tx, event, reason, cause, s.maxAttempts)
}

func (s *Service) publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// buildMessage carries the envelope as data. Attributes let subscribers
// filter by part, product or movement direction without decoding it.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if actor := resolved.Envelope.Actor; actor != nil && actor.Name != "" {
		attrs["actor_name"] = actor.Name
	}

	switch payload := resolved.Payload.(type) {
	case *payloads.ActivityRecordedEvent:
		attrs["activity_event_type"] = payload.EventType
		attrs["qty"] = strconv.Itoa(payload.Qty)
		attrs["delta"] = strconv.Itoa(payload.Delta)
		setID(attrs, "part_id", payload.PartID)
		setID(attrs, "project_id", payload.ProjectID)
		setID(attrs, "product_id", payload.ProductID)
	case *payloads.ProductDeletedEvent:
		attrs["product_id"] = payload.ProductID.String()
		attrs["project_id"] = payload.ProjectID.String()
		attrs["line_count"] = strconv.Itoa(len(payload.Returned))
	case *payloads.TemplateAppliedEvent:
		attrs["product_id"] = payload.ProductID.String()
		attrs["project_id"] = payload.ProjectID.String()
		attrs["template_id"] = payload.TemplateID.String()
		attrs["line_count"] = strconv.Itoa(len(payload.Allocated))
	case *payloads.BalanceDriftRepairedEvent:
		attrs["part_id"] = payload.PartID.String()
		attrs["delta"] = strconv.Itoa(payload.ReplayedAvailable - payload.StoredAvailable)
	}
	return &gcppubsub.Message{Data: event.Payload, Attributes: attrs}
}

func setID(attrs map[string]string, key string, id *uuid.UUID) {
	if id != nil && *id != uuid.Nil {
		attrs[key] = id.String()
	}
}

func messageLogFields(event models.OutboxEvent, msg *gcppubsub.Message, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    string(event.EventType),
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
		"topic":         topic,
	}
	for _, key := range []string{"part_id", "product_id", "delta"} {
		if value, ok := msg.Attributes[key]; ok {
			fields[key] = value
		}
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

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
