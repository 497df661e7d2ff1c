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

	"github.com/angelmondragon/wholesale-backend/pkg/config"
	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	"github.com/angelmondragon/wholesale-backend/pkg/metrics"
	"github.com/angelmondragon/wholesale-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

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

// ServiceParams wires the relay. PublisherFactory and Metrics are optional.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

func (p ServiceParams) validate() error {
	missing := func(name string) error { return fmt.Errorf("%s is required", name) }
	switch {
	case p.Config == nil:
		return missing("config")
	case p.Logger == nil:
		return missing("logger")
	case p.DB == nil:
		return missing("database client")
	case p.PubSub == nil:
		return missing("pubsub client")
	case p.Repository == nil:
		return missing("outbox repository")
	case p.Registry == nil:
		return missing("event registry")
	case p.DLQRepository == nil:
		return missing("dlq repository")
	}
	return nil
}

// Service relays committed outbox rows for orders and payments to Pub/Sub.
// Each poll claims a batch inside one transaction so the row updates and
// dead-letter inserts commit together.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
	jitter           *rand.Rand
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	out := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		metrics:          params.Metrics,
		batchSize:        positiveOr(out.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(out.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(out.PollIntervalMS, int(defaultPollInterval/time.Millisecond))) * time.Millisecond,
		jitter:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run pings both backends, then polls until ctx is canceled. A full batch
// is followed immediately by the next poll; an empty one waits the poll
// interval and a failed one waits an exponentially growing backoff.
func (s *Service) Run(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{{"database", s.db.Ping}, {"pubsub", s.pubsub.Ping}}
	for _, c := range checks {
		if err := c.ping(ctx); err != nil {
			s.logg.Error(ctx, c.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", c.name, err)
		}
	}

	wait := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = min(wait*2, maxIdleBackoff)
		case processed:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}

		if err := s.sleep(ctx, wait+time.Duration(s.jitter.Int63n(int64(jitterWindow)))); err != nil {
			return err
		}
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var errNilPublishResult = errors.New("publish result is nil")
