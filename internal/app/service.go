// Package service wires the hook handlers, the job queue and the worker
// pool behind the HTTP ingress.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	jobqueue "github.com/okian/servhooks/internal/adapters/mq/queue"
	workerpool "github.com/okian/servhooks/internal/adapters/mq/worker"
	"github.com/okian/servhooks/internal/adapters/registry"
	"github.com/okian/servhooks/internal/domain/dedupe"
	"github.com/okian/servhooks/internal/domain/enrichment"
	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/internal/domain/role"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// ErrUnknownEvent is returned by Dispatch for event types it cannot route.
var ErrUnknownEvent = errors.New("unknown event")

const tracerName = "github.com/okian/servhooks/internal/app"

// Host is the control surface of the services daemon.
type Host interface {
	enrichment.Emitter
	registry.Actuator
}

// Service implements the API dependencies for the hook ingress.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry     *registry.Registry
	deduper      dedupe.Deduper
	jobs         *jobqueue.InMemoryQueue
	pool         *workerpool.Pool
	orchestrator *enrichment.Orchestrator
	identity     *identity.Controller
	roles        *role.Service

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	managedChannels map[string]string
	enrichmentOpts  []enrichment.Option
	identityOpts    []identity.Option

	// State
	started bool

	logger logger.Logger
}

// New wires the domain handlers to their adapters. Until Start is called
// enrichment jobs run inline.
func New(lookup enrichment.Lookup, notifier enrichment.DeletionNotifier, host Host, store role.Store, opts ...Option) *Service {
	s := &Service{
		workerCount: 4,
		queueSize:   1000,
		dedupeSize:  50000,
		logger:      logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry = registry.New(host, registry.WithManagedChannels(s.managedChannels))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.orchestrator = enrichment.NewOrchestrator(lookup, notifier, host, s.registry, s.enrichmentOpts...)
	s.identity = identity.NewController(s.registry, host, s.identityOpts...)
	s.roles = role.NewService(store)
	return s
}

// Start creates the job queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s.orchestrator)
	s.orchestrator.SetSubmitter(s.jobs)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "hook service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for workers to drain it. Jobs raised
// after Stop run inline, as before Start.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping hook service...")
	s.orchestrator.SetSubmitter(nil)
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	s.logger.Info(ctx, "hook service stopped")
	return nil
}

// Dispatch routes ev to its handlers. Host mirror events update the
// session registry before or after the identity handlers so that both
// see the session as the host does at that moment.
func (s *Service) Dispatch(ctx context.Context, ev model.TriggerEvent) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hook."+string(ev.Kind()))
	defer span.End()
	span.SetAttributes(attribute.String("hook.kind", string(ev.Kind())))

	proceed, err := s.dispatch(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordErrorByComponent("dispatch", string(ev.Kind()))
	}
	return proceed, err
}

func (s *Service) dispatch(ctx context.Context, ev model.TriggerEvent) (bool, error) {
	switch e := ev.(type) {
	case model.ChannelMessage:
		s.orchestrator.HandleChannelMessage(ctx, e)
	case model.AccountDeleted:
		s.orchestrator.HandleAccountDeleted(ctx, e)
		s.roles.Forget(ctx, e.Account)
		s.registry.DropAccount(e.Account)
	case model.SessionAuthenticated:
		s.registry.Authenticate(e.SessionID, e.Nick, e.Account)
		if err := s.identity.HandleAuthenticated(ctx, e); err != nil {
			return false, err
		}
	case model.SessionLoggingOut:
		proceed := s.identity.HandleLoggingOut(ctx, e)
		s.registry.Logout(e.SessionID)
		return proceed, nil
	case model.SessionConnected:
		s.registry.Connect(e.SessionID, e.Nick)
	case model.NickChanged:
		s.registry.ChangeNick(e.SessionID, e.Nick)
	case model.SessionQuit:
		s.registry.Quit(e.SessionID)
	case model.BotAssignment:
		bot := e.Bot
		if !e.Assigned {
			bot = ""
		}
		s.registry.AssignBot(e.Channel, bot)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return true, nil
}

// SeenAndRecord atomically checks if a delivery id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a delivery id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// SetRole stores an operator rank.
func (s *Service) SetRole(ctx context.Context, req role.SetRoleRequest) (string, error) {
	return s.roles.SetRole(ctx, req)
}

// AccountInfo returns the extra INFO lines for account.
func (s *Service) AccountInfo(ctx context.Context, account string) []string {
	return s.roles.InfoLines(ctx, account)
}

// Registry exposes the session mirror.
func (s *Service) Registry() *registry.Registry { return s.registry }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"worker_count":  s.workerCount,
		"queue_size":    s.queueSize,
		"dedupe_size":   s.dedupeSize,
		"dedupe_len":    s.deduper.Size(),
		"live_sessions": s.registry.Len(),
	}

	if s.started {
		queueLen := s.jobs.Len(context.Background())
		stats["queue_length"] = queueLen
		stats["worker_count"] = s.pool.Size()
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
