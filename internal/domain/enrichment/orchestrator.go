package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// Lookup fetches video metadata for a validated id.
type Lookup interface {
	Lookup(ctx context.Context, id ResourceID) Result
}

// DeletionNotifier tells the accounts backend an account is gone.
type DeletionNotifier interface {
	NotifyDeleted(ctx context.Context, account string) error
}

// Emitter delivers rendered lines through the host.
type Emitter interface {
	Broadcast(ctx context.Context, source, channel, text string) error
	NotifyPrivately(ctx context.Context, source, target, text string) error
}

// ChannelDirectory reports which bot, if any, serves a channel.
type ChannelDirectory interface {
	ManagedBot(channel string) (string, bool)
}

// Submitter queues jobs for the worker pool without blocking.
type Submitter interface {
	Enqueue(ctx context.Context, job model.Job) bool
}

// Orchestrator runs the enrichment pipeline. Hook-side methods only
// decide and queue; Process does the network work.
type Orchestrator struct {
	lookup    Lookup
	notifier  DeletionNotifier
	emitter   Emitter
	directory ChannelDirectory
	throttle  *Throttle
	limit     int
	now       func() time.Time
	logger    logger.Logger

	mu        sync.RWMutex
	submitter Submitter
}

// NewOrchestrator wires the pipeline. Without a submitter every job runs
// inline in the calling goroutine.
func NewOrchestrator(lookup Lookup, notifier DeletionNotifier, emitter Emitter, directory ChannelDirectory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lookup:    lookup,
		notifier:  notifier,
		emitter:   emitter,
		directory: directory,
		limit:     DefaultMessageLimit,
		now:       time.Now,
		logger:    logger.Get().Named("enrichment"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetSubmitter attaches the job queue after construction, since the
// worker pool needs the orchestrator first. Passing nil switches back to
// inline processing.
func (o *Orchestrator) SetSubmitter(s Submitter) {
	o.mu.Lock()
	o.submitter = s
	o.mu.Unlock()
}

// HandleChannelMessage queues a lookup when msg links a video in a
// channel with a managed bot. Everything else is ignored silently.
func (o *Orchestrator) HandleChannelMessage(ctx context.Context, msg model.ChannelMessage) {
	id, ok := ExtractResourceID(msg.Text)
	if !ok {
		return
	}

	bot, ok := o.directory.ManagedBot(msg.Channel)
	if !ok {
		return
	}

	if !o.throttle.Allow(msg.Channel) {
		metrics.RecordLookupThrottled()
		o.logger.Debug(ctx, "lookup throttled",
			logger.String("channel", msg.Channel),
			logger.String("resource_id", string(id)),
		)
		return
	}

	o.submit(ctx, model.Job{
		ID:         uuid.NewString(),
		Kind:       model.JobLookup,
		Channel:    msg.Channel,
		Sender:     msg.Sender,
		Bot:        bot,
		ResourceID: string(id),
		EnqueuedAt: o.now(),
	})
}

// HandleAccountDeleted queues the deletion notice for ev.Account.
func (o *Orchestrator) HandleAccountDeleted(ctx context.Context, ev model.AccountDeleted) {
	if ev.Account == "" {
		return
	}
	o.submit(ctx, model.Job{
		ID:         uuid.NewString(),
		Kind:       model.JobDeletionNotice,
		Account:    ev.Account,
		Forced:     ev.Forced,
		EnqueuedAt: o.now(),
	})
}

func (o *Orchestrator) submit(ctx context.Context, job model.Job) {
	o.mu.RLock()
	sub := o.submitter
	o.mu.RUnlock()

	if sub == nil {
		if err := o.Process(ctx, job); err != nil {
			o.logger.Error(ctx, "inline job failed", logger.String("job_id", job.ID), logger.Error(err))
		}
		return
	}
	if sub.Enqueue(ctx, job) {
		return
	}

	metrics.RecordLookupDropped()
	msg := "job queue full, dropping job"
	if c, ok := sub.(interface{ IsClosed() bool }); ok && c.IsClosed() {
		msg = "job queue closed, dropping job"
	}
	o.logger.Warn(ctx, msg,
		logger.String("job_id", job.ID),
		logger.String("kind", string(job.Kind)),
	)
}

// Process runs one queued job to completion. Failures of the external
// call are reported to users or logged, never returned; the error is
// reserved for jobs that cannot run at all.
func (o *Orchestrator) Process(ctx context.Context, job model.Job) error {
	if !job.EnqueuedAt.IsZero() {
		metrics.RecordJobQueueWait(float64(o.now().Sub(job.EnqueuedAt).Milliseconds()))
	}
	start := o.now()
	defer func() {
		metrics.RecordJobLatency(string(job.Kind), float64(o.now().Sub(start).Milliseconds()))
	}()

	switch job.Kind {
	case model.JobLookup:
		return o.processLookup(ctx, job)
	case model.JobDeletionNotice:
		return o.processDeletion(ctx, job)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobKind, job.Kind)
	}
}

func (o *Orchestrator) processLookup(ctx context.Context, job model.Job) error {
	if o.lookup == nil || o.emitter == nil {
		return fmt.Errorf("lookup job %s: %w", job.ID, ErrNotConfigured)
	}
	id, ok := ValidResourceID(job.ResourceID)
	if !ok {
		return nil
	}

	res := o.lookup.Lookup(ctx, id)
	metrics.RecordEnrichmentResult(res.Kind().String())

	msg, ok := Format(res, o.limit)
	if !ok {
		return nil
	}
	metrics.RecordOutboundMessage(msg.Scope.String())

	var err error
	if msg.Scope == Broadcast {
		err = o.emitter.Broadcast(ctx, job.Bot, job.Channel, msg.Text.String())
	} else {
		o.logger.Info(ctx, "lookup failed",
			logger.String("resource_id", job.ResourceID),
			logger.String("result", res.Kind().String()),
			logger.String("detail", res.Detail()),
		)
		err = o.emitter.NotifyPrivately(ctx, job.Bot, job.Sender, msg.Text.String())
	}
	if err != nil {
		metrics.RecordOutboundFailure(msg.Scope.String())
		o.logger.Warn(ctx, "could not deliver lookup result",
			logger.String("channel", job.Channel),
			logger.String("scope", msg.Scope.String()),
			logger.Error(err),
		)
	}
	return nil
}

func (o *Orchestrator) processDeletion(ctx context.Context, job model.Job) error {
	if o.notifier == nil {
		return fmt.Errorf("deletion job %s: %w", job.ID, ErrNotConfigured)
	}

	event := "DROP"
	if job.Forced {
		event = "FDROP"
	}

	if err := o.notifier.NotifyDeleted(ctx, job.Account); err != nil {
		metrics.RecordDeletionNotice("failed")
		o.logger.Error(ctx, "account deletion notice failed",
			logger.String("event", event),
			logger.String("account", job.Account),
			logger.Error(err),
		)
		return nil
	}

	metrics.RecordDeletionNotice("sent")
	o.logger.Info(ctx, "account deletion notice sent",
		logger.String("event", event),
		logger.String("account", job.Account),
	)
	return nil
}
