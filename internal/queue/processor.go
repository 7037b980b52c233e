// Package queue drains pending generation jobs one at a time.
package queue

import (
	"context"
	"errors"
	"sync/atomic"

	"sakuga/internal/domain"
	"sakuga/internal/generation"
	"sakuga/internal/infra"
	"sakuga/internal/providers"
)

// Dispatcher routes a generation request to the named provider.
type Dispatcher interface {
	Generate(ctx context.Context, name string, p providers.GenerateParams) (*providers.Result, error)
}

// Recorder persists a provider result as history rows.
type Recorder interface {
	Record(ctx context.Context, req generation.Request, result *providers.Result) ([]domain.HistoryEntry, error)
}

// Processor drains the queue with at most one job in flight. Kick is
// called after every enqueue and retry; if a drain is already running the
// call is a no-op and the running drain picks the new job up.
type Processor struct {
	queue    domain.QueueRepository
	dispatch Dispatcher
	recorder Recorder
	log      infra.Logger

	busy atomic.Bool
}

func NewProcessor(queue domain.QueueRepository, dispatch Dispatcher, recorder Recorder, log infra.Logger) *Processor {
	return &Processor{
		queue:    queue,
		dispatch: dispatch,
		recorder: recorder,
		log:      log,
	}
}

// Kick starts a drain goroutine unless one is already running. The drain
// runs on a background context so in-flight work outlives the HTTP
// request that triggered it.
func (p *Processor) Kick() {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.release()
		p.drain(context.Background())
	}()
}

// release clears the busy flag, then re-kicks if a job slipped in between
// the empty-queue check and the flag going down.
func (p *Processor) release() {
	p.busy.Store(false)
	if _, err := p.queue.NextPending(context.Background()); err == nil {
		p.Kick()
	}
}

// Busy reports whether a drain is currently running.
func (p *Processor) Busy() bool {
	return p.busy.Load()
}

func (p *Processor) drain(ctx context.Context) {
	for {
		job, err := p.queue.NextPending(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.log.Error().Err(err).Msg("queue: fetch next pending job")
			}
			return
		}
		p.process(ctx, job)
	}
}

// process runs one job to completion. A failed job is marked failed and
// left in the queue for inspection or retry; the drain moves on to the
// next pending job either way.
func (p *Processor) process(ctx context.Context, job *domain.Job) {
	log := p.log.With().
		Str("job_id", job.ID).
		Str("provider", job.Provider).
		Logger()

	if err := p.queue.SetStatus(ctx, job.ID, domain.JobStatusProcessing, ""); err != nil {
		log.Error().Err(err).Msg("queue: mark job processing")
		return
	}
	log.Info().Int("count", job.Count).Msg("queue: processing job")

	result, err := p.dispatch.Generate(ctx, job.Provider, providers.GenerateParams{
		Prompt:      job.Prompt,
		Model:       job.Model,
		AspectRatio: job.AspectRatio,
		Count:       job.Count,
	})
	if err != nil {
		p.fail(ctx, job, log, err)
		return
	}

	entries, err := p.recorder.Record(ctx, generation.Request{
		Prompt:      job.Prompt,
		Type:        domain.GenerationTypeGenerate,
		Provider:    job.Provider,
		Model:       job.Model,
		AspectRatio: job.AspectRatio,
		Count:       job.Count,
	}, result)
	if err != nil {
		p.fail(ctx, job, log, err)
		return
	}

	if err := p.queue.Remove(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("queue: remove completed job")
		return
	}
	log.Info().Int("images", len(entries)).Msg("queue: job completed")
}

func (p *Processor) fail(ctx context.Context, job *domain.Job, log infra.Logger, cause error) {
	log.Error().Err(cause).Msg("queue: job failed")
	if err := p.queue.SetStatus(ctx, job.ID, domain.JobStatusFailed, cause.Error()); err != nil {
		log.Error().Err(err).Msg("queue: mark job failed")
	}
}

// ResetStale requeues jobs stuck in processing after an unclean shutdown.
// Called once on startup before the first Kick.
func (p *Processor) ResetStale(ctx context.Context) error {
	n, err := p.queue.ResetProcessing(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		p.log.Info().Int("jobs", n).Msg("queue: requeued stale processing jobs")
	}
	return nil
}
