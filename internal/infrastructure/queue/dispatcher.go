package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/authgate/session-auth/internal/core/ports"
	"github.com/authgate/session-auth/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

type result struct {
	hash string
	ok   bool
	err  error
}

type job struct {
	ctx  context.Context
	op   string
	run  func(ctx context.Context) result
	done chan result
}

// Dispatcher runs password hashing on a fixed set of workers so that only a
// bounded number of expensive computations happen at once. It implements
// ports.CredentialHasher; callers wait with their own context.
type Dispatcher struct {
	jobs    chan job
	workers int
	hasher  ports.CredentialHasher
	log     zerolog.Logger
}

// NewDispatcher wraps hasher. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, hasher ports.CredentialHasher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{
		jobs:    make(chan job, channelBuffer),
		workers: numWorkers,
		hasher:  hasher,
		log:     log,
	}
}

// Start launches the worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		go d.runWorker(ctx, i)
	}
}

func (d *Dispatcher) Hash(ctx context.Context, raw string) (string, error) {
	res, err := d.submit(ctx, "hash", func(ctx context.Context) result {
		h, err := d.hasher.Hash(ctx, raw)
		return result{hash: h, err: err}
	})
	if err != nil {
		return "", err
	}
	return res.hash, res.err
}

func (d *Dispatcher) Verify(ctx context.Context, raw, hash string) (bool, error) {
	res, err := d.submit(ctx, "verify", func(ctx context.Context) result {
		ok, err := d.hasher.Verify(ctx, raw, hash)
		return result{ok: ok, err: err}
	})
	if err != nil {
		return false, err
	}
	return res.ok, res.err
}

// submit enqueues fn and waits for its result or for ctx to end.
func (d *Dispatcher) submit(ctx context.Context, op string, fn func(ctx context.Context) result) (result, error) {
	j := job{ctx: ctx, op: op, run: fn, done: make(chan result, 1)}

	select {
	case d.jobs <- j:
		metrics.HashQueueDepth.Set(float64(len(d.jobs)))
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-j.done:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.jobs:
			metrics.HashQueueDepth.Set(float64(len(d.jobs)))

			// The caller may have given up while the job was queued.
			if err := j.ctx.Err(); err != nil {
				j.done <- result{err: err}
				continue
			}

			start := time.Now()
			res := j.run(j.ctx)
			metrics.HashDuration.WithLabelValues(j.op).Observe(time.Since(start).Seconds())

			if res.err != nil {
				d.log.Error().Err(res.err).
					Str("op", j.op).
					Int("worker_id", id).
					Msg("hashing failed")
			}
			j.done <- res
		}
	}
}
