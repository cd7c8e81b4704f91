package worker

import (
	"context"
	"fmt"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	infraconfig "bunkerprices-service/internal/infrastructure/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var _ application.Worker = (*Scheduler)(nil)

type Poller interface {
	Poll(ctx context.Context) (domain.PollResult, error)
}

// Scheduler drives polls on a fixed interval. A failed cycle is attempted
// again with exponential backoff, always giving up before the next tick.
type Scheduler struct {
	Poller Poller

	PollEvery    time.Duration
	RetryInitial time.Duration
	RetryMax     time.Duration
	CycleTimeout time.Duration
	RunAtStart   bool
	Log          *zap.Logger
}

func (w *Scheduler) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = infraconfig.DefaultPollInterval
	}
	if w.RetryMax <= 0 || w.RetryMax >= w.PollEvery {
		w.RetryMax = w.PollEvery / 2
	}
	if w.RetryInitial <= 0 {
		w.RetryInitial = 500 * time.Millisecond
	}
	if w.CycleTimeout <= 0 || w.CycleTimeout > w.PollEvery {
		w.CycleTimeout = w.PollEvery
	}

	log.Info("scheduler_started",
		zap.Duration("poll_every", w.PollEvery),
		zap.Duration("retry_max", w.RetryMax),
	)
	if w.RunAtStart {
		w.cycle(ctx, log)
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler_stopped")
			return
		case <-t.C:
			w.cycle(ctx, log)
		}
	}
}

func (w *Scheduler) cycle(ctx context.Context, log *zap.Logger) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.RetryInitial
	exp.MaxInterval = w.RetryMax
	exp.MaxElapsedTime = w.RetryMax

	attempt := 0
	op := func() error {
		attempt++
		return w.runOnce(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("poll.retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(exp, ctx), notify); err != nil {
		log.Error("poll.cycle_failed", zap.Int("attempts", attempt), zap.Error(err))
	}
}

func (w *Scheduler) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll panic: %v", r)
		}
	}()
	c, cancel := context.WithTimeout(ctx, w.CycleTimeout)
	defer cancel()
	_, err = w.Poller.Poll(c)
	return err
}
