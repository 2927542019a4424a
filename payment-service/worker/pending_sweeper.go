package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/orchestrator"
	"github.com/arunvm123/tourismbooking/payment-service/repository"
)

// Retrier re-charges a pending payment.
type Retrier interface {
	Retry(ctx context.Context, paymentID string) (*orchestrator.CreateResult, error)
}

type SweeperConfig struct {
	MaxWorkers    int
	Interval      time.Duration
	PendingAge    time.Duration
	BatchSize     int
	MaxPendingAge time.Duration
}

func SweeperConfigFrom(cfg *config.Worker) SweeperConfig {
	return SweeperConfig{
		MaxWorkers:    cfg.MaxWorkers,
		Interval:      time.Duration(cfg.SweepIntervalSecs) * time.Second,
		PendingAge:    time.Duration(cfg.PendingAgeMinutes) * time.Minute,
		BatchSize:     cfg.BatchSize,
		MaxPendingAge: time.Duration(cfg.MaxPendingAgeHours) * time.Hour,
	}
}

type sweepJob struct {
	payment model.Payment
	done    func()
}

// PendingSweeper periodically retries payments that were left pending by an
// unreachable gateway. Payments older than MaxPendingAge are only reported,
// since their gateway state needs manual reconciliation.
type PendingSweeper struct {
	repo    repository.PaymentRepository
	retrier Retrier
	clock   clock.Clock
	cfg     SweeperConfig
	log     *slog.Logger

	// Worker pool for managing goroutines
	workerPool chan chan sweepJob
	workers    []*sweepWorker

	// Metrics
	processedCount int64
	confirmedCount int64
	failedCount    int64
	staleCount     int64
	activeWorkers  int64
}

type sweepWorker struct {
	id         int
	sweeper    *PendingSweeper
	jobChannel chan sweepJob
	workerPool chan chan sweepJob
	quit       chan struct{}
	stopped    chan struct{}
}

// Stats is a snapshot of the sweeper counters.
type Stats struct {
	Processed     int64
	Confirmed     int64
	Failed        int64
	Stale         int64
	ActiveWorkers int64
}

func NewPendingSweeper(repo repository.PaymentRepository, retrier Retrier, clk clock.Clock, cfg SweeperConfig, log *slog.Logger) *PendingSweeper {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	s := &PendingSweeper{
		repo:       repo,
		retrier:    retrier,
		clock:      clk,
		cfg:        cfg,
		log:        log.With("component", "pending_sweeper"),
		workerPool: make(chan chan sweepJob, cfg.MaxWorkers),
		workers:    make([]*sweepWorker, cfg.MaxWorkers),
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		s.workers[i] = &sweepWorker{
			id:         i,
			sweeper:    s,
			jobChannel: make(chan sweepJob),
			workerPool: s.workerPool,
			quit:       make(chan struct{}),
			stopped:    make(chan struct{}),
		}
	}
	return s
}

// Start sweeps every Interval until ctx is cancelled.
func (s *PendingSweeper) Start(ctx context.Context) error {
	s.log.Info("starting pending payment sweeper",
		"workers", len(s.workers),
		"interval", s.cfg.Interval,
		"pending_age", s.cfg.PendingAge,
	)

	s.startWorkers(ctx)
	defer s.stopWorkers()

	go s.reportMetrics(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.log.Info("pending payment sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce dispatches one batch of stale pending payments to the workers
// and waits for them. Workers must be running.
func (s *PendingSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	payments, err := s.repo.ListPendingPayments(ctx, now.Add(-s.cfg.PendingAge), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	dispatched := 0
	for _, p := range payments {
		if s.cfg.MaxPendingAge > 0 && now.Sub(p.CreatedAt) > s.cfg.MaxPendingAge {
			atomic.AddInt64(&s.staleCount, 1)
			s.log.Warn("pending payment too old to retry, needs reconciliation",
				"payment_id", p.ID,
				"created_at", p.CreatedAt,
			)
			continue
		}

		// Blocks until a worker is free
		select {
		case jobChannel := <-s.workerPool:
			wg.Add(1)
			jobChannel <- sweepJob{payment: p, done: wg.Done}
			dispatched++
		case <-ctx.Done():
			wg.Wait()
			return dispatched, ctx.Err()
		}
	}

	wg.Wait()
	if dispatched > 0 {
		s.log.Info("sweep completed", "dispatched", dispatched, "found", len(payments))
	}
	return dispatched, nil
}

func (s *PendingSweeper) Stats() Stats {
	return Stats{
		Processed:     atomic.LoadInt64(&s.processedCount),
		Confirmed:     atomic.LoadInt64(&s.confirmedCount),
		Failed:        atomic.LoadInt64(&s.failedCount),
		Stale:         atomic.LoadInt64(&s.staleCount),
		ActiveWorkers: atomic.LoadInt64(&s.activeWorkers),
	}
}

func (s *PendingSweeper) startWorkers(ctx context.Context) {
	for _, w := range s.workers {
		w.start(ctx)
	}
}

func (s *PendingSweeper) stopWorkers() {
	for _, w := range s.workers {
		close(w.quit)
	}
	for _, w := range s.workers {
		<-w.stopped
	}
	s.log.Info("all sweeper workers finished")
}

func (w *sweepWorker) start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			// Register this worker in the pool
			select {
			case w.workerPool <- w.jobChannel:
			case <-w.quit:
				return
			}

			select {
			case job := <-w.jobChannel:
				atomic.AddInt64(&w.sweeper.activeWorkers, 1)
				w.sweeper.retry(ctx, job.payment)
				atomic.AddInt64(&w.sweeper.processedCount, 1)
				atomic.AddInt64(&w.sweeper.activeWorkers, -1)
				job.done()
			case <-w.quit:
				return
			}
		}
	}()
}

func (s *PendingSweeper) retry(ctx context.Context, p model.Payment) {
	res, err := s.retrier.Retry(ctx, p.ID)

	var (
		unreachable *model.GatewayUnreachableError
		rejected    *model.GatewayRejectedError
		conflict    *model.ConflictError
	)
	switch {
	case err == nil:
		atomic.AddInt64(&s.confirmedCount, 1)
		s.log.Info("pending payment settled", "payment_id", p.ID, "fallback", res.FallbackMode)
	case errors.As(err, &unreachable):
		s.log.Debug("gateway still unreachable", "payment_id", p.ID)
	case errors.As(err, &rejected):
		s.log.Info("pending payment rejected by gateway", "payment_id", p.ID, "code", rejected.Code)
	case errors.As(err, &conflict), model.IsNotFound(err):
		s.log.Debug("pending payment skipped", "payment_id", p.ID, "reason", err)
	default:
		atomic.AddInt64(&s.failedCount, 1)
		s.log.Error("failed to retry pending payment", "payment_id", p.ID, "error", err)
	}
}

// reportMetrics logs performance metrics
func (s *PendingSweeper) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.Stats()
			s.log.Info("sweeper metrics",
				"processed", st.Processed,
				"confirmed", st.Confirmed,
				"failed", st.Failed,
				"stale", st.Stale,
				"active_workers", st.ActiveWorkers,
			)
		}
	}
}
