package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
)

// SyncRunner is implemented by Pipeline.
type SyncRunner interface {
	SyncCase(ctx context.Context, caseID string) (*SyncReport, error)
}

// CaseLock serializes sync cycles for one case across worker instances.
// Implemented by redis.SyncLock.
type CaseLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockFactory builds a lock for one case.  A nil factory disables locking,
// which is fine for single-instance deployments.
type LockFactory func(caseID string) CaseLock

// WorkerConfig holds the loop parameters.
type WorkerConfig struct {
	// Interval is the pause between passes; a case checked within the last
	// interval is skipped by the next pass.
	Interval time.Duration
	// Concurrency is the number of cases synced in parallel.
	Concurrency int
	// BatchSize caps how many cases one pass picks up.
	BatchSize int
}

// Worker periodically sweeps tracked cases through the sync pipeline.
type Worker struct {
	repo   caserecord.Repository
	runner SyncRunner
	locks  LockFactory
	cfg    WorkerConfig
	logger logging.Logger
}

func NewWorker(repo caserecord.Repository, runner SyncRunner, locks LockFactory, cfg WorkerConfig, log logging.Logger) *Worker {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	return &Worker{
		repo:   repo,
		runner: runner,
		locks:  locks,
		cfg:    cfg,
		logger: log.Named("worker"),
	}
}

// Run executes passes until the context is cancelled.  The first pass starts
// immediately.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce sweeps one batch of due cases and reports how many synced without
// error.  Per-case failures are logged and do not stop the pass.
func (w *Worker) RunOnce(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-w.cfg.Interval)
	ids, err := w.repo.ListForSync(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("failed to list cases for sync", logging.Err(err))
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	w.logger.Info("sync pass starting", logging.Int("cases", len(ids)))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		synced int
	)
	sem := make(chan struct{}, w.cfg.Concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(caseID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if w.syncOne(ctx, caseID) {
				mu.Lock()
				synced++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	w.logger.Info("sync pass finished",
		logging.Int("cases", len(ids)),
		logging.Int("synced", synced),
	)
	return synced
}

// syncOne runs the pipeline for one case under its lock.  A held lock means
// another instance is already on it; that is a skip, not an error.
func (w *Worker) syncOne(ctx context.Context, caseID string) bool {
	if w.locks != nil {
		lock := w.locks(caseID)
		ok, err := lock.TryLock(ctx)
		if err != nil {
			w.logger.Warn("failed to acquire sync lock",
				logging.String("case_id", caseID),
				logging.Err(err),
			)
			return false
		}
		if !ok {
			w.logger.Debug("case locked by another instance",
				logging.String("case_id", caseID),
			)
			return false
		}
		defer func() {
			if err := lock.Unlock(ctx); err != nil {
				w.logger.Warn("failed to release sync lock",
					logging.String("case_id", caseID),
					logging.Err(err),
				)
			}
		}()
	}

	report, err := w.runner.SyncCase(ctx, caseID)
	if err != nil {
		w.logger.Error("case sync failed",
			logging.String("case_id", caseID),
			logging.Err(err),
		)
		return false
	}
	if len(report.Changes) > 0 {
		w.logger.Info("case changed",
			logging.String("case_id", caseID),
			logging.Int("changes", len(report.Changes)),
			logging.Int("new_acts", report.NewActs),
			logging.Int("notifications", report.Notifications),
		)
	}
	return true
}
