package worker

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/engine"
	"github.com/cpconnect/chms-sync/internal/pkg/distlock"
	"github.com/cpconnect/chms-sync/internal/pkg/logger"
)

// dequeueTimeout bounds each BRPOP so the loop can notice shutdown.
const dequeueTimeout = 5 * time.Second

// lockTTL must outlive the longest plausible run; the lock is released
// explicitly on completion either way.
const lockTTL = 30 * time.Minute

// Runner executes one sync pass. Satisfied by engine.Orchestrator.
type Runner interface {
	Run(ctx context.Context, ct domain.ContentType, opts engine.RunOptions) (*domain.RunReport, error)
}

// RunSaver records finished runs for the admin surface.
type RunSaver interface {
	Save(ctx context.Context, report *domain.RunReport) error
}

// SyncWorker consumes the job queue and executes runs. A distributed
// lock per content type guarantees single-flight: when another worker
// holds the lock the job is dropped, not requeued, because the holder
// is already syncing the same data.
type SyncWorker struct {
	queue       *Queue
	runner      Runner
	runs        RunSaver
	redisClient *redis.Client
	db          *sql.DB

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewSyncWorker creates a sync worker. redisClient and db feed the
// distributed lock; runs may be nil to skip run history.
func NewSyncWorker(queue *Queue, runner Runner, runs RunSaver, redisClient *redis.Client, db *sql.DB) *SyncWorker {
	return &SyncWorker{
		queue:       queue,
		runner:      runner,
		runs:        runs,
		redisClient: redisClient,
		db:          db,
	}
}

// Start begins the consume loop.
func (w *SyncWorker) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker already running")
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	logger.Info("sync worker starting")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			default:
			}

			job, err := w.queue.Dequeue(w.ctx, dequeueTimeout)
			if err != nil {
				if w.ctx.Err() != nil {
					return
				}
				logger.Error("dequeue failed", "error", err.Error())
				time.Sleep(time.Second)
				continue
			}
			if job == nil {
				continue
			}
			w.process(*job)
		}
	}()
	return nil
}

// Stop halts the loop and waits for the in-flight job to finish.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *SyncWorker) process(job Job) {
	lock := distlock.NewLock(w.redisClient, w.db, fmt.Sprintf("run:%s", job.ContentType), lockTTL)

	acquired, err := lock.Acquire(w.ctx)
	if err != nil {
		logger.Error("lock acquire failed", "content_type", job.ContentType, "error", err.Error())
		return
	}
	if !acquired {
		logger.Info("sync already in flight, skipping", "job_id", job.ID.String(), "content_type", job.ContentType)
		return
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("lock release failed", "content_type", job.ContentType, "error", err.Error())
		}
	}()

	report, runErr := w.runner.Run(w.ctx, job.ContentType, engine.RunOptions{ForceFullResync: job.Force})
	if runErr != nil {
		logger.Error("sync job failed", "job_id", job.ID.String(), "content_type", job.ContentType, "error", runErr.Error())
	}

	if w.runs != nil && report != nil {
		// Persist the report even for failed runs; the history is how
		// operators notice a content type has stopped syncing.
		if err := w.runs.Save(context.Background(), report); err != nil {
			logger.Warn("run report not saved", "run_id", report.ID.String(), "error", err.Error())
		}
	}
}
