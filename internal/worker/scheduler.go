package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/logger"
)

// DefaultSyncInterval matches the hourly cadence content editors
// expect between ChMS edits showing up on the site.
const DefaultSyncInterval = time.Hour

// Scheduler enqueues one sync job per content type on a fixed
// interval. It never runs syncs itself; the queue decouples triggering
// from execution so a slow run cannot pile up timers.
type Scheduler struct {
	queue        *Queue
	contentTypes []domain.ContentType
	interval     time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewScheduler creates a scheduler for the given content types.
func NewScheduler(queue *Queue, contentTypes []domain.ContentType, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		queue:        queue,
		contentTypes: contentTypes,
		interval:     interval,
	}
}

// Start begins the enqueue loop. The first batch is enqueued
// immediately so a fresh deploy does not wait a full interval.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("scheduler starting", "interval", s.interval.String(), "content_types", fmt.Sprintf("%v", s.contentTypes))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.enqueueAll()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.enqueueAll()
			case <-s.ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop halts the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) enqueueAll() {
	for _, ct := range s.contentTypes {
		job := NewJob(ct, false)
		if err := s.queue.Enqueue(s.ctx, job); err != nil {
			logger.Error("scheduled enqueue failed", "content_type", ct, "error", err.Error())
			continue
		}
		logger.Debug("sync job enqueued", "job_id", job.ID.String(), "content_type", ct)
	}
}
