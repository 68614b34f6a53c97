package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background job owned by a Scheduler. Start returns once the job
// is running; Stop returns once it has finished its current run.
type Worker interface {
	Name() string
	Start()
	Stop()
}

type schedulerState int

const (
	stateIdle schedulerState = iota
	stateRunning
	stateStopped
)

// Scheduler starts its workers together and stops them in reverse order of
// registration.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	state   schedulerState
	workers []Worker
	starts  sync.WaitGroup
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// AddWorker registers w. A worker added to a running scheduler starts at once;
// one added after Stop is ignored.
func (s *Scheduler) AddWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateStopped:
		s.logger.Warn("worker added after stop, ignored", zap.String("worker", w.Name()))
		return
	case stateRunning:
		s.launch(w)
	}
	s.workers = append(s.workers, w)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return
	}
	s.state = stateRunning

	names := make([]string, 0, len(s.workers))
	for _, w := range s.workers {
		names = append(names, w.Name())
		s.launch(w)
	}
	s.logger.Info("scheduler started", zap.Strings("workers", names))
}

// launch must be called with mu held.
func (s *Scheduler) launch(w Worker) {
	s.starts.Add(1)
	go func() {
		defer s.starts.Done()
		w.Start()
	}()
}

// Stop stops every worker and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.state == stateRunning
	s.state = stateStopped
	workers := append([]Worker(nil), s.workers...)
	s.mu.Unlock()

	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// A worker still inside Start would miss its Stop.
		s.starts.Wait()
		for i := len(workers) - 1; i >= 0; i-- {
			workers[i].Stop()
			s.logger.Debug("worker stopped", zap.String("worker", workers[i].Name()))
		}
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}
