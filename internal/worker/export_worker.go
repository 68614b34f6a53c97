package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"waterquality/internal/service"

	"go.uber.org/zap"
)

// ExportWorker periodically writes a snapshot of every measurement to the
// export directory.
type ExportWorker struct {
	service  service.ExportService
	format   string
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

func NewExportWorker(service service.ExportService, format string, interval time.Duration, logger *zap.Logger) *ExportWorker {
	return &ExportWorker{
		service:  service,
		format:   format,
		interval: interval,
		logger:   logger,
	}
}

func (w *ExportWorker) Name() string { return "export" }

func (w *ExportWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("export worker started",
		zap.Duration("interval", w.interval),
		zap.String("format", w.format))

	w.snapshot()
	go w.run(w.stopChan, w.done)
}

func (w *ExportWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("export worker stopped")
}

func (w *ExportWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.snapshot()
		case <-stop:
			return
		}
	}
}

func (w *ExportWorker) snapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	path, err := w.service.Snapshot(ctx, w.format)
	switch {
	case errors.Is(err, service.ErrNoData):
		w.logger.Info("export worker: no measurements, snapshot skipped")
	case err != nil:
		w.logger.Error("export worker: snapshot failed", zap.Error(err))
	default:
		w.logger.Debug("export worker: snapshot written", zap.String("path", path))
	}
}
