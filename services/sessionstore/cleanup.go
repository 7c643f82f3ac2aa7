package sessionstore

import (
	"context"
	"time"

	"github.com/flashtalk/flashtalk/services/logging"
	"go.uber.org/zap"
)

// CleanupWorker periodically deletes expired or revoked credentials. It
// runs on its own loop, decoupled from request handling, and stops
// promptly when Stop is called.
type CleanupWorker struct {
	store    Store
	interval time.Duration
	logger   *logging.Service
	stop     chan struct{}
	done     chan struct{}
}

func NewCleanupWorker(store Store, interval time.Duration, logger *logging.Service) *CleanupWorker {
	return &CleanupWorker{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *CleanupWorker) Start() {
	go w.run()
	w.logger.Info("started refresh credential cleanup worker",
		zap.Duration("interval", w.interval))
}

func (w *CleanupWorker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

func (w *CleanupWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	deleted, err := w.store.DeleteExpiredOrRevoked(ctx)
	if err != nil {
		w.logger.Error("credential cleanup sweep failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		w.logger.Info("cleaned up stale refresh credentials",
			zap.Int64("count", deleted))
	} else {
		w.logger.Debug("no stale refresh credentials to clean up")
	}
}

// Stop signals the loop and waits for the in-flight sweep to finish.
func (w *CleanupWorker) Stop() {
	close(w.stop)
	<-w.done
}
