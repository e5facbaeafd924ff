package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/event-booking/pkg/logger"
	"go.uber.org/zap"
)

// Pruner removes stale members from the popularity ranking
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// RankingPruneWorkerConfig contains configuration for the prune worker
type RankingPruneWorkerConfig struct {
	// Interval is the time between prune passes
	Interval time.Duration
	// Timeout bounds a single pass
	Timeout time.Duration
}

// DefaultRankingPruneWorkerConfig returns default configuration
func DefaultRankingPruneWorkerConfig() *RankingPruneWorkerConfig {
	return &RankingPruneWorkerConfig{
		Interval: 10 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// RankingPruneWorker periodically drops ranking members whose view counter
// has expired or whose event was deleted. The ranking set has no TTL of its
// own.
type RankingPruneWorker struct {
	pruner  Pruner
	config  *RankingPruneWorkerConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	totalPruned  int64
	lastRunTime  time.Time
	lastPruned   int
	lastError    string
	failedPasses int64
}

// NewRankingPruneWorker creates a new prune worker
func NewRankingPruneWorker(pruner Pruner, config *RankingPruneWorkerConfig) *RankingPruneWorker {
	def := DefaultRankingPruneWorkerConfig()
	if config == nil {
		config = def
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &RankingPruneWorker{
		pruner: pruner,
		config: config,
		log:    logger.Get(),
		stopCh: make(chan struct{}),
	}
}

// Start starts the prune worker
func (w *RankingPruneWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("ranking prune worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting ranking prune worker", zap.Duration("interval", w.config.Interval))

	w.wg.Add(1)
	go w.loop(ctx)

	return nil
}

// Stop stops the prune worker and waits for an in-flight pass
func (w *RankingPruneWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping ranking prune worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Ranking prune worker stopped")
}

func (w *RankingPruneWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single prune pass
func (w *RankingPruneWorker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	n, err := w.pruner.Prune(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRunTime = time.Now()
	if err != nil {
		w.failedPasses++
		w.lastError = err.Error()
		w.log.Warn("Ranking prune failed", zap.Error(err))
		return
	}
	w.lastError = ""
	w.lastPruned = n
	w.totalPruned += int64(n)
	if n > 0 {
		w.log.Info("Pruned ranking members", zap.Int("count", n))
	}
}

// GetStats returns worker statistics
func (w *RankingPruneWorker) GetStats() *RankingPruneWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &RankingPruneWorkerStats{
		IsRunning:    w.running,
		TotalPruned:  w.totalPruned,
		LastRunTime:  w.lastRunTime,
		LastPruned:   w.lastPruned,
		LastError:    w.lastError,
		FailedPasses: w.failedPasses,
	}
}

// RankingPruneWorkerStats contains worker statistics
type RankingPruneWorkerStats struct {
	IsRunning    bool      `json:"is_running"`
	TotalPruned  int64     `json:"total_pruned"`
	LastRunTime  time.Time `json:"last_run_time"`
	LastPruned   int       `json:"last_pruned"`
	LastError    string    `json:"last_error,omitempty"`
	FailedPasses int64     `json:"failed_passes"`
}
