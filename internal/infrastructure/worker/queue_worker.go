package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/garyjia/trash-inspection/internal/application/dispatcher"
	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/application/service"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
	"github.com/garyjia/trash-inspection/internal/infrastructure/metrics"
)

// QueueWorkerConfig holds configuration for the queue worker
type QueueWorkerConfig struct {
	NumberOfWorkers      int
	MaxParallelism       int64
	PollInterval         time.Duration
	BatchSize            int
	LeaseDuration        time.Duration
	MaxAttempts          int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	StatsInterval        time.Duration
}

// DefaultQueueWorkerConfig returns default configuration
func DefaultQueueWorkerConfig() QueueWorkerConfig {
	return QueueWorkerConfig{
		NumberOfWorkers:      1,
		MaxParallelism:       1,
		PollInterval:         time.Second,
		BatchSize:            10,
		LeaseDuration:        5 * time.Minute,
		MaxAttempts:          5,
		RetryInitialInterval: 5 * time.Second,
		RetryMaxInterval:     5 * time.Minute,
		StatsInterval:        15 * time.Second,
	}
}

// Metrics receives per-event and queue-level observations
type Metrics interface {
	ObserveEvent(eventType, outcome string, elapsed time.Duration)
	ObserveQueue(stats *entity.QueueStats)
}

// Status is a snapshot of the worker's runtime state
type Status struct {
	Name           string    `json:"name"`
	Running        bool      `json:"running"`
	StartTime      time.Time `json:"start_time"`
	LastProcessed  time.Time `json:"last_processed"`
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	DeadCount      int       `json:"dead_count"`
	LastError      string    `json:"last_error,omitempty"`
}

// QueueWorker consumes the event queue and dispatches events to their handlers.
// NumberOfWorkers poll loops claim messages; at most MaxParallelism handlers run at once.
type QueueWorker struct {
	config     QueueWorkerConfig
	queue      port.EventQueue
	dispatcher dispatcher.Dispatcher
	metrics    Metrics
	logger     *zap.Logger
	instanceID string

	sem      *semaphore.Weighted
	inflight sync.WaitGroup

	// Runtime state
	mu             sync.RWMutex
	cancel         context.CancelFunc
	done           chan struct{}
	isRunning      bool
	startTime      time.Time
	lastProcessed  time.Time
	processedCount int
	failedCount    int
	deadCount      int
	lastError      error
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(
	config QueueWorkerConfig,
	queue port.EventQueue,
	d dispatcher.Dispatcher,
	m Metrics,
	logger *zap.Logger,
) *QueueWorker {
	defaults := DefaultQueueWorkerConfig()
	if config.NumberOfWorkers <= 0 {
		config.NumberOfWorkers = defaults.NumberOfWorkers
	}
	if config.MaxParallelism <= 0 {
		config.MaxParallelism = defaults.MaxParallelism
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.LeaseDuration <= 0 {
		config.LeaseDuration = defaults.LeaseDuration
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryInitialInterval <= 0 {
		config.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if config.RetryMaxInterval < config.RetryInitialInterval {
		config.RetryMaxInterval = config.RetryInitialInterval
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = defaults.StatsInterval
	}

	return &QueueWorker{
		config:     config,
		queue:      queue,
		dispatcher: d,
		metrics:    m,
		logger:     logger,
		instanceID: uuid.NewString()[:8],
		sem:        semaphore.NewWeighted(config.MaxParallelism),
	}
}

// Start launches the poll loops in the background
func (w *QueueWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("queue worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.startTime = time.Now()
	w.mu.Unlock()

	w.logger.Info("QueueWorker started",
		zap.String("instance_id", w.instanceID),
		zap.Int("number_of_workers", w.config.NumberOfWorkers),
		zap.Int64("max_parallelism", w.config.MaxParallelism),
		zap.Duration("poll_interval", w.config.PollInterval))

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < w.config.NumberOfWorkers; i++ {
		name := fmt.Sprintf("%s-%d", w.instanceID, i)
		g.Go(func() error {
			return w.pollLoop(gctx, name)
		})
	}
	if w.metrics != nil {
		g.Go(func() error {
			return w.statsLoop(gctx)
		})
	}

	done := w.done
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("QueueWorker stopped with error", zap.Error(err))
		}
		w.inflight.Wait()
	}()

	return nil
}

// Stop cancels polling and waits for in-flight handlers to finish
func (w *QueueWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	status := w.Status()
	w.logger.Info("QueueWorker stopped",
		zap.Int("processed_count", status.ProcessedCount),
		zap.Int("failed_count", status.FailedCount),
		zap.Int("dead_count", status.DeadCount))

	return nil
}

// Name returns the worker name for identification
func (w *QueueWorker) Name() string {
	return "QueueWorker"
}

// Status returns a snapshot of the worker state
func (w *QueueWorker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Status{
		Name:           w.Name(),
		Running:        w.isRunning,
		StartTime:      w.startTime,
		LastProcessed:  w.lastProcessed,
		ProcessedCount: w.processedCount,
		FailedCount:    w.failedCount,
		DeadCount:      w.deadCount,
	}
	if w.lastError != nil {
		s.LastError = w.lastError.Error()
	}
	return s
}

func (w *QueueWorker) pollLoop(ctx context.Context, name string) error {
	for {
		n, err := w.poll(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("Failed to claim events", zap.String("worker", name), zap.Error(err))
		}

		// a full batch means more work is probably waiting
		if err == nil && n == w.config.BatchSize {
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Debug("Poll loop context cancelled", zap.String("worker", name))
			return nil
		case <-time.After(w.config.PollInterval):
		}
	}
}

// poll claims one batch and hands each message to a handler slot
func (w *QueueWorker) poll(ctx context.Context, name string) (int, error) {
	msgs, err := w.queue.Claim(ctx, name, w.config.BatchSize, w.config.LeaseDuration)
	if err != nil {
		return 0, err
	}

	for i, msg := range msgs {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			// stopping; unstarted messages come back when their lease expires
			return i, err
		}

		w.inflight.Add(1)
		go func(msg *entity.QueuedEvent) {
			defer w.inflight.Done()
			defer w.sem.Release(1)
			w.process(context.WithoutCancel(ctx), msg)
		}(msg)
	}

	return len(msgs), nil
}

func (w *QueueWorker) process(ctx context.Context, msg *entity.QueuedEvent) {
	start := time.Now()
	evt := msg.Event()

	err := w.dispatcher.Dispatch(ctx, evt)
	elapsed := time.Since(start)

	if err == nil {
		if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
			w.logger.Error("Failed to ack event", zap.Int64("queue_id", msg.ID), zap.Error(ackErr))
		}
		w.record(nil, false)
		w.observe(msg.EventType, metrics.EventOutcomeAcked, elapsed)
		w.logger.Debug("Event handled",
			zap.String("event_type", msg.EventType),
			zap.Int64("case_id", msg.CaseID),
			zap.Duration("elapsed", elapsed))
		return
	}

	if !isRetryable(err) || msg.Attempts >= w.config.MaxAttempts {
		w.logger.Error("Event dead-lettered",
			zap.String("event_id", msg.EventID),
			zap.String("event_type", msg.EventType),
			zap.Int64("case_id", msg.CaseID),
			zap.Int("attempts", msg.Attempts),
			zap.Error(err))
		if dlErr := w.queue.DeadLetter(ctx, msg.ID, err.Error()); dlErr != nil {
			w.logger.Error("Failed to dead-letter event", zap.Int64("queue_id", msg.ID), zap.Error(dlErr))
		}
		w.record(err, true)
		w.observe(msg.EventType, metrics.EventOutcomeDeadLetter, elapsed)
		return
	}

	delay := w.retryDelay(msg.Attempts)
	w.logger.Warn("Event failed, scheduling redelivery",
		zap.String("event_id", msg.EventID),
		zap.String("event_type", msg.EventType),
		zap.Int64("case_id", msg.CaseID),
		zap.Int("attempt", msg.Attempts),
		zap.Duration("delay", delay),
		zap.Error(err))
	if retryErr := w.queue.Retry(ctx, msg.ID, delay, err.Error()); retryErr != nil {
		w.logger.Error("Failed to reschedule event", zap.Int64("queue_id", msg.ID), zap.Error(retryErr))
	}
	w.record(err, false)
	w.observe(msg.EventType, metrics.EventOutcomeRetried, elapsed)
}

// isRetryable reports whether redelivery can change the outcome
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, service.ErrFieldNotFound),
		errors.Is(err, dispatcher.ErrNoHandler),
		errors.Is(err, event.ErrInvalidEvent):
		return false
	}
	return true
}

// retryDelay grows exponentially with the number of attempts so far
func (w *QueueWorker) retryDelay(attempts int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.config.RetryInitialInterval
	bo.MaxInterval = w.config.RetryMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	delay := bo.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = bo.NextBackOff()
	}
	return delay
}

func (w *QueueWorker) record(err error, dead bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastProcessed = time.Now()
	switch {
	case err == nil:
		w.processedCount++
	case dead:
		w.deadCount++
		w.failedCount++
		w.lastError = err
	default:
		w.failedCount++
		w.lastError = err
	}
}

func (w *QueueWorker) observe(eventType, outcome string, elapsed time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveEvent(eventType, outcome, elapsed)
	}
}

func (w *QueueWorker) statsLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.config.StatsInterval)
	defer ticker.Stop()

	for {
		stats, err := w.queue.Stats(ctx)
		if err == nil {
			w.metrics.ObserveQueue(stats)
		} else if ctx.Err() == nil {
			w.logger.Warn("Failed to read queue stats", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
