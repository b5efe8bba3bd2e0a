package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/wolfman30/premiumcar-router/internal/events"
	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// Dispatcher advances a user's conversation for one inbound message.
type Dispatcher interface {
	Advance(ctx context.Context, in flow.Inbound) error
}

// Worker consumes inbound jobs from the queue and hands them to the
// dispatcher.
type Worker struct {
	dispatcher Dispatcher
	queue      queueClient
	processed  events.Deduper
	logger     *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	jobTimeout       time.Duration
	processed        events.Deduper
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	defaultJobTimeout    = 60 * time.Second
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithJobTimeout bounds a single dispatch, including LLM and sheet calls.
func WithJobTimeout(d time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if d > 0 {
			cfg.jobTimeout = d
		}
	}
}

// WithProcessedStore enables dedupe of redelivered webhook messages.
func WithProcessedStore(store events.Deduper) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.processed = store
	}
}

// NewWorker builds a worker.
func NewWorker(dispatcher Dispatcher, queue queueClient, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if dispatcher == nil {
		panic("conversation: dispatcher cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		jobTimeout:       defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		dispatcher: dispatcher,
		queue:      queue,
		processed:  cfg.processed,
		logger:     logger,
		cfg:        cfg,
	}
}

// partitionedQueue routes each user's jobs to a fixed partition.
type partitionedQueue interface {
	Partitions() int
	ReceiveFrom(ctx context.Context, partition, maxMessages, waitSeconds int) ([]queueMessage, error)
}

// orderedQueue is implemented by queues that may or may not preserve
// per-user order across concurrent consumers.
type orderedQueue interface {
	Ordered() bool
}

type receiveFunc func(ctx context.Context) ([]queueMessage, error)

// Start launches the consumer goroutines. They exit when ctx is done.
//
// A user's messages must reach the dispatcher in the order they arrived.
// A partitioned queue gets one consumer per partition and the worker count
// is ignored. A queue that reports it is unordered gets a single consumer.
func (w *Worker) Start(ctx context.Context) {
	n := w.consumerCount()
	pq, partitioned := w.queue.(partitionedQueue)
	if !partitioned && n < w.cfg.workers {
		w.logger.Warn("queue does not keep per-user order; running a single consumer", "requested_workers", w.cfg.workers)
	}
	for i := 0; i < n; i++ {
		receive := func(ctx context.Context) ([]queueMessage, error) {
			return w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		}
		if partitioned {
			receive = func(ctx context.Context) ([]queueMessage, error) {
				return pq.ReceiveFrom(ctx, i, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
			}
		}
		w.spawn(ctx, i+1, receive)
	}
}

func (w *Worker) consumerCount() int {
	if pq, ok := w.queue.(partitionedQueue); ok {
		return pq.Partitions()
	}
	if oq, ok := w.queue.(orderedQueue); ok && !oq.Ordered() {
		return 1
	}
	return w.cfg.workers
}

func (w *Worker) spawn(ctx context.Context, workerID int, receive receiveFunc) {
	w.wg.Add(1)
	go w.run(ctx, workerID, receive)
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int, receive receiveFunc) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage always deletes the job. A redelivery after partial sends
// would duplicate replies, so failures are logged instead of retried.
func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	defer w.deleteMessage(context.WithoutCancel(ctx), msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode conversation job", "error", err, "msg_id", msg.ID)
		return
	}
	if payload.Kind != jobTypeInbound {
		w.logger.Error("unknown conversation job type", "kind", payload.Kind, "job_id", payload.ID)
		return
	}

	in := payload.Inbound.decode()
	logger := w.logger.With("job_id", payload.ID, "message_id", in.MessageID, "event_type", payload.Inbound.EventType)

	if w.processed != nil && in.MessageID != "" {
		fresh, err := w.processed.MarkProcessed(ctx, events.ProviderWhatsApp, in.MessageID)
		switch {
		case err != nil:
			logger.Warn("processed-event check failed, dispatching anyway", "error", err)
		case !fresh:
			logger.Info("skipping duplicate inbound message")
			return
		}
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.jobTimeout)
	defer cancel()

	if err := w.dispatch(jobCtx, in); err != nil {
		logger.Error("conversation job failed", "error", err)
		return
	}
	logger.Debug("conversation job processed", "queued_for", time.Since(payload.EnqueuedAt).String())
}

func (w *Worker) dispatch(ctx context.Context, in flow.Inbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while dispatching inbound message",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("conversation: dispatch panicked: %v", r)
		}
	}()
	return w.dispatcher.Advance(ctx, in)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete conversation job", "error", err)
	}
}
