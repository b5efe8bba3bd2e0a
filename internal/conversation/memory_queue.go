package conversation

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

const defaultMemoryBuffer = 128

// MemoryQueue is a queueClient over buffered channels, for running the
// worker inside the API process. Jobs are not acknowledged: Delete is a no-op
// and nothing is redelivered.
//
// The queue is split into partitions. Grouped jobs always land in the
// partition their group hashes to, so a consumer that owns a partition sees
// one user's jobs in the order they were sent.
type MemoryQueue struct {
	parts []chan queueMessage
}

// MemoryQueueOption customizes a MemoryQueue.
type MemoryQueueOption func(*memoryQueueConfig)

type memoryQueueConfig struct {
	partitions int
}

// WithPartitions sets the number of partitions. The worker runs one consumer
// per partition.
func WithPartitions(n int) MemoryQueueOption {
	return func(c *memoryQueueConfig) {
		if n > 0 {
			c.partitions = n
		}
	}
}

// NewMemoryQueue creates a queue whose partitions each buffer up to buffer
// jobs.
func NewMemoryQueue(buffer int, opts ...MemoryQueueOption) *MemoryQueue {
	if buffer <= 0 {
		buffer = defaultMemoryBuffer
	}
	cfg := memoryQueueConfig{partitions: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &MemoryQueue{parts: make([]chan queueMessage, cfg.partitions)}
	for i := range q.parts {
		q.parts[i] = make(chan queueMessage, buffer)
	}
	return q
}

// Send enqueues an ungrouped job. It blocks while the target partition is
// full, until ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	id := uuid.NewString()
	return q.push(ctx, q.partitionFor(id), id, body)
}

// SendGrouped routes the job by groupID. The dedupe id is unused; the worker
// dedupes on the message id itself.
func (q *MemoryQueue) SendGrouped(ctx context.Context, body, groupID, _ string) error {
	id := uuid.NewString()
	key := groupID
	if key == "" {
		key = id
	}
	return q.push(ctx, q.partitionFor(key), id, body)
}

func (q *MemoryQueue) push(ctx context.Context, part int, id, body string) error {
	select {
	case q.parts[part] <- queueMessage{ID: id, Body: body, ReceiptHandle: id}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) partitionFor(key string) int {
	if len(q.parts) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(q.parts)))
}

// Partitions reports how many partitions the queue has.
func (q *MemoryQueue) Partitions() int { return len(q.parts) }

// Receive reads from the first partition. Consumers of a partitioned queue
// use ReceiveFrom.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	return q.ReceiveFrom(ctx, 0, maxMessages, waitSeconds)
}

// ReceiveFrom waits for the first job of one partition, then drains whatever
// else that partition already buffers up to maxMessages. A positive
// waitSeconds bounds the wait; on expiry it returns no jobs and no error.
func (q *MemoryQueue) ReceiveFrom(ctx context.Context, partition, maxMessages, waitSeconds int) ([]queueMessage, error) {
	jobs := q.parts[partition%len(q.parts)]
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var expired <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		expired = timer.C
	}

	var first queueMessage
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, nil
	case first = <-jobs:
	}

	batch := []queueMessage{first}
	for len(batch) < maxMessages {
		select {
		case job := <-jobs:
			batch = append(batch, job)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (q *MemoryQueue) Delete(context.Context, string) error { return nil }

// Len reports the number of buffered jobs across partitions.
func (q *MemoryQueue) Len() int {
	n := 0
	for _, p := range q.parts {
		n += len(p)
	}
	return n
}
