// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ActionWriter persists a batch of action records atomically.
type ActionWriter interface {
	WriteActions(ctx context.Context, records []cache.GameActionRecord) error
}

// Options tune batching.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
}

// Historian drains the action queue that the game service fills and writes the
// records to durable storage in batches.
type Historian struct {
	rdb        *redis.Client
	writer     ActionWriter
	log        logrus.FieldLogger
	queue      string
	batchSize  int
	flushDelay time.Duration

	mu        sync.Mutex
	batch     []cache.GameActionRecord
	lastFlush time.Time
}

// New returns a Historian reading from rdb and writing through w.
func New(rdb *redis.Client, w ActionWriter, log logrus.FieldLogger, opts Options) *Historian {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	return &Historian{
		rdb:        rdb,
		writer:     w,
		log:        log,
		queue:      opts.Queue,
		batchSize:  opts.BatchSize,
		flushDelay: opts.FlushDelay,
		batch:      make([]cache.GameActionRecord, 0, opts.BatchSize),
		lastFlush:  time.Now(),
	}
}

// Run pops records until ctx is done, then flushes what is left.
func (h *Historian) Run(ctx context.Context) error {
	h.log.WithField("queue", h.queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			h.flush(flushCtx)
			h.log.Info("historian stopped")
			return nil
		default:
		}

		// BLPop with a timeout so batches are flushed even when the queue is idle.
		res, err := h.rdb.BLPop(ctx, h.flushDelay, h.queue).Result()
		switch {
		case err == nil && len(res) == 2:
			h.append(res[1])
		case err == nil, errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			continue
		default:
			h.log.WithError(err).Error("historian: BLPop failed")
			time.Sleep(h.flushDelay)
		}

		if h.due() {
			h.flush(ctx)
		}
	}
}

func (h *Historian) append(payload string) {
	var rec cache.GameActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		h.log.WithError(err).Warn("historian: dropping invalid action record")
		return
	}
	h.mu.Lock()
	h.batch = append(h.batch, rec)
	h.mu.Unlock()
}

func (h *Historian) due() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batch) >= h.batchSize || (len(h.batch) > 0 && time.Since(h.lastFlush) >= h.flushDelay)
}

// flush writes the pending batch. A failed batch is kept and retried on the next flush.
func (h *Historian) flush(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFlush = time.Now()
	if len(h.batch) == 0 {
		return
	}
	if err := h.writer.WriteActions(ctx, h.batch); err != nil {
		h.log.WithError(err).WithField("pending", len(h.batch)).Error("historian: flush failed")
		return
	}
	h.log.WithField("count", len(h.batch)).Debug("historian: flushed actions")
	h.batch = h.batch[:0]
}
