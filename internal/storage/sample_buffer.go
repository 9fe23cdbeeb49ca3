package storage

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// SampleBatchWriter inserts many samples in one round-trip.
type SampleBatchWriter interface {
	InsertBatch(ctx context.Context, samples []*models.SensorSample) error
}

// SampleBuffer batches sample writes in front of a column store.
// It flushes when the batch fills or the interval elapses, whichever
// comes first. When full it drops the oldest pending samples.
//
// SampleBuffer implements SampleRepository; reads flush pending samples
// first so a series never misses a reading that was accepted.
type SampleBuffer struct {
	writer        SampleBatchWriter
	reader        SampleRepository
	batchSize     int
	flushInterval time.Duration
	maxPending    int

	mu       sync.Mutex
	pending  []*models.SensorSample
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopped  atomic.Bool
	dropped  atomic.Int64
	inserted atomic.Int64
}

// SampleBufferConfig holds SampleBuffer configuration.
type SampleBufferConfig struct {
	// BatchSize is the number of samples that triggers a flush (default: 500).
	BatchSize int

	// FlushInterval is the longest a sample waits before a flush (default: 2s).
	FlushInterval time.Duration

	// MaxPending is the buffer capacity (default: 50000).
	MaxPending int
}

// NewSampleBuffer creates a buffer writing through writer and reading through reader.
func NewSampleBuffer(writer SampleBatchWriter, reader SampleRepository, config *SampleBufferConfig) *SampleBuffer {
	if config == nil {
		config = &SampleBufferConfig{}
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 2 * time.Second
	}
	if config.MaxPending == 0 {
		config.MaxPending = 50000
	}

	b := &SampleBuffer{
		writer:        writer,
		reader:        reader,
		batchSize:     config.BatchSize,
		flushInterval: config.FlushInterval,
		maxPending:    config.MaxPending,
		pending:       make([]*models.SensorSample, 0, config.BatchSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	go b.flushLoop()
	return b
}

// Insert queues a sample.
func (b *SampleBuffer) Insert(ctx context.Context, s *models.SensorSample) error {
	if b.stopped.Load() {
		return b.writer.InsertBatch(ctx, []*models.SensorSample{s})
	}

	b.mu.Lock()
	if len(b.pending) >= b.maxPending {
		b.pending = b.pending[1:]
		b.dropped.Add(1)
		log.Printf("warning: sample buffer full, dropped oldest sample")
	}
	b.pending = append(b.pending, s)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// FetchSamples flushes pending samples and reads from the underlying store.
func (b *SampleBuffer) FetchSamples(ctx context.Context, metric models.MetricKind, since time.Time) ([]*models.SensorSample, error) {
	if err := b.Flush(ctx); err != nil {
		log.Printf("sample buffer flush error: %v", err)
	}
	return b.reader.FetchSamples(ctx, metric, since)
}

// Flush writes all pending samples. On failure they are put back.
func (b *SampleBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.pending
	b.pending = make([]*models.SensorSample, 0, b.batchSize)
	b.mu.Unlock()

	if err := b.writer.InsertBatch(ctx, batch); err != nil {
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		if excess := len(b.pending) - b.maxPending; excess > 0 {
			b.dropped.Add(int64(excess))
			b.pending = b.pending[excess:]
		}
		b.mu.Unlock()
		return err
	}

	b.inserted.Add(int64(len(batch)))
	return nil
}

func (b *SampleBuffer) flushLoop() {
	defer close(b.doneCh)
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := b.Flush(ctx); err != nil {
				log.Printf("sample buffer flush error: %v", err)
			}
			cancel()
		case <-b.stopCh:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := b.Flush(ctx); err != nil {
				log.Printf("sample buffer final flush error: %v", err)
			}
			cancel()
			return
		}
	}
}

// Close stops the flush loop after a final flush.
func (b *SampleBuffer) Close() error {
	if b.stopped.Swap(true) {
		return nil
	}
	close(b.stopCh)
	<-b.doneCh
	return nil
}

// Stats returns buffer counters.
func (b *SampleBuffer) Stats() SampleBufferStats {
	b.mu.Lock()
	pending := len(b.pending)
	b.mu.Unlock()

	return SampleBufferStats{
		Pending:  pending,
		Dropped:  b.dropped.Load(),
		Inserted: b.inserted.Load(),
	}
}

// SampleBufferStats contains buffer counters.
type SampleBufferStats struct {
	Pending  int
	Dropped  int64
	Inserted int64
}
