package export

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/schmidtdse/josh-core/internal/metrics"
)

const metricsResolution = 250 * time.Millisecond

// Pipeline is a bounded, chunked producer/consumer export queue for one Writer (§4.9).
// Produce may be called from several replicate goroutines at once (the driver runs
// replicates concurrently against one Router); a mutex serializes them, and a single
// internal consumer goroutine drains chunks to the Writer. The channel's buffer capacity is the bound: once
// queueCapacity chunks are in flight, Produce blocks, applying backpressure to the
// simulation instead of growing memory without limit.
//
// The three-goroutine errgroup shape (consume / meter / lifecycle) mirrors the
// publish/ping/read grouping of the teacher's websocket client, generalized here to
// "drain queue, report depth, wait for done".
type Pipeline struct {
	writer     Writer
	chunkSize  int
	label      string // for metrics/log attribution, e.g. "Organism.csv"

	queue chan []Record
	mu    sync.Mutex // guards buf across concurrent Produce calls
	buf   []Record

	inFlightBytes *AtomicFloat64
	closeOnce     sync.Once
	lastErr       atomic.Value // stores error

	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc
}

// NewPipeline constructs a bounded pipeline over writer, with queueCapacity chunks of up
// to chunkSize records each in flight at once.
func NewPipeline(ctx context.Context, label string, writer Writer, chunkSize, queueCapacity int) *Pipeline {
	groupCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(groupCtx)

	p := &Pipeline{
		writer:        writer,
		chunkSize:     chunkSize,
		label:         label,
		queue:         make(chan []Record, queueCapacity),
		inFlightBytes: NewAtomicFloat64(0),
		group:         group,
		groupCtx:      groupCtx,
		cancel:        cancel,
	}

	group.Go(func() error { return p.consume(groupCtx) })
	group.Go(func() error { return p.meter(groupCtx) })

	return p
}

// Produce appends rec to the pending chunk, flushing (and possibly blocking on a full
// queue) once chunkSize is reached. If the writer has already failed, Produce returns
// that error immediately without accepting rec (§4.9 "writer-failure propagation to next
// produce call").
func (p *Pipeline) Produce(rec Record) error {
	if err, ok := p.lastErr.Load().(error); ok && err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(p.buf, rec)
	if len(p.buf) >= p.chunkSize {
		return p.flush()
	}
	return nil
}

func (p *Pipeline) flush() error {
	if len(p.buf) == 0 {
		return nil
	}
	chunk := p.buf
	p.buf = nil

	var bytes int64
	for _, r := range chunk {
		bytes += r.approxBytes()
	}
	p.inFlightBytes.Add(float64(bytes))

	select {
	case p.queue <- chunk:
		return nil
	default:
	}

	blockStart := time.Now()
	defer func() {
		metrics.ProducerBlockedSeconds.WithLabelValues(p.label).Add(time.Since(blockStart).Seconds())
	}()
	select {
	case p.queue <- chunk:
		return nil
	case <-p.groupCtx.Done():
		return p.groupCtx.Err()
	}
}

func (p *Pipeline) consume(ctx context.Context) error {
	for {
		select {
		case chunk, ok := <-p.queue:
			if !ok {
				// Queue drained and closed: stop the meter too so Close's Wait returns.
				p.cancel()
				return nil
			}
			var bytes int64
			for _, r := range chunk {
				bytes += r.approxBytes()
			}
			if err := p.writer.WriteChunk(ctx, chunk); err != nil {
				p.lastErr.Store(fmt.Errorf("export[%s]: %w", p.label, err))
				p.inFlightBytes.Add(-float64(bytes))
				return err
			}
			p.inFlightBytes.Add(-float64(bytes))
		case <-ctx.Done():
			return nil
		}
	}
}

// meter periodically snapshots in-flight bytes into the shared prometheus gauge,
// ticking on a channerics ticker the way the teacher's websocket client ticks its
// ping/pong liveness check.
func (p *Pipeline) meter(ctx context.Context) error {
	tick := channerics.NewTicker(ctx.Done(), metricsResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			metrics.ExportQueueBytes.WithLabelValues(p.label).Set(p.inFlightBytes.Load())
		}
	}
}

// Close flushes any partial chunk, signals the consumer to drain and stop, waits for it,
// and closes the underlying writer. The first error encountered (producer or writer) is
// returned.
func (p *Pipeline) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		if err := p.flush(); err != nil {
			closeErr = err
		}
		close(p.queue)
		if err := p.group.Wait(); err != nil && closeErr == nil {
			closeErr = err
		}
		p.cancel()
		if err := p.writer.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	})
	if closeErr == nil {
		if err, ok := p.lastErr.Load().(error); ok {
			closeErr = err
		}
	}
	return closeErr
}
