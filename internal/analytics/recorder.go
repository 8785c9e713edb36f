package analytics

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chapter-verse/bookfront/internal/brand"
)

// EventSink is the append-only event store.
type EventSink interface {
	InsertEvent(ctx context.Context, e *Event) error
}

const (
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// RecorderOptions tunes a Recorder. Zero fields take defaults.
type RecorderOptions struct {
	QueueSize    int
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Recorder writes events to a sink without making callers wait. A single
// worker drains a FIFO queue so writes start in the order Record was called.
type Recorder struct {
	sink    EventSink
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan *Event
	done   chan struct{}
}

func NewRecorder(sink EventSink, logger *zap.Logger, opts RecorderOptions) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Recorder{
		sink:    sink,
		logger:  logger,
		timeout: opts.WriteTimeout,
		now:     opts.Now,
		queue:   make(chan *Event, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an event and returns immediately. Invalid events, a full
// queue, and a closed recorder are logged and the event is dropped.
func (r *Recorder) Record(kind EventKind, variant brand.Variant, sessionID string, metadata map[string]any) {
	e, err := r.newEvent(kind, variant, sessionID, metadata)
	if err != nil {
		r.logger.Warn("dropping analytics event", zap.Error(err))
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("analytics recorder closed, dropping event", eventFields(e)...)
		return
	}

	select {
	case r.queue <- e:
	default:
		r.logger.Warn("analytics queue full, dropping event", eventFields(e)...)
	}
}

// Track writes an event synchronously. Sink failures come back wrapped in
// ErrBackendUnavailable.
func (r *Recorder) Track(ctx context.Context, kind EventKind, variant brand.Variant, sessionID string, metadata map[string]any) error {
	e, err := r.newEvent(kind, variant, sessionID, metadata)
	if err != nil {
		return err
	}
	return r.write(ctx, e)
}

// Close stops accepting events and waits for queued ones to be written, or
// for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("analytics recorder drain: %w", ctx.Err())
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		if err := r.write(context.Background(), e); err != nil {
			r.logger.Error("failed to track event", append(eventFields(e), zap.Error(err))...)
		}
	}
}

func (r *Recorder) write(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sink.InsertEvent(ctx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

func (r *Recorder) newEvent(kind EventKind, variant brand.Variant, sessionID string, metadata map[string]any) (*Event, error) {
	if err := validate(kind, variant); err != nil {
		return nil, err
	}
	// The event is written later on the worker, so it must not share the
	// caller's map.
	if metadata == nil {
		metadata = map[string]any{}
	} else {
		metadata = maps.Clone(metadata)
	}
	return &Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Variant:   variant,
		SessionID: sessionID,
		Metadata:  metadata,
		CreatedAt: r.now(),
	}, nil
}

func eventFields(e *Event) []zap.Field {
	return []zap.Field{
		zap.String("event_type", string(e.Kind)),
		zap.String("brand_variant", string(e.Variant)),
		zap.String("session_id", e.SessionID),
	}
}
