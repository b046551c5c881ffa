package cachedquery

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/fieldschool/internal/platform/cachedquery"

// Producer fetches the authoritative value for a query key.
type Producer[T any] func(ctx context.Context) (T, error)

// Snapshot is the consumer-facing state of a Query.
type Snapshot[T any] struct {
	Key string
	// Data is the latest fetched or cached value.
	Data T
	// HasData distinguishes a zero Data from a query that has no value yet.
	HasData bool
	// Loading is set while an automatic load is in flight.
	Loading bool
	// Offline is set when the last applied attempt failed, whether or not a
	// cached value was found.
	Offline bool
	// Refreshing is set while a manual refresh is in flight.
	Refreshing bool
}

// Options configures a Query.
type Options[T any] struct {
	// Store holds the last good value per key. Required.
	Store Store
	// Codec serializes values for Store. Defaults to JSONCodec.
	Codec Codec[T]
	// Fenced discards results from attempts superseded by a newer attempt on
	// the same key. When false, the attempt that resolves last wins.
	Fenced bool
	// Logf receives storage and codec failures. Defaults to log.Printf.
	Logf func(string, ...any)
	// Tracer wraps producer calls in spans. Defaults to the global provider.
	Tracer trace.Tracer
}

// Query is a stale-while-revalidate view over one key at a time.
type Query[T any] struct {
	store  Store
	codec  Codec[T]
	fenced bool
	logf   func(string, ...any)
	tracer trace.Tracer

	mu       sync.Mutex
	key      string
	producer Producer[T]
	// epoch advances on every key change; generation on every attempt.
	epoch      uint64
	generation uint64
	state      Snapshot[T]
	changed    chan struct{}
	closed     bool
}

type attempt[T any] struct {
	key        string
	producer   Producer[T]
	epoch      uint64
	generation uint64
	refresh    bool
}

// New creates a Query for key. No fetch happens until Activate or Refresh.
func New[T any](key string, producer Producer[T], opts Options[T]) (*Query[T], error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("query key is required")
	}
	if producer == nil {
		return nil, fmt.Errorf("query producer is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("query store is required")
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec[T]{}
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Query[T]{
		store:    opts.Store,
		codec:    opts.Codec,
		fenced:   opts.Fenced,
		logf:     opts.Logf,
		tracer:   opts.Tracer,
		key:      key,
		producer: producer,
		state:    Snapshot[T]{Key: key},
		changed:  make(chan struct{}),
	}, nil
}

// Activate starts an automatic load. The returned channel closes when the
// attempt has been applied or discarded.
func (q *Query[T]) Activate(ctx context.Context) <-chan struct{} {
	return q.Refetch(ctx, false)
}

// Refresh starts a manual reload that keeps the current value visible while
// it runs. The returned channel closes when the attempt completes.
func (q *Query[T]) Refresh(ctx context.Context) <-chan struct{} {
	return q.Refetch(ctx, true)
}

// Refetch runs one fetch/fallback attempt for the current key. isRefresh
// selects which in-flight flag the attempt raises.
func (q *Query[T]) Refetch(ctx context.Context, isRefresh bool) <-chan struct{} {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(done)
		return done
	}
	q.generation++
	a := attempt[T]{
		key:        q.key,
		producer:   q.producer,
		epoch:      q.epoch,
		generation: q.generation,
		refresh:    isRefresh,
	}
	q.state.Loading = !isRefresh
	q.state.Refreshing = isRefresh
	q.signalLocked()
	q.mu.Unlock()

	go func() {
		defer close(done)
		q.run(ctx, a)
	}()
	return done
}

// SetKey switches the query to key and starts a fresh automatic load with
// empty state. A non-nil producer replaces the current one either way. When
// key is empty or unchanged no fetch runs and the returned channel is
// already closed.
func (q *Query[T]) SetKey(ctx context.Context, key string, producer Producer[T]) <-chan struct{} {
	key = strings.TrimSpace(key)

	q.mu.Lock()
	if producer != nil {
		q.producer = producer
	}
	if q.closed || key == "" || key == q.key {
		q.mu.Unlock()
		return closedChan()
	}
	q.key = key
	q.epoch++
	q.state = Snapshot[T]{Key: key}
	q.signalLocked()
	q.mu.Unlock()

	return q.Refetch(ctx, false)
}

// SetProducer replaces the producer used by later attempts without fetching.
func (q *Query[T]) SetProducer(producer Producer[T]) {
	if producer == nil {
		return
	}
	q.mu.Lock()
	q.producer = producer
	q.mu.Unlock()
}

// Key returns the current key.
func (q *Query[T]) Key() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Snapshot returns the current state.
func (q *Query[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Changed returns a channel that closes on the next state change.
func (q *Query[T]) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// Close tears the query down. Attempts still in flight finish but their
// results are not applied. The last snapshot stays readable.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signalLocked()
}

func (q *Query[T]) run(ctx context.Context, a attempt[T]) {
	// Storage I/O finishes even when the caller gives up on the attempt.
	storeCtx := context.WithoutCancel(ctx)

	value, err := q.produce(ctx, a)
	if err == nil {
		q.persist(storeCtx, a.key, value)
		q.apply(a, func(s *Snapshot[T]) {
			s.Data = value
			s.HasData = true
			s.Offline = false
		})
		return
	}

	cached, ok := q.fallback(storeCtx, a.key)
	q.apply(a, func(s *Snapshot[T]) {
		if ok {
			s.Data = cached
			s.HasData = true
		}
		s.Offline = true
	})
}

func (q *Query[T]) produce(ctx context.Context, a attempt[T]) (value T, err error) {
	ctx, span := q.tracer.Start(ctx, "cachedquery.produce", trace.WithAttributes(
		attribute.String("cachedquery.key", a.key),
		attribute.Bool("cachedquery.refresh", a.refresh),
	))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "producer failed")
		}
		span.End()
	}()
	return a.producer(ctx)
}

func (q *Query[T]) persist(ctx context.Context, key string, value T) {
	payload, err := q.codec.Marshal(value)
	if err != nil {
		q.logf("cachedquery %s: %v", key, err)
		return
	}
	if err := q.store.Set(ctx, key, payload); err != nil {
		q.logf("cachedquery %s: store value: %v", key, err)
	}
}

// fallback reads the stored entry for key. Read and decode failures count as
// a miss.
func (q *Query[T]) fallback(ctx context.Context, key string) (T, bool) {
	var zero T
	payload, ok, err := q.store.Get(ctx, key)
	if err != nil {
		q.logf("cachedquery %s: load cached value: %v", key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	value, err := q.codec.Unmarshal(payload)
	if err != nil {
		q.logf("cachedquery %s: %v", key, err)
		return zero, false
	}
	return value, true
}

func (q *Query[T]) apply(a attempt[T], mutate func(*Snapshot[T])) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || a.epoch != q.epoch {
		return
	}
	if q.fenced && a.generation != q.generation {
		return
	}
	mutate(&q.state)
	q.state.Loading = false
	q.state.Refreshing = false
	q.signalLocked()
}

func (q *Query[T]) signalLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func closedChan() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
