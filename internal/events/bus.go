package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrBusClosed = errors.New("events: bus closed")

type delivery struct {
	change  Change
	attempt int
}

type workerKey struct{}

// LocalBus is an in-process, at-least-once delivery queue. Publish enqueues;
// Run drains the queue on a single worker and retries failed deliveries.
//
// size bounds the changes queued by outside publishers. Changes published by
// handlers running on the worker are always accepted, since the worker
// cannot wait for room it would have to make itself.
type LocalBus struct {
	dispatcher  *Dispatcher
	size        int
	maxAttempts int
	backoff     time.Duration

	mu      sync.Mutex
	pending []delivery
	closed  bool
	wake    chan struct{}
	room    chan struct{} // closed and replaced whenever a slot frees up
	wg      sync.WaitGroup
}

func NewLocalBus(d *Dispatcher, size, maxAttempts int, backoff time.Duration) *LocalBus {
	if size <= 0 {
		size = 1000
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &LocalBus{
		dispatcher:  d,
		size:        size,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		wake:        make(chan struct{}, 1),
		room:        make(chan struct{}),
	}
}

// Publish blocks while the queue is full rather than dropping the change,
// unless it is called from the bus's own worker.
func (b *LocalBus) Publish(ctx context.Context, ch Change) error {
	onWorker := ctx.Value(workerKey{}) == b
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return ErrBusClosed
		}
		if onWorker || len(b.pending) < b.size {
			b.pending = append(b.pending, delivery{change: ch, attempt: 1})
			b.wg.Add(1)
			b.mu.Unlock()
			b.signal()
			return nil
		}
		room := b.room
		b.mu.Unlock()

		select {
		case <-room:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *LocalBus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run processes deliveries until ctx is cancelled, or until Close was called
// and the queue is empty.
func (b *LocalBus) Run(ctx context.Context) {
	workerCtx := context.WithValue(ctx, workerKey{}, b)
	for {
		d, ok, closed := b.next()
		if ok {
			b.deliver(workerCtx, d)
			continue
		}
		if closed {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
	}
}

func (b *LocalBus) next() (d delivery, ok, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return delivery{}, false, b.closed
	}
	d = b.pending[0]
	b.pending[0] = delivery{}
	b.pending = b.pending[1:]

	close(b.room)
	b.room = make(chan struct{})
	return d, true, b.closed
}

func (b *LocalBus) deliver(ctx context.Context, d delivery) {
	defer b.wg.Done()
	for {
		err := b.dispatcher.Dispatch(ctx, d.change)
		if err == nil {
			return
		}
		if d.attempt >= b.maxAttempts || ctx.Err() != nil {
			log.Printf("[events] giving up on %s after %d attempts: %v", d.change, d.attempt, err)
			return
		}
		d.attempt++
		select {
		case <-time.After(b.backoff * time.Duration(d.attempt-1)):
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until every published change has been handled or abandoned.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

// Close stops accepting changes. Queued changes are still delivered by Run.
func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.room)
	b.room = make(chan struct{})
	b.signal()
}
