package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Handler reacts to one change. It must be safe to run more than once for
// the same change.
type Handler func(ctx context.Context, ch Change) error

type route struct {
	collection string
	kind       Kind
}

type namedHandler struct {
	name string
	fn   Handler
}

// Dispatcher routes changes to the handlers registered for their
// (collection, kind).
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[route][]namedHandler
	dedupe   Deduper
}

func NewDispatcher(dedupe Deduper) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[route][]namedHandler),
		dedupe:   dedupe,
	}
}

// On registers h under a name that must be unique per route; the name keys
// the redelivery marker.
func (d *Dispatcher) On(collection string, kind Kind, name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := route{collection: collection, kind: kind}
	d.handlers[r] = append(d.handlers[r], namedHandler{name: name, fn: h})
}

// Dispatch runs every handler for ch. A failing handler does not stop the
// others; all failures are joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, ch Change) error {
	d.mu.RLock()
	hs := d.handlers[route{collection: ch.Collection, kind: ch.Kind}]
	d.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		key := ch.EventID + ":" + h.name
		if d.dedupe != nil {
			seen, err := d.dedupe.Seen(ctx, key)
			if err != nil {
				// Running twice is safe, skipping is not.
				log.Printf("[events] dedupe lookup %s failed: %v", key, err)
			} else if seen {
				continue
			}
		}

		if err := h.fn(ctx, ch); err != nil {
			log.Printf("[events] handler %s failed on %s: %v", h.name, ch, err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}

		if d.dedupe != nil {
			if err := d.dedupe.Mark(ctx, key); err != nil {
				log.Printf("[events] dedupe mark %s failed: %v", key, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Inline delivers changes synchronously on the publishing goroutine.
type Inline struct {
	D *Dispatcher
}

func (p Inline) Publish(ctx context.Context, ch Change) error {
	return p.D.Dispatch(ctx, ch)
}
