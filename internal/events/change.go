// Package events carries store change notifications to the reactive
// handlers: the change envelope, a per-collection dispatcher and the
// delivery transports (in-process queue or Kafka).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Change describes one committed document mutation. Before is empty for
// Created, After is empty for Deleted.
type Change struct {
	EventID    string          `json:"eventId"`
	Collection string          `json:"collection"`
	Kind       Kind            `json:"kind"`
	DocID      string          `json:"docId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewChange snapshots before/after as JSON. Pass nil for a missing side.
func NewChange(collection string, kind Kind, docID string, before, after any) (Change, error) {
	ch := Change{
		EventID:    uuid.NewString(),
		Collection: collection,
		Kind:       kind,
		DocID:      docID,
		OccurredAt: time.Now().UTC(),
	}
	var err error
	if before != nil {
		if ch.Before, err = json.Marshal(before); err != nil {
			return Change{}, fmt.Errorf("encode before: %w", err)
		}
	}
	if after != nil {
		if ch.After, err = json.Marshal(after); err != nil {
			return Change{}, fmt.Errorf("encode after: %w", err)
		}
	}
	return ch, nil
}

func (c Change) DecodeBefore(v any) error {
	if len(c.Before) == 0 {
		return fmt.Errorf("%s %s/%s: no before image", c.Kind, c.Collection, c.DocID)
	}
	return json.Unmarshal(c.Before, v)
}

func (c Change) DecodeAfter(v any) error {
	if len(c.After) == 0 {
		return fmt.Errorf("%s %s/%s: no after image", c.Kind, c.Collection, c.DocID)
	}
	return json.Unmarshal(c.After, v)
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s/%s (%s)", c.Kind, c.Collection, c.DocID, c.EventID)
}

// Publisher accepts committed changes for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, ch Change) error
}

// BatchPublisher is a Publisher that can take all changes of one commit in a
// single call.
type BatchPublisher interface {
	Publisher
	PublishBatch(ctx context.Context, chs []Change) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ch Change) error

func (f PublisherFunc) Publish(ctx context.Context, ch Change) error { return f(ctx, ch) }

// Discard drops every change. Used when nothing listens.
var Discard Publisher = PublisherFunc(func(context.Context, Change) error { return nil })
