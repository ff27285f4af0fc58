// Package store is the record store: document-style get/query/mutate on the
// named collections, batched commits, and a change feed that publishes every
// committed mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"screamlink/internal/apperr"
	"screamlink/internal/events"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query is an equality filter with optional ordering and limit. A slice
// value matches any of its elements.
type Query struct {
	Where map[string]any
	Order string
	Limit int
}

// Eq builds a single-field Query.
func Eq(field string, value any) Query {
	return Query{Where: map[string]any{field: value}}
}

func (q Query) OrderBy(order string) Query {
	q.Order = order
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) apply(tx *gorm.DB) *gorm.DB {
	if len(q.Where) > 0 {
		tx = tx.Where(map[string]interface{}(q.Where))
	}
	if q.Order != "" {
		tx = tx.Order(q.Order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

type Store struct {
	db         *gorm.DB
	pub        events.Publisher
	sequential bool
}

type Option func(*Store)

// WithSequentialBatches applies batch ops one at a time instead of in a
// transaction. A failure after the first op yields *apperr.PartialBatchError.
func WithSequentialBatches() Option {
	return func(s *Store) { s.sequential = true }
}

func New(db *gorm.DB, pub events.Publisher, opts ...Option) *Store {
	if pub == nil {
		pub = events.Discard
	}
	s := &Store{db: db, pub: pub}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Get loads the document with the given id into doc.
func (s *Store) Get(ctx context.Context, doc Document, id string) error {
	c, err := lookup(doc.TableName())
	if err != nil {
		return translate("get", err)
	}
	err = s.db.WithContext(ctx).Where(keyEq(c, id)).Take(doc).Error
	return translate("get "+doc.TableName()+"/"+id, err)
}

// First loads the first document matching q into doc.
func (s *Store) First(ctx context.Context, doc Document, q Query) error {
	err := q.apply(s.db.WithContext(ctx)).Take(doc).Error
	return translate("first "+doc.TableName(), err)
}

// Find loads every document matching q into dest, a pointer to a slice of
// models.
func (s *Store) Find(ctx context.Context, dest any, q Query) error {
	err := q.apply(s.db.WithContext(ctx)).Find(dest).Error
	return translate("find", err)
}

func (s *Store) Create(ctx context.Context, doc Document) error {
	return s.Commit(ctx, NewBatch().Create(doc))
}

func (s *Store) Set(ctx context.Context, doc Document) error {
	return s.Commit(ctx, NewBatch().Set(doc))
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.Commit(ctx, NewBatch().Update(collection, id, fields))
}

// Increment adds delta to a numeric field in a single statement.
func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int) error {
	return s.Commit(ctx, NewBatch().Increment(collection, id, field, delta))
}

// Delete removes a document. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, NewBatch().Delete(collection, id))
}

// Commit applies every op in b and publishes the resulting changes once they
// are durable.
func (s *Store) Commit(ctx context.Context, b *Batch) error {
	if b == nil || b.Empty() {
		return nil
	}
	if s.sequential {
		return s.commitSequential(ctx, b)
	}

	var changes []events.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes = changes[:0]
		for _, op := range b.Ops() {
			ch, err := apply(tx, op)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if ch != nil {
				changes = append(changes, *ch)
			}
		}
		return nil
	})
	if err != nil {
		return translate("commit", err)
	}
	s.publish(ctx, changes...)
	return nil
}

func (s *Store) commitSequential(ctx context.Context, b *Batch) error {
	tx := s.db.WithContext(ctx)
	var changes []events.Change
	for i, op := range b.Ops() {
		ch, err := apply(tx, op)
		if err != nil {
			s.publish(ctx, changes...)
			err = translate(op.String(), err)
			if i == 0 {
				return err
			}
			return &apperr.PartialBatchError{Applied: i, Total: b.Len(), Err: err}
		}
		if ch != nil {
			changes = append(changes, *ch)
		}
	}
	s.publish(ctx, changes...)
	return nil
}

// publish hands committed changes to the publisher. The changes are durable
// by now, so a cancelled caller must not stop them.
func (s *Store) publish(ctx context.Context, changes ...events.Change) {
	if len(changes) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if bp, ok := s.pub.(events.BatchPublisher); ok {
		if err := bp.PublishBatch(ctx, changes); err != nil {
			log.Printf("[store] publish %d changes failed: %v", len(changes), err)
		}
		return
	}
	for _, ch := range changes {
		if err := s.pub.Publish(ctx, ch); err != nil {
			log.Printf("[store] publish %s failed: %v", ch, err)
		}
	}
}

func apply(tx *gorm.DB, op Op) (*events.Change, error) {
	c, err := lookup(op.Collection)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case OpCreate:
		if err := tx.Create(op.Doc).Error; err != nil {
			return nil, err
		}
		return change(op, events.Created, nil, op.Doc)

	case OpSet:
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(op.Doc)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		return change(op, events.Created, nil, op.Doc)

	case OpUpdate, OpIncrement:
		before := c.newDoc()
		if err := tx.Where(keyEq(c, op.ID)).Take(before).Error; err != nil {
			return nil, err
		}
		q := tx.Model(c.newDoc()).Where(keyEq(c, op.ID))
		if op.Kind == OpUpdate {
			err = q.Updates(map[string]interface{}(op.Fields)).Error
		} else {
			err = q.UpdateColumn(op.Field, gorm.Expr(op.Field+" + ?", op.Delta)).Error
		}
		if err != nil {
			return nil, err
		}
		after := c.newDoc()
		if err := tx.Where(keyEq(c, op.ID)).Take(after).Error; err != nil {
			return nil, err
		}
		return change(op, events.Updated, before, after)

	case OpDelete:
		before := c.newDoc()
		err := tx.Where(keyEq(c, op.ID)).Take(before).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if err := tx.Where(keyEq(c, op.ID)).Delete(c.newDoc()).Error; err != nil {
			return nil, err
		}
		return change(op, events.Deleted, before, nil)
	}
	return nil, fmt.Errorf("unsupported op %s", op.Kind)
}

func change(op Op, kind events.Kind, before, after any) (*events.Change, error) {
	ch, err := events.NewChange(op.Collection, kind, op.ID, before, after)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func keyEq(c collection, id string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: c.key}, Value: id}
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	default:
		return &apperr.StoreError{Op: op, Err: err}
	}
}
