// Package triggers holds the reactions to committed changes: like and
// comment notifications, the scream delete cascade and profile image
// propagation. Each trigger builds a batch from a change; Register wires
// them to a dispatcher and commits what they build.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screamlink/internal/apperr"
	"screamlink/internal/events"
	"screamlink/internal/models"
	"screamlink/internal/store"
)

// Reader is what triggers may read while building a batch.
type Reader interface {
	Get(ctx context.Context, doc store.Document, id string) error
	Find(ctx context.Context, dest any, q store.Query) error
}

type Store interface {
	Reader
	Commit(ctx context.Context, b *store.Batch) error
}

// Triggers builds batches; it never writes.
type Triggers struct {
	r   Reader
	now func() time.Time
}

func New(r Reader) *Triggers {
	return &Triggers{r: r, now: func() time.Time { return time.Now().UTC() }}
}

// NotificationOnLike notifies the scream's author of a like by someone else.
// The notification shares the like's id.
func (t *Triggers) NotificationOnLike(ctx context.Context, ch events.Change) (*store.Batch, error) {
	var l models.Like
	if err := ch.DecodeAfter(&l); err != nil {
		return nil, err
	}
	return t.notify(ctx, l.ID, l.ScreamID, l.UserHandle, models.NotificationTypeLike)
}

// DeleteNotificationOnUnlike removes the notification created for a like.
// A missing notification is fine.
func (t *Triggers) DeleteNotificationOnUnlike(_ context.Context, ch events.Change) (*store.Batch, error) {
	return store.NewBatch().Delete(models.CollectionNotifications, ch.DocID), nil
}

func (t *Triggers) NotificationOnComment(ctx context.Context, ch events.Change) (*store.Batch, error) {
	var c models.Comment
	if err := ch.DecodeAfter(&c); err != nil {
		return nil, err
	}
	return t.notify(ctx, c.ID, c.ScreamID, c.UserHandle, models.NotificationTypeComment)
}

func (t *Triggers) notify(ctx context.Context, id, screamID, sender string, typ models.NotificationType) (*store.Batch, error) {
	var sc models.Scream
	err := t.r.Get(ctx, &sc, screamID)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Printf("[triggers] %s %s on missing scream %s, skipping", typ, id, screamID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sc.UserHandle == sender {
		return nil, nil
	}

	n := &models.Notification{
		ID:        id,
		Recipient: sc.UserHandle,
		Sender:    sender,
		Type:      typ,
		Read:      false,
		ScreamID:  screamID,
		CreatedAt: t.now(),
	}
	return store.NewBatch().Set(n), nil
}

// CascadeOnScreamDelete removes the comments, likes and notifications that
// point at a deleted scream.
func (t *Triggers) CascadeOnScreamDelete(ctx context.Context, ch events.Change) (*store.Batch, error) {
	q := store.Eq(models.FieldScreamID, ch.DocID)
	b := store.NewBatch()

	var comments []models.Comment
	if err := t.r.Find(ctx, &comments, q); err != nil {
		return nil, err
	}
	for _, c := range comments {
		b.Delete(models.CollectionComments, c.ID)
	}

	var likes []models.Like
	if err := t.r.Find(ctx, &likes, q); err != nil {
		return nil, err
	}
	for _, l := range likes {
		b.Delete(models.CollectionLikes, l.ID)
	}

	var notifications []models.Notification
	if err := t.r.Find(ctx, &notifications, q); err != nil {
		return nil, err
	}
	for _, n := range notifications {
		b.Delete(models.CollectionNotifications, n.ID)
	}
	return b, nil
}

// PropagateUserImage copies a changed profile image onto the user's screams.
// Comments keep the image they were written with.
func (t *Triggers) PropagateUserImage(ctx context.Context, ch events.Change) (*store.Batch, error) {
	var before, after models.User
	if err := ch.DecodeBefore(&before); err != nil {
		return nil, err
	}
	if err := ch.DecodeAfter(&after); err != nil {
		return nil, err
	}
	if before.ImageURL == after.ImageURL {
		return nil, nil
	}

	var screams []models.Scream
	if err := t.r.Find(ctx, &screams, store.Eq(models.FieldUserHandle, ch.DocID)); err != nil {
		return nil, err
	}
	b := store.NewBatch()
	for _, sc := range screams {
		b.Update(models.CollectionScreams, sc.ID, map[string]any{models.FieldUserImage: after.ImageURL})
	}
	return b, nil
}

type builder func(ctx context.Context, ch events.Change) (*store.Batch, error)

// Register binds every trigger to d. Built batches are committed to s.
func Register(d *events.Dispatcher, s Store) *Triggers {
	t := New(s)
	bind := func(collection string, kind events.Kind, name string, build builder) {
		d.On(collection, kind, name, commit(s, name, build))
	}

	bind(models.CollectionLikes, events.Created, "notify-on-like", t.NotificationOnLike)
	bind(models.CollectionLikes, events.Deleted, "unnotify-on-unlike", t.DeleteNotificationOnUnlike)
	bind(models.CollectionComments, events.Created, "notify-on-comment", t.NotificationOnComment)
	bind(models.CollectionScreams, events.Deleted, "cascade-scream-delete", t.CascadeOnScreamDelete)
	bind(models.CollectionUsers, events.Updated, "propagate-user-image", t.PropagateUserImage)
	return t
}

func commit(s Store, name string, build builder) events.Handler {
	return func(ctx context.Context, ch events.Change) error {
		b, err := build(ctx, ch)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		if b == nil || b.Empty() {
			return nil
		}
		if err := s.Commit(ctx, b); err != nil {
			var partial *apperr.PartialBatchError
			if errors.As(err, &partial) {
				log.Printf("[triggers] %s on %s left %d of %d ops applied", name, ch, partial.Applied, partial.Total)
			}
			return err
		}
		log.Printf("[triggers] %s on %s: %d ops", name, ch, b.Len())
		return nil
	}
}
