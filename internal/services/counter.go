package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"screamlink/internal/apperr"
	"screamlink/internal/config"
	"screamlink/internal/models"
	"screamlink/internal/store"

	"github.com/google/uuid"
)

// CounterMaintainer keeps a scream's likeCount/commentCount in step with its
// likes and comments on the write path.
//
// In snapshot mode the new value is computed from the scream read at the
// start of the operation and written back, so concurrent writers can lose
// updates. In atomic mode the store increments the column in place.
type CounterMaintainer struct {
	store Store
	mode  string
}

func NewCounterMaintainer(s Store, mode string) *CounterMaintainer {
	return &CounterMaintainer{store: s, mode: mode}
}

// OnCommentCreate bumps commentCount and then persists c.
func (m *CounterMaintainer) OnCommentCreate(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	snapshot, err := m.scream(ctx, c.ScreamID)
	if err != nil {
		return nil, err
	}
	if _, err := m.bump(ctx, snapshot, models.FieldCommentCount, 1); err != nil {
		return nil, err
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := m.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// OnLikeCreate records handle's like and returns the updated scream.
func (m *CounterMaintainer) OnLikeCreate(ctx context.Context, screamID, handle string) (*models.Scream, error) {
	snapshot, err := m.scream(ctx, screamID)
	if err != nil {
		return nil, err
	}

	_, err = m.like(ctx, screamID, handle)
	if err == nil {
		return nil, apperr.Conflict("Scream already liked")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	l := &models.Like{
		ID:         uuid.NewString(),
		ScreamID:   screamID,
		UserHandle: handle,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.store.Create(ctx, l); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Scream already liked")
		}
		return nil, err
	}
	return m.bump(ctx, snapshot, models.FieldLikeCount, 1)
}

// OnLikeRemove deletes handle's like and returns the updated scream. The
// count is not floored at zero.
func (m *CounterMaintainer) OnLikeRemove(ctx context.Context, screamID, handle string) (*models.Scream, error) {
	snapshot, err := m.scream(ctx, screamID)
	if err != nil {
		return nil, err
	}

	l, err := m.like(ctx, screamID, handle)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Conflict("Scream not liked")
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, models.CollectionLikes, l.ID); err != nil {
		return nil, err
	}
	return m.bump(ctx, snapshot, models.FieldLikeCount, -1)
}

func (m *CounterMaintainer) scream(ctx context.Context, id string) (*models.Scream, error) {
	var sc models.Scream
	if err := m.store.Get(ctx, &sc, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Scream not found")
		}
		return nil, err
	}
	return &sc, nil
}

func (m *CounterMaintainer) like(ctx context.Context, screamID, handle string) (*models.Like, error) {
	var l models.Like
	err := m.store.First(ctx, &l, store.Query{Where: map[string]any{
		models.FieldScreamID:   screamID,
		models.FieldUserHandle: handle,
	}})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (m *CounterMaintainer) bump(ctx context.Context, snapshot *models.Scream, field string, delta int) (*models.Scream, error) {
	if m.mode != config.CounterSnapshot {
		if err := m.store.Increment(ctx, models.CollectionScreams, snapshot.ID, field, delta); err != nil {
			return nil, err
		}
		return m.scream(ctx, snapshot.ID)
	}

	updated := *snapshot
	var value int
	switch field {
	case models.FieldLikeCount:
		updated.LikeCount += delta
		value = updated.LikeCount
	case models.FieldCommentCount:
		updated.CommentCount += delta
		value = updated.CommentCount
	default:
		return nil, fmt.Errorf("unknown counter %q", field)
	}
	if err := m.store.Update(ctx, models.CollectionScreams, snapshot.ID, map[string]any{field: value}); err != nil {
		return nil, err
	}
	return &updated, nil
}
