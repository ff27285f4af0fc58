package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"screamlink/internal/apperr"
	"screamlink/internal/events"
	"screamlink/internal/models"
	"screamlink/internal/store"
	"screamlink/internal/utils"

	"github.com/google/uuid"
)

const detailTTL = time.Minute

// ScreamDetail is a scream with its comments, newest first.
type ScreamDetail struct {
	models.Scream
	BodyHTML string           `json:"bodyHtml"`
	Comments []models.Comment `json:"comments"`
}

type ScreamService struct {
	store        Store
	counters     *CounterMaintainer
	cache        *utils.Cache
	defaultImage string
}

func NewScreamService(s Store, counters *CounterMaintainer, cache *utils.Cache, defaultImage string) *ScreamService {
	return &ScreamService{
		store:        s,
		counters:     counters,
		cache:        cache,
		defaultImage: defaultImage,
	}
}

func detailKey(id string) string {
	return fmt.Sprintf("scream:detail:%s", id)
}

func (s *ScreamService) invalidate(id string) {
	if s.cache != nil {
		s.cache.Delete(detailKey(id))
	}
}

// WatchChanges drops cached details for screams changed outside this
// service, e.g. by image propagation.
func (s *ScreamService) WatchChanges(d *events.Dispatcher) {
	drop := func(_ context.Context, ch events.Change) error {
		s.invalidate(ch.DocID)
		return nil
	}
	d.On(models.CollectionScreams, events.Updated, "drop-scream-detail", drop)
	d.On(models.CollectionScreams, events.Deleted, "drop-deleted-scream-detail", drop)
}

// List returns every scream, newest first.
func (s *ScreamService) List(ctx context.Context) ([]models.Scream, error) {
	screams := []models.Scream{}
	if err := s.store.Find(ctx, &screams, store.Query{Order: "created_at desc"}); err != nil {
		return nil, err
	}
	return screams, nil
}

func (s *ScreamService) Create(ctx context.Context, author *models.User, body string) (*models.Scream, error) {
	body = utils.CleanText(body)
	if body == "" {
		return nil, apperr.Invalid("body", "Body must not be empty")
	}

	sc := &models.Scream{
		ID:         uuid.NewString(),
		Body:       body,
		UserHandle: author.Handle,
		UserImage:  author.ImageURL,
		ImageURL:   s.defaultImage,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Get returns the scream with its comments. Results are cached briefly and
// dropped on every write through this service.
func (s *ScreamService) Get(ctx context.Context, id string) (*ScreamDetail, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(detailKey(id)).(*ScreamDetail); ok {
			return cached, nil
		}
	}

	var sc models.Scream
	if err := s.store.Get(ctx, &sc, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Scream not found")
		}
		return nil, err
	}

	comments := []models.Comment{}
	q := store.Eq(models.FieldScreamID, id).OrderBy("created_at desc")
	if err := s.store.Find(ctx, &comments, q); err != nil {
		return nil, err
	}

	detail := &ScreamDetail{
		Scream:   sc,
		BodyHTML: utils.RenderMarkdown(sc.Body),
		Comments: comments,
	}
	if s.cache != nil {
		s.cache.Set(detailKey(id), detail, detailTTL)
	}
	return detail, nil
}

func (s *ScreamService) Comment(ctx context.Context, screamID string, author *models.User, body string) (*models.Comment, error) {
	body = utils.CleanText(body)
	if body == "" {
		return nil, apperr.Invalid("comment", "Body must not be empty")
	}

	c := &models.Comment{
		ScreamID:   screamID,
		UserHandle: author.Handle,
		UserImage:  author.ImageURL,
		Body:       body,
	}
	defer s.invalidate(screamID)
	return s.counters.OnCommentCreate(ctx, c)
}

func (s *ScreamService) Like(ctx context.Context, screamID, handle string) (*models.Scream, error) {
	defer s.invalidate(screamID)
	return s.counters.OnLikeCreate(ctx, screamID, handle)
}

func (s *ScreamService) Unlike(ctx context.Context, screamID, handle string) (*models.Scream, error) {
	defer s.invalidate(screamID)
	return s.counters.OnLikeRemove(ctx, screamID, handle)
}

// Delete removes the scream if handle is its author. Comments, likes and
// notifications are removed asynchronously by the cascade trigger.
func (s *ScreamService) Delete(ctx context.Context, screamID, handle string) error {
	sc, err := s.owned(ctx, screamID, handle, "Unauthorized delete attempt")
	if err != nil {
		return err
	}
	defer s.invalidate(screamID)
	return s.store.Delete(ctx, models.CollectionScreams, sc.ID)
}

// SetImage attaches an already uploaded image URL to the scream.
func (s *ScreamService) SetImage(ctx context.Context, screamID, handle, imageURL string) (*models.Scream, error) {
	if utils.IsEmpty(imageURL) {
		return nil, apperr.Invalid("imageUrl", "Must not be empty")
	}
	sc, err := s.owned(ctx, screamID, handle, "Unauthorized image change")
	if err != nil {
		return nil, err
	}
	defer s.invalidate(screamID)
	if err := s.store.Update(ctx, models.CollectionScreams, sc.ID, map[string]any{models.FieldImageURL: imageURL}); err != nil {
		return nil, err
	}
	sc.ImageURL = imageURL
	return sc, nil
}

func (s *ScreamService) owned(ctx context.Context, screamID, handle, denied string) (*models.Scream, error) {
	var sc models.Scream
	if err := s.store.Get(ctx, &sc, screamID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Scream not found")
		}
		return nil, err
	}
	if sc.UserHandle != handle {
		return nil, apperr.Forbidden(denied)
	}
	return &sc, nil
}
