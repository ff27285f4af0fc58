package triggers_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"screamlink/internal/db"
	"screamlink/internal/events"
	"screamlink/internal/models"
	"screamlink/internal/services"
	"screamlink/internal/store"
	"screamlink/internal/triggers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type env struct {
	store      *store.Store
	dispatcher *events.Dispatcher
	screams    *services.ScreamService
	users      *services.UserService

	mu   sync.Mutex
	seen []events.Change
}

// newEnv wires the store to the triggers synchronously and without a
// deduper, so redelivery reaches the handlers.
func newEnv(t *testing.T) *env {
	t.Helper()
	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)

	e := &env{dispatcher: events.NewDispatcher(nil)}
	inline := events.Inline{D: e.dispatcher}
	pub := events.PublisherFunc(func(ctx context.Context, ch events.Change) error {
		e.mu.Lock()
		e.seen = append(e.seen, ch)
		e.mu.Unlock()
		return inline.Publish(ctx, ch)
	})
	e.store = store.New(conn, pub)
	triggers.Register(e.dispatcher, e.store)

	e.screams = services.NewScreamService(e.store, services.NewCounterMaintainer(e.store, ""), nil, "no-img.png")
	e.users = services.NewUserService(e.store, "no-face.png")
	return e
}

func (e *env) user(t *testing.T, handle string) *models.User {
	t.Helper()
	u := &models.User{Handle: handle, UserID: handle, Email: handle + "@example.com", PasswordHash: "x", ImageURL: handle + ".png", CreatedAt: time.Now()}
	require.NoError(t, e.store.Create(context.Background(), u))
	return u
}

func (e *env) last(coll string, kind events.Kind) events.Change {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.seen) - 1; i >= 0; i-- {
		if e.seen[i].Collection == coll && e.seen[i].Kind == kind {
			return e.seen[i]
		}
	}
	return events.Change{}
}

func (e *env) notifications(t *testing.T, q store.Query) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, e.store.Find(context.Background(), &out, q))
	return out
}

func TestLikeNotificationLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	e.user(t, "bob")
	sc, err := e.screams.Create(ctx, alice, "hello")
	require.NoError(t, err)

	_, err = e.screams.Like(ctx, sc.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, e.notifications(t, store.Query{}))

	_, err = e.screams.Like(ctx, sc.ID, "bob")
	require.NoError(t, err)
	got := e.notifications(t, store.Eq(models.FieldRecipient, "alice"))
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Sender)
	assert.Equal(t, models.NotificationTypeLike, got[0].Type)

	// redelivery keeps the single notification and its read flag
	require.NoError(t, e.users.MarkNotificationsRead(ctx, "alice", []string{got[0].ID}))
	require.NoError(t, e.dispatcher.Dispatch(ctx, e.last(models.CollectionLikes, events.Created)))
	got = e.notifications(t, store.Eq(models.FieldRecipient, "alice"))
	require.Len(t, got, 1)
	assert.True(t, got[0].Read)

	_, err = e.screams.Unlike(ctx, sc.ID, "bob")
	require.NoError(t, err)
	assert.Empty(t, e.notifications(t, store.Eq(models.FieldRecipient, "alice")))
}

func TestCommentNotification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	sc, err := e.screams.Create(ctx, alice, "hello")
	require.NoError(t, err)

	_, err = e.screams.Comment(ctx, sc.ID, alice, "self")
	require.NoError(t, err)
	c, err := e.screams.Comment(ctx, sc.ID, bob, "hi alice")
	require.NoError(t, err)

	got := e.notifications(t, store.Query{})
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)
	assert.Equal(t, models.NotificationTypeComment, got[0].Type)
}

func TestScreamDeleteCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")
	sc, err := e.screams.Create(ctx, alice, "doomed")
	require.NoError(t, err)
	other, err := e.screams.Create(ctx, alice, "survivor")
	require.NoError(t, err)

	for _, u := range []*models.User{bob, carol} {
		_, err = e.screams.Comment(ctx, sc.ID, u, "hey")
		require.NoError(t, err)
		_, err = e.screams.Like(ctx, sc.ID, u.Handle)
		require.NoError(t, err)
	}
	_, err = e.screams.Like(ctx, other.ID, "bob")
	require.NoError(t, err)
	require.Len(t, e.notifications(t, store.Eq(models.FieldScreamID, sc.ID)), 4)

	require.NoError(t, e.screams.Delete(ctx, sc.ID, "alice"))

	var comments []models.Comment
	var likes []models.Like
	require.NoError(t, e.store.Find(ctx, &comments, store.Eq(models.FieldScreamID, sc.ID)))
	require.NoError(t, e.store.Find(ctx, &likes, store.Eq(models.FieldScreamID, sc.ID)))
	assert.Empty(t, comments)
	assert.Empty(t, likes)
	assert.Empty(t, e.notifications(t, store.Eq(models.FieldScreamID, sc.ID)))

	assert.Len(t, e.notifications(t, store.Eq(models.FieldScreamID, other.ID)), 1)

	// running the cascade again finds nothing left to delete
	require.NoError(t, e.dispatcher.Dispatch(ctx, e.last(models.CollectionScreams, events.Deleted)))
}

func TestImagePropagation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	mine, err := e.screams.Create(ctx, alice, "one")
	require.NoError(t, err)
	_, err = e.screams.Create(ctx, alice, "two")
	require.NoError(t, err)
	theirs, err := e.screams.Create(ctx, bob, "three")
	require.NoError(t, err)
	_, err = e.screams.Comment(ctx, theirs.ID, alice, "old face")
	require.NoError(t, err)

	_, err = e.users.AddDetails(ctx, "alice", services.DetailsInput{Bio: "new bio"})
	require.NoError(t, err)
	var sc models.Scream
	require.NoError(t, e.store.Get(ctx, &sc, mine.ID))
	assert.Equal(t, "alice.png", sc.UserImage)

	_, err = e.users.SetImage(ctx, "alice", "fresh.png")
	require.NoError(t, err)

	var screams []models.Scream
	require.NoError(t, e.store.Find(ctx, &screams, store.Eq(models.FieldUserHandle, "alice")))
	require.Len(t, screams, 2)
	for _, s := range screams {
		assert.Equal(t, "fresh.png", s.UserImage)
	}

	var untouched models.Scream
	require.NoError(t, e.store.Get(ctx, &untouched, theirs.ID))
	assert.Equal(t, "bob.png", untouched.UserImage)

	var comments []models.Comment
	require.NoError(t, e.store.Find(ctx, &comments, store.Eq(models.FieldScreamID, theirs.ID)))
	require.Len(t, comments, 1)
	assert.Equal(t, "alice.png", comments[0].UserImage)
}
