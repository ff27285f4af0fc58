package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"screamlink/internal/db"
	"screamlink/internal/handlers"
	"screamlink/internal/middleware"
	"screamlink/internal/models"
	"screamlink/internal/router"
	"screamlink/internal/services"
	"screamlink/internal/store"
	"screamlink/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type server struct {
	engine  *gin.Engine
	store   *store.Store
	screams *services.ScreamService
	cookies []*http.Cookie
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	st := store.New(conn, nil)
	cache, err := utils.NewCache(16)
	require.NoError(t, err)

	screams := services.NewScreamService(st, services.NewCounterMaintainer(st, ""), cache, "no-img.png")
	users := services.NewUserService(st, "no-face.png")

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.LoadUser(users))
	router.RegisterRoutes(r, router.Handlers{
		Auth:         handlers.NewAuthHandler(users),
		Screams:      handlers.NewScreamHandler(screams),
		Users:        handlers.NewUserHandler(users),
		Notification: handlers.NewNotificationHandler(users),
	})
	return &server{engine: r, store: st, screams: screams}
}

func (s *server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *server) signup(t *testing.T, handle string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/signup", services.SignupInput{
		Email:           handle + "@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Handle:          handle,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/scream", gin.H{"body": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/user", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignupLoginAndMe(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice")

	w := s.do(t, http.MethodGet, "/user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me services.AuthenticatedUser
	decode(t, w, &me)
	assert.Equal(t, "alice", me.Credentials.Handle)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	s.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/user", nil).Code)

	w = s.do(t, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"general":"Wrong credentials, please try again"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/user", nil).Code)
}

func TestSignupValidationIsFieldMap(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodPost, "/signup", gin.H{"email": "", "password": "x", "confirmPassword": "x", "handle": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"email":"Must not be empty"}`, w.Body.String())
}

func TestScreamLifecycle(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice")

	w := s.do(t, http.MethodPost, "/scream", gin.H{"body": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"body":"Body must not be empty"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/scream", gin.H{"body": "**loud**"})
	require.Equal(t, http.StatusOK, w.Code)
	var sc models.Scream
	decode(t, w, &sc)

	w = s.do(t, http.MethodGet, "/scream/"+sc.ID+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var liked models.Scream
	decode(t, w, &liked)
	assert.Equal(t, 1, liked.LikeCount)

	w = s.do(t, http.MethodGet, "/scream/"+sc.ID+"/like", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Scream already liked"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/scream/"+sc.ID+"/comment", gin.H{"body": "me too"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/scream/"+sc.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.ScreamDetail
	decode(t, w, &detail)
	assert.Equal(t, 1, detail.CommentCount)
	assert.Len(t, detail.Comments, 1)
	assert.Contains(t, detail.BodyHTML, "<strong>loud</strong>")

	w = s.do(t, http.MethodGet, "/scream/"+sc.ID+"/unlike", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/scream/"+sc.ID+"/unlike", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/scream/"+sc.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/scream/"+sc.ID, nil).Code)
}

func TestDeleteSomeoneElsesScream(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice")
	w := s.do(t, http.MethodPost, "/scream", gin.H{"body": "mine"})
	var sc models.Scream
	decode(t, w, &sc)

	s.cookies = nil
	s.signup(t, "bob")
	w = s.do(t, http.MethodDelete, "/scream/"+sc.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized delete attempt"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/scream/missing/like", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserDetailsAndProfile(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice")

	w := s.do(t, http.MethodPost, "/user", gin.H{"bio": "hello", "website": "alice.dev"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/user/image", gin.H{"imageUrl": "https://img/alice.png"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/user/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p services.UserProfile
	decode(t, w, &p)
	assert.Equal(t, "http://alice.dev", p.User.Website)
	assert.Equal(t, "https://img/alice.png", p.User.ImageURL)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/user/ghost", nil).Code)
}

func TestMarkNotificationsRead(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice")
	require.NoError(t, s.store.Create(context.Background(), &models.Notification{
		ID: "n1", Recipient: "alice", Sender: "bob", Type: models.NotificationTypeLike, ScreamID: "s1", CreatedAt: time.Now(),
	}))

	w := s.do(t, http.MethodPost, "/notifications", []string{"n1"})
	require.Equal(t, http.StatusOK, w.Code)

	var n models.Notification
	require.NoError(t, s.store.Get(context.Background(), &n, "n1"))
	assert.True(t, n.Read)

	w = s.do(t, http.MethodPost, "/notifications", gin.H{"not": "a list"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
