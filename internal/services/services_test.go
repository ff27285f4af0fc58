package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"screamlink/internal/config"
	"screamlink/internal/db"
	"screamlink/internal/models"
	"screamlink/internal/services"
	"screamlink/internal/store"
	"screamlink/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type fixture struct {
	store   *store.Store
	screams *services.ScreamService
	users   *services.UserService
}

func newFixture(t *testing.T, counterMode string) *fixture {
	t.Helper()
	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	s := store.New(conn, nil)

	cache, err := utils.NewCache(16)
	require.NoError(t, err)

	return &fixture{
		store:   s,
		screams: services.NewScreamService(s, services.NewCounterMaintainer(s, counterMode), cache, "no-img.png"),
		users:   services.NewUserService(s, "no-face.png"),
	}
}

func (f *fixture) user(t *testing.T, handle string) *models.User {
	t.Helper()
	u := &models.User{
		Handle:       handle,
		UserID:       handle + "-id",
		Email:        handle + "@example.com",
		PasswordHash: "x",
		ImageURL:     "https://img/" + handle + ".png",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.store.Create(context.Background(), u))
	return u
}

func (f *fixture) scream(t *testing.T, author *models.User) *models.Scream {
	t.Helper()
	sc, err := f.screams.Create(context.Background(), author, "first scream")
	require.NoError(t, err)
	return sc
}

var counterModes = []string{config.CounterAtomic, config.CounterSnapshot}
