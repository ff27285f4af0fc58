package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"screamlink/internal/config"
	"screamlink/internal/db"
	"screamlink/internal/events"
	"screamlink/internal/handlers"
	"screamlink/internal/middleware"
	"screamlink/internal/router"
	"screamlink/internal/services"
	"screamlink/internal/store"
	"screamlink/internal/triggers"
	"screamlink/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const dedupeTTL = 24 * time.Hour

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redelivery markers live in redis when configured, otherwise in memory.
	var dedupe events.Deduper
	if rdb := db.ConnectRedis(cfg); rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		dedupe = events.NewRedisDeduper(rdb, dedupeTTL)
	} else {
		lru, err := events.NewLRUDeduper(10000)
		if err != nil {
			log.Fatal(err)
		}
		dedupe = lru
	}
	dispatcher := events.NewDispatcher(dedupe)

	var (
		pub  events.Publisher
		done = make(chan struct{})
	)
	if cfg.KafkaBrokers != "" {
		producer := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		pub = producer

		consumer := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, dispatcher, cfg.EventMaxAttempts)
		go func() {
			defer close(done)
			if err := consumer.Run(ctx); err != nil {
				log.Printf("[kafka] consumer stopped: %v", err)
			}
		}()
	} else {
		bus := events.NewLocalBus(dispatcher, cfg.EventQueueSize, cfg.EventMaxAttempts, time.Second)
		pub = bus
		go func() {
			defer close(done)
			bus.Run(ctx)
		}()
	}

	var opts []store.Option
	if cfg.BatchMode == config.BatchSequential {
		opts = append(opts, store.WithSequentialBatches())
	}
	st := store.New(conn, pub, opts...)
	triggers.Register(dispatcher, st)

	cache, err := utils.NewCache(cfg.DetailCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	counters := services.NewCounterMaintainer(st, cfg.CounterMode)
	screamService := services.NewScreamService(st, counters, cache, cfg.DefaultScreamImage)
	userService := services.NewUserService(st, cfg.DefaultUserImage)
	screamService.WatchChanges(dispatcher)

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	r.Use(sessions.Sessions("screamlink_session", cookie.NewStore([]byte(cfg.SessionSecret))))
	r.Use(middleware.LoadUser(userService))

	router.RegisterRoutes(r, router.Handlers{
		Auth:         handlers.NewAuthHandler(userService),
		Screams:      handlers.NewScreamHandler(screamService),
		Users:        handlers.NewUserHandler(userService),
		Notification: handlers.NewNotificationHandler(userService),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("Screamlink server starting on :%s (counters=%s, batches=%s)", cfg.Port, cfg.CounterMode, cfg.BatchMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-done
}
