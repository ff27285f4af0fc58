package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	CounterAtomic   = "atomic"
	CounterSnapshot = "snapshot"

	BatchTransaction = "transaction"
	BatchSequential  = "sequential"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	SessionSecret string `mapstructure:"SESSION_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Change events go through Kafka when brokers are set, otherwise through
	// the in-process bus.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	CounterMode      string `mapstructure:"COUNTER_MODE"`
	BatchMode        string `mapstructure:"BATCH_MODE"`
	EventQueueSize   int    `mapstructure:"EVENT_QUEUE_SIZE"`
	EventMaxAttempts int    `mapstructure:"EVENT_MAX_ATTEMPTS"`

	DefaultScreamImage string `mapstructure:"DEFAULT_SCREAM_IMAGE"`
	DefaultUserImage   string `mapstructure:"DEFAULT_USER_IMAGE"`
	DetailCacheSize    int    `mapstructure:"DETAIL_CACHE_SIZE"`
}

var defaults = map[string]any{
	"PORT":                 "8080",
	"DATABASE_URL":         "host=localhost user=postgres password=postgres dbname=screamlink port=5432 sslmode=disable",
	"SESSION_SECRET":       "secret_key_change_me",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"KAFKA_BROKERS":        "",
	"KAFKA_TOPIC":          "screamlink.changes",
	"KAFKA_GROUP_ID":       "screamlink-triggers",
	"COUNTER_MODE":         CounterAtomic,
	"BATCH_MODE":           BatchTransaction,
	"EVENT_QUEUE_SIZE":     1000,
	"EVENT_MAX_ATTEMPTS":   5,
	"DEFAULT_SCREAM_IMAGE": "/static/img/no-img.png",
	"DEFAULT_USER_IMAGE":   "/static/img/no-face.png",
	"DETAIL_CACHE_SIZE":    500,
}

// Load reads .env (if present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("config: %v", err)
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.CounterMode != CounterSnapshot {
		c.CounterMode = CounterAtomic
	}
	if c.BatchMode != BatchSequential {
		c.BatchMode = BatchTransaction
	}
}
