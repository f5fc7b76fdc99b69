package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ptindo/fleet-worker/config"
	"github.com/ptindo/fleet-worker/database"
	"github.com/ptindo/fleet-worker/dwell"
	"github.com/ptindo/fleet-worker/dwellcache"
	"github.com/ptindo/fleet-worker/events"
	"github.com/ptindo/fleet-worker/license"
	"github.com/ptindo/fleet-worker/modbuspool"
	"github.com/ptindo/fleet-worker/scheduler"
	"github.com/ptindo/fleet-worker/store"
)

// dwellCacheTTL bounds how stale a cached temperature trail or last
// condition can be before the next poll cycle re-reads Postgres.
const dwellCacheTTL = 30 * time.Second

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: no .env file found, using environment variables")
	} else {
		log.Println("INFO: loaded .env file")
	}
}

func main() {
	setupLogging()

	log.Println("INFO: fleet worker starting")

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ERROR: failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("ERROR: failed to run migrations: %v", err)
	}
	log.Println("INFO: database migrations applied")

	persistence := store.NewPostgresStore(db.DB)
	pool := modbuspool.New()

	publisher := newPublisher(cfg)
	defer publisher.Close()

	validate := newLicenseValidator(persistence)
	history := newDwellHistorySource(cfg, persistence)

	sched := scheduler.New(persistence, pool, publisher, validate, history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	waitForShutdown(cancel)

	if err := <-done; err != nil {
		log.Fatalf("ERROR: scheduler exited with error: %v", err)
	}
	log.Println("INFO: fleet worker stopped cleanly")
}

// newDwellHistorySource wraps the default Postgres-backed history source
// with a Redis cache when REDIS_URL is configured, otherwise it reads
// straight through to Postgres on every dwell check.
func newDwellHistorySource(cfg *config.Config, persistence store.Store) dwell.HistorySource {
	source := scheduler.NewPostgresHistorySource(persistence)
	if cfg.RedisURL == "" {
		return source
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: invalid REDIS_URL, dwell cache disabled: %v", err)
		return source
	}

	client := redis.NewClient(opts)
	return dwellcache.New(client, source, dwellCacheTTL)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaConditionTopic)
}

// newLicenseValidator closes over the store so the scheduler's cycle loop
// can revalidate the license every retry without holding a reference to
// persistence itself.
func newLicenseValidator(persistence store.Store) scheduler.ValidateLicense {
	return func() error {
		cfg, err := persistence.GetGeneralConfig()
		if err != nil {
			return err
		}
		lic, err := license.Decrypt(cfg.LicenseKey)
		if err != nil {
			return err
		}
		machines, err := persistence.ListEnabledMachines()
		if err != nil {
			return err
		}
		return license.Validate(lic, len(machines))
	}
}

func waitForShutdown(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit
	log.Println("INFO: shutdown signal received")
	cancel()
}

func setupLogging() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	if config.IsDevelopment() {
		log.SetPrefix("DEV | ")
	} else {
		log.SetPrefix("PROD | ")
	}
}
