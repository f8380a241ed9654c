package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/auth"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/file"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/opentdb"
	pgstore "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/infra/sqlite"
)

const (
	driverMemory   = "memory"
	driverFile     = "file"
	driverRedis    = "redis"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	defaultDataDir = "data"
)

// backend is the storage chosen by config: where progress slots live, where
// results go and which registry tracks running sessions.
type backend struct {
	slots    app.SlotFactory
	recorder app.ResultRecorder
	sessions app.SessionRepository
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	driver := cfg.Storage.Driver
	if driver == "" {
		driver = driverMemory
	}
	b := &backend{sessions: memory.NewSessionRegistry()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		b.sessions = redisstore.NewSessionRegistry(redisClient, config.TTLDuration(cfg.Redis.TTL, 48*time.Hour))
	}

	switch driver {
	case driverMemory:
		b.slots = memory.NewProgressSlots().Slot
		b.recorder = memory.NewResultLog()
	case driverFile:
		b.slots = file.Slots(dataDir(cfg))
	case driverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		b.slots = redisstore.Slots(redisClient, config.TTLDuration(cfg.Redis.TTL, 48*time.Hour))
		b.recorder = redisstore.NewResultLog(redisClient)
	case driverPostgres:
		if cfg.Postgres.URL == "" {
			b.Close()
			return nil, fmt.Errorf("storage driver postgres needs postgres.url")
		}
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.slots = pgstore.Slots(pool)
		b.recorder = pgstore.NewResultLog(pool)
	case driverSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = filepath.Join(dataDir(cfg), "quiz.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.Close()
			return nil, err
		}
		store, err := sqlite.NewStore(path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.slots = store.Slot
		b.recorder = store
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	log.Printf("progress storage: %s", driver)
	return b, nil
}

func dataDir(cfg config.Config) string {
	if cfg.Storage.Dir != "" {
		return cfg.Storage.Dir
	}
	return defaultDataDir
}

func serviceConfig(cfg config.Config) app.ServiceConfig {
	timeLimit := config.Seconds(cfg.Quiz.TimeLimit, app.DefaultTimeLimit)
	return app.ServiceConfig{
		Provider: app.ProviderConfig{
			QuestionCount: cfg.Quiz.QuestionCount,
			Category:      cfg.Quiz.Category,
			Difficulty:    cfg.Quiz.Difficulty,
			Type:          cfg.Quiz.Type,
			TimeLimit:     timeLimit,
			MaxRetries:    config.IntOr(cfg.Provider.MaxRetries, app.DefaultMaxRetries),
			BackoffUnit:   config.TTLDuration(cfg.Provider.BackoffUnit, app.DefaultBackoffUnit),
			SeedTTL:       config.TTLDuration(cfg.Quiz.SeedTTL, app.DefaultSeedTTL),
		},
		Session: app.SessionConfig{
			TimeLimit:    timeLimit,
			AdvanceDelay: config.TTLDuration(cfg.Quiz.AdvanceDelay, app.DefaultAdvanceDelay),
			SaveDelay:    config.TTLDuration(cfg.Quiz.SaveDelay, app.DefaultSaveDelay),
		},
	}
}

func newFetcher(cfg config.Config) *opentdb.Client {
	timeout := config.TTLDuration(cfg.Provider.Timeout, opentdb.DefaultTimeout)
	return opentdb.NewClient(cfg.Provider.BaseURL, &http.Client{Timeout: timeout})
}

func newService(cfg config.Config, b *backend) *app.QuizService {
	opts := []app.ServiceOption{app.WithServiceLogger(log.Default())}
	if b.recorder != nil {
		opts = append(opts, app.WithResultRecorder(b.recorder))
	}
	return app.NewQuizService(b.sessions, b.slots, newFetcher(cfg), serviceConfig(cfg), opts...)
}

func newAuthManager(cfg config.Config) (*auth.Manager, error) {
	ttl := config.TTLDuration(cfg.Auth.SessionTTL, auth.DefaultSessionTTL)
	if len(cfg.Auth.Users) == 0 {
		accounts, err := auth.DemoAccounts()
		if err != nil {
			return nil, err
		}
		log.Printf("no users configured, using demo accounts")
		return auth.NewManager(accounts, ttl)
	}
	accounts := make([]auth.Account, 0, len(cfg.Auth.Users))
	for i, u := range cfg.Auth.Users {
		id := u.ID
		if id == 0 {
			id = i + 1
		}
		accounts = append(accounts, auth.Account{
			User:         domain.User{ID: id, Username: u.Username, Name: u.Name, Email: u.Email},
			PasswordHash: u.PasswordHash,
		})
	}
	return auth.NewManager(accounts, ttl)
}
