package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
)

// backends is the storage wiring chosen from config:
//   - games live in Postgres when configured, in memory otherwise, and are
//     cached in Redis when configured, in process otherwise;
//   - sessions and players live in Redis, then Postgres, then memory;
//   - locks are Redis leases when Redis is configured.
type backends struct {
	catalog  app.GameCatalog
	sessions app.SessionRepository
	locker   app.Locker
	durable  bool
	closers  []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
	}

	var store app.GameCatalog = memory.NewGameCatalog()
	if pool != nil {
		store = pgstore.NewGameCatalog(pool)
		b.durable = true
	}
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	if redisClient != nil {
		b.catalog = redisstore.NewCachedCatalog(redisClient, store, catalogTTL)
	} else {
		b.catalog = memory.NewCachedCatalog(store, catalogTTL)
	}

	switch {
	case redisClient != nil:
		b.sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	case pool != nil:
		b.sessions = pgstore.NewSessionStore(pool)
	default:
		b.sessions = memory.NewSessionStore()
	}

	if redisClient != nil {
		locker, err := redisstore.NewLocker(redisClient, config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.locker = locker
	} else {
		if pool != nil {
			log.Printf("redis not configured: session locks are local to this instance")
		}
		b.locker = app.NewKeyedMutex()
	}
	return b, nil
}
