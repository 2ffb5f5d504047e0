package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// CachedCatalog caches games in Redis and falls back to the backend on a miss.
// Games are stored as JSON at quiz:game:{id}. The cache is shared between
// instances, so writes drop the key instead of updating it in place and bump
// quiz:game:{id}:gen; a fill only lands if the generation it started under is
// still current.
// storeIfCurrent sets KEYS[1] only while KEYS[2] still holds the generation
// the caller read before loading from the backend.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

type CachedCatalog struct {
	client  *redis.Client
	backend app.GameCatalog
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
}

func NewCachedCatalog(client *redis.Client, backend app.GameCatalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		client:  client,
		backend: backend,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedCatalog) GetGame(ctx context.Context, gameID domain.ID) (domain.Game, error) {
	if g, ok := c.cached(ctx, gameID); ok {
		return g, nil
	}

	gen, err := c.generation(ctx, gameID)
	if err != nil {
		// without a generation a fill cannot be proven fresh; skip the cache
		log.Printf("read cache generation of game %s: %v", gameID, err)
		return c.backend.GetGame(ctx, gameID)
	}

	result, err, _ := c.sf.Do(string(gameID)+"#"+gen, func() (interface{}, error) {
		if g, ok := c.cached(ctx, gameID); ok {
			return g, nil
		}
		game, err := c.backend.GetGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(game); err == nil {
				keys := []string{gameKey(gameID), genKey(gameID)}
				if err := storeIfCurrent.Run(ctx, c.client, keys, gen, raw, ttl.Milliseconds()).Err(); err != nil {
					log.Printf("cache game %s: %v", gameID, err)
				}
			}
		}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game).Clone(), nil
}

func (c *CachedCatalog) SaveGame(ctx context.Context, game domain.Game) error {
	if err := c.backend.SaveGame(ctx, game); err != nil {
		return err
	}
	return c.invalidate(ctx, game.ID)
}

func (c *CachedCatalog) DeleteGame(ctx context.Context, gameID domain.ID) error {
	if err := c.backend.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	return c.invalidate(ctx, gameID)
}

func (c *CachedCatalog) ListGamesByOwner(ctx context.Context, owner string) ([]domain.Game, error) {
	return c.backend.ListGamesByOwner(ctx, owner)
}

func (c *CachedCatalog) cached(ctx context.Context, gameID domain.ID) (domain.Game, bool) {
	raw, err := c.client.Get(ctx, gameKey(gameID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached game %s: %v", gameID, err)
		}
		return domain.Game{}, false
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, false
	}
	return game, true
}

func (c *CachedCatalog) generation(ctx context.Context, gameID domain.ID) (string, error) {
	gen, err := c.client.Get(ctx, genKey(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *CachedCatalog) invalidate(ctx context.Context, gameID domain.ID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(gameID))
		pipe.Del(ctx, gameKey(gameID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate game %s: %w", gameID, err)
	}
	return nil
}

func (c *CachedCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func gameKey(gameID domain.ID) string {
	return "quiz:game:" + string(gameID)
}

func genKey(gameID domain.ID) string {
	return "quiz:game:" + string(gameID) + ":gen"
}
