package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// CachedCatalog caches game reads in process with a TTL to avoid repeated
// backend hits. Writes go through to the backend and drop the cached entry.
// Every invalidation bumps the game's generation; a fill that started under an
// older generation is returned to its callers but never stored.
type CachedCatalog struct {
	backend app.GameCatalog
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex

	mu    sync.RWMutex
	cache map[domain.ID]cachedGame
	gens  map[domain.ID]uint64
}

type cachedGame struct {
	game      domain.Game
	expiresAt time.Time
}

func NewCachedCatalog(backend app.GameCatalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[domain.ID]cachedGame),
		gens:    make(map[domain.ID]uint64),
	}
}

func (c *CachedCatalog) GetGame(ctx context.Context, gameID domain.ID) (domain.Game, error) {
	if g, ok := c.lookup(gameID); ok {
		return g, nil
	}

	gen := c.generation(gameID)
	// callers arriving after an invalidation must not join an older flight
	flight := string(gameID) + "#" + strconv.FormatUint(gen, 10)
	result, err, _ := c.sf.Do(flight, func() (interface{}, error) {
		if g, ok := c.lookup(gameID); ok {
			return g, nil
		}
		now := c.clock()
		game, err := c.backend.GetGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			c.mu.Lock()
			if c.gens[gameID] == gen {
				c.cache[gameID] = cachedGame{game: game.Clone(), expiresAt: now.Add(ttl)}
			}
			c.mu.Unlock()
		}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game).Clone(), nil
}

func (c *CachedCatalog) SaveGame(ctx context.Context, game domain.Game) error {
	defer c.invalidate(game.ID)
	return c.backend.SaveGame(ctx, game)
}

func (c *CachedCatalog) DeleteGame(ctx context.Context, gameID domain.ID) error {
	defer c.invalidate(gameID)
	return c.backend.DeleteGame(ctx, gameID)
}

// ListGamesByOwner is not cached; admin listings must reflect the latest writes.
func (c *CachedCatalog) ListGamesByOwner(ctx context.Context, owner string) ([]domain.Game, error) {
	return c.backend.ListGamesByOwner(ctx, owner)
}

func (c *CachedCatalog) lookup(gameID domain.ID) (domain.Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[gameID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Game{}, false
	}
	return entry.game.Clone(), true
}

func (c *CachedCatalog) generation(gameID domain.ID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[gameID]
}

func (c *CachedCatalog) invalidate(gameID domain.ID) {
	c.mu.Lock()
	delete(c.cache, gameID)
	c.gens[gameID]++
	c.mu.Unlock()
}

func (c *CachedCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
