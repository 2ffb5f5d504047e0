package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

// GameCatalog is an in-memory implementation of app.GameCatalog. Values are
// copied on the way in and out.
type GameCatalog struct {
	mu    sync.RWMutex
	games map[domain.ID]domain.Game
}

func NewGameCatalog(games ...domain.Game) *GameCatalog {
	c := &GameCatalog{games: make(map[domain.ID]domain.Game, len(games))}
	for _, g := range games {
		c.games[g.ID] = g.Clone()
	}
	return c
}

func (c *GameCatalog) GetGame(_ context.Context, gameID domain.ID) (domain.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return g.Clone(), nil
}

func (c *GameCatalog) SaveGame(_ context.Context, game domain.Game) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[game.ID] = game.Clone()
	return nil
}

func (c *GameCatalog) DeleteGame(_ context.Context, gameID domain.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.games[gameID]; !ok {
		return domain.ErrGameNotFound
	}
	delete(c.games, gameID)
	return nil
}

// ListGamesByOwner returns owner's games ordered by id.
func (c *GameCatalog) ListGamesByOwner(_ context.Context, owner string) ([]domain.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	games := make([]domain.Game, 0)
	for _, g := range c.games {
		if g.Owner == owner {
			games = append(games, g.Clone())
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}
