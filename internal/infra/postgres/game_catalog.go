package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// GameCatalog stores games as JSONB documents keyed by id.
type GameCatalog struct {
	pool *pgxpool.Pool
}

func NewGameCatalog(pool *pgxpool.Pool) *GameCatalog {
	return &GameCatalog{pool: pool}
}

func (c *GameCatalog) GetGame(ctx context.Context, gameID domain.ID) (domain.Game, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM games WHERE id=$1`, string(gameID)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	return decodeGame(raw)
}

func (c *GameCatalog) SaveGame(ctx context.Context, game domain.Game) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO games (id, owner, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET owner = EXCLUDED.owner, data = EXCLUDED.data, updated_at = now()`,
		string(game.ID), game.Owner, raw)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (c *GameCatalog) DeleteGame(ctx context.Context, gameID domain.ID) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM games WHERE id=$1`, string(gameID))
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (c *GameCatalog) ListGamesByOwner(ctx context.Context, owner string) ([]domain.Game, error) {
	rows, err := c.pool.Query(ctx, `SELECT data FROM games WHERE owner=$1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	games := make([]domain.Game, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		game, err := decodeGame(raw)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func decodeGame(raw []byte) (domain.Game, error) {
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	if game.OldSessions == nil {
		game.OldSessions = []string{}
	}
	return game, nil
}
