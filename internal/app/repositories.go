package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// GameCatalog abstracts where game definitions live (in-memory, Postgres, cached).
type GameCatalog interface {
	GetGame(ctx context.Context, gameID domain.ID) (domain.Game, error)
	SaveGame(ctx context.Context, game domain.Game) error
	DeleteGame(ctx context.Context, gameID domain.ID) error
	ListGamesByOwner(ctx context.Context, owner string) ([]domain.Game, error)
}

// SessionRepository abstracts how sessions and their players are stored.
// Implementations return copies; callers save explicitly.
type SessionRepository interface {
	CreateSession(ctx context.Context, gameID domain.ID, questions []domain.Question) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SaveSession(ctx context.Context, session *domain.Session) error
	ListOldSessions(ctx context.Context, gameID domain.ID) ([]string, error)
	SavePlayer(ctx context.Context, player domain.Player) error
	GetPlayer(ctx context.Context, playerID string) (domain.Player, error)
}

// Locker serialises mutations per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
