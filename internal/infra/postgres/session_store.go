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

const maxCodeAttempts = 32

// ErrCodeSpaceExhausted is returned when no free session code could be found.
var ErrCodeSpaceExhausted = errors.New("no free session code")

// SessionStore persists sessions as JSONB next to the columns history and
// lookups filter on. Players live in their own table.
type SessionStore struct {
	pool    *pgxpool.Pool
	newCode func() string
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, newCode: domain.NewSessionCode}
}

func (s *SessionStore) CreateSession(ctx context.Context, gameID domain.ID, questions []domain.Question) (*domain.Session, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		session := domain.NewSession(s.newCode(), gameID, questions)
		raw, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("marshal session: %w", err)
		}
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO sessions (id, game_id, active, ended_at, data)
			VALUES ($1, $2, true, NULL, $3)
			ON CONFLICT (id) DO NOTHING`,
			session.ID, string(gameID), raw)
		if err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return session, nil
		}
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, game_id, active, ended_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET active = EXCLUDED.active, ended_at = EXCLUDED.ended_at, data = EXCLUDED.data`,
		session.ID, string(session.GameID), session.Active, session.EndedAt, raw)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) ListOldSessions(ctx context.Context, gameID domain.ID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM sessions
		WHERE game_id=$1 AND NOT active
		ORDER BY ended_at, id`, string(gameID))
	if err != nil {
		return nil, fmt.Errorf("list old sessions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SessionStore) SavePlayer(ctx context.Context, player domain.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (id, session_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET session_id = EXCLUDED.session_id, name = EXCLUDED.name`,
		player.ID, player.SessionID, player.Name)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *SessionStore) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	player := domain.Player{ID: playerID}
	err := s.pool.QueryRow(ctx, `SELECT session_id, name FROM players WHERE id=$1`, playerID).
		Scan(&player.SessionID, &player.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("load player: %w", err)
	}
	return player, nil
}
