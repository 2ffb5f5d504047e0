package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

const maxCodeAttempts = 32

// ErrCodeSpaceExhausted is returned when no free session code could be found.
var ErrCodeSpaceExhausted = errors.New("no free session code")

// SessionStore keeps sessions and players in Redis so several instances can
// serve the same session. Layout:
//
//	quiz:session:{id}         JSON session
//	quiz:player:{id}          JSON player
//	quiz:game:{id}:history    ZSET of ended session ids scored by end time
//
// Every key carries the retention TTL; zero keeps data forever.
type SessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	newCode func() string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, newCode: domain.NewSessionCode}
}

func (s *SessionStore) CreateSession(ctx context.Context, gameID domain.ID, questions []domain.Question) (*domain.Session, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		session := domain.NewSession(s.newCode(), gameID, questions)
		raw, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("marshal session: %w", err)
		}
		ok, err := s.client.SetNX(ctx, sessionKey(session.ID), raw, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("claim session code: %w", err)
		}
		if ok {
			return session, nil
		}
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// SaveSession overwrites the session and, once it has ended, adds it to the
// game's history.
func (s *SessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), raw, s.ttl)
		if !session.Active && session.EndedAt != nil {
			key := historyKey(session.GameID)
			pipe.ZAddNX(ctx, key, redis.Z{
				Score:  float64(session.EndedAt.UnixMilli()),
				Member: session.ID,
			})
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) ListOldSessions(ctx context.Context, gameID domain.ID) ([]string, error) {
	ids, err := s.client.ZRange(ctx, historyKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list old sessions: %w", err)
	}
	return ids, nil
}

func (s *SessionStore) SavePlayer(ctx context.Context, player domain.Player) error {
	raw, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	if err := s.client.Set(ctx, playerKey(player.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *SessionStore) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	raw, err := s.client.Get(ctx, playerKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("get player: %w", err)
	}
	var player domain.Player
	if err := json.Unmarshal(raw, &player); err != nil {
		return domain.Player{}, fmt.Errorf("unmarshal player: %w", err)
	}
	return player, nil
}

func sessionKey(id string) string { return "quiz:session:" + id }

func playerKey(id string) string { return "quiz:player:" + id }

func historyKey(gameID domain.ID) string { return "quiz:game:" + string(gameID) + ":history" }
