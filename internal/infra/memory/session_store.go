package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

const maxCodeAttempts = 32

// ErrCodeSpaceExhausted is returned when no free session code could be found.
var ErrCodeSpaceExhausted = errors.New("no free session code")

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	players  map[string]domain.Player
	newCode  func() string
}

// SessionStoreOption customises a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionCodes replaces the session code generator.
func WithSessionCodes(gen func() string) SessionStoreOption {
	return func(s *SessionStore) { s.newCode = gen }
}

func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*domain.Session),
		players:  make(map[string]domain.Player),
		newCode:  domain.NewSessionCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) CreateSession(_ context.Context, gameID domain.ID, questions []domain.Question) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		if _, taken := s.sessions[code]; taken {
			continue
		}
		session := domain.NewSession(code, gameID, questions)
		s.sessions[code] = session.Clone()
		return session, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *SessionStore) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// ListOldSessions returns ended sessions of gameID ordered by end time.
func (s *SessionStore) ListOldSessions(_ context.Context, gameID domain.ID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ended []*domain.Session
	for _, session := range s.sessions {
		if session.GameID == gameID && !session.Active {
			ended = append(ended, session)
		}
	}
	sort.Slice(ended, func(i, j int) bool {
		a, b := ended[i].EndedAt, ended[j].EndedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return ended[i].ID < ended[j].ID
	})
	ids := make([]string, 0, len(ended))
	for _, session := range ended {
		ids = append(ids, session.ID)
	}
	return ids, nil
}

func (s *SessionStore) SavePlayer(_ context.Context, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *SessionStore) GetPlayer(_ context.Context, playerID string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return player, nil
}
