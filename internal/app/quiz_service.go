package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
)

// Mutation types accepted by Mutate.
const (
	MutationStart   = "START"
	MutationAdvance = "ADVANCE"
	MutationEnd     = "END"
)

// QuizService contains the session lifecycle, answer and results use cases.
// Every mutation of a session runs under the owning game's lock.
type QuizService struct {
	games    GameCatalog
	sessions SessionRepository
	locker   Locker
	events   *Broadcaster
	now      func() time.Time
	newID    func() string
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock replaces time.Now; tests use it for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithBroadcaster shares an event broadcaster with the transport layer.
func WithBroadcaster(b *Broadcaster) Option {
	return func(s *QuizService) { s.events = b }
}

// WithPlayerIDs replaces the player id generator.
func WithPlayerIDs(gen func() string) Option {
	return func(s *QuizService) { s.newID = gen }
}

func NewQuizService(games GameCatalog, sessions SessionRepository, locker Locker, opts ...Option) *QuizService {
	s := &QuizService{
		games:    games,
		sessions: sessions,
		locker:   locker,
		events:   NewBroadcaster(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events exposes the broadcaster lifecycle events are published on.
func (s *QuizService) Events() *Broadcaster {
	return s.events
}

// MutationResult is the outcome of Mutate.
type MutationResult struct {
	SessionID string `json:"sessionId,omitempty"`
	Position  *int   `json:"position,omitempty"`
	Ended     bool   `json:"ended,omitempty"`
}

// AdvanceResult reports where a session stands after Advance.
type AdvanceResult struct {
	SessionID string
	Position  int
	Ended     bool
}

// Mutate dispatches an admin mutation after checking ownership.
func (s *QuizService) Mutate(ctx context.Context, owner string, gameID domain.ID, mutationType string) (MutationResult, error) {
	if err := s.AssertOwnsGame(ctx, owner, gameID); err != nil {
		return MutationResult{}, err
	}
	switch strings.ToUpper(strings.TrimSpace(mutationType)) {
	case MutationStart:
		id, err := s.Start(ctx, gameID)
		if err != nil {
			return MutationResult{}, err
		}
		return MutationResult{SessionID: id}, nil
	case MutationAdvance:
		res, err := s.Advance(ctx, gameID)
		if err != nil {
			return MutationResult{}, err
		}
		pos := res.Position
		return MutationResult{Position: &pos, Ended: res.Ended}, nil
	case MutationEnd:
		return MutationResult{}, s.End(ctx, gameID)
	}
	return MutationResult{}, domain.InputError(domain.CodeInvalidInput, "Invalid mutation type")
}

// Start opens a lobby session for gameID.
func (s *QuizService) Start(ctx context.Context, gameID domain.ID) (string, error) {
	var sessionID string
	err := s.withGameLock(ctx, gameID, func() error {
		game, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		running, err := s.runningSession(ctx, &game)
		if err != nil {
			return err
		}
		if running != nil {
			return domain.ErrGameAlreadyActive
		}
		questions, err := playableQuestions(game)
		if err != nil {
			return err
		}

		session, err := s.sessions.CreateSession(ctx, gameID, questions)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		id := session.ID
		game.Active = &id
		if err := s.games.SaveGame(ctx, game); err != nil {
			return fmt.Errorf("save game: %w", err)
		}
		sessionID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	metrics.RecordTransition("start", false)
	log.Printf("session %s started for game %s", sessionID, gameID)
	return sessionID, nil
}

// Advance opens the next question, or ends the session after the last one.
func (s *QuizService) Advance(ctx context.Context, gameID domain.ID) (AdvanceResult, error) {
	var res AdvanceResult
	err := s.withGameLock(ctx, gameID, func() error {
		game, session, err := s.activeSession(ctx, gameID)
		if err != nil {
			return err
		}
		now := s.now()
		ended, err := session.Advance(now)
		if err != nil {
			return err
		}
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if ended {
			if err := s.retire(ctx, &game, session.ID); err != nil {
				return err
			}
			s.events.Publish(session.Event(domain.EventEnded, now))
		} else {
			s.events.Publish(session.Event(domain.EventAdvanced, now))
		}
		res = AdvanceResult{SessionID: session.ID, Position: session.Position, Ended: ended}
		return nil
	})
	if err != nil {
		return AdvanceResult{}, err
	}
	metrics.RecordTransition("advance", res.Ended)
	if res.Ended {
		log.Printf("session %s ended after last question", res.SessionID)
	}
	return res, nil
}

// End stops the running session of gameID.
func (s *QuizService) End(ctx context.Context, gameID domain.ID) error {
	var sessionID string
	err := s.withGameLock(ctx, gameID, func() error {
		game, session, err := s.activeSession(ctx, gameID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := session.End(now); err != nil {
			return err
		}
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if err := s.retire(ctx, &game, session.ID); err != nil {
			return err
		}
		s.events.Publish(session.Event(domain.EventEnded, now))
		sessionID = session.ID
		return nil
	})
	if err != nil {
		return err
	}
	metrics.RecordTransition("end", true)
	log.Printf("session %s ended", sessionID)
	return nil
}

// Status returns the admin view of a session.
func (s *QuizService) Status(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Status(s.now()), nil
}

// Results returns every player's records once the session has ended.
func (s *QuizService) Results(ctx context.Context, sessionID string) ([]domain.PlayerResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Active {
		return nil, domain.ErrSessionOngoing
	}
	return session.Results(), nil
}

// Report aggregates a session's results on demand.
func (s *QuizService) Report(ctx context.Context, sessionID string) (Report, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(session, DefaultTopPlayers), nil
}

// History lists ended sessions of gameID, oldest first.
func (s *QuizService) History(ctx context.Context, gameID domain.ID) ([]string, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.sessions.ListOldSessions(ctx, gameID)
}

// AssertOwnsGame fails with an access error unless owner owns gameID.
func (s *QuizService) AssertOwnsGame(ctx context.Context, owner string, gameID domain.ID) error {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Owner != owner {
		return domain.ErrNotOwner
	}
	return nil
}

// AssertOwnsSession fails with an access error unless owner owns the session's game.
func (s *QuizService) AssertOwnsSession(ctx context.Context, owner, sessionID string) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.AssertOwnsGame(ctx, owner, session.GameID)
}

func (s *QuizService) activeSession(ctx context.Context, gameID domain.ID) (domain.Game, *domain.Session, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, nil, err
	}
	session, err := s.runningSession(ctx, &game)
	if err != nil {
		return domain.Game{}, nil, err
	}
	if session == nil {
		return domain.Game{}, nil, domain.ErrNoActiveSession
	}
	return game, session, nil
}

// runningSession resolves game.Active. A pointer to a session that already
// ended (an end whose game write failed) or that expired from the store is
// retired on the spot and reported as no running session.
func (s *QuizService) runningSession(ctx context.Context, game *domain.Game) (*domain.Session, error) {
	if !game.HasActiveSession() {
		return nil, nil
	}
	sessionID := *game.Active
	session, err := s.sessions.GetSession(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		log.Printf("game %s points at missing session %s, clearing", game.ID, sessionID)
	case err != nil:
		return nil, err
	case session.Active:
		return session, nil
	default:
		log.Printf("game %s points at ended session %s, clearing", game.ID, sessionID)
	}
	if err := s.retire(ctx, game, sessionID); err != nil {
		return nil, err
	}
	if session != nil {
		s.events.Publish(session.Event(domain.EventEnded, s.now()))
	}
	return nil, nil
}

// retire clears the game's active pointer and records the session in its history.
func (s *QuizService) retire(ctx context.Context, game *domain.Game, sessionID string) error {
	game.Active = nil
	seen := false
	for _, id := range game.OldSessions {
		if id == sessionID {
			seen = true
			break
		}
	}
	if !seen {
		game.OldSessions = append(game.OldSessions, sessionID)
	}
	if err := s.games.SaveGame(ctx, *game); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (s *QuizService) withGameLock(ctx context.Context, gameID domain.ID, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, "game:"+string(gameID))
	if err != nil {
		return fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()
	return fn()
}

func playableQuestions(game domain.Game) ([]domain.Question, error) {
	if len(game.Questions) == 0 {
		return nil, domain.InputError(domain.CodeInvalidQuestion, "Game has no questions")
	}
	questions := make([]domain.Question, len(game.Questions))
	for i, q := range game.Questions {
		q.Answers = append([]domain.Answer{}, q.Answers...)
		q.CorrectAnswers = append([]domain.ID{}, q.CorrectAnswers...)
		q.Normalize()
		if err := q.Validate(); err != nil {
			return nil, err
		}
		questions[i] = q
	}
	return questions, nil
}
