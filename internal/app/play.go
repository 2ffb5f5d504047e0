package app

import (
	"context"
	"fmt"
	"strings"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
)

// Join registers a player in a lobby session and returns the new player id.
func (s *QuizService) Join(ctx context.Context, sessionID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.InputError(domain.CodeInvalidInput, "Name must be provided")
	}
	lookup, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	playerID := s.newID()
	err = s.withGameLock(ctx, lookup.GameID, func() error {
		session, err := s.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := session.Join(playerID, name); err != nil {
			return err
		}
		if err := s.sessions.SavePlayer(ctx, domain.Player{ID: playerID, Name: name, SessionID: sessionID}); err != nil {
			return fmt.Errorf("save player: %w", err)
		}
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		s.events.Publish(session.Event(domain.EventJoined, s.now()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return playerID, nil
}

// PlayerStatus reports whether the player's session has left the lobby.
func (s *QuizService) PlayerStatus(ctx context.Context, playerID string) (bool, error) {
	_, session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return false, err
	}
	if !session.Active {
		return false, domain.ErrSessionNotActive
	}
	return session.Position >= 0, nil
}

// Question returns the player's current question with server-computed timing.
func (s *QuizService) Question(ctx context.Context, playerID string) (domain.PlayerQuestion, error) {
	_, session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return domain.PlayerQuestion{}, err
	}
	return session.QuestionView(s.now())
}

// Submit replaces the player's selection for the current question.
func (s *QuizService) Submit(ctx context.Context, playerID string, answerIDs []domain.ID) error {
	err := s.mutatePlayerSession(ctx, playerID, func(player domain.Player, session *domain.Session) error {
		return session.Submit(player.ID, answerIDs, s.now())
	})
	metrics.RecordSubmission(err == nil)
	return err
}

// AnswersFor returns the player's stored selection for question idx.
func (s *QuizService) AnswersFor(ctx context.Context, playerID string, idx int) ([]domain.ID, error) {
	player, session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return session.AnswersFor(player.ID, idx)
}

// RevealAnswers returns the correct answers of the current question. It
// closes the player's answer window for that question.
func (s *QuizService) RevealAnswers(ctx context.Context, playerID string) ([]domain.ID, error) {
	var correct []domain.ID
	err := s.mutatePlayerSession(ctx, playerID, func(player domain.Player, session *domain.Session) error {
		ids, err := session.Reveal(player.ID, s.now())
		if err != nil {
			return err
		}
		correct = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordReveal()
	return correct, nil
}

// FinalResults returns the player's records once the session has ended.
func (s *QuizService) FinalResults(ctx context.Context, playerID string) ([]domain.AnswerRecord, error) {
	player, session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return session.PlayerRecords(player.ID)
}

// Subscribe streams lifecycle events of a session. The first event is a
// snapshot of the current state.
func (s *QuizService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.events.Subscribe(session.ID, session.Event(domain.EventSnapshot, s.now()))
	return ch, cancel, nil
}

func (s *QuizService) playerSession(ctx context.Context, playerID string) (domain.Player, *domain.Session, error) {
	player, err := s.sessions.GetPlayer(ctx, playerID)
	if err != nil {
		return domain.Player{}, nil, err
	}
	session, err := s.sessions.GetSession(ctx, player.SessionID)
	if err != nil {
		return domain.Player{}, nil, err
	}
	if !session.HasPlayer(player.ID) {
		return domain.Player{}, nil, domain.ErrPlayerNotFound
	}
	return player, session, nil
}

// mutatePlayerSession reloads the player's session under its game lock,
// applies fn and saves the result.
func (s *QuizService) mutatePlayerSession(ctx context.Context, playerID string, fn func(domain.Player, *domain.Session) error) error {
	player, lookup, err := s.playerSession(ctx, playerID)
	if err != nil {
		return err
	}
	return s.withGameLock(ctx, lookup.GameID, func() error {
		session, err := s.sessions.GetSession(ctx, player.SessionID)
		if err != nil {
			return err
		}
		if err := fn(player, session); err != nil {
			return err
		}
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}
