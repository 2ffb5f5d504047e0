package app

import (
	"context"
	"errors"
	"fmt"

	"live-quiz-service/internal/domain"
)

// ListGames returns the games owned by owner.
func (s *QuizService) ListGames(ctx context.Context, owner string) ([]domain.Game, error) {
	games, err := s.games.ListGamesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// ReplaceGames makes games the complete list of owner's games. Session
// pointers (active, oldSessions) always come from the stored copy.
func (s *QuizService) ReplaceGames(ctx context.Context, owner string, games []domain.Game) error {
	incoming := make(map[domain.ID]struct{}, len(games))
	for _, g := range games {
		if g.ID == "" {
			return domain.InputError(domain.CodeInvalidInput, "Every game must have an id")
		}
		if _, dup := incoming[g.ID]; dup {
			return domain.InputError(domain.CodeInvalidInput, fmt.Sprintf("Duplicate game id %q", g.ID))
		}
		incoming[g.ID] = struct{}{}

		existing, err := s.games.GetGame(ctx, g.ID)
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
		case err != nil:
			return err
		case existing.Owner != owner:
			return domain.ErrNotOwner
		}
	}

	current, err := s.games.ListGamesByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	var removed []domain.ID
	for _, g := range current {
		if _, keep := incoming[g.ID]; keep {
			continue
		}
		if g.HasActiveSession() {
			return domain.ErrGameHasActiveSession
		}
		removed = append(removed, g.ID)
	}

	for _, g := range games {
		err := s.withGameLock(ctx, g.ID, func() error {
			existing, err := s.games.GetGame(ctx, g.ID)
			switch {
			case errors.Is(err, domain.ErrGameNotFound):
				g.Active = nil
				g.OldSessions = []string{}
			case err != nil:
				return err
			default:
				g.Active = existing.Active
				g.OldSessions = existing.OldSessions
			}
			g.Owner = owner
			for i := range g.Questions {
				g.Questions[i].Normalize()
			}
			return s.games.SaveGame(ctx, g)
		})
		if err != nil {
			return err
		}
	}

	for _, id := range removed {
		err := s.withGameLock(ctx, id, func() error {
			existing, err := s.games.GetGame(ctx, id)
			if err != nil {
				return err
			}
			if existing.HasActiveSession() {
				return domain.ErrGameHasActiveSession
			}
			return s.games.DeleteGame(ctx, id)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
