package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
)

// NewImportCmd loads games from a JSON file into the configured catalog.
func NewImportCmd(configPath *string) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "import <games.json>",
		Short: "Import games for an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if owner == "" {
				owner = cfg.Seed.Owner
			}
			b, err := buildBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			if !b.durable {
				return errors.New("import needs postgres.url; the in-memory catalog does not outlive this command")
			}
			service := app.NewQuizService(b.catalog, b.sessions, b.locker)
			return seedGames(ctx, service, args[0], owner)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "admin email owning the games (defaults to seed.owner)")
	return cmd
}

type gamesFile struct {
	Games []domain.Game `json:"games"`
}

func loadGamesFile(path string) ([]domain.Game, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file gamesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Games, nil
}

// seedGames upserts the file's games into owner's list, keeping games the
// file does not mention.
func seedGames(ctx context.Context, service *app.QuizService, path, owner string) error {
	if owner == "" {
		return errors.New("games need an owner: set seed.owner or --owner")
	}
	games, err := loadGamesFile(path)
	if err != nil {
		return err
	}
	merged, err := mergeGames(ctx, service, owner, games)
	if err != nil {
		return err
	}
	if err := service.ReplaceGames(ctx, owner, merged); err != nil {
		return err
	}
	log.Printf("imported %d games for %s", len(games), owner)
	return nil
}

func mergeGames(ctx context.Context, service *app.QuizService, owner string, incoming []domain.Game) ([]domain.Game, error) {
	existing, err := service.ListGames(ctx, owner)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.ID]struct{}, len(incoming))
	merged := make([]domain.Game, 0, len(existing)+len(incoming))
	for _, g := range incoming {
		seen[g.ID] = struct{}{}
		merged = append(merged, g)
	}
	for _, g := range existing {
		if _, replaced := seen[g.ID]; !replaced {
			merged = append(merged, g)
		}
	}
	return merged, nil
}
