package app_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

var errDBDown = errors.New("db down")

// flakyCatalog fails the next failSaves calls to SaveGame.
type flakyCatalog struct {
	*memory.GameCatalog
	failSaves int
}

func (c *flakyCatalog) SaveGame(ctx context.Context, game domain.Game) error {
	if c.failSaves > 0 {
		c.failSaves--
		return errDBDown
	}
	return c.GameCatalog.SaveGame(ctx, game)
}

// expiringSessions forgets sessions the way a store with retention TTL does.
type expiringSessions struct {
	*memory.SessionStore
	gone map[string]bool
}

func (s *expiringSessions) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s.gone[sessionID] {
		return nil, domain.ErrSessionNotFound
	}
	return s.SessionStore.GetSession(ctx, sessionID)
}

func TestEndRecoversFromFailedGameWrite(t *testing.T) {
	ctx := context.Background()
	games := &flakyCatalog{GameCatalog: memory.NewGameCatalog(sampleGame())}
	svc := app.NewQuizService(games, memory.NewSessionStore(), app.NewKeyedMutex())

	first, err := svc.Start(ctx, "42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	games.failSaves = 1
	if err := svc.End(ctx, "42"); !errors.Is(err, errDBDown) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	if err := svc.End(ctx, "42"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session on retry, got %v", err)
	}
	game, _ := games.GetGame(ctx, "42")
	if game.HasActiveSession() || len(game.OldSessions) != 1 || game.OldSessions[0] != first {
		t.Fatalf("expected pointer retired into history, got active=%v old=%v", game.Active, game.OldSessions)
	}

	second, err := svc.Start(ctx, "42")
	if err != nil {
		t.Fatalf("start after recovery: %v", err)
	}
	if second == first {
		t.Fatalf("expected a new session id")
	}
}

func TestStartRecoversFromFailedFinalAdvance(t *testing.T) {
	ctx := context.Background()
	games := &flakyCatalog{GameCatalog: memory.NewGameCatalog(sampleGame())}
	svc := app.NewQuizService(games, memory.NewSessionStore(), app.NewKeyedMutex())

	first, err := svc.Start(ctx, "42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Advance(ctx, "42"); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	games.failSaves = 1
	if _, err := svc.Advance(ctx, "42"); !errors.Is(err, errDBDown) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	if _, err := svc.Start(ctx, "42"); err != nil {
		t.Fatalf("start after ended session: %v", err)
	}
	game, _ := games.GetGame(ctx, "42")
	if len(game.OldSessions) != 1 || game.OldSessions[0] != first {
		t.Fatalf("expected ended session in history, got %v", game.OldSessions)
	}
}

func TestExpiredSessionPointerIsCleared(t *testing.T) {
	ctx := context.Background()
	games := memory.NewGameCatalog(sampleGame())
	sessions := &expiringSessions{SessionStore: memory.NewSessionStore(), gone: map[string]bool{}}
	svc := app.NewQuizService(games, sessions, app.NewKeyedMutex())

	first, err := svc.Start(ctx, "42")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sessions.gone[first] = true

	if _, err := svc.Advance(ctx, "42"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
	game, _ := games.GetGame(ctx, "42")
	if game.HasActiveSession() {
		t.Fatalf("expected expired pointer cleared")
	}
	if _, err := svc.Start(ctx, "42"); err != nil {
		t.Fatalf("start after expiry: %v", err)
	}
}

func TestConcurrentAdvancesAreSerialized(t *testing.T) {
	const n = 8
	f := newFixture(t, longGame(n))
	ctx := context.Background()
	sessionID, _ := startWithPlayers(t, f, "Ada")

	positions := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Advance(ctx, "42")
			if err != nil {
				t.Errorf("advance: %v", err)
				return
			}
			positions <- res.Position
		}()
	}
	wg.Wait()
	close(positions)

	var seen []int
	for p := range positions {
		seen = append(seen, p)
	}
	sort.Ints(seen)
	if len(seen) != n {
		t.Fatalf("expected %d advances, got %v", n, seen)
	}
	for i, p := range seen {
		if p != i {
			t.Fatalf("positions skipped or repeated: %v", seen)
		}
	}
	status, err := f.svc.Status(ctx, sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Active || status.Position != n-1 {
		t.Fatalf("expected position %d, got %+v", n-1, status)
	}
}

func TestSubmitsDuringAdvanceNeverRewindSession(t *testing.T) {
	const n = 5
	f := newFixture(t, longGame(n))
	ctx := context.Background()
	sessionID, players := startWithPlayers(t, f, "Ada")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := f.svc.Submit(ctx, players[0], []domain.ID{"2"}); err != nil && domain.KindOf(err) == 0 {
				t.Errorf("submit: %v", err)
				return
			}
		}
	}()

	for want := 0; want <= n; want++ {
		res, err := f.svc.Advance(ctx, "42")
		if err != nil {
			t.Fatalf("advance %d: %v", want, err)
		}
		if want == n {
			if !res.Ended {
				t.Fatalf("expected the last advance to end the session")
			}
			break
		}
		if res.Position != want {
			t.Fatalf("expected position %d, got %d", want, res.Position)
		}
	}
	close(stop)
	wg.Wait()

	status, err := f.svc.Status(ctx, sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Active {
		t.Fatalf("a submit wrote back a running session: %+v", status)
	}
	results, err := f.svc.Results(ctx, sessionID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || len(results[0].Answers) != n {
		t.Fatalf("expected one closed record per question, got %+v", results)
	}
}

func longGame(n int) domain.Game {
	game := sampleGame()
	game.Questions = nil
	for i := 0; i < n; i++ {
		game.Questions = append(game.Questions, domain.Question{
			ID:       domain.ID(fmt.Sprint(i + 1)),
			Text:     fmt.Sprintf("Question %d", i+1),
			Type:     domain.QuestionSingle,
			Duration: 30,
			Points:   1,
			Answers:  []domain.Answer{{ID: "1", Text: "no"}, {ID: "2", Text: "yes", IsCorrect: true}},
		})
	}
	return game
}
