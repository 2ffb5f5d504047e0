package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testQuestions() []Question {
	return []Question{
		{
			ID: "q1", Text: "Pick two", Type: QuestionSingle, Duration: 20, Points: 10,
			Answers:        []Answer{{ID: "1", Text: "one"}, {ID: "2", Text: "two", IsCorrect: true}},
			CorrectAnswers: []ID{"2"},
		},
		{
			ID: "q2", Text: "Odd numbers", Type: QuestionMultiple, Duration: 30, Points: 5,
			Answers: []Answer{
				{ID: "1", Text: "one", IsCorrect: true},
				{ID: "2", Text: "two"},
				{ID: "3", Text: "three", IsCorrect: true},
			},
			CorrectAnswers: []ID{"1", "3"},
		},
	}
}

func lobbyWithPlayers(t *testing.T, players ...string) *Session {
	t.Helper()
	s := NewSession("123456", "game-1", testQuestions())
	for _, p := range players {
		if err := s.Join(p, "name-"+p); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
	}
	return s
}

func TestAdvanceFromLobbyOpensFirstQuestion(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if s.State() != StateLobby || s.Position != LobbyPosition {
		t.Fatalf("expected lobby, got %s at %d", s.State(), s.Position)
	}

	ended, err := s.Advance(t0)
	if err != nil || ended {
		t.Fatalf("advance: ended=%v err=%v", ended, err)
	}
	if s.Position != 0 {
		t.Fatalf("expected position 0, got %d", s.Position)
	}
	if s.IsoTimeLastQuestionStarted == nil || !s.IsoTimeLastQuestionStarted.Equal(t0) {
		t.Fatalf("expected start stamp %v, got %v", t0, s.IsoTimeLastQuestionStarted)
	}
	view, err := s.QuestionView(t0)
	if err != nil {
		t.Fatalf("question view: %v", err)
	}
	if view.TimeRemaining != 20 {
		t.Fatalf("expected full duration remaining, got %d", view.TimeRemaining)
	}
	if got, _ := s.QuestionView(t0.Add(15 * time.Second)); got.TimeRemaining != 5 {
		t.Fatalf("expected 5 seconds left, got %d", got.TimeRemaining)
	}
}

func TestAdvancePastLastQuestionEnds(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	for i := 0; i < 2; i++ {
		if _, err := s.Advance(t0.Add(time.Duration(i) * time.Minute)); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if s.Position != len(s.Questions)-1 {
		t.Fatalf("expected last position, got %d", s.Position)
	}

	ended, err := s.Advance(t0.Add(5 * time.Minute))
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if !ended || s.Active || s.State() != StateEnded {
		t.Fatalf("expected ended session, got ended=%v active=%v", ended, s.Active)
	}
	if s.Position != 1 {
		t.Fatalf("position must freeze at last value, got %d", s.Position)
	}

	if _, err := s.Advance(t0.Add(6 * time.Minute)); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected not active error, got %v", err)
	}
	if s.Position != 1 {
		t.Fatalf("position changed after end: %d", s.Position)
	}
}

func TestPositionMonotonicUntilEnd(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	last := s.Position
	for s.Active {
		if _, err := s.Advance(t0); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if s.Position < last {
			t.Fatalf("position decreased from %d to %d", last, s.Position)
		}
		last = s.Position
	}
	if err := s.End(t0); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected access error on second end, got %v", err)
	}
	if s.Position != last {
		t.Fatalf("position changed after end")
	}
}

func TestEndIsNotRepeatable(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if err := s.End(t0); err != nil {
		t.Fatalf("end: %v", err)
	}
	endedAt := *s.EndedAt
	err := s.End(t0.Add(time.Minute))
	if KindOf(err) != KindAccess {
		t.Fatalf("expected access error, got %v", err)
	}
	if !s.EndedAt.Equal(endedAt) {
		t.Fatalf("second end mutated the session")
	}
}

func TestJoinOnlyInLobby(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if err := s.Join("p2", "  "); KindOf(err) != KindInput {
		t.Fatalf("expected input error for blank name, got %v", err)
	}
	if _, err := s.Advance(t0); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.Join("p2", "Bob"); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("expected started error, got %v", err)
	}
}

func TestSubmitRoundTripAndOverwrite(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if _, err := s.Advance(t0); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if err := s.Submit("p1", []ID{"1"}, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Submit("p1", []ID{"2"}, t0.Add(4*time.Second)); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	got, err := s.AnswersFor("p1", 0)
	if err != nil {
		t.Fatalf("answers for: %v", err)
	}
	if len(got) != 1 || got[0] != "2" {
		t.Fatalf("expected last submission [2], got %v", got)
	}
	rec := s.Ledger.Players[0].Answers[0]
	if !rec.AnsweredAt.Equal(t0.Add(2 * time.Second)) {
		t.Fatalf("answeredAt should keep the first submission time, got %v", rec.AnsweredAt)
	}
}

func TestSubmitRejectsUnknownAnswer(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	_, _ = s.Advance(t0)
	if err := s.Submit("p1", []ID{"9"}, t0); KindOf(err) != KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestSubmitBeforeStartAndAfterEnd(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if err := s.Submit("p1", []ID{"2"}, t0); !errors.Is(err, ErrSessionNotStarted) {
		t.Fatalf("expected not started, got %v", err)
	}
	_ = s.End(t0)
	if err := s.Submit("p1", []ID{"2"}, t0); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
}

func TestScenarioSingleChoiceScoredOnReveal(t *testing.T) {
	s := lobbyWithPlayers(t, "right", "wrong")
	_, _ = s.Advance(t0)
	_ = s.Submit("right", []ID{"2"}, t0.Add(time.Second))
	_ = s.Submit("wrong", []ID{"1"}, t0.Add(time.Second))

	for _, p := range []string{"right", "wrong"} {
		correct, err := s.Reveal(p, t0.Add(3*time.Second))
		if err != nil {
			t.Fatalf("reveal %s: %v", p, err)
		}
		if len(correct) != 1 || correct[0] != "2" {
			t.Fatalf("expected [2], got %v", correct)
		}
	}
	if rec := s.Ledger.entry("right").Answers[0]; !rec.Correct || rec.Points != 10 {
		t.Fatalf("expected 10 points, got %+v", rec)
	}
	if rec := s.Ledger.entry("wrong").Answers[0]; rec.Correct || rec.Points != 0 {
		t.Fatalf("expected 0 points, got %+v", rec)
	}
}

func TestScenarioMultipleChoice(t *testing.T) {
	s := lobbyWithPlayers(t, "exact", "subset", "superset")
	_, _ = s.Advance(t0)
	_, _ = s.Advance(t0.Add(time.Minute))

	_ = s.Submit("exact", []ID{"1", "3"}, t0.Add(61*time.Second))
	_ = s.Submit("subset", []ID{"1"}, t0.Add(61*time.Second))
	_ = s.Submit("superset", []ID{"1", "2", "3"}, t0.Add(61*time.Second))
	_ = s.End(t0.Add(2 * time.Minute))

	want := map[string]int{"exact": 5, "subset": 0, "superset": 0}
	for player, points := range want {
		rec := s.Ledger.entry(player).Answers[1]
		if rec.Points != points {
			t.Fatalf("%s: expected %d points, got %d", player, points, rec.Points)
		}
	}
}

func TestScenarioRevealClosesWindow(t *testing.T) {
	s := lobbyWithPlayers(t, "p1", "p2")
	_, _ = s.Advance(t0)

	if _, err := s.Reveal("p1", t0.Add(time.Second)); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	err := s.Submit("p1", []ID{"2"}, t0.Add(2*time.Second))
	if !errors.Is(err, ErrAnswerAvailable) {
		t.Fatalf("expected answer available error, got %v", err)
	}
	if err.Error() != "Can't answer question once answer is available" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	// other players keep their own window
	if err := s.Submit("p2", []ID{"2"}, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("p2 submit: %v", err)
	}
}

func TestRevealIsIdempotent(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	_, _ = s.Advance(t0)
	_ = s.Submit("p1", []ID{"2"}, t0.Add(time.Second))
	_, _ = s.Reveal("p1", t0.Add(2*time.Second))
	first := s.Ledger.entry("p1").Answers[0]
	_, _ = s.Reveal("p1", t0.Add(5*time.Second))
	_, _ = s.Advance(t0.Add(10 * time.Second))
	again := s.Ledger.entry("p1").Answers[0]
	if again.Points != first.Points || !again.AnsweredAt.Equal(*first.AnsweredAt) {
		t.Fatalf("record re-scored: %+v vs %+v", first, again)
	}
}

func TestStaleQuestionIndexIsRejected(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	_, _ = s.Advance(t0)
	_, _ = s.Advance(t0.Add(time.Minute))
	if err := s.SubmitAt("p1", 0, []ID{"2"}, t0.Add(61*time.Second)); !errors.Is(err, ErrAnswerAvailable) {
		t.Fatalf("expected answer available for stale index, got %v", err)
	}
}

func TestScenarioEndWithoutSubmission(t *testing.T) {
	s := lobbyWithPlayers(t, "idle")
	_, _ = s.Advance(t0)
	end := t0.Add(7 * time.Second)
	if err := s.End(end); err != nil {
		t.Fatalf("end: %v", err)
	}
	records, err := s.PlayerRecords("idle")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	rec := records[0]
	if len(rec.Answers) != 0 || rec.Correct || !rec.Closed {
		t.Fatalf("expected empty closed record, got %+v", rec)
	}
	if rec.AnsweredAt == nil || !rec.AnsweredAt.Equal(end) {
		t.Fatalf("expected answeredAt at window close, got %v", rec.AnsweredAt)
	}
}

func TestPlayerRecordsRequireEndedSession(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	if _, err := s.PlayerRecords("p1"); !errors.Is(err, ErrSessionOngoing) {
		t.Fatalf("expected ongoing error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := lobbyWithPlayers(t, "p1")
	_, _ = s.Advance(t0)
	c := s.Clone()
	_ = c.Submit("p1", []ID{"2"}, t0)
	if got, _ := s.AnswersFor("p1", 0); len(got) != 0 {
		t.Fatalf("clone mutation leaked into original: %v", got)
	}
}
