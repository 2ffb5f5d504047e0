package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestQuestionDecodesNumericIDs(t *testing.T) {
	raw := `{"id": 7, "text": "2+2?", "type": "single", "duration": 30, "points": 10,
		"answers": [{"id": 1, "text": "3", "isCorrect": false}, {"id": 2, "text": "4", "isCorrect": true}],
		"correctAnswers": ["2"]}`

	var q Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "7" || q.Answers[1].ID != "2" {
		t.Fatalf("expected string ids, got %q and %q", q.ID, q.Answers[1].ID)
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
}

func TestQuestionRejectsUnknownType(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"type": "essay"}`), &q); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestQuestionValidate(t *testing.T) {
	base := func() Question {
		return Question{
			ID:             "q1",
			Type:           QuestionSingle,
			Duration:       10,
			Points:         1,
			Answers:        []Answer{{ID: "a", IsCorrect: true}, {ID: "b"}},
			CorrectAnswers: []ID{"a"},
		}
	}

	cases := []struct {
		name   string
		mutate func(q *Question)
	}{
		{"zero duration", func(q *Question) { q.Duration = 0 }},
		{"zero points", func(q *Question) { q.Points = 0 }},
		{"one answer", func(q *Question) { q.Answers = q.Answers[:1] }},
		{"two correct on single", func(q *Question) {
			q.Answers[1].IsCorrect = true
			q.CorrectAnswers = []ID{"a", "b"}
		}},
		{"flag mismatch", func(q *Question) { q.CorrectAnswers = []ID{"b"} }},
		{"unlisted flag", func(q *Question) { q.Answers[1].IsCorrect = true }},
		{"no correct on multiple", func(q *Question) {
			q.Type = QuestionMultiple
			q.Answers[0].IsCorrect = false
			q.CorrectAnswers = nil
		}},
	}
	for _, tc := range cases {
		q := base()
		tc.mutate(&q)
		err := q.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if KindOf(err) != KindInput {
			t.Fatalf("%s: expected input error, got %v", tc.name, err)
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base question should be valid: %v", err)
	}
}

func TestNormalizeFillsCorrectAnswers(t *testing.T) {
	q := Question{Answers: []Answer{{ID: "1"}, {ID: "2", IsCorrect: true}, {ID: "3", IsCorrect: true}}}
	q.Normalize()
	if len(q.CorrectAnswers) != 2 || q.CorrectAnswers[0] != "2" || q.CorrectAnswers[1] != "3" {
		t.Fatalf("unexpected correct answers %v", q.CorrectAnswers)
	}
}

func TestQuestionWithoutTypeIsSingleChoice(t *testing.T) {
	raw := `{"id": 1, "text": "Capital of France?", "duration": 20, "points": 5,
		"answers": [{"id": 1, "text": "Paris", "isCorrect": true}, {"id": 2, "text": "Lyon"}]}`

	var q Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	q.Normalize()
	if q.Type != QuestionSingle {
		t.Fatalf("expected single choice, got %q", q.Type)
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	if Score(q, []ID{"1"}) != 5 {
		t.Fatalf("expected full points for the correct answer")
	}
}

func TestTimeRemaining(t *testing.T) {
	q := Question{Duration: 30}
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if got := q.TimeRemaining(start, start); got != 30 {
		t.Fatalf("expected full duration, got %d", got)
	}
	if got := q.TimeRemaining(start, start.Add(10500*time.Millisecond)); got != 20 {
		t.Fatalf("expected 20 seconds left, got %d", got)
	}
	if got := q.TimeRemaining(start, start.Add(time.Minute)); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestErrorsMatchByCode(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrAnswerAvailable)
	if !errors.Is(wrapped, ErrAnswerAvailable) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if KindOf(wrapped) != KindAccess {
		t.Fatalf("expected access kind")
	}
	if errors.Is(ErrGameAlreadyActive, ErrNoActiveSession) {
		t.Fatalf("different codes must not match")
	}
}
