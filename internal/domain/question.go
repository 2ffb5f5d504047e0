package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType is the closed set of question kinds the scoring engine understands.
type QuestionType string

const (
	QuestionSingle    QuestionType = "single"
	QuestionMultiple  QuestionType = "multiple"
	QuestionJudgement QuestionType = "judgement"
)

const (
	minAnswers = 2
	maxAnswers = 6
)

// ParseQuestionType rejects anything outside the known set.
func ParseQuestionType(raw string) (QuestionType, error) {
	switch t := QuestionType(raw); t {
	case QuestionSingle, QuestionMultiple, QuestionJudgement:
		return t, nil
	}
	return "", fmt.Errorf("unknown question type %q", raw)
}

func (t *QuestionType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = QuestionSingle
		return nil
	}
	parsed, err := ParseQuestionType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Normalize fills CorrectAnswers from the per-answer flags when the stored
// game only carries the flags. Older game files omit the type; they were
// single choice.
func (q *Question) Normalize() {
	if q.Type == "" {
		q.Type = QuestionSingle
	}
	if len(q.CorrectAnswers) > 0 {
		return
	}
	for _, a := range q.Answers {
		if a.IsCorrect {
			q.CorrectAnswers = append(q.CorrectAnswers, a.ID)
		}
	}
}

// Validate checks the invariants scoring relies on.
func (q Question) Validate() error {
	invalid := func(format string, args ...any) error {
		return InputError(CodeInvalidQuestion, fmt.Sprintf("question %q: ", q.ID)+fmt.Sprintf(format, args...))
	}
	if q.Duration <= 0 {
		return invalid("duration must be positive")
	}
	if q.Points <= 0 {
		return invalid("points must be positive")
	}
	if len(q.Answers) < minAnswers || len(q.Answers) > maxAnswers {
		return invalid("must have between %d and %d answers", minAnswers, maxAnswers)
	}

	flagged := make(map[ID]bool, len(q.Answers))
	for _, a := range q.Answers {
		if _, dup := flagged[a.ID]; dup {
			return invalid("duplicate answer id %q", a.ID)
		}
		flagged[a.ID] = a.IsCorrect
	}

	correct := newIDSet(q.CorrectAnswers)
	if len(correct) != len(q.CorrectAnswers) {
		return invalid("duplicate correct answer id")
	}
	for id := range correct {
		isCorrect, ok := flagged[id]
		if !ok {
			return invalid("correct answer %q is not an answer", id)
		}
		if !isCorrect {
			return invalid("correct answer %q is not flagged correct", id)
		}
	}
	for id, isCorrect := range flagged {
		if isCorrect && !correct.has(id) {
			return invalid("answer %q is flagged correct but not listed", id)
		}
	}

	switch q.Type {
	case QuestionSingle, QuestionJudgement:
		if len(correct) != 1 {
			return invalid("%s questions need exactly one correct answer", q.Type)
		}
	case QuestionMultiple:
		if len(correct) < 1 {
			return invalid("multiple choice questions need at least one correct answer")
		}
	default:
		return invalid("unknown type %q", q.Type)
	}
	return nil
}

// HasAnswer reports whether id is one of the question's options.
func (q Question) HasAnswer(id ID) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// View strips correctness data for players.
func (q Question) View() PlayerQuestion {
	answers := make([]AnswerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, AnswerView{ID: a.ID, Text: a.Text})
	}
	return PlayerQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Duration:   q.Duration,
		Points:     q.Points,
		Answers:    answers,
		ImageURL:   q.ImageURL,
		YoutubeURL: q.YoutubeURL,
	}
}

// TimeRemaining derives the whole seconds left in a question started at startedAt.
func (q Question) TimeRemaining(startedAt, now time.Time) int {
	left := time.Duration(q.Duration)*time.Second - now.Sub(startedAt)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

type idSet map[ID]struct{}

func newIDSet(ids []ID) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s idSet) has(id ID) bool {
	_, ok := s[id]
	return ok
}

// dedupe keeps the first occurrence of every id, preserving order.
func dedupe(ids []ID) []ID {
	out := make([]ID, 0, len(ids))
	seen := make(idSet, len(ids))
	for _, id := range ids {
		if seen.has(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
