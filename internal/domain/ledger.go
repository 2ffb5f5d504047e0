package domain

import (
	"fmt"
	"time"
)

// PlayerEntry holds one player's answer records indexed by question position.
type PlayerEntry struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Answers []AnswerRecord `json:"answers"`
}

// AnswerLedger records every player's submissions for a session. Records are
// only mutable while their window is open; closing a window scores the
// record exactly once.
type AnswerLedger struct {
	Players []PlayerEntry `json:"players"`
}

func (l *AnswerLedger) join(playerID, name string) {
	l.Players = append(l.Players, PlayerEntry{ID: playerID, Name: name, Answers: []AnswerRecord{}})
}

func (l *AnswerLedger) entry(playerID string) *PlayerEntry {
	for i := range l.Players {
		if l.Players[i].ID == playerID {
			return &l.Players[i]
		}
	}
	return nil
}

// open creates the pending record of question idx for every player.
func (l *AnswerLedger) open(idx int, startedAt time.Time) {
	for i := range l.Players {
		p := &l.Players[i]
		for len(p.Answers) <= idx {
			started := startedAt
			p.Answers = append(p.Answers, AnswerRecord{
				PlayerID:          p.ID,
				QuestionIndex:     len(p.Answers),
				Answers:           []ID{},
				QuestionStartedAt: &started,
			})
		}
	}
}

func (l *AnswerLedger) record(playerID string, idx int) (*AnswerRecord, error) {
	p := l.entry(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if idx < 0 || idx >= len(p.Answers) {
		return nil, InputError(CodeInvalidInput, fmt.Sprintf("no record for question %d", idx))
	}
	return &p.Answers[idx], nil
}

// submit replaces the player's selection for question idx of q. The caller
// has already checked that idx is the session's current question.
func (l *AnswerLedger) submit(playerID string, idx int, q Question, answerIDs []ID, now time.Time) error {
	rec, err := l.record(playerID, idx)
	if err != nil {
		return err
	}
	if rec.Closed {
		return ErrAnswerAvailable
	}
	chosen := dedupe(answerIDs)
	for _, id := range chosen {
		if !q.HasAnswer(id) {
			return InputError(CodeAnswerNotFound, fmt.Sprintf("Answer %q is not an option of this question", id))
		}
	}
	rec.Answers = chosen
	if rec.AnsweredAt == nil {
		at := now
		rec.AnsweredAt = &at
	}
	return nil
}

// recordForScoring closes the player's window for question idx and scores
// the record. Closing an already closed record is a no-op.
func (l *AnswerLedger) recordForScoring(playerID string, idx int, q Question, now time.Time) error {
	rec, err := l.record(playerID, idx)
	if err != nil {
		return err
	}
	if rec.Closed {
		return nil
	}
	if rec.AnsweredAt == nil {
		at := now
		rec.AnsweredAt = &at
	}
	if rec.Answers == nil {
		rec.Answers = []ID{}
	}
	rec.Correct = IsCorrect(q, rec.Answers)
	rec.Points = Score(q, rec.Answers)
	rec.Closed = true
	return nil
}

func (l *AnswerLedger) closeAll(idx int, q Question, now time.Time) {
	for i := range l.Players {
		// every player has a record for an opened question
		_ = l.recordForScoring(l.Players[i].ID, idx, q, now)
	}
}

func (l *AnswerLedger) answersFor(playerID string, idx int) ([]ID, error) {
	rec, err := l.record(playerID, idx)
	if err != nil {
		return nil, err
	}
	return append([]ID{}, rec.Answers...), nil
}

func (l *AnswerLedger) records(playerID string) ([]AnswerRecord, error) {
	p := l.entry(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return cloneRecords(p.Answers), nil
}

func (l *AnswerLedger) results() []PlayerResult {
	out := make([]PlayerResult, 0, len(l.Players))
	for _, p := range l.Players {
		out = append(out, PlayerResult{Name: p.Name, Answers: cloneRecords(p.Answers)})
	}
	return out
}

func (l AnswerLedger) clone() AnswerLedger {
	players := make([]PlayerEntry, len(l.Players))
	for i, p := range l.Players {
		players[i] = PlayerEntry{ID: p.ID, Name: p.Name, Answers: cloneRecords(p.Answers)}
	}
	return AnswerLedger{Players: players}
}

func cloneRecords(in []AnswerRecord) []AnswerRecord {
	out := make([]AnswerRecord, len(in))
	for i, r := range in {
		r.Answers = append([]ID{}, r.Answers...)
		r.QuestionStartedAt = cloneTime(r.QuestionStartedAt)
		r.AnsweredAt = cloneTime(r.AnsweredAt)
		out[i] = r
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
