package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an identifier that clients may send either as a JSON string or number.
// It is always stored and emitted as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Answer is one selectable option of a question.
type Answer struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a single timed question of a game.
type Question struct {
	ID             ID           `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Duration       int          `json:"duration"` // seconds
	Points         int          `json:"points"`
	Answers        []Answer     `json:"answers"`
	CorrectAnswers []ID         `json:"correctAnswers"`
	ImageURL       string       `json:"imageUrl,omitempty"`
	YoutubeURL     string       `json:"youtubeUrl,omitempty"`
}

// Game is an admin-owned collection of questions.
type Game struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Owner       string     `json:"owner"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Questions   []Question `json:"questions"`
	Active      *string    `json:"active"`
	OldSessions []string   `json:"oldSessions"`
}

// HasActiveSession reports whether a session is currently running for the game.
func (g Game) HasActiveSession() bool {
	return g.Active != nil && *g.Active != ""
}

// Clone returns a deep copy of the game.
func (g Game) Clone() Game {
	c := g
	if g.Active != nil {
		active := *g.Active
		c.Active = &active
	}
	c.OldSessions = append([]string{}, g.OldSessions...)
	c.Questions = make([]Question, len(g.Questions))
	for i, q := range g.Questions {
		q.Answers = append([]Answer{}, q.Answers...)
		q.CorrectAnswers = append([]ID{}, q.CorrectAnswers...)
		c.Questions[i] = q
	}
	return c
}

// Player is a participant bound to exactly one session.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
}

// AnswerRecord is the ledger entry of one player for one question.
type AnswerRecord struct {
	PlayerID          string     `json:"playerId"`
	QuestionIndex     int        `json:"questionIndex"`
	Answers           []ID       `json:"answers"`
	QuestionStartedAt *time.Time `json:"questionStartedAt"`
	AnsweredAt        *time.Time `json:"answeredAt"`
	Correct           bool       `json:"correct"`
	Points            int        `json:"points"`
	Closed            bool       `json:"closed"`
}

// PlayerResult groups a player's records in question order.
type PlayerResult struct {
	Name    string         `json:"name"`
	Answers []AnswerRecord `json:"answers"`
}

// PlayerQuestion is the player-facing view of the current question. It never
// carries correctness information.
type PlayerQuestion struct {
	ID                         ID           `json:"id"`
	Text                       string       `json:"text"`
	Type                       QuestionType `json:"type"`
	Duration                   int          `json:"duration"`
	Points                     int          `json:"points"`
	Answers                    []AnswerView `json:"answers"`
	ImageURL                   string       `json:"imageUrl,omitempty"`
	YoutubeURL                 string       `json:"youtubeUrl,omitempty"`
	Position                   int          `json:"position"`
	IsoTimeLastQuestionStarted *time.Time   `json:"isoTimeLastQuestionStarted"`
	TimeRemaining              int          `json:"timeRemaining"`
}

// AnswerView is an answer option without its correctness flag.
type AnswerView struct {
	ID   ID     `json:"id"`
	Text string `json:"text"`
}

// SessionStatus is the admin-facing snapshot of a session.
type SessionStatus struct {
	ID                         string     `json:"id"`
	GameID                     ID         `json:"gameId"`
	Active                     bool       `json:"active"`
	Position                   int        `json:"position"`
	IsoTimeLastQuestionStarted *time.Time `json:"isoTimeLastQuestionStarted"`
	TimeRemaining              int        `json:"timeRemaining"`
	Questions                  []Question `json:"questions"`
	Players                    []string   `json:"players"`
}

// SessionEvent is published on every lifecycle change of a session.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	At        time.Time `json:"at"`
}

const (
	EventSnapshot = "snapshot"
	EventJoined   = "joined"
	EventAdvanced = "advanced"
	EventEnded    = "ended"
)
