package domain

import (
	"strings"
	"time"
)

// LobbyPosition is the position of a session before its first question.
const LobbyPosition = -1

// State is the lifecycle state of a session derived from position and active.
type State int

const (
	StateLobby State = iota
	StateQuestionActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateQuestionActive:
		return "question_active"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Session is one timed run-through of a game. Remaining time is never stored;
// it is derived from IsoTimeLastQuestionStarted on every read.
type Session struct {
	ID                         string       `json:"id"`
	GameID                     ID           `json:"gameId"`
	Position                   int          `json:"position"`
	Active                     bool         `json:"active"`
	IsoTimeLastQuestionStarted *time.Time   `json:"isoTimeLastQuestionStarted"`
	EndedAt                    *time.Time   `json:"endedAt"`
	Questions                  []Question   `json:"questions"`
	Ledger                     AnswerLedger `json:"ledger"`
}

// NewSession creates a session in the lobby with a snapshot of questions.
func NewSession(id string, gameID ID, questions []Question) *Session {
	snapshot := make([]Question, len(questions))
	copy(snapshot, questions)
	return &Session{
		ID:        id,
		GameID:    gameID,
		Position:  LobbyPosition,
		Active:    true,
		Questions: snapshot,
		Ledger:    AnswerLedger{Players: []PlayerEntry{}},
	}
}

func (s *Session) State() State {
	switch {
	case !s.Active:
		return StateEnded
	case s.Position < 0:
		return StateLobby
	default:
		return StateQuestionActive
	}
}

// PlayerIDs returns player ids in join order.
func (s *Session) PlayerIDs() []string {
	ids := make([]string, 0, len(s.Ledger.Players))
	for _, p := range s.Ledger.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasPlayer reports whether playerID joined this session.
func (s *Session) HasPlayer(playerID string) bool {
	return s.Ledger.entry(playerID) != nil
}

// Join adds a player. Joining is only possible in the lobby.
func (s *Session) Join(playerID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return InputError(CodeInvalidInput, "Name must be provided")
	}
	switch s.State() {
	case StateEnded:
		return ErrSessionNotActive
	case StateQuestionActive:
		return ErrSessionStarted
	}
	if s.HasPlayer(playerID) {
		return InputError(CodeInvalidInput, "Player has already joined")
	}
	s.Ledger.join(playerID, name)
	return nil
}

// Advance moves to the next question, closing every window of the current
// one. Advancing past the last question ends the session instead.
func (s *Session) Advance(now time.Time) (ended bool, err error) {
	if !s.Active {
		return false, ErrSessionNotActive
	}
	if s.Position >= 0 {
		s.Ledger.closeAll(s.Position, s.Questions[s.Position], now)
	}
	next := s.Position + 1
	if next >= len(s.Questions) {
		s.finish(now)
		return true, nil
	}
	started := now
	s.Position = next
	s.IsoTimeLastQuestionStarted = &started
	s.Ledger.open(next, started)
	return false, nil
}

// End forces the session to the ended state. Ending twice is an access error.
func (s *Session) End(now time.Time) error {
	if !s.Active {
		return ErrSessionNotActive
	}
	if s.Position >= 0 {
		s.Ledger.closeAll(s.Position, s.Questions[s.Position], now)
	}
	s.finish(now)
	return nil
}

func (s *Session) finish(now time.Time) {
	ended := now
	s.Active = false
	s.EndedAt = &ended
}

// CurrentQuestion returns the question at the current position.
func (s *Session) CurrentQuestion() (Question, error) {
	switch s.State() {
	case StateEnded:
		return Question{}, ErrSessionNotActive
	case StateLobby:
		return Question{}, ErrSessionNotStarted
	}
	return s.Questions[s.Position], nil
}

// TimeRemaining is the whole seconds left in the current question, 0 outside one.
func (s *Session) TimeRemaining(now time.Time) int {
	if s.State() != StateQuestionActive || s.IsoTimeLastQuestionStarted == nil {
		return 0
	}
	return s.Questions[s.Position].TimeRemaining(*s.IsoTimeLastQuestionStarted, now)
}

// QuestionView is the player-facing current question with server-computed timing.
func (s *Session) QuestionView(now time.Time) (PlayerQuestion, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return PlayerQuestion{}, err
	}
	view := q.View()
	view.Position = s.Position
	view.IsoTimeLastQuestionStarted = cloneTime(s.IsoTimeLastQuestionStarted)
	view.TimeRemaining = s.TimeRemaining(now)
	return view, nil
}

// Submit records answerIDs for the player's current question.
func (s *Session) Submit(playerID string, answerIDs []ID, now time.Time) error {
	return s.SubmitAt(playerID, s.Position, answerIDs, now)
}

// SubmitAt records answerIDs for question idx, which must still be current.
func (s *Session) SubmitAt(playerID string, idx int, answerIDs []ID, now time.Time) error {
	q, err := s.CurrentQuestion()
	if err != nil {
		return err
	}
	if idx != s.Position {
		return ErrAnswerAvailable
	}
	return s.Ledger.submit(playerID, idx, q, answerIDs, now)
}

// Reveal returns the correct answers of the current question and closes the
// player's window for it.
func (s *Session) Reveal(playerID string, now time.Time) ([]ID, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.recordForScoring(playerID, s.Position, q, now); err != nil {
		return nil, err
	}
	return append([]ID{}, q.CorrectAnswers...), nil
}

// AnswersFor returns the stored selection of playerID for question idx.
func (s *Session) AnswersFor(playerID string, idx int) ([]ID, error) {
	return s.Ledger.answersFor(playerID, idx)
}

// PlayerRecords returns a player's records; only available once ended.
func (s *Session) PlayerRecords(playerID string) ([]AnswerRecord, error) {
	if s.Active {
		return nil, ErrSessionOngoing
	}
	return s.Ledger.records(playerID)
}

// Results returns every player's records in join order.
func (s *Session) Results() []PlayerResult {
	return s.Ledger.results()
}

// Status is the admin-facing snapshot.
func (s *Session) Status(now time.Time) SessionStatus {
	names := make([]string, 0, len(s.Ledger.Players))
	for _, p := range s.Ledger.Players {
		names = append(names, p.Name)
	}
	questions := make([]Question, len(s.Questions))
	copy(questions, s.Questions)
	return SessionStatus{
		ID:                         s.ID,
		GameID:                     s.GameID,
		Active:                     s.Active,
		Position:                   s.Position,
		IsoTimeLastQuestionStarted: cloneTime(s.IsoTimeLastQuestionStarted),
		TimeRemaining:              s.TimeRemaining(now),
		Questions:                  questions,
		Players:                    names,
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	c := *s
	c.IsoTimeLastQuestionStarted = cloneTime(s.IsoTimeLastQuestionStarted)
	c.EndedAt = cloneTime(s.EndedAt)
	c.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Answers = append([]Answer{}, q.Answers...)
		q.CorrectAnswers = append([]ID{}, q.CorrectAnswers...)
		c.Questions[i] = q
	}
	c.Ledger = s.Ledger.clone()
	return &c
}

// Event builds the lifecycle event describing the session's current state.
func (s *Session) Event(kind string, at time.Time) SessionEvent {
	return SessionEvent{Type: kind, SessionID: s.ID, Position: s.Position, Active: s.Active, At: at}
}
