package domain

import "errors"

// Kind classifies an error for the boundary layer.
type Kind int

const (
	// KindInput marks malformed requests or references to entities that do not exist.
	KindInput Kind = iota + 1
	// KindAccess marks valid requests that are not permitted in the current state.
	KindAccess
)

// Code is a machine-readable refinement of an error.
type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidQuestion    Code = "INVALID_QUESTION"
	CodeGameNotFound       Code = "GAME_NOT_FOUND"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodePlayerNotFound     Code = "PLAYER_NOT_FOUND"
	CodeAnswerNotFound     Code = "ANSWER_NOT_FOUND"
	CodeNotOwner           Code = "NOT_OWNER"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeConflict           Code = "CONFLICT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeSessionNotActive   Code = "SESSION_NOT_ACTIVE"
	CodeSessionNotStarted  Code = "SESSION_NOT_STARTED"
	CodeSessionStarted     Code = "SESSION_STARTED"
	CodeSessionOngoing     Code = "SESSION_ONGOING"
	CodeAnswerWindowClosed Code = "ANSWER_WINDOW_CLOSED"
	CodeGameRunning        Code = "GAME_RUNNING"
)

// Error is the typed error surfaced by the core.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// InputError builds an error of KindInput.
func InputError(code Code, message string) *Error {
	return &Error{Kind: KindInput, Code: code, Message: message}
}

// AccessError builds an error of KindAccess.
func AccessError(code Code, message string) *Error {
	return &Error{Kind: KindAccess, Code: code, Message: message}
}

// KindOf returns the kind of err, or 0 when err is not a core error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

var (
	// ErrGameNotFound is returned when a game id does not exist.
	ErrGameNotFound = InputError(CodeGameNotFound, "Invalid game ID")
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = InputError(CodeSessionNotFound, "Session ID is not an active session")
	// ErrPlayerNotFound is returned when a player id does not exist.
	ErrPlayerNotFound = InputError(CodePlayerNotFound, "Player ID does not exist")
	// ErrNotOwner is returned when an admin touches a game or session they do not own.
	ErrNotOwner = AccessError(CodeNotOwner, "Admin is not the owner of this game")
	// ErrUnauthenticated is returned when the admin token is missing or invalid.
	ErrUnauthenticated = AccessError(CodeUnauthenticated, "Invalid token")
	// ErrGameAlreadyActive is returned by start when a session is already running.
	ErrGameAlreadyActive = AccessError(CodeConflict, "Game already has active session")
	// ErrNoActiveSession is returned by advance and end when no session is running.
	ErrNoActiveSession = AccessError(CodeNotFound, "Game does not have an active session")
	// ErrSessionNotActive is returned for any operation on an ended session.
	ErrSessionNotActive = AccessError(CodeSessionNotActive, "Session ID is not an active session")
	// ErrSessionNotStarted is returned for question reads while in the lobby.
	ErrSessionNotStarted = AccessError(CodeSessionNotStarted, "Session has not started yet")
	// ErrSessionStarted is returned when joining after the lobby closed.
	ErrSessionStarted = AccessError(CodeSessionStarted, "Session has already begun")
	// ErrSessionOngoing is returned when results are requested before the session ends.
	ErrSessionOngoing = AccessError(CodeSessionOngoing, "Session is ongoing, cannot get results")
	// ErrAnswerAvailable is returned when submitting after the answer window closed.
	ErrAnswerAvailable = AccessError(CodeAnswerWindowClosed, "Can't answer question once answer is available")
	// ErrGameHasActiveSession is returned when deleting a game that is running.
	ErrGameHasActiveSession = AccessError(CodeGameRunning, "Cannot delete a game with an active session")
)
