// Package state tracks which step of a multi-message conversation each
// user is on. Sessions live in memory and expire after a period of
// inactivity, so a restart or a long pause drops them.
package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State names a conversation step. The zero step is StateIdle.
type State string

const StateIdle State = "idle"

// Session is one user's step plus the scratch values collected so far.
type Session struct {
	State    State
	TempData map[string]any
	touched  time.Time
}

// Manager is what handlers need from a session store. Reads and writes
// refresh the session's expiry; InProgress does not.
type Manager interface {
	SetState(userID int64, st State)
	GetState(userID int64) State
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	ClearTemp(userID int64, key string)
	Clear(userID int64)

	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
