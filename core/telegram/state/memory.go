package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultTTL is used when a manager is created with a non-positive TTL.
const DefaultTTL = 30 * time.Minute

// MemoryManager keeps sessions in a mutex-guarded map.
type MemoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	handlers map[State]tele.HandlerFunc
	ttl      time.Duration
	now      func() time.Time
}

// Option customises a MemoryManager.
type Option func(*MemoryManager)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryManager constructs an in-memory manager whose sessions expire after ttl of inactivity.
func NewMemoryManager(ttl time.Duration, opts ...Option) *MemoryManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &MemoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle associates a state with its handler.
func (m *MemoryManager) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.handlers[st] = h
	m.mu.Unlock()
}

func (m *MemoryManager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.touched) > m.ttl
}

// touch returns a live session, creating one when create is set. Callers hold mu.
func (m *MemoryManager) touch(userID int64, create bool) *Session {
	now := m.now()
	sess, ok := m.sessions[userID]
	if ok && m.expired(sess, now) {
		delete(m.sessions, userID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		sess = &Session{State: StateIdle, TempData: make(map[string]any)}
		m.sessions[userID] = sess
	}
	sess.touched = now
	return sess
}

// SetState sets the FSM state for the given user.
func (m *MemoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID, true).State = st
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *MemoryManager) GetState(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess := m.touch(userID, false); sess != nil {
		return sess.State
	}
	return StateIdle
}

// SetTemp stores a temporary key/value pair for the given user session.
func (m *MemoryManager) SetTemp(userID int64, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID, true).TempData[key] = value
}

// GetTemp retrieves a temporary value by key for the given user session.
func (m *MemoryManager) GetTemp(userID int64, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.touch(userID, false)
	if sess == nil {
		return nil, false
	}
	val, ok := sess.TempData[key]
	return val, ok
}

// ClearTemp removes a temporary key/value pair for the given user session.
func (m *MemoryManager) ClearTemp(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		delete(sess.TempData, key)
	}
}

// Clear removes the entire session for a user.
func (m *MemoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// InProgress reports whether the user has a live state other than idle.
// It does not refresh the session.
func (m *MemoryManager) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return ok && sess.State != StateIdle && !m.expired(sess, m.now())
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *MemoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryManager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is cancelled.
func (m *MemoryManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "tg", "fsm.sweep", slog.Int("count", n), slog.Int("live", m.Len()))
			}
		}
	}
}

// ManagerHandler executes the handler registered for the user's current state, if any.
func (m *MemoryManager) ManagerHandler(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)

	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()

	status := "ok"
	if !ok {
		status = "unhandled"
	}
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", status),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)
	if !ok {
		return nil
	}
	return handler(c)
}

var _ Manager = (*MemoryManager)(nil)
