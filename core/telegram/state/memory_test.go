package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSessionExpiresAfterTTL(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemoryManager(10*time.Minute, WithClock(clk.now))

	m.SetState(1, "wizard.step")
	m.SetTemp(1, "draft", 42)
	assert.True(t, m.InProgress(1))

	clk.t = clk.t.Add(9 * time.Minute)
	v, ok := m.GetTemp(1, "draft")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	// the read above refreshed the session
	clk.t = clk.t.Add(9 * time.Minute)
	assert.Equal(t, State("wizard.step"), m.GetState(1))

	clk.t = clk.t.Add(11 * time.Minute)
	assert.False(t, m.InProgress(1))
	assert.Equal(t, StateIdle, m.GetState(1))
	_, ok = m.GetTemp(1, "draft")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestInProgressDoesNotRefresh(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemoryManager(time.Minute, WithClock(clk.now))
	m.SetState(1, "a")

	clk.t = clk.t.Add(50 * time.Second)
	assert.True(t, m.InProgress(1))
	clk.t = clk.t.Add(20 * time.Second)
	assert.False(t, m.InProgress(1))
}

func TestSweep(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemoryManager(time.Minute, WithClock(clk.now))
	m.SetState(1, "a")
	clk.t = clk.t.Add(45 * time.Second)
	m.SetState(2, "b")

	clk.t = clk.t.Add(30 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.InProgress(2))
}

func TestClearAndClearTemp(t *testing.T) {
	m := NewMemoryManager(0)
	m.SetState(1, "a")
	m.SetTemp(1, "x", "y")
	m.ClearTemp(1, "x")
	_, ok := m.GetTemp(1, "x")
	assert.False(t, ok)

	m.Clear(1)
	assert.False(t, m.InProgress(1))
	assert.Equal(t, 0, m.Len())
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	m := NewMemoryManager(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

type senderCtx struct {
	tele.Context
	user *tele.User
	vals map[string]any
}

func (c *senderCtx) Sender() *tele.User  { return c.user }
func (c *senderCtx) Chat() *tele.Chat    { return &tele.Chat{ID: c.user.ID} }
func (c *senderCtx) Update() tele.Update { return tele.Update{ID: 1} }
func (c *senderCtx) Get(k string) any    { return c.vals[k] }
func (c *senderCtx) Set(k string, v any) { c.vals[k] = v }

func TestManagerHandlerDispatchesByState(t *testing.T) {
	m := NewMemoryManager(time.Minute)
	var hits []string
	m.Handle("a", func(tele.Context) error { hits = append(hits, "a"); return nil })
	m.Handle("b", func(tele.Context) error { hits = append(hits, "b"); return nil })

	c := &senderCtx{user: &tele.User{ID: 5}, vals: map[string]any{}}
	m.SetState(5, "b")
	require.NoError(t, m.ManagerHandler(c))
	m.SetState(5, "unknown")
	require.NoError(t, m.ManagerHandler(c))

	assert.Equal(t, []string{"b"}, hits)
}
