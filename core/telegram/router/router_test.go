package router

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/metrics"
	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/commands"
)

type routeCtx struct {
	tele.Context
	upd       tele.Update
	store     map[string]any
	responded int
}

func textUpdate(userID int64, text string) *routeCtx {
	return &routeCtx{
		upd: tele.Update{ID: 1, Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
			Text:   text,
		}},
		store: map[string]any{},
	}
}

func docUpdate(userID int64) *routeCtx {
	c := textUpdate(userID, "")
	c.upd.Message.Document = &tele.Document{FileName: "leads.txt"}
	return c
}

func callbackUpdate(userID int64, data string) *routeCtx {
	return &routeCtx{
		upd:   tele.Update{ID: 2, Callback: &tele.Callback{Sender: &tele.User{ID: userID}, Data: data}},
		store: map[string]any{},
	}
}

func (c *routeCtx) Update() tele.Update      { return c.upd }
func (c *routeCtx) Callback() *tele.Callback { return c.upd.Callback }
func (c *routeCtx) Get(k string) any         { return c.store[k] }
func (c *routeCtx) Set(k string, v any)      { c.store[k] = v }

func (c *routeCtx) Respond(...*tele.CallbackResponse) error {
	c.responded++
	return nil
}

func (c *routeCtx) Text() string {
	if c.upd.Message != nil {
		return c.upd.Message.Text
	}
	return ""
}

func (c *routeCtx) Sender() *tele.User {
	if c.upd.Message != nil {
		return c.upd.Message.Sender
	}
	return c.upd.Callback.Sender
}

func (c *routeCtx) Chat() *tele.Chat {
	if c.upd.Message != nil {
		return c.upd.Message.Chat
	}
	return nil
}

type fsmStub struct {
	active map[int64]bool
	calls  int
}

func (f *fsmStub) InProgress(id int64) bool { return f.active[id] }

func (f *fsmStub) ManagerHandler(tele.Context) error {
	f.calls++
	return nil
}

func TestTextRoutesPrecedence(t *testing.T) {
	var profile, admin, unknown, docs int
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/profile", commands.Command{
		Handler:     func(tele.Context) error { profile++; return nil },
		Description: "profile",
		Aliases:     []string{"👤 Profile"},
	}))
	require.NoError(t, reg.RegisterCommand("/admin", commands.Command{
		Handler:     func(tele.Context) error { admin++; return nil },
		Description: "admin",
		AdminOnly:   true,
	}))
	fsm := &fsmStub{active: map[int64]bool{7: true}}
	routes := TextRoutes(fsm, reg, TextOptions{
		AdminID:         1,
		UnknownText:     func(tele.Context) error { unknown++; return nil },
		UnknownDocument: func(tele.Context) error { docs++; return nil },
	})
	require.Len(t, routes, 2)
	onText, onDoc := routes[0].Handler, routes[1].Handler

	require.NoError(t, onText(textUpdate(7, "👤 Profile")))
	require.NoError(t, onText(textUpdate(7, "leads")))
	require.NoError(t, onText(textUpdate(8, "hello")))
	require.NoError(t, onText(textUpdate(8, "/admin")))
	require.NoError(t, onText(textUpdate(1, "/admin")))
	require.NoError(t, onDoc(docUpdate(7)))
	require.NoError(t, onDoc(docUpdate(8)))

	assert.Equal(t, 1, profile)
	assert.Equal(t, 1, admin)
	assert.Equal(t, 2, fsm.calls)
	assert.Equal(t, 1, unknown)
	assert.Equal(t, 1, docs)
}

func TestCallbackRoute(t *testing.T) {
	m := metrics.New()
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })

	reg := tg.NewRegistry()
	var payload string
	require.NoError(t, reg.RegisterCallback("addkey", func(c tele.Context) error {
		payload = c.Callback().Data
		return errors.New("store down")
	}))
	notFound := 0
	reg.SetCallbackNotFound(func(tele.Context) error { notFound++; return nil })
	route := CallbackRoute(reg, CallbackOptions{})

	c := callbackUpdate(1, "\faddkey|30")
	assert.EqualError(t, route.Handler(c), "store down")
	assert.Equal(t, "\faddkey|30", payload)
	assert.Equal(t, 1, c.responded)

	c = callbackUpdate(1, "\fstale|x")
	require.NoError(t, route.Handler(c))
	assert.Equal(t, 1, notFound)
	assert.Equal(t, 1, c.responded)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Handled.WithLabelValues("callback.addkey", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Handled.WithLabelValues("callback.stale", "ok")))
}

type codedErr struct{}

func (codedErr) Error() string { return "bad plan" }
func (codedErr) Code() string  { return "plan expired" }

func TestErrorCodeAndNames(t *testing.T) {
	assert.Equal(t, "PLAN_EXPIRED", errorCode(codedErr{}))
	assert.Equal(t, "BLOCKED", errorCode(tele.ErrBlockedByUser))
	assert.Equal(t, "profile", handlerName("/profile"))
	assert.Equal(t, "unknown", handlerName(" / "))
}

type fallbackStub struct{ text, docs, callbacks int }

func (f *fallbackStub) UnknownText() tele.HandlerFunc {
	return func(tele.Context) error { f.text++; return nil }
}

func (f *fallbackStub) UnknownDocument() tele.HandlerFunc {
	return func(tele.Context) error { f.docs++; return nil }
}

func (f *fallbackStub) UnknownCallback() tele.HandlerFunc {
	return func(tele.Context) error { f.callbacks++; return nil }
}

func TestRoutesAssemblesFallbacks(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "start",
	}))
	fb := &fallbackStub{}
	routes := Routes(reg, &fsmStub{}, fb, 1)

	byEndpoint := map[any]tele.HandlerFunc{}
	for _, r := range routes {
		byEndpoint[r.Endpoint] = r.Handler
	}
	require.Len(t, byEndpoint, 4)
	require.Contains(t, byEndpoint, "/start")

	require.NoError(t, byEndpoint[tele.OnText](textUpdate(5, "what")))
	require.NoError(t, byEndpoint[tele.OnDocument](docUpdate(5)))
	require.NoError(t, byEndpoint[tele.OnCallback](callbackUpdate(5, "\fgone|1")))
	assert.Equal(t, fallbackStub{text: 1, docs: 1, callbacks: 1}, *fb)
}
