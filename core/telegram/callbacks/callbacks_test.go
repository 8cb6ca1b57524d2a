package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		data, unique, payload string
	}{
		{"\faddkey|7", "addkey", "7"},
		{"\fverify|", "verify", ""},
		{"\fverify", "verify", ""},
		{"plain", "plain", ""},
		{"\fa|b|c", "a", "b|c"},
	} {
		u, p := Split(&tele.Callback{Data: tc.data})
		assert.Equal(t, tc.unique, u, tc.data)
		assert.Equal(t, tc.payload, p, tc.data)
	}

	u, p := Split(nil)
	assert.Empty(t, u)
	assert.Empty(t, p)
}

type cbCtx struct {
	tele.Context
	cb        *tele.Callback
	vals      map[string]any
	responses []*tele.CallbackResponse
}

func (c *cbCtx) Callback() *tele.Callback { return c.cb }
func (c *cbCtx) Get(k string) any         { return c.vals[k] }
func (c *cbCtx) Set(k string, v any)      { c.vals[k] = v }
func (c *cbCtx) Respond(r ...*tele.CallbackResponse) error {
	c.responses = append(c.responses, r...)
	return nil
}

func TestRespondMarksCallback(t *testing.T) {
	c := &cbCtx{cb: &tele.Callback{Data: "\faddkey|30"}, vals: map[string]any{}}
	assert.False(t, Responded(c))

	assert.Equal(t, "30", Payload(c))
	n, err := PayloadInt(c)
	assert.NoError(t, err)
	assert.Equal(t, 30, n)

	assert.NoError(t, Respond(c, "done", true))
	assert.True(t, Responded(c))
	if assert.Len(t, c.responses, 1) {
		assert.Equal(t, "done", c.responses[0].Text)
		assert.True(t, c.responses[0].ShowAlert)
	}
}
