// Package callbacks reads inline button presses and answers them.
//
// Buttons built with a unique name arrive with Data "\f<unique>|<payload>"
// when routed through a single tele.OnCallback handler.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

const respondedKey = "cb_responded"

// Split returns the unique name and payload of cb. Either may be empty.
func Split(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// Payload is the payload of the current callback.
func Payload(c tele.Context) string {
	_, payload := Split(c.Callback())
	return payload
}

func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(Payload(c))
}

// Respond answers the current callback and marks it answered. An empty
// text just stops the button spinner.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil {
		return nil
	}
	c.Set(respondedKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Responded reports whether Respond already ran for this update.
func Responded(c tele.Context) bool {
	v, _ := c.Get(respondedKey).(bool)
	return v
}
