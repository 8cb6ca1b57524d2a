// Package commands describes slash commands and the keyboard labels that
// trigger them.
package commands

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Telegram limits for the command menu.
const (
	maxNameLen        = 32
	maxDescriptionLen = 256
)

var (
	ErrNoHandler     = errors.New("command has no handler")
	ErrNoDescription = errors.New("command has no description")
)

// Command is a slash command registered with the bot.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin.
	AdminOnly bool
	// Hidden commands are left out of the Telegram command menu.
	Hidden bool
	// Aliases are exact texts, such as reply keyboard labels, that
	// trigger the command too.
	Aliases []string
}

// Visible reports whether the command belongs in the public menu.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}

// Validate checks name and c against what setMyCommands accepts.
func (c Command) Validate(name string) error {
	body, ok := strings.CutPrefix(name, "/")
	switch {
	case !ok:
		return fmt.Errorf("command %q: missing slash prefix", name)
	case body == "" || len(body) > maxNameLen:
		return fmt.Errorf("command %q: name must be 1-%d characters", name, maxNameLen)
	case strings.ContainsFunc(body, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	}):
		return fmt.Errorf("command %q: only a-z, 0-9 and _ are allowed", name)
	case c.Handler == nil:
		return fmt.Errorf("command %q: %w", name, ErrNoHandler)
	case strings.TrimSpace(c.Description) == "":
		return fmt.Errorf("command %q: %w", name, ErrNoDescription)
	case len(c.Description) > maxDescriptionLen:
		return fmt.Errorf("command %q: description longer than %d bytes", name, maxDescriptionLen)
	}
	return nil
}
