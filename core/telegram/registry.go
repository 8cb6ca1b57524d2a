package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	"github.com/m3rciful/vcfbot/core/telegram/commands"
)

// Registry holds the bot's commands, their aliases and the inline
// button handlers. It is filled once at startup and read per update.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string // alias text -> command name
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return callbacks.Respond(c, "Unsupported action", false)
		},
	}
}

func skipped(event string, err error, attrs ...slog.Attr) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event,
		append(attrs, slog.String("reason", err.Error()))...)
	return err
}

// RegisterCommand adds cmd under name. Invalid commands, duplicate names
// and aliases already taken by another command are rejected.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if err := cmd.Validate(name); err != nil {
		return skipped("register.command.skip", err, slog.String("name", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return skipped("register.command.skip", fmt.Errorf("command %s already registered", name), slog.String("name", name))
	}
	for _, alias := range cmd.Aliases {
		if owner, taken := r.aliases[alias]; taken {
			return skipped("register.command.skip", fmt.Errorf("alias %q already used by %s", alias, owner), slog.String("name", name))
		}
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = name
	}
	return nil
}

// ListCommands returns the commands sorted by name. visibleOnly drops
// hidden and admin-only ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if visibleOnly && !cmd.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	return list
}

// LookupCommand resolves text to a registered command and returns its canonical key.
// Slash text ("/profile", "/profile@bot args") matches by name; any text may match an alias
// exactly, which is how reply keyboard labels reach their commands. Plain words never match
// a command name, so free-form FSM input such as "vcf" stays with the FSM.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if r == nil || text == "" {
		return "", commands.Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.aliases[text]
	if !ok && strings.HasPrefix(text, "/") {
		name = text
		if i := strings.IndexAny(name, " @"); i > 0 {
			name = name[:i]
		}
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback maps a callback unique key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return skipped("register.callback.skip", fmt.Errorf("callback %q: empty key or nil handler", key), slog.String("key", key))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return skipped("register.callback.skip", fmt.Errorf("callback %s already registered", key), slog.String("key", key))
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for presses of unknown buttons.
// Nil keeps the current one.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetupCommands publishes the visible commands to the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	menu := reg.ListCommands(true)
	if len(menu) == 0 {
		return
	}
	if err := bot.SetCommands(menu); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.Int("commands", len(menu)),
	)
}
