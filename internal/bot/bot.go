// Package bot wires the vcfbot Telegram handlers onto the core registry and routers.
package bot

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/metrics"
	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/commands"
	"github.com/m3rciful/vcfbot/core/telegram/state"
	"github.com/m3rciful/vcfbot/internal/broadcast"
	"github.com/m3rciful/vcfbot/internal/config"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage"
	"github.com/m3rciful/vcfbot/internal/wizard"
)

// Store is the persistence surface the handlers depend on.
type Store interface {
	EnsureUser(ctx context.Context, userID int64, username string) (bool, error)
	GetUserByTelegramID(ctx context.Context, userID int64) (*storage.User, error)
	RedeemKey(ctx context.Context, userID int64, token string, now time.Time, policy plan.RedeemPolicy) (storage.Redemption, error)
	CreateKey(ctx context.Context, key string, days int) error
	DisableKey(ctx context.Context, key string) error
	ToggleBan(ctx context.Context, userID int64) (bool, error)
	Stats(ctx context.Context, now time.Time) (storage.Stats, error)
	ListRecipients(ctx context.Context) ([]int64, error)
}

// MembershipChecker reports whether a user belongs to a channel.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// FileFetcher opens an uploaded Telegram file.
type FileFetcher func(c tele.Context, f *tele.File) (io.ReadCloser, error)

// Deps collects the collaborators of Bot. Members, Files and Sender default to
// implementations backed by the bot of the handled update.
type Deps struct {
	Config   *config.Config
	Store    Store
	Sessions *state.MemoryManager
	Metrics  *metrics.Registry

	Members MembershipChecker
	Files   FileFetcher
	Sender  broadcast.Sender
	Now     func() time.Time
}

// Bot holds handler state shared across updates.
type Bot struct {
	cfg      *config.Config
	store    Store
	sessions *state.MemoryManager
	metrics  *metrics.Registry

	members MembershipChecker
	files   FileFetcher
	sender  broadcast.Sender
	now     func() time.Time

	open atomic.Bool
}

// New builds the handler set. The bot starts open for regular users.
func New(d Deps) *Bot {
	b := &Bot{
		cfg:      d.Config,
		store:    d.Store,
		sessions: d.Sessions,
		metrics:  d.Metrics,
		members:  d.Members,
		files:    d.Files,
		sender:   d.Sender,
		now:      d.Now,
	}
	if b.sessions == nil {
		b.sessions = state.NewMemoryManager(d.Config.SessionTTL())
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	if b.files == nil {
		b.files = fetchFile
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.open.Store(true)
	return b
}

// Open reports whether regular users are served.
func (b *Bot) Open() bool { return b.open.Load() }

// Sessions exposes the session manager for routing.
func (b *Bot) Sessions() *state.MemoryManager { return b.sessions }

// Metrics exposes the collectors.
func (b *Bot) Metrics() *metrics.Registry { return b.metrics }

func (b *Bot) adminID() int64 { return b.cfg.Telegram.AdminID }

func (b *Bot) isAdmin(c tele.Context) bool {
	return c.Sender() != nil && c.Sender().ID == b.adminID()
}

// FSM states outside the wizard.
const (
	stateAwaitKey   state.State = "key.awaiting"
	stateDisableKey state.State = "admin.disable_key"
	stateSearchUser state.State = "admin.search_user"
	stateToggleBan  state.State = "admin.toggle_ban"
	stateBroadcast  state.State = "admin.broadcast"
)

const draftKey = "vcf.draft"

type commandEntry struct {
	name, desc, alias string
	h                 tele.HandlerFunc
}

// Register installs commands, aliases, callbacks and FSM handlers.
func (b *Bot) Register(reg *tg.Registry) error {
	user := []commandEntry{
		{"/start", "Register and join the channels", "", b.handleStart},
		{"/menu", "Show the main menu", labelMainMenu, b.handleMenu},
		{"/vcf", "Create VCF files from a number list", labelCreateVCF, b.handleCreateVCF},
		{"/profile", "Show your plan", labelProfile, b.handleProfile},
		{"/contact", "How to get a key", labelContact, b.handleContact},
		{"/key", "Redeem a subscription key", labelPutKey, b.handlePutKey},
		{"/cancel", "Cancel the current step", "", b.handleCancel},
	}
	for _, u := range user {
		if err := reg.RegisterCommand(u.name, commands.Command{
			Handler:     u.h,
			Description: u.desc,
			Aliases:     nonEmpty(u.alias),
		}); err != nil {
			return err
		}
	}

	admin := []commandEntry{
		{"/admin", "Admin panel", "", b.handleAdmin},
		{"/addkey", "Generate a key", labelAddKey, b.handleAddKey},
		{"/disablekey", "Disable a key", labelManageKeys, b.promptState(stateDisableKey, textAskDisableKey)},
		{"/stats", "User stats", labelStats, b.handleStats},
		{"/user", "Search a user", labelSearch, b.promptState(stateSearchUser, textAskSearchUser)},
		{"/ban", "Toggle a user ban", labelBan, b.promptState(stateToggleBan, textAskToggleBan)},
		{"/broadcast", "Broadcast a message", labelBroadcast, b.promptState(stateBroadcast, textAskBroadcast)},
		{"/toggle", "Switch the bot on or off", labelToggle, b.handleToggle},
	}
	for _, a := range admin {
		if err := reg.RegisterCommand(a.name, commands.Command{
			Handler:     a.h,
			Description: a.desc,
			AdminOnly:   true,
			Hidden:      true,
			Aliases:     nonEmpty(a.alias),
		}); err != nil {
			return err
		}
	}

	for key, h := range map[string]tele.HandlerFunc{
		cbVerify:    b.handleVerify,
		cbAddKey:    b.handleAddKeyCallback,
		cbVCFCancel: b.handleCancelCallback,
	} {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}

	for _, st := range wizard.Steps {
		b.sessions.Handle(state.State(st), b.handleWizard)
	}
	b.sessions.Handle(stateAwaitKey, b.handleKeyInput)
	b.sessions.Handle(stateDisableKey, b.adminStep(b.handleDisableKey))
	b.sessions.Handle(stateSearchUser, b.adminStep(b.handleSearchUser))
	b.sessions.Handle(stateToggleBan, b.adminStep(b.handleToggleBan))
	b.sessions.Handle(stateBroadcast, b.adminStep(b.handleBroadcast))
	return nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
