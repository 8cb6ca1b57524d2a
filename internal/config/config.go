// Package config extends the core configuration with the vcfbot sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
	coredatabase "github.com/m3rciful/vcfbot/core/database"
	"github.com/m3rciful/vcfbot/internal/plan"
)

// BotConfig holds the channel gate and contact settings.
type BotConfig struct {
	AdminUsername string   `yaml:"admin_username" envconfig:"ADMIN_USERNAME"`
	Channels      []string `yaml:"channels" envconfig:"BOT_CHANNELS"`
}

// PlansConfig controls key issuance and redemption.
type PlansConfig struct {
	RedeemPolicy string `yaml:"redeem_policy" envconfig:"PLANS_REDEEM_POLICY"`
	KeyDurations []int  `yaml:"key_durations" envconfig:"PLANS_KEY_DURATIONS"`
}

// WizardConfig bounds wizard sessions and uploads.
type WizardConfig struct {
	SessionTTLMinutes int   `yaml:"session_ttl_minutes" envconfig:"WIZARD_SESSION_TTL_MINUTES"`
	MaxFileBytes      int64 `yaml:"max_file_bytes" envconfig:"WIZARD_MAX_FILE_BYTES"`
}

// BroadcastConfig paces broadcast delivery.
type BroadcastConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second" envconfig:"BROADCAST_RATE_PER_SECOND"`
	Burst         int     `yaml:"burst" envconfig:"BROADCAST_BURST"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Bot       BotConfig           `yaml:"bot"`
	Plans     PlansConfig         `yaml:"plans"`
	Wizard    WizardConfig        `yaml:"wizard"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
}

const (
	defaultSessionTTLMinutes = 30
	defaultMaxFileBytes      = 5 << 20
	defaultBroadcastRate     = 25
)

var defaultKeyDurations = []int{1, 7, 30}

// CoreConfig exposes the embedded core section to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads YAML from path, overlays the environment, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if cfg.Telegram.AdminID <= 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}

	cfg.Bot.AdminUsername = strings.TrimSpace(cfg.Bot.AdminUsername)
	channels := make([]string, 0, len(cfg.Bot.Channels))
	for _, ch := range cfg.Bot.Channels {
		if ch = NormalizeChannel(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	cfg.Bot.Channels = channels

	policy, err := plan.ParsePolicy(cfg.Plans.RedeemPolicy)
	if err != nil {
		return fmt.Errorf("plans.redeem_policy: %w", err)
	}
	cfg.Plans.RedeemPolicy = string(policy)
	if len(cfg.Plans.KeyDurations) == 0 {
		cfg.Plans.KeyDurations = append([]int(nil), defaultKeyDurations...)
	}
	for _, d := range cfg.Plans.KeyDurations {
		if d <= 0 {
			return fmt.Errorf("plans.key_durations must be > 0, got %d", d)
		}
	}

	if cfg.Wizard.SessionTTLMinutes < 0 || cfg.Wizard.MaxFileBytes < 0 {
		return fmt.Errorf("wizard settings must be >= 0")
	}
	if cfg.Wizard.SessionTTLMinutes == 0 {
		cfg.Wizard.SessionTTLMinutes = defaultSessionTTLMinutes
	}
	if cfg.Wizard.MaxFileBytes == 0 {
		cfg.Wizard.MaxFileBytes = defaultMaxFileBytes
	}

	if cfg.Broadcast.RatePerSecond < 0 || cfg.Broadcast.Burst < 0 {
		return fmt.Errorf("broadcast settings must be >= 0")
	}
	if cfg.Broadcast.RatePerSecond == 0 {
		cfg.Broadcast.RatePerSecond = defaultBroadcastRate
	}
	if cfg.Broadcast.Burst == 0 {
		cfg.Broadcast.Burst = 1
	}
	return nil
}

// Policy returns the parsed redeem policy.
func (c *Config) Policy() plan.RedeemPolicy {
	return plan.RedeemPolicy(c.Plans.RedeemPolicy)
}

// SessionTTL returns the wizard session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Wizard.SessionTTLMinutes) * time.Minute
}

// NormalizeChannel turns "name", "@name" or "https://t.me/name" into "@name".
func NormalizeChannel(ch string) string {
	ch = strings.TrimSpace(ch)
	for _, p := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		ch = strings.TrimPrefix(ch, p)
	}
	ch = strings.Trim(ch, "@/ ")
	if ch == "" {
		return ""
	}
	return "@" + ch
}

// ChannelURL returns the public join link for a normalized channel.
func ChannelURL(ch string) string {
	return "https://t.me/" + strings.TrimPrefix(ch, "@")
}
