package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/vcfbot/core/database"
	"github.com/m3rciful/vcfbot/internal/plan"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
bot:
  admin_username: "@boss"
  channels: ["chan_one", "https://t.me/chan_two", "  "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, int64(42), cfg.CoreConfig().Telegram.AdminID)
	assert.Equal(t, []string{"@chan_one", "@chan_two"}, cfg.Bot.Channels)
	assert.Equal(t, plan.PolicyOverwrite, cfg.Policy())
	assert.Equal(t, []int{1, 7, 30}, cfg.Plans.KeyDurations)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, int64(5<<20), cfg.Wizard.MaxFileBytes)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "bot.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxConnections)
	assert.Equal(t, 1, cfg.Sender.Workers)
}

func TestLoadEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
  admin_id: 1
plans:
  redeem_policy: overwrite
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("PLANS_REDEEM_POLICY", "extend")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "vcf")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, plan.PolicyExtend, cfg.Policy())
	assert.Equal(t, coredatabase.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Telegram.Token = "t"
		c.Telegram.AdminID = 1
		return c
	}

	c := base()
	c.Telegram.AdminID = 0
	assert.ErrorContains(t, Normalize(c), "admin_id")

	c = base()
	c.Plans.RedeemPolicy = "double"
	assert.ErrorContains(t, Normalize(c), "redeem_policy")

	c = base()
	c.Plans.KeyDurations = []int{7, 0}
	assert.ErrorContains(t, Normalize(c), "key_durations")

	c = base()
	c.Database.Driver = "mysql"
	assert.ErrorContains(t, Normalize(c), "database.driver")

	c = base()
	c.Broadcast.RatePerSecond = -1
	assert.Error(t, Normalize(c))
}

func TestChannelHelpers(t *testing.T) {
	assert.Equal(t, "@news", NormalizeChannel(" @news "))
	assert.Equal(t, "@news", NormalizeChannel("t.me/news/"))
	assert.Equal(t, "", NormalizeChannel("@"))
	assert.Equal(t, "https://t.me/news", ChannelURL("@news"))
}
