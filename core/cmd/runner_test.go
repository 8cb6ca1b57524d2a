package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
	coretelegram "github.com/m3rciful/vcfbot/core/telegram"
)

type carrier struct{ core *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.core }

type appFunc func() (coretelegram.RunOptions, error)

func (f appFunc) TelegramRunOptions() (coretelegram.RunOptions, error) { return f() }

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("VCFBOT_TEST_CONFIG", "/etc/vcfbot.yaml")

	var (
		loaded   string
		calls    []string
		shutdown bool
	)
	err := Run(Options{
		ConfigEnvVar:      "VCFBOT_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return appFunc(func() (coretelegram.RunOptions, error) {
				return coretelegram.RunOptions{
					OnStart: func(context.Context, coretelegram.Runtime) error { calls = append(calls, "start"); return nil },
					OnStop:  func(context.Context, coretelegram.Runtime) error { calls = append(calls, "stop"); return nil },
				}, nil
			}), nil
		},
		ShutdownLogger: func() error { shutdown = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/etc/vcfbot.yaml", loaded)
	assert.Equal(t, []string{"start", "stop"}, calls)
	assert.True(t, shutdown)
}

func TestRunFailures(t *testing.T) {
	assert.Error(t, Run(Options{}))

	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, "CONFIG_PATH")

	boom := errors.New("no such file")
	err = Run(Options{
		DefaultConfigPath: "missing.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorIs(t, err, boom)

	err = Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, "core section")
}
