// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "scalpel-wd", cfg.Logger().ServiceName)
	assert.Equal(t, "127.0.0.1", cfg.Server().Host)
	assert.Equal(t, 4444, cfg.Server().Port)
	assert.Equal(t, "/wd/hub", cfg.Server().BasePath)
	assert.Equal(t, "127.0.0.1:4444", cfg.Server().Address())
	assert.Equal(t, 3500*time.Millisecond, cfg.Timeouts().PageLoad)
	assert.Equal(t, time.Second, cfg.Timeouts().Script)
	assert.Zero(t, cfg.Timeouts().Implicit)
	assert.Equal(t, 3*time.Second, cfg.Timeouts().WaitForElement)
	assert.Equal(t, webdriver.UsingCSS, cfg.Defaults().Using)
	assert.Equal(t, 20*time.Millisecond, cfg.Defaults().PollInterval)
	assert.Equal(t, 256, cfg.Trace().ArgBudget)
	assert.Equal(t, 1000, cfg.Trace().ErrorBudget)
	assert.False(t, cfg.Metrics().Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SatisfiesInterface(t *testing.T) {
	var cfg Interface = NewDefaultConfig()
	cfg.SetServerPort(0)
	assert.ErrorContains(t, cfg.Validate(), "server.port must be between 1 and 65535, got 0")
}

func TestTimeoutsConfig_MapMatchesSessionDefaults(t *testing.T) {
	assert.Equal(t, webdriver.DefaultTimeouts(), NewDefaultConfig().Timeouts().Map())
}

// -- Loading Tests --

func TestNewConfigFromViper_File(t *testing.T) {
	yaml := []byte(`
server:
  host: grid.local
  port: 5555
  desired_capabilities: '{"browserName":"chrome","acceptSslCerts":true}'
timeouts:
  wait_for: 750ms
  script: 4s
defaults:
  using: xpath
network:
  commands_per_second: 20
  burst: 5
trace:
  log_method_calls: true
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "grid.local:5555", cfg.Server().Address())
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts().WaitFor)
	assert.Equal(t, 4*time.Second, cfg.Timeouts().Script)
	assert.Equal(t, webdriver.UsingXPath, cfg.Defaults().Using)
	assert.True(t, cfg.Trace().LogMethodCalls)

	caps, err := cfg.Server().Capabilities()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"browserName": "chrome", "acceptSslCerts": true}, caps)

	limiter := cfg.Network().Limiter()
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(20), limiter.Limit())
	assert.Equal(t, 5, limiter.Burst())
}

func TestNewConfigFromViper_Env(t *testing.T) {
	t.Setenv("SCALPEL_WD_SERVER_PORT", "9515")
	t.Setenv("SCALPEL_WD_TIMEOUTS_WAIT_FOR_ELEMENT", "9s")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9515, cfg.Server().Port)
	assert.Equal(t, 9*time.Second, cfg.Timeouts().WaitForElement)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty host", func(c *Config) { c.ServerCfg.Host = "" }, "server.host is required"},
		{"port range", func(c *Config) { c.ServerCfg.Port = 70000 }, "server.port must be between 1 and 65535"},
		{"capabilities", func(c *Config) { c.ServerCfg.DesiredCapabilities = "[1,2]" }, "server.desired_capabilities is not a JSON object"},
		{"negative timeout", func(c *Config) { c.TimeoutsCfg.Script = -time.Second }, `timeout "script" must not be negative`},
		{"no strategy", func(c *Config) { c.DefaultsCfg.Using = "" }, "defaults.using is required"},
		{"poll interval", func(c *Config) { c.DefaultsCfg.PollInterval = 0 }, "defaults.poll_interval must be a positive duration"},
		{"throttle", func(c *Config) { c.NetworkCfg.CommandsPerSecond = -1 }, "network.commands_per_second must not be negative"},
		{"proxy", func(c *Config) {
			c.NetworkCfg.Proxy = ProxyConfig{Enabled: true, Address: "not a url"}
		}, "network.proxy.address"},
		{"budgets", func(c *Config) { c.TraceCfg.ArgBudget = 0 }, "trace.arg_budget and trace.error_budget must be positive"},
		{"metrics namespace", func(c *Config) {
			c.MetricsCfg = MetricsConfig{Enabled: true}
		}, "metrics.namespace is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("errors are joined", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.ServerCfg.Host = ""
		cfg.DefaultsCfg.Using = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.host")
		assert.Contains(t, err.Error(), "defaults.using")
	})
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.port", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// -- Conversion Tests --

func TestSessionOptions(t *testing.T) {
	dir := t.TempDir()
	jqPath := filepath.Join(dir, "jquery.min.js")
	require.NoError(t, os.WriteFile(jqPath, []byte("/*! jQuery */"), 0o644))

	cfg := NewDefaultConfig()
	cfg.SetServerHost("10.0.0.2")
	cfg.SetServerPort(4445)
	cfg.SetDefaultsUsing(webdriver.UsingJQuery)
	cfg.ServerCfg.DesiredCapabilities = `{"browserName":"chrome"}`
	cfg.JQueryCfg.Path = jqPath
	cfg.NetworkCfg.CommandsPerSecond = 10

	logger := zaptest.NewLogger(t)
	opts, err := cfg.SessionOptions(logger)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", opts.Host)
	assert.Equal(t, 4445, opts.Port)
	assert.Equal(t, "/wd/hub", opts.BasePath)
	assert.Equal(t, webdriver.UsingJQuery, opts.Using)
	assert.Equal(t, "chrome", opts.DesiredCapabilities["browserName"])
	assert.Equal(t, "/*! jQuery */", opts.JQuerySource)
	assert.Equal(t, cfg.Timeouts().Map(), opts.Timeouts)
	assert.Same(t, logger, opts.Logger)
	assert.NotNil(t, opts.Client)
	assert.NotNil(t, opts.Limiter)
	assert.Nil(t, opts.Tracer)
	assert.Nil(t, opts.Observer)
}

func TestSessionOptions_MissingJQuery(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.JQueryCfg.Path = filepath.Join(t.TempDir(), "missing.js")

	_, err := cfg.SessionOptions(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read jquery.path")
}

func TestNetworkConfig_Limiter(t *testing.T) {
	assert.Nil(t, NetworkConfig{}.Limiter())
	l := NetworkConfig{CommandsPerSecond: 2, Burst: 0}.Limiter()
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}

func TestNetworkConfig_ClientConfig(t *testing.T) {
	n := NewDefaultConfig().Network()
	n.RequestTimeout = 42 * time.Second
	n.DialTimeout = 2 * time.Second
	n.Compression = true
	n.Proxy = ProxyConfig{Enabled: true, Address: "http://proxy.local:3128"}

	cc, err := n.ClientConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, cc.RequestTimeout)
	assert.Equal(t, 2*time.Second, cc.Dialer.Timeout)
	assert.True(t, cc.Compression)
	require.NotNil(t, cc.ProxyURL)
	assert.Equal(t, "proxy.local:3128", cc.ProxyURL.Host)
}
