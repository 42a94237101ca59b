// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scalpel-wd/internal/network"
	"github.com/xkilldash9x/scalpel-wd/pkg/webdriver"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. SCALPEL_WD_SERVER_PORT.
	EnvPrefix = "SCALPEL_WD"
	// FileName is the config file searched for when --config is not given.
	FileName = "scalpel-wd"
)

// Interface defines the contract for accessing application configuration.
// Commands depend on it so tests can hand in a prepared config.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	Timeouts() TimeoutsConfig
	Defaults() DefaultsConfig
	Network() NetworkConfig
	JQuery() JQueryConfig
	Trace() TraceConfig
	Metrics() MetricsConfig

	SetLoggerLevel(string)
	SetServerHost(string)
	SetServerPort(int)
	SetDefaultsUsing(string)
	SetTraceLogMethodCalls(bool)
	SetMetricsEnabled(bool)

	Validate() error
	SessionOptions(logger *zap.Logger) (webdriver.Options, error)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	ServerCfg   ServerConfig   `mapstructure:"server" yaml:"server"`
	TimeoutsCfg TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	DefaultsCfg DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	NetworkCfg  NetworkConfig  `mapstructure:"network" yaml:"network"`
	JQueryCfg   JQueryConfig   `mapstructure:"jquery" yaml:"jquery"`
	TraceCfg    TraceConfig    `mapstructure:"trace" yaml:"trace"`
	MetricsCfg  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Server() ServerConfig     { return c.ServerCfg }
func (c *Config) Timeouts() TimeoutsConfig { return c.TimeoutsCfg }
func (c *Config) Defaults() DefaultsConfig { return c.DefaultsCfg }
func (c *Config) Network() NetworkConfig   { return c.NetworkCfg }
func (c *Config) JQuery() JQueryConfig     { return c.JQueryCfg }
func (c *Config) Trace() TraceConfig       { return c.TraceCfg }
func (c *Config) Metrics() MetricsConfig   { return c.MetricsCfg }

// CLI flag overrides.
func (c *Config) SetLoggerLevel(level string)    { c.LoggerCfg.Level = level }
func (c *Config) SetServerHost(host string)      { c.ServerCfg.Host = host }
func (c *Config) SetServerPort(port int)         { c.ServerCfg.Port = port }
func (c *Config) SetDefaultsUsing(using string)  { c.DefaultsCfg.Using = using }
func (c *Config) SetTraceLogMethodCalls(b bool)  { c.TraceCfg.LogMethodCalls = b }
func (c *Config) SetMetricsEnabled(enabled bool) { c.MetricsCfg.Enabled = enabled }

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig locates the automation server.
type ServerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
	// DesiredCapabilities is a JSON object. Viper folds map keys to lower
	// case, which would break camelCase capability names.
	DesiredCapabilities string `mapstructure:"desired_capabilities" yaml:"desired_capabilities"`
	// ReadyTimeout bounds the wait for the server port to accept connections.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Capabilities decodes DesiredCapabilities. An empty string yields nil.
func (s ServerConfig) Capabilities() (map[string]any, error) {
	if strings.TrimSpace(s.DesiredCapabilities) == "" {
		return nil, nil
	}
	var caps map[string]any
	if err := json.Unmarshal([]byte(s.DesiredCapabilities), &caps); err != nil {
		return nil, fmt.Errorf("server.desired_capabilities is not a JSON object: %w", err)
	}
	return caps, nil
}

// TimeoutsConfig holds the initial timeouts of a session. The first three are
// pushed to the server, the rest bound client-side waits.
type TimeoutsConfig struct {
	PageLoad         time.Duration `mapstructure:"page_load" yaml:"page_load"`
	Script           time.Duration `mapstructure:"script" yaml:"script"`
	Implicit         time.Duration `mapstructure:"implicit" yaml:"implicit"`
	WaitFor          time.Duration `mapstructure:"wait_for" yaml:"wait_for"`
	WaitForElement   time.Duration `mapstructure:"wait_for_element" yaml:"wait_for_element"`
	WaitForURLChange time.Duration `mapstructure:"wait_for_url_change" yaml:"wait_for_url_change"`
}

// Map keys the timeouts by their wire type names.
func (t TimeoutsConfig) Map() map[string]time.Duration {
	return map[string]time.Duration{
		webdriver.TimeoutPageLoad:         t.PageLoad,
		webdriver.TimeoutScript:           t.Script,
		webdriver.TimeoutImplicit:         t.Implicit,
		webdriver.TimeoutWaitFor:          t.WaitFor,
		webdriver.TimeoutWaitForElement:   t.WaitForElement,
		webdriver.TimeoutWaitForURLChange: t.WaitForURLChange,
	}
}

type DefaultsConfig struct {
	Using        string        `mapstructure:"using" yaml:"using"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type NetworkConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	KeepAlive      time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	ForceHTTP2     bool          `mapstructure:"force_http2" yaml:"force_http2"`
	Compression    bool          `mapstructure:"compression" yaml:"compression"`
	Proxy          ProxyConfig   `mapstructure:"proxy" yaml:"proxy"`
	// CommandsPerSecond throttles outgoing commands; zero disables throttling.
	CommandsPerSecond float64 `mapstructure:"commands_per_second" yaml:"commands_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// ClientConfig translates the section into HTTP client settings.
func (n NetworkConfig) ClientConfig(logger *zap.Logger) (*network.ClientConfig, error) {
	cfg := network.NewDefaultClientConfig()
	if n.RequestTimeout > 0 {
		cfg.RequestTimeout = n.RequestTimeout
	}
	if n.DialTimeout > 0 {
		cfg.Dialer.Timeout = n.DialTimeout
	}
	if n.KeepAlive > 0 {
		cfg.Dialer.KeepAlive = n.KeepAlive
	}
	cfg.ForceHTTP2 = n.ForceHTTP2
	cfg.Compression = n.Compression
	if logger != nil {
		cfg.Logger = logger
	}
	if n.Proxy.Enabled {
		proxyURL, err := url.Parse(n.Proxy.Address)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("network.proxy.address %q is not a valid URL", n.Proxy.Address)
		}
		cfg.ProxyURL = proxyURL
	}
	return cfg, nil
}

// Limiter returns the command throttle, or nil when throttling is off.
func (n NetworkConfig) Limiter() *rate.Limiter {
	if n.CommandsPerSecond <= 0 {
		return nil
	}
	burst := n.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(n.CommandsPerSecond), burst)
}

type JQueryConfig struct {
	// Path to a jQuery build injected into pages that lack one. Empty means
	// the page's own window.jQuery is borrowed.
	Path string `mapstructure:"path" yaml:"path"`
}

// Source reads the configured jQuery build. An empty path yields "".
func (j JQueryConfig) Source() (string, error) {
	if j.Path == "" {
		return "", nil
	}
	path, err := homedir.Expand(j.Path)
	if err != nil {
		return "", fmt.Errorf("failed to expand jquery.path: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read jquery.path: %w", err)
	}
	return string(raw), nil
}

type TraceConfig struct {
	LogMethodCalls bool `mapstructure:"log_method_calls" yaml:"log_method_calls"`
	// ArgBudget and ErrorBudget cap the rendered length of arguments and
	// error messages in trace lines.
	ArgBudget   int `mapstructure:"arg_budget" yaml:"arg_budget"`
	ErrorBudget int `mapstructure:"error_budget" yaml:"error_budget"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-wd")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Server --
	v.SetDefault("server.host", webdriver.DefaultHost)
	v.SetDefault("server.port", webdriver.DefaultPort)
	v.SetDefault("server.base_path", webdriver.DefaultBasePath)
	v.SetDefault("server.desired_capabilities", "")
	v.SetDefault("server.ready_timeout", "10s")

	// -- Timeouts --
	defaults := webdriver.DefaultTimeouts()
	v.SetDefault("timeouts.page_load", defaults[webdriver.TimeoutPageLoad])
	v.SetDefault("timeouts.script", defaults[webdriver.TimeoutScript])
	v.SetDefault("timeouts.implicit", defaults[webdriver.TimeoutImplicit])
	v.SetDefault("timeouts.wait_for", defaults[webdriver.TimeoutWaitFor])
	v.SetDefault("timeouts.wait_for_element", defaults[webdriver.TimeoutWaitForElement])
	v.SetDefault("timeouts.wait_for_url_change", defaults[webdriver.TimeoutWaitForURLChange])

	// -- Locator defaults --
	v.SetDefault("defaults.using", webdriver.DefaultUsing)
	v.SetDefault("defaults.poll_interval", webdriver.DefaultPollInterval)

	// -- Network --
	v.SetDefault("network.request_timeout", network.DefaultRequestTimeout)
	v.SetDefault("network.dial_timeout", network.DefaultDialTimeout)
	v.SetDefault("network.keep_alive", network.DefaultKeepAliveInterval)
	v.SetDefault("network.force_http2", false)
	v.SetDefault("network.compression", false)
	v.SetDefault("network.proxy.enabled", false)
	v.SetDefault("network.commands_per_second", 0.0)
	v.SetDefault("network.burst", 1)

	// -- jQuery --
	v.SetDefault("jquery.path", "")

	// -- Trace --
	v.SetDefault("trace.log_method_calls", false)
	v.SetDefault("trace.arg_budget", 256)
	v.SetDefault("trace.error_budget", 1000)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "scalpel_wd")
}

// BindEnv makes every key overridable through SCALPEL_WD_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerCfg.Host == "" {
		errs = append(errs, errors.New("server.host is required"))
	}
	if c.ServerCfg.Port <= 0 || c.ServerCfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.ServerCfg.Port))
	}
	if _, err := c.ServerCfg.Capabilities(); err != nil {
		errs = append(errs, err)
	}
	for name, d := range c.TimeoutsCfg.Map() {
		if d < 0 {
			errs = append(errs, fmt.Errorf("timeout %q must not be negative", name))
		}
	}
	if c.DefaultsCfg.Using == "" {
		errs = append(errs, errors.New("defaults.using is required"))
	}
	if c.DefaultsCfg.PollInterval <= 0 {
		errs = append(errs, errors.New("defaults.poll_interval must be a positive duration"))
	}
	if c.NetworkCfg.CommandsPerSecond < 0 {
		errs = append(errs, errors.New("network.commands_per_second must not be negative"))
	}
	if _, err := c.NetworkCfg.ClientConfig(nil); err != nil {
		errs = append(errs, err)
	}
	if c.TraceCfg.ArgBudget <= 0 || c.TraceCfg.ErrorBudget <= 0 {
		errs = append(errs, errors.New("trace.arg_budget and trace.error_budget must be positive"))
	}
	if c.MetricsCfg.Enabled && c.MetricsCfg.Namespace == "" {
		errs = append(errs, errors.New("metrics.namespace is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// SessionOptions converts the configuration into session options. Tracer and
// Observer are left for the caller to attach.
func (c *Config) SessionOptions(logger *zap.Logger) (webdriver.Options, error) {
	caps, err := c.ServerCfg.Capabilities()
	if err != nil {
		return webdriver.Options{}, err
	}
	clientCfg, err := c.NetworkCfg.ClientConfig(logger)
	if err != nil {
		return webdriver.Options{}, err
	}
	source, err := c.JQueryCfg.Source()
	if err != nil {
		return webdriver.Options{}, err
	}
	return webdriver.Options{
		Host:                c.ServerCfg.Host,
		Port:                c.ServerCfg.Port,
		BasePath:            c.ServerCfg.BasePath,
		DesiredCapabilities: caps,
		Timeouts:            c.TimeoutsCfg.Map(),
		Using:               c.DefaultsCfg.Using,
		PollInterval:        c.DefaultsCfg.PollInterval,
		JQuerySource:        source,
		Logger:              logger,
		Client:              network.NewClient(clientCfg),
		Limiter:             c.NetworkCfg.Limiter(),
	}, nil
}
