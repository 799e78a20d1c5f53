package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address       string `mapstructure:"address"`
	Environment   string `mapstructure:"environment"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	// TrustedProxies are the IPs or CIDR ranges whose X-Forwarded-* headers
	// are honoured for rate limiting and self URLs.
	TrustedProxies  []string `mapstructure:"trusted_proxies"`
	ReadTimeout     string   `mapstructure:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout"`
	IdleTimeout     string   `mapstructure:"idle_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	// ClientTTL is how long an idle client's bucket is kept.
	ClientTTL string `mapstructure:"client_ttl"`
}

type SignatureConfig struct {
	App     string `mapstructure:"app"`
	Pattern string `mapstructure:"pattern"`
}

type ClassifierConfig struct {
	DetectInApp bool `mapstructure:"detect_in_app"`
	// InAppSignatures replaces the built-in list when non-empty.
	InAppSignatures []SignatureConfig `mapstructure:"in_app_signatures"`
}

type RelayConfig struct {
	DefaultDest  string   `mapstructure:"default_dest"`
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type AttemptConfig struct {
	Method  string `mapstructure:"method"`
	Target  string `mapstructure:"target"`
	DelayMS int    `mapstructure:"delay_ms"`
}

type TechniquesConfig struct {
	IOS     []AttemptConfig `mapstructure:"ios"`
	Android []AttemptConfig `mapstructure:"android"`
	Other   []AttemptConfig `mapstructure:"other"`
}

type ProfileConfig struct {
	Name                string           `mapstructure:"name"`
	Path                string           `mapstructure:"path"`
	Mode                string           `mapstructure:"mode"`
	Landing             string           `mapstructure:"landing"`
	RedirectStatus      int              `mapstructure:"redirect_status"`
	ErrorFormat         string           `mapstructure:"error_format"`
	RefreshDelaySeconds int              `mapstructure:"refresh_delay_seconds"`
	Techniques          TechniquesConfig `mapstructure:"techniques"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	// Profiles replaces the built-in endpoint set when non-empty.
	Profiles []ProfileConfig `mapstructure:"profiles"`
}

// Load reads config.yaml from the given directories, or from ./config and
// the working directory when none are given, then applies environment
// overrides (server.address -> SERVER_ADDRESS).
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.client_ttl", "3m")
	v.SetDefault("classifier.detect_in_app", true)
	v.SetDefault("relay.default_dest", "/direct")
	v.SetDefault("relay.allowed_hosts", []string{})
	v.SetDefault("metrics.buffer_size", 1000)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{"./config", "."}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.PublicBaseURL, validation.By(validateServerURL)),
					validation.Field(&sc.TrustedProxies, validation.Each(validation.Required, validation.By(validateProxy))),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.ShutdownTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.RateLimit,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RateLimitConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
				}
				if !rc.Enabled {
					return nil
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.RequestsPerSecond, validation.Required, validation.Min(0.0).Exclusive()),
					validation.Field(&rc.Burst, validation.Required, validation.Min(1)),
					validation.Field(&rc.ClientTTL, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Classifier,
			validation.By(func(value interface{}) error {
				cc, ok := value.(ClassifierConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ClassifierConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.InAppSignatures, validation.Each(validation.By(validateSignature))),
				)
			}),
		),
		validation.Field(&c.Relay,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RelayConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RelayConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.DefaultDest, validation.Required, validation.By(validateRelayDest)),
					validation.Field(&rc.AllowedHosts, validation.Each(validation.Required, is.Host)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Profiles,
			validation.Each(validation.By(validateProfileConfig)),
			validation.By(uniqueProfiles),
		),
	)
}

// Duration returns a parsed duration field. Validate has already rejected
// malformed values.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

// validateServerURL accepts an empty value; callers combine it with
// validation.Required when the URL is mandatory.
func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

// validateProxy accepts a bare IP or a CIDR range.
func validateProxy(value interface{}) error {
	entry, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if strings.Contains(entry, "/") {
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return validation.NewError("validation_invalid_cidr", "must be a valid CIDR range")
		}
		return nil
	}

	return is.IP.Validate(entry)
}

// validateRelayDest allows an absolute web URL or a path on this service.
func validateRelayDest(value interface{}) error {
	dest, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if strings.HasPrefix(dest, "/") && !strings.HasPrefix(dest, "//") {
		if _, err := url.Parse(dest); err != nil {
			return validation.NewError("validation_invalid_url", "must be a valid URL")
		}
		return nil
	}

	return validateServerURL(dest)
}

func validateSignature(value interface{}) error {
	sig, ok := value.(SignatureConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a SignatureConfig")
	}

	if strings.TrimSpace(sig.App) == "" {
		return validation.NewError("validation_empty_app", "signature app cannot be empty")
	}

	if sig.Pattern == "" {
		return validation.NewError("validation_empty_pattern", "signature pattern cannot be empty")
	}

	if _, err := regexp.Compile(sig.Pattern); err != nil {
		return validation.NewError("validation_invalid_pattern", "signature pattern must be a valid regular expression")
	}

	return nil
}

func validateProfileConfig(value interface{}) error {
	p, ok := value.(ProfileConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ProfileConfig")
	}

	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Path,
			validation.Required,
			validation.By(func(value interface{}) error {
				path, _ := value.(string)
				if !strings.HasPrefix(path, "/") {
					return validation.NewError("validation_invalid_path", "path must start with /")
				}
				return nil
			}),
		),
		validation.Field(&p.Mode, validation.In("two-stage", "direct", "relay")),
		validation.Field(&p.Landing, validation.In("redirect", "document")),
		validation.Field(&p.RedirectStatus, validation.In(301, 302)),
		validation.Field(&p.ErrorFormat, validation.In("text", "json")),
		validation.Field(&p.RefreshDelaySeconds, validation.Min(0)),
		validation.Field(&p.Techniques, validation.By(validateTechniques)),
	)
}

func validateTechniques(value interface{}) error {
	t, ok := value.(TechniquesConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TechniquesConfig")
	}

	return validation.ValidateStruct(&t,
		validation.Field(&t.IOS, validation.Each(validation.By(validateAttempt))),
		validation.Field(&t.Android, validation.Each(validation.By(validateAttempt))),
		validation.Field(&t.Other, validation.Each(validation.By(validateAttempt))),
	)
}

func validateAttempt(value interface{}) error {
	a, ok := value.(AttemptConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an AttemptConfig")
	}

	return validation.ValidateStruct(&a,
		validation.Field(&a.Method, validation.Required, validation.In("top", "assign", "replace", "open", "click")),
		validation.Field(&a.Target, validation.Required, validation.In("next", "blank", "intent", "deeplink")),
		validation.Field(&a.DelayMS, validation.Min(0)),
	)
}

func uniqueProfiles(value interface{}) error {
	profiles, ok := value.([]ProfileConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of profiles")
	}

	names := make(map[string]bool, len(profiles))
	paths := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if names[p.Name] {
			return validation.NewError("validation_duplicate_profile", fmt.Sprintf("duplicate profile name %q", p.Name))
		}
		if paths[p.Path] {
			return validation.NewError("validation_duplicate_path", fmt.Sprintf("duplicate profile path %q", p.Path))
		}
		names[p.Name] = true
		paths[p.Path] = true
	}

	return nil
}
