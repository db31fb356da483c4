package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "github.com/happy-observatory/observatory/internal/shared/config"
)

const (
	PolicyAPI  = "api"
	PolicyAuth = "auth"
)

type Config struct {
	Server     sharedConfig.ServerConfig     `mapstructure:"server"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Auth       sharedConfig.AuthConfig       `mapstructure:"auth"`
	RateLimit  sharedConfig.RateLimitConfig  `mapstructure:"rate_limit"`
	Revocation sharedConfig.RevocationConfig `mapstructure:"revocation"`
	Store      sharedConfig.StoreConfig      `mapstructure:"store"`
	Redis      sharedConfig.RedisConfig      `mapstructure:"redis"`
	Debug      sharedConfig.DebugConfig      `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
// A non-empty env replaces server.mode; an empty env keeps the loaded value.
func Load(env string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("OBSERVATORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" {
		v.Set("server.mode", env)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks struct tags and cross-field rules so bad values fail at startup
// instead of at request time.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.RateLimit.Enabled {
		for _, name := range []string{PolicyAPI, PolicyAuth} {
			if _, ok := cfg.RateLimit.Policies[name]; !ok {
				return fmt.Errorf("invalid configuration: rate_limit.policies.%s is required", name)
			}
		}
	}

	if cfg.Server.IsDevelopment() && cfg.Debug.Token == "" {
		return fmt.Errorf("invalid configuration: debug.token is required in development mode")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "production")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.timezone", "UTC")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.jwt.secret", "change-me-in-production-please")
	v.SetDefault("auth.jwt.access_exp_minutes", 60)
	v.SetDefault("auth.jwt.issuer", "happy-observatory")
	v.SetDefault("auth.cookie.path", "/")
	v.SetDefault("auth.cookie.secure", false)
	v.SetDefault("auth.cookie.same_site", "Lax")
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.policies.api.window_ms", 60000)
	v.SetDefault("rate_limit.policies.api.max_requests", 100)
	v.SetDefault("rate_limit.policies.api.max_size", 10000)
	v.SetDefault("rate_limit.policies.auth.window_ms", 900000)
	v.SetDefault("rate_limit.policies.auth.max_requests", 5)
	v.SetDefault("rate_limit.policies.auth.max_size", 10000)

	v.SetDefault("revocation.sweep_interval", "5m")

	v.SetDefault("store.backend", "memory")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Registered empty so OBSERVATORY_DEBUG_TOKEN is picked up; development mode refuses to start without it.
	v.SetDefault("debug.token", "")
}
