package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host       string `mapstructure:"host" validate:"required"`
	Port       int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Mode       string `mapstructure:"mode" validate:"oneof=development test production"`
	TrustProxy bool   `mapstructure:"trust_proxy"`
	Timezone   string `mapstructure:"timezone"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment reports whether development-only surfaces (debug endpoints) may be served.
func (s *ServerConfig) IsDevelopment() bool {
	return s.Mode == "development"
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret" validate:"required,min=16"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes" validate:"gt=0"`
	Issuer           string `mapstructure:"issuer"`
}

type CookieConfig struct {
	Domain   string `mapstructure:"domain"`
	Path     string `mapstructure:"path"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site" validate:"omitempty,oneof=Strict Lax None"`
}

// UserConfig is an operator account allowed to sign in to the dashboard.
type UserConfig struct {
	Username     string `mapstructure:"username" validate:"required"`
	PasswordHash string `mapstructure:"password_hash" validate:"required"`
	Role         string `mapstructure:"role"`
}

type AuthConfig struct {
	JWT        JWTConfig    `mapstructure:"jwt"`
	Cookie     CookieConfig `mapstructure:"cookie"`
	BcryptCost int          `mapstructure:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
	Users      []UserConfig `mapstructure:"users" validate:"dive"`
}

// RateLimitPolicyConfig describes one named fixed-window policy.
type RateLimitPolicyConfig struct {
	WindowMs    int64 `mapstructure:"window_ms" validate:"gt=0"`
	MaxRequests int   `mapstructure:"max_requests" validate:"gt=0"`
	MaxSize     int   `mapstructure:"max_size" validate:"gt=0"`
}

func (p RateLimitPolicyConfig) Window() time.Duration {
	return time.Duration(p.WindowMs) * time.Millisecond
}

type RateLimitConfig struct {
	Enabled  bool                             `mapstructure:"enabled"`
	Policies map[string]RateLimitPolicyConfig `mapstructure:"policies" validate:"dive"`
}

type RevocationConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type DebugConfig struct {
	Token string `mapstructure:"token"`
}
