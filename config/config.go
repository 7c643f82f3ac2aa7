package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Log      LogConfig      `envPrefix:"LOG_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Tokens   TokensConfig   `envPrefix:"TOKENS_"`
	Gateway  GatewayConfig  `envPrefix:"GATEWAY_"`
	Events   EventsConfig   `envPrefix:"EVENTS_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"FlashTalk"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"flashtalk.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	BcryptCost        int `env:"BCRYPT_COST" envDefault:"10"`
}

// TokensConfig drives the access/refresh credential lifecycle. The
// liveness cache TTL bounds how long Validate may reuse a previously
// observed session state before consulting the store again; revocations
// in this process invalidate the cache immediately.
type TokensConfig struct {
	SecretKey             string        `env:"SECRET_KEY"`
	AccessExpiry          time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry         time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
	SoonExpiringThreshold time.Duration `env:"SOON_EXPIRING_THRESHOLD" envDefault:"3m"`
	LivenessCacheTTL      time.Duration `env:"LIVENESS_CACHE_TTL" envDefault:"10s"`
	CleanupInterval       time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
	Issuer                string        `env:"ISSUER" envDefault:"flashtalk"`
}

type GatewayConfig struct {
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"15s"`
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"30s"`
	ServerTimeout     time.Duration `env:"SERVER_TIMEOUT" envDefault:"60s"`
	WriteWait         time.Duration `env:"WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	ReadBufferSize    int           `env:"READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize   int           `env:"WRITE_BUFFER_SIZE" envDefault:"1024"`
}

type EventsConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	Brokers []string      `env:"BROKERS" envDefault:"localhost:9092"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return Validate(cfg)
}

func Validate(cfg *Config) error {
	if err := validateTokensConfig(&cfg.Tokens); err != nil {
		return err
	}
	return validateGatewayConfig(&cfg.Gateway)
}

var weakSecretPatterns = []string{
	"password", "secret", "test", "example", "default", "change",
}

func validateTokensConfig(cfg *TokensConfig) error {
	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("token secret key must be at least 32 characters long")
	}

	lowered := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("token secret key contains weak patterns")
		}
	}

	if cfg.AccessExpiry <= 0 {
		return fmt.Errorf("access token expiry must be positive")
	}
	if cfg.RefreshExpiry <= cfg.AccessExpiry {
		return fmt.Errorf("refresh token expiry must exceed access token expiry")
	}
	if cfg.SoonExpiringThreshold >= cfg.AccessExpiry {
		return fmt.Errorf("soon-expiring threshold must be shorter than access token expiry")
	}

	return nil
}

func validateGatewayConfig(cfg *GatewayConfig) error {
	if cfg.HandshakeTimeout <= 0 {
		return fmt.Errorf("gateway handshake timeout must be positive")
	}
	if cfg.ServerTimeout <= cfg.KeepAliveInterval {
		return fmt.Errorf("gateway server timeout must exceed the keepalive interval")
	}
	return nil
}
