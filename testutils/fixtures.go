package testutils

import (
	"time"

	"github.com/flashtalk/flashtalk/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "FlashTalk Test",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Port: "8080",
			Host: "localhost",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Auth: config.AuthConfig{
			MinPasswordLength: 8,
			BcryptCost:        bcrypt.MinCost,
		},
		Tokens: config.TokensConfig{
			SecretKey:             "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0",
			AccessExpiry:          15 * time.Minute,
			RefreshExpiry:         168 * time.Hour,
			SoonExpiringThreshold: 3 * time.Minute,
			LivenessCacheTTL:      10 * time.Second,
			CleanupInterval:       time.Minute,
			Issuer:                "flashtalk",
		},
		Gateway: config.GatewayConfig{
			HandshakeTimeout:  15 * time.Second,
			KeepAliveInterval: 30 * time.Second,
			ServerTimeout:     60 * time.Second,
			WriteWait:         10 * time.Second,
			MaxMessageSize:    4096,
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
		},
		Events: config.EventsConfig{
			Enabled: false,
		},
	}
}
