package platform

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/env"
)

// StrategyConfig holds the secrets one strategy needs. AppSecret signs the
// webhook bodies, VerifyToken guards the subscribe handshake.
type StrategyConfig struct {
	AppSecret   string `validate:"required"`
	VerifyToken string `validate:"required"`
}

// Config collects the per-vendor strategy configuration.
type Config struct {
	Meta    StrategyConfig
	Twitter StrategyConfig
	TikTok  StrategyConfig
}

// LoadConfigFromEnv reads the strategy secrets from the environment.
func LoadConfigFromEnv() Config {
	return Config{
		Meta: StrategyConfig{
			AppSecret:   env.GetEnv("META_APP_SECRET", ""),
			VerifyToken: env.GetEnv("META_VERIFY_TOKEN", ""),
		},
		Twitter: StrategyConfig{
			AppSecret:   env.GetEnv("TWITTER_CONSUMER_SECRET", ""),
			VerifyToken: env.GetEnv("TWITTER_VERIFY_TOKEN", ""),
		},
		TikTok: StrategyConfig{
			AppSecret:   env.GetEnv("TIKTOK_CLIENT_SECRET", ""),
			VerifyToken: env.GetEnv("TIKTOK_VERIFY_TOKEN", ""),
		},
	}
}

// Validate rejects configurations with missing secrets before any strategy
// is built from them.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid platform configuration: %w", err)
	}
	return nil
}
