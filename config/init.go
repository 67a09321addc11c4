package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	BridgeConfig    *BridgeConfig
	KeyringConfig   *KeyringConfig
	RelayConfig     *RelayConfig
	SandboxConfig   *SandboxConfig
	R2StorageConfig *R2StorageConfig
}

func newConfig() *Config {
	return &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		BridgeConfig:    &BridgeConfig{},
		KeyringConfig:   &KeyringConfig{},
		RelayConfig:     &RelayConfig{},
		SandboxConfig:   &SandboxConfig{},
		R2StorageConfig: &R2StorageConfig{},
	}
}

func InitConfig() (*Config, error) {
	config := newConfig()

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailbridge config: %v", err)
	}

	return config, nil
}

// InitOfflineConfig loads only what offline email verification needs, so it runs
// without database, broker or API credentials.
func InitOfflineConfig() (*Config, error) {
	config := &Config{
		BridgeConfig:  &BridgeConfig{},
		KeyringConfig: &KeyringConfig{},
	}

	if err := godotenv.Load(); err != nil {
		log.Print("Unable to load .env file")
	}

	if err := env.Parse(config.BridgeConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.KeyringConfig); err != nil {
		return nil, err
	}
	return config, nil
}
