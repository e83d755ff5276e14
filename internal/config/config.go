package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	MemoryStore bool   `mapstructure:"MEMORY_STORE"`
	AuthSecret  string `mapstructure:"AUTH_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// ReferenceScope is how far from a form's subject the reference-answer
	// search reaches: subject, ancestors or related.
	ReferenceScope string `mapstructure:"REFERENCE_SCOPE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8012")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MEMORY_STORE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REFERENCE_SCOPE", "ancestors")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MEMORY_STORE")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("REFERENCE_SCOPE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if !cfg.MemoryStore && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required unless MEMORY_STORE is set")
	}
	switch cfg.ReferenceScope {
	case "subject", "ancestors", "related":
	default:
		return nil, fmt.Errorf("invalid REFERENCE_SCOPE %q", cfg.ReferenceScope)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
