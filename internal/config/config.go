// /internal/config/config.go
package config

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// Durable store (cache index + playlists) and per-guild settings.
	DatabasePath string `env:"DATABASE_PATH" envDefault:"soundkeep.db"`
	SettingsPath string `env:"SETTINGS_PATH" envDefault:"settings.json"`

	// Audio cache directory and byte budget.
	CacheDir      string `env:"CACHE_DIR" envDefault:"audio_cache"`
	CacheMaxBytes int64  `env:"CACHE_MAX_BYTES" envDefault:"2147483648"` // 2 GB

	// Concurrent single-track download jobs.
	DownloadWorkers int `env:"DOWNLOAD_WORKERS" envDefault:"2"`

	// Extraction calls per second against the upstream provider.
	ExtractRate float64 `env:"EXTRACT_RATE" envDefault:"2"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	InitSlashCommands bool `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
