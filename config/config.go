package config

import (
	"fmt"
	"strings"
	"time"

	"sentinel/notify"

	"github.com/spf13/viper"
)

// Config holds all configuration for the Sentinel service
type Config struct {
	API struct {
		Port           int      `mapstructure:"port"`
		Host           string   `mapstructure:"host"`
		TLS            bool     `mapstructure:"tls"`
		CertFile       string   `mapstructure:"cert_file"`
		KeyFile        string   `mapstructure:"key_file"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		TrustProxy     bool     `mapstructure:"trust_proxy"`
		RateLimit      struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Stats struct {
		// PublishInterval is how often the stats snapshot is pushed to
		// WebSocket subscribers.
		PublishInterval time.Duration `mapstructure:"publish_interval"`
	} `mapstructure:"stats"`

	Geo struct {
		CacheSize int `mapstructure:"cache_size"`
	} `mapstructure:"geo"`

	Simulation struct {
		Enabled bool `mapstructure:"enabled"`
		// Seed fixes the random source for reproducible demo runs. 0 uses
		// a time-based seed.
		Seed int64 `mapstructure:"seed"`
		SSH  struct {
			MinInterval time.Duration `mapstructure:"min_interval"`
			MaxInterval time.Duration `mapstructure:"max_interval"`
		} `mapstructure:"ssh"`
		HTTP struct {
			MinInterval time.Duration `mapstructure:"min_interval"`
			MaxInterval time.Duration `mapstructure:"max_interval"`
		} `mapstructure:"http"`
		FTP struct {
			MinInterval time.Duration `mapstructure:"min_interval"`
			MaxInterval time.Duration `mapstructure:"max_interval"`
		} `mapstructure:"ftp"`
	} `mapstructure:"simulation"`

	Notifications struct {
		Channels []notify.ChannelConfig `mapstructure:"channels"`
	} `mapstructure:"notifications"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("api.port", 8090)
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.tls", false)
	viper.SetDefault("api.cert_file", "server.crt")
	viper.SetDefault("api.key_file", "server.key")
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("stats.publish_interval", 30*time.Second)

	viper.SetDefault("geo.cache_size", 1024)

	viper.SetDefault("simulation.enabled", true)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.ssh.min_interval", 8*time.Second)
	viper.SetDefault("simulation.ssh.max_interval", 25*time.Second)
	viper.SetDefault("simulation.http.min_interval", 12*time.Second)
	viper.SetDefault("simulation.http.max_interval", 35*time.Second)
	viper.SetDefault("simulation.ftp.min_interval", 20*time.Second)
	viper.SetDefault("simulation.ftp.max_interval", 60*time.Second)

	viper.SetDefault("logging.level", "info")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("SENTINEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("api.port", "SENTINEL_API_PORT")
	_ = viper.BindEnv("api.host", "SENTINEL_API_HOST")
	_ = viper.BindEnv("simulation.enabled", "SENTINEL_SIMULATION_ENABLED")
	_ = viper.BindEnv("simulation.seed", "SENTINEL_SIMULATION_SEED")
	_ = viper.BindEnv("logging.level", "SENTINEL_LOG_LEVEL")
}

// LoadConfig reads configuration from config.yaml, environment variables
// and defaults, in that order of precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *Config) error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d", c.API.Port)
	}
	if c.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("api rate limit must be positive, got %d", c.API.RateLimit.RequestsPerSecond)
	}
	if c.Stats.PublishInterval <= 0 {
		return fmt.Errorf("stats publish interval must be positive, got %s", c.Stats.PublishInterval)
	}
	for _, pair := range []struct {
		name     string
		min, max time.Duration
	}{
		{"ssh", c.Simulation.SSH.MinInterval, c.Simulation.SSH.MaxInterval},
		{"http", c.Simulation.HTTP.MinInterval, c.Simulation.HTTP.MaxInterval},
		{"ftp", c.Simulation.FTP.MinInterval, c.Simulation.FTP.MaxInterval},
	} {
		if pair.min <= 0 || pair.max < pair.min {
			return fmt.Errorf("invalid %s simulation interval: min=%s max=%s", pair.name, pair.min, pair.max)
		}
	}
	return nil
}
