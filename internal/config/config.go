package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Store     StoreConfig     `mapstructure:"store"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Stub      StubConfig      `mapstructure:"stub"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type TelemetryConfig struct {
	AMQPURL     string `mapstructure:"amqp_url"`
	Exchange    string `mapstructure:"exchange"`
	Environment string `mapstructure:"environment"`
}

type StubConfig struct {
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// Load reads the optional yaml config file and environment overrides.
// A missing file is fine; env vars and defaults still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.poll_interval", "6s")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("store.path", "chat-client.db")
	v.SetDefault("telemetry.exchange", "marketplace.events")
	v.SetDefault("telemetry.environment", "dev")
	v.SetDefault("stub.port", 8080)
	v.SetDefault("stub.token", "demo-token")

	_ = v.BindEnv("api.base_url", "CHAT_API_BASE_URL")
	_ = v.BindEnv("api.poll_interval", "CHAT_POLL_INTERVAL")
	_ = v.BindEnv("store.path", "CHAT_STORE_PATH")
	_ = v.BindEnv("telemetry.amqp_url", "CHAT_AMQP_URL")
	_ = v.BindEnv("telemetry.environment", "CHAT_ENV")
	_ = v.BindEnv("stub.port", "CHAT_STUB_PORT")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
