package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	VideoRoom VideoRoomConfig `mapstructure:"video_room"`
	Token     TokenConfig     `mapstructure:"token"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type WhatsAppConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	FromPhone string        `mapstructure:"from_phone"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type VideoRoomConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TokenConfig struct {
	Secret    string        `mapstructure:"secret"`
	AcceptTTL time.Duration `mapstructure:"accept_ttl"`
	AcceptURL string        `mapstructure:"accept_url"`
	DoctorJWT string        `mapstructure:"doctor_jwt_secret"`
}

type DispatchConfig struct {
	Channels         []string      `mapstructure:"channels"`
	ChannelTimeout   time.Duration `mapstructure:"channel_timeout"`
	DefaultExpiry    time.Duration `mapstructure:"default_expiry"`
	DoctorCacheTTL   time.Duration `mapstructure:"doctor_cache_ttl"`
	DoctorCacheSweep time.Duration `mapstructure:"doctor_cache_sweep"`
}

type SweeperConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("DISPATCH")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("dispatch.channels", []string{"whatsapp", "email", "dashboard"})
	viper.SetDefault("dispatch.channel_timeout", 10*time.Second)
	viper.SetDefault("dispatch.default_expiry", 30*time.Minute)
	viper.SetDefault("dispatch.doctor_cache_ttl", 30*time.Second)
	viper.SetDefault("dispatch.doctor_cache_sweep", 5*time.Minute)
	viper.SetDefault("sweeper.batch_size", 100)
	viper.SetDefault("sweeper.poll_interval", 30*time.Second)
	viper.SetDefault("token.accept_ttl", 24*time.Hour)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
}
