package config

import "time"

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadDeadlineSeconds  int   `mapstructure:"read_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
}

type ClientConfig struct {
	URL                string `mapstructure:"url"`
	BaseDelayMillis    int    `mapstructure:"base_delay_ms"`
	MaxAttempts        int    `mapstructure:"max_attempts"`
	DialTimeoutSeconds int    `mapstructure:"dial_timeout_seconds"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Pass   string `mapstructure:"password"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
}

type Config struct {
	App      AppConfig    `mapstructure:"app"`
	WS       WSConfig     `mapstructure:"ws"`
	Client   ClientConfig `mapstructure:"client"`
	Redis    RedisConfig  `mapstructure:"redis"`
	Kafka    KafkaConfig  `mapstructure:"kafka"`
	LogLevel string       `mapstructure:"log_level"`

	// derived/timeouts
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadDeadline  time.Duration
	BaseDelay     time.Duration
	DialTimeout   time.Duration
}

func (c *Config) Development() bool {
	return c.App.Env == "" || c.App.Env == "development"
}
