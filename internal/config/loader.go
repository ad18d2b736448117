package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the config file at path (optional) with env overrides:
// APP_APP_PORT, APP_REDIS_ADDR etc. A local .env is loaded first so
// development does not need exported shell vars.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.port", 3001)
	v.SetDefault("client.url", "ws://localhost:3001")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.App.Port == 0 {
		c.App.Port = 3001
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.ReadDeadlineSeconds == 0 {
		c.WS.ReadDeadlineSeconds = 60
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	if c.WS.SendBuffer == 0 {
		c.WS.SendBuffer = 256
	}
	if c.Client.URL == "" {
		c.Client.URL = "ws://localhost:3001"
	}
	if c.Client.BaseDelayMillis == 0 {
		c.Client.BaseDelayMillis = 1000
	}
	if c.Client.MaxAttempts == 0 {
		c.Client.MaxAttempts = 5
	}
	if c.Client.DialTimeoutSeconds == 0 {
		c.Client.DialTimeoutSeconds = 10
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "ws"
	}
	if c.Kafka.TopicMessageSent == "" {
		c.Kafka.TopicMessageSent = "chat.message.sent"
	}

	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.ReadDeadline = time.Duration(c.WS.ReadDeadlineSeconds) * time.Second
	c.BaseDelay = time.Duration(c.Client.BaseDelayMillis) * time.Millisecond
	c.DialTimeout = time.Duration(c.Client.DialTimeoutSeconds) * time.Second
}
