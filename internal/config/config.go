package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	// Transport holds the real-time transport API key pair. Both must be
	// set; a missing pair is a fatal configuration error surfaced at token
	// issuance, not something retried.
	Transport struct {
		APIKey    string `mapstructure:"api_key"`
		APISecret string `mapstructure:"api_secret"`
	} `mapstructure:"transport"`

	Gateway struct {
		KeyID     string `mapstructure:"key_id"`
		KeySecret string `mapstructure:"key_secret"`
	} `mapstructure:"gateway"`

	Payments struct {
		Currency    string        `mapstructure:"currency"`
		NotifyDelay time.Duration `mapstructure:"notify_delay"`
	} `mapstructure:"payments"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = "127.0.0.1:3000"
	cfg.Store.Path = "data/chat.db"
	cfg.Payments.Currency = "INR"
	cfg.Payments.NotifyDelay = time.Second
	return cfg
}

// Load reads configuration from an optional YAML file and CHATAPP_*
// environment variables, on top of defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHATAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"server.addr", "store.path",
		"transport.api_key", "transport.api_secret",
		"gateway.key_id", "gateway.key_secret",
		"payments.currency", "payments.notify_delay",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
