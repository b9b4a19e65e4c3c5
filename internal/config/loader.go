package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional file plus GATEWAY_* environment
// variables, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/gateway")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file is fine: defaults plus environment variables.
	}

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_caller", true)

	// Database defaults
	v.SetDefault("database.path", "gateway.db")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// OAuth defaults
	v.SetDefault("oauth.scope", "openid profile email")
	v.SetDefault("oauth.username_claim", "preferred_username")

	// Cookie defaults
	v.SetDefault("cookies.transient_ttl", "10m")

	// Session defaults
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.absolute_timeout", "8h")
	v.SetDefault("session.cleanup_interval", "1h")

	// Discovery defaults
	v.SetDefault("discovery.cache_ttl", "24h")
	v.SetDefault("discovery.http_timeout", "10s")

	// Broker defaults
	v.SetDefault("broker.skew_margin", "5m")
	v.SetDefault("broker.http_timeout", "15s")
	v.SetDefault("broker.breaker_max_failures", 5)
	v.SetDefault("broker.breaker_timeout", "30s")

	// CORS defaults
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Audit defaults
	v.SetDefault("audit.enabled", true)
}
