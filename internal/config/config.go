package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"metric-anomaly-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Detection DetectionConfig `mapstructure:"detection"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	API       APIConfig       `mapstructure:"api"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the daily job cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// DetectionConfig selects metrics and detection windows.
type DetectionConfig struct {
	Metrics      []string `mapstructure:"metrics"`
	LookbackDays int      `mapstructure:"lookback_days"`
}

// NotifyConfig wires notification channels and batch sizing.
type NotifyConfig struct {
	Limit   int           `mapstructure:"limit"`
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// EmailConfig carries SMTP transport and routing settings. An empty
// recipients list disables the channel.
type EmailConfig struct {
	Recipients []string `mapstructure:"recipients"`
	From       string   `mapstructure:"from"`
	SMTPHost   string   `mapstructure:"smtp_host"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	UseTLS     bool     `mapstructure:"use_tls"`
}

// WebhookConfig lists endpoints that receive alert payloads. An empty
// URL list disables the channel.
type WebhookConfig struct {
	URLs           []string      `mapstructure:"urls"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// APIConfig tunes the HTTP surface for alert lifecycle operations.
type APIConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("METRICWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "metricwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("detection.metrics", []string{"tx_fail_rate", "latency_p95_ms", "tx_completed", "dau"})
	v.SetDefault("detection.lookback_days", 30)

	v.SetDefault("notify.limit", 50)
	v.SetDefault("notify.email.from", "alerts@metricwatcher.local")
	v.SetDefault("notify.email.smtp_host", "localhost")
	v.SetDefault("notify.email.smtp_port", 25)
	v.SetDefault("notify.email.use_tls", false)
	v.SetDefault("notify.webhook.request_timeout", "5s")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if len(c.Detection.Metrics) == 0 {
		return fmt.Errorf("detection.metrics must list at least one metric")
	}
	if c.Detection.LookbackDays <= 0 {
		return fmt.Errorf("detection.lookback_days must be greater than zero")
	}
	if c.Notify.Limit <= 0 {
		return fmt.Errorf("notify.limit must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
