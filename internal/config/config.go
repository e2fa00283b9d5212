package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ServiceName    = "coin-tick-pipeline"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	Port                    map[string]string         `mapstructure:"port"`
	ProjectID               string                    `mapstructure:"project_id"`
	Queue                   QueueConfig               `mapstructure:"queue"`
	Warehouse               WarehouseConfig           `mapstructure:"warehouse"`
	Collector               CollectorConfig           `mapstructure:"collector"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
}

// QueueConfig names the JetStream stream ticks are published to and the
// durable consumer the ingestor reads from.
type QueueConfig struct {
	Topic          string        `mapstructure:"topic"`
	SubscriptionID string        `mapstructure:"subscription_id"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	StreamMaxAge   time.Duration `mapstructure:"stream_max_age"`
}

type WarehouseConfig struct {
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

type CollectorConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	CoinIDs        []string      `mapstructure:"coin_ids"`
	VsCurrency     string        `mapstructure:"vs_currency"`
	Interval       time.Duration `mapstructure:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Source         string        `mapstructure:"source"`
}

type NatsJetstreamConfig struct {
	URL             string                   `mapstructure:"url"`
	MaxRetries      int                      `mapstructure:"max_retries"`
	ReconnectFactor float64                  `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration            `mapstructure:"min_jitter"`
	MaxJitter       time.Duration            `mapstructure:"max_jitter"`
	TimeoutHandler  map[string]time.Duration `mapstructure:"timeout_handler"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

// ConfigurationError lists every required key that is missing or invalid.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Missing, ", "))
}

func setDefaults() {
	viper.SetDefault("env", "development")
	viper.SetDefault("log.log_level", "info")
	viper.SetDefault("graceful_shutdown_timeout", 10*time.Second)
	viper.SetDefault("port.http", "8080")
	viper.SetDefault("queue.max_deliver", 5)
	viper.SetDefault("queue.ack_wait", 30*time.Second)
	viper.SetDefault("queue.stream_max_age", 24*time.Hour)
	viper.SetDefault("collector.api_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("collector.coin_ids", []string{"bitcoin"})
	viper.SetDefault("collector.vs_currency", "usd")
	viper.SetDefault("collector.interval", 30*time.Second)
	viper.SetDefault("collector.request_timeout", 15*time.Second)
	viper.SetDefault("collector.source", "coingecko")
	viper.SetDefault("nats_jetstream.timeout_handler.insert_tick", 10*time.Second)
}

func LoadConfig(configPath string) error {
	viper.Reset()

	// a missing .env is fine, real environments inject variables directly
	_ = godotenv.Load()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	setDefaults()

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return nil
}

// Validate checks the keys every process role needs. It is called once at
// startup and any failure is fatal.
func (c *EnvConfig) Validate() error {
	var missing []string

	if strings.TrimSpace(c.ProjectID) == "" {
		missing = append(missing, "project_id")
	}
	if strings.TrimSpace(c.Queue.Topic) == "" {
		missing = append(missing, "queue.topic")
	}
	if strings.TrimSpace(c.Queue.SubscriptionID) == "" {
		missing = append(missing, "queue.subscription_id")
	}
	if strings.TrimSpace(c.Warehouse.Dataset) == "" {
		missing = append(missing, "warehouse.dataset")
	}
	if strings.TrimSpace(c.Warehouse.Table) == "" {
		missing = append(missing, "warehouse.table")
	}
	if len(c.Collector.CoinIDs) == 0 {
		missing = append(missing, "collector.coin_ids")
	}
	if c.Collector.Interval <= 0 {
		missing = append(missing, "collector.interval")
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	return nil
}

// TableID returns the fully-qualified project.dataset.table identifier used in logs.
func (c *EnvConfig) TableID() string {
	return fmt.Sprintf("%s.%s.%s", c.ProjectID, c.Warehouse.Dataset, c.Warehouse.Table)
}
