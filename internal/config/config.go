// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Queue providers.
const (
	QueueAMQP   = "amqp"
	QueueKafka  = "kafka"
	QueuePubSub = "pubsub"
	QueueMemory = "memory"
)

// Archive providers.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
)

// Config captures all scraper configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig           `mapstructure:"logging"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Proxy   ProxyConfig             `mapstructure:"proxy"`
	Sources map[string]SourceConfig `mapstructure:"sources"`
	Crawl   CrawlConfig             `mapstructure:"crawl"`
	Queue   QueueConfig             `mapstructure:"queue"`
	Archive ArchiveConfig           `mapstructure:"archive"`
	Ledger  LedgerConfig            `mapstructure:"ledger"`
	Metrics MetricsConfig           `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RespectRobots     bool    `mapstructure:"respect_robots"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// ProxyConfig lists forward proxies handed out round-robin.
type ProxyConfig struct {
	List []string `mapstructure:"list"`
}

// SourceConfig holds per-channel settings.
type SourceConfig struct {
	Proxied bool   `mapstructure:"proxied"`
	BaseURL string `mapstructure:"base_url"`

	// Headers are sent with every request to the source. Viper lowercases the
	// names; they are canonicalized by RequestHeaders.
	Headers map[string]string `mapstructure:"headers"`
}

// RequestHeaders returns Headers as an http.Header, or nil when none are set.
func (s SourceConfig) RequestHeaders() http.Header {
	if len(s.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(s.Headers))
	for name, value := range s.Headers {
		h.Set(name, value)
	}
	return h
}

// CrawlConfig bounds a full crawl.
type CrawlConfig struct {
	MaxProductsPerCategory int `mapstructure:"max_products_per_category"`
}

// QueueConfig selects and configures the publish transport.
type QueueConfig struct {
	Provider string       `mapstructure:"provider"`
	AMQP     AMQPConfig   `mapstructure:"amqp"`
	Kafka    KafkaConfig  `mapstructure:"kafka"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
}

// AMQPConfig holds RabbitMQ connection parameters.
type AMQPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Vhost    string `mapstructure:"vhost"`
}

// KafkaConfig holds broker addresses and the listings topic.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// PubSubConfig holds metadata for Pub/Sub publication.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig sets where raw product pages are kept.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// LedgerConfig controls access to the publication ledger database.
type LedgerConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig controls the ops HTTP listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// envAliases maps config keys to the legacy environment names deployments already set.
var envAliases = map[string]string{
	"queue.amqp.host":           "RABBITMQ_HOST",
	"queue.amqp.port":           "RABBITMQ_PORT",
	"queue.amqp.username":       "RABBITMQ_USER",
	"queue.amqp.password":       "RABBITMQ_PASS",
	"queue.amqp.vhost":          "RABBITMQ_VHOST",
	"sources.recetecom.proxied": "RECETECOM_PROXIED",
	"proxy.list":                "PROXY_LIST",
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range envAliases {
		prefixed := "SCRAPER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "retail-listing-scraper/1.0")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("proxy.list", []string{})
	v.SetDefault("sources.recetecom.proxied", false)
	v.SetDefault("sources.recetecom.base_url", "https://www.recete.com")
	v.SetDefault("sources.recetecom.headers", map[string]string{"accept-language": "tr-TR,tr;q=0.9"})
	v.SetDefault("crawl.max_products_per_category", 0)
	v.SetDefault("queue.provider", QueueAMQP)
	v.SetDefault("queue.amqp.host", "localhost")
	v.SetDefault("queue.amqp.port", 5672)
	v.SetDefault("queue.amqp.username", "guest")
	v.SetDefault("queue.amqp.password", "guest")
	v.SetDefault("queue.amqp.vhost", "/")
	v.SetDefault("queue.kafka.topic", "listings")
	v.SetDefault("queue.pubsub.topic_name", "listings")
	v.SetDefault("archive.provider", ArchiveNone)
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("ledger.table", "listing_publications")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requests_per_second must be >= 0")
	}
	if c.Crawl.MaxProductsPerCategory < 0 {
		return fmt.Errorf("crawl.max_products_per_category must be >= 0")
	}
	switch c.Queue.Provider {
	case QueueAMQP:
		if c.Queue.AMQP.Host == "" {
			return fmt.Errorf("queue.amqp.host is required")
		}
		if c.Queue.AMQP.Port <= 0 {
			return fmt.Errorf("queue.amqp.port must be > 0")
		}
	case QueueKafka:
		if len(c.Queue.Kafka.Brokers) == 0 || c.Queue.Kafka.Topic == "" {
			return fmt.Errorf("queue.kafka.brokers and queue.kafka.topic are required")
		}
	case QueuePubSub:
		if c.Queue.PubSub.ProjectID == "" || c.Queue.PubSub.TopicName == "" {
			return fmt.Errorf("queue.pubsub.project_id and queue.pubsub.topic_name are required")
		}
	case QueueMemory:
	default:
		return fmt.Errorf("unknown queue.provider %q", c.Queue.Provider)
	}
	switch c.Archive.Provider {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required for the local archive")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	if c.Ledger.MaxConns < 0 {
		return fmt.Errorf("ledger.max_conns must be >= 0")
	}
	return nil
}

// Source returns the settings for channel, or the zero value when none are configured.
func (c Config) Source(channel string) SourceConfig {
	return c.Sources[strings.ToLower(channel)]
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
