package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: true
  level: debug
http:
  user_agent: real-agent
  timeout_seconds: 30
  respect_robots: true
  requests_per_second: 2.5
proxy:
  list: ["http://p1:3128", "http://p2:3128"]
sources:
  recetecom:
    proxied: true
    base_url: http://localhost:8081
    headers:
      X-Client: price-audit
crawl:
  max_products_per_category: 1
queue:
  provider: kafka
  kafka:
    brokers: ["k1:9092", "k2:9092"]
    topic: listings-v1
archive:
  provider: local
  prefix: raw
  local_dir: /tmp/pages
ledger:
  dsn: postgres://u:p@localhost/db
  table: publications
  max_conns: 4
metrics:
  addr: ":9100"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.HTTP.UserAgent != "real-agent" || !cfg.HTTP.RespectRobots || cfg.HTTP.RequestsPerSecond != 2.5 {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("RequestTimeout() = %s, want 30s", got)
	}
	if strings.Join(cfg.Proxy.List, ",") != "http://p1:3128,http://p2:3128" {
		t.Fatalf("unexpected proxy list: %v", cfg.Proxy.List)
	}
	src := cfg.Source("RecEteCom")
	if !src.Proxied || src.BaseURL != "http://localhost:8081" {
		t.Fatalf("unexpected source config: %+v", src)
	}
	if got := src.RequestHeaders().Get("X-Client"); got != "price-audit" {
		t.Fatalf("X-Client header = %q, want price-audit", got)
	}
	if cfg.Crawl.MaxProductsPerCategory != 1 {
		t.Fatalf("expected per-category limit 1, got %d", cfg.Crawl.MaxProductsPerCategory)
	}
	if cfg.Queue.Provider != QueueKafka || len(cfg.Queue.Kafka.Brokers) != 2 || cfg.Queue.Kafka.Topic != "listings-v1" {
		t.Fatalf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.Archive.Provider != ArchiveLocal || cfg.Archive.Prefix != "raw" || cfg.Archive.LocalDir != "/tmp/pages" {
		t.Fatalf("unexpected archive config: %+v", cfg.Archive)
	}
	if cfg.Ledger.Table != "publications" || cfg.Ledger.MaxConns != 4 {
		t.Fatalf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("unexpected metrics addr %q", cfg.Metrics.Addr)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Queue.Provider != QueueAMQP {
		t.Fatalf("expected amqp provider by default, got %q", cfg.Queue.Provider)
	}
	amqp := cfg.Queue.AMQP
	if amqp.Host != "localhost" || amqp.Port != 5672 || amqp.Vhost != "/" {
		t.Fatalf("unexpected amqp defaults: %+v", amqp)
	}
	if cfg.Crawl.MaxProductsPerCategory != 0 {
		t.Fatalf("expected unlimited crawl by default, got %d", cfg.Crawl.MaxProductsPerCategory)
	}
	if cfg.Archive.Provider != ArchiveNone {
		t.Fatalf("expected archive disabled, got %q", cfg.Archive.Provider)
	}
	if src := cfg.Source("recetecom"); src.Proxied || src.BaseURL != "https://www.recete.com" {
		t.Fatalf("unexpected recetecom defaults: %+v", src)
	}
	if got := cfg.Source("recetecom").RequestHeaders().Get("Accept-Language"); got != "tr-TR,tr;q=0.9" {
		t.Fatalf("Accept-Language default = %q", got)
	}
	if h := (SourceConfig{}).RequestHeaders(); h != nil {
		t.Fatalf("expected nil headers for an empty source, got %v", h)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("expected metrics listener disabled, got %q", cfg.Metrics.Addr)
	}
}

// TestLoadLegacyEnvironment cannot run in parallel because it mutates the process environment.
func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("RABBITMQ_HOST", "rabbit.internal")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("RABBITMQ_USER", "scraper")
	t.Setenv("RABBITMQ_PASS", "s3cret")
	t.Setenv("RECETECOM_PROXIED", "true")
	t.Setenv("PROXY_LIST", "http://p1:1,http://p2:2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	amqp := cfg.Queue.AMQP
	if amqp.Host != "rabbit.internal" || amqp.Port != 5673 || amqp.Username != "scraper" || amqp.Password != "s3cret" {
		t.Fatalf("legacy rabbitmq variables not applied: %+v", amqp)
	}
	if !cfg.Source("recetecom").Proxied {
		t.Fatal("expected RECETECOM_PROXIED to enable proxying")
	}
	if len(cfg.Proxy.List) != 2 {
		t.Fatalf("expected two proxies, got %v", cfg.Proxy.List)
	}
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("RABBITMQ_HOST", "legacy")
	t.Setenv("SCRAPER_QUEUE_AMQP_HOST", "prefixed")
	t.Setenv("SCRAPER_CRAWL_MAX_PRODUCTS_PER_CATEGORY", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Queue.AMQP.Host != "prefixed" {
		t.Fatalf("expected prefixed variable to win, got %q", cfg.Queue.AMQP.Host)
	}
	if cfg.Crawl.MaxProductsPerCategory != 3 {
		t.Fatalf("expected limit from env, got %d", cfg.Crawl.MaxProductsPerCategory)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			HTTP:    HTTPConfig{TimeoutSeconds: 10},
			Queue:   QueueConfig{Provider: QueueMemory},
			Archive: ArchiveConfig{Provider: ArchiveNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, wantErr: "http.timeout_seconds"},
		{name: "negative rps", mutate: func(c *Config) { c.HTTP.RequestsPerSecond = -1 }, wantErr: "requests_per_second"},
		{name: "negative limit", mutate: func(c *Config) { c.Crawl.MaxProductsPerCategory = -1 }, wantErr: "max_products_per_category"},
		{name: "unknown queue", mutate: func(c *Config) { c.Queue.Provider = "sqs" }, wantErr: "unknown queue.provider"},
		{name: "amqp host", mutate: func(c *Config) { c.Queue.Provider = QueueAMQP; c.Queue.AMQP.Port = 5672 }, wantErr: "queue.amqp.host"},
		{name: "amqp port", mutate: func(c *Config) { c.Queue.Provider = QueueAMQP; c.Queue.AMQP.Host = "h" }, wantErr: "queue.amqp.port"},
		{name: "kafka", mutate: func(c *Config) { c.Queue.Provider = QueueKafka }, wantErr: "queue.kafka"},
		{name: "pubsub", mutate: func(c *Config) { c.Queue.Provider = QueuePubSub }, wantErr: "queue.pubsub"},
		{name: "local archive", mutate: func(c *Config) { c.Archive.Provider = ArchiveLocal }, wantErr: "archive.local_dir"},
		{name: "gcs archive", mutate: func(c *Config) { c.Archive.Provider = ArchiveGCS }, wantErr: "archive.gcs_bucket"},
		{name: "unknown archive", mutate: func(c *Config) { c.Archive.Provider = "s3" }, wantErr: "unknown archive.provider"},
		{name: "ledger conns", mutate: func(c *Config) { c.Ledger.MaxConns = -1 }, wantErr: "ledger.max_conns"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
