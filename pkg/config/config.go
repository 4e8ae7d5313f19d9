package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FusionConfig tunes the signal fuser. Weights key indicator names; the
// decision threshold is a fraction of the maximum reachable weighted sum.
type FusionConfig struct {
	Weights            map[string]float64 `yaml:"weights"`
	Threshold          float64            `yaml:"threshold"`
	IncompleteDiscount float64            `yaml:"incomplete_discount"`
	StaleDiscount      float64            `yaml:"stale_discount"`
	MinConfidence      float64            `yaml:"min_confidence"`
}

// DefaultWeights is the fusion weight table used when the config omits one.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"rsi":        1.5,
		"macd":       1.25,
		"bollinger":  1.0,
		"stochastic": 1.0,
		"williams_r": 0.75,
		"sma_cross":  1.0,
		"volume":     0.75,
		"sentiment":  1.5,
	}
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Store struct {
		Type string `yaml:"type"` // "memory" or "clickhouse"
	} `yaml:"store"`
	Scanner struct {
		Symbols       []string      `yaml:"symbols"`
		Timeframe     string        `yaml:"timeframe"`
		Interval      time.Duration `yaml:"interval"`
		Lookback      int           `yaml:"lookback"`
		MaxConcurrent int           `yaml:"max_concurrent"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout"`
		RetryMax      int           `yaml:"retry_max"`
		BackoffMin    time.Duration `yaml:"backoff_min"`
		BackoffMax    time.Duration `yaml:"backoff_max"`
		MaxFetchRPS   float64       `yaml:"max_fetch_rps"`
	} `yaml:"scanner"`
	Fusion    FusionConfig `yaml:"fusion"`
	Sentiment struct {
		Enabled bool          `yaml:"enabled"`
		MaxAge  time.Duration `yaml:"max_age"`
		Window  time.Duration `yaml:"window"`
		MaxDocs int           `yaml:"max_docs"`
	} `yaml:"sentiment"`
	MarketData struct {
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		Timeout        time.Duration `yaml:"timeout"`
		WebSocketURL   string        `yaml:"websocket_url"`
		StreamEnabled  bool          `yaml:"stream_enabled"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"marketdata"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic"`
		TextTopic    string   `yaml:"text_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	CacheTTL struct {
		LatestSignal time.Duration `yaml:"latest_signal"`
		Sentiment    time.Duration `yaml:"sentiment"`
	} `yaml:"cache_ttl"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scanner.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("STORE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Scanner.Timeframe == "" {
		c.Scanner.Timeframe = "1d"
	}
	if c.Scanner.Interval == 0 {
		c.Scanner.Interval = 5 * time.Minute
	}
	if c.Scanner.Lookback == 0 {
		c.Scanner.Lookback = 250
	}
	if c.Scanner.MaxConcurrent == 0 {
		c.Scanner.MaxConcurrent = 8
	}
	if c.Scanner.FetchTimeout == 0 {
		c.Scanner.FetchTimeout = 10 * time.Second
	}
	if c.Scanner.RetryMax == 0 {
		c.Scanner.RetryMax = 3
	}
	if c.Scanner.BackoffMin == 0 {
		c.Scanner.BackoffMin = 500 * time.Millisecond
	}
	if c.Scanner.BackoffMax == 0 {
		c.Scanner.BackoffMax = 10 * time.Second
	}
	if c.Fusion.Weights == nil {
		c.Fusion.Weights = DefaultWeights()
	}
	if c.Fusion.Threshold == 0 {
		c.Fusion.Threshold = 0.15
	}
	if c.Fusion.IncompleteDiscount == 0 {
		c.Fusion.IncompleteDiscount = 0.75
	}
	if c.Fusion.StaleDiscount == 0 {
		c.Fusion.StaleDiscount = 0.9
	}
	if c.Sentiment.MaxAge == 0 {
		c.Sentiment.MaxAge = 6 * time.Hour
	}
	if c.Sentiment.Window == 0 {
		c.Sentiment.Window = 24 * time.Hour
	}
	if c.Sentiment.MaxDocs == 0 {
		c.Sentiment.MaxDocs = 200
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.Type == "" {
		return fmt.Errorf("store.type is required")
	}
	if c.Store.Type != "memory" && c.Store.Type != "clickhouse" {
		return fmt.Errorf("store.type must be 'memory' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if len(c.Scanner.Symbols) == 0 {
		return fmt.Errorf("scanner.symbols cannot be empty")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive")
	}
	if c.Fusion.Threshold <= 0 || c.Fusion.Threshold >= 1 {
		return fmt.Errorf("fusion.threshold must be in (0, 1), got %v", c.Fusion.Threshold)
	}
	for name, w := range c.Fusion.Weights {
		if w < 0 {
			return fmt.Errorf("fusion.weights[%s] must be non-negative", name)
		}
	}
	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("marketdata.base_url is required")
	}
	return nil
}
