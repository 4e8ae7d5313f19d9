package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/internal/handler/api"
	mid "StockPulse/internal/middleware"
	internalrepo "StockPulse/internal/repository"
	icache "StockPulse/internal/service/cache"
	"StockPulse/internal/services/indicators"
	"StockPulse/internal/services/marketdata"
	"StockPulse/internal/services/sentiment"
	"StockPulse/internal/usecase"
	pkgcache "StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	pkgqueue "StockPulse/pkg/queue"
	"StockPulse/pkg/server"

	goredis "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the store backend
// needs one; returns nil for the memory store.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Store.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".signals (" +
			"ts DateTime64(3), symbol String, type String, confidence Float64, " +
			"price Float64, price_target Float64, stop_loss Float64, " +
			"votes String, incomplete UInt8, stale UInt8" +
			") ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSignalStore selects the store backend from config.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	if cfg.Store.Type == "clickhouse" && chClient != nil {
		return internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database+".signals")
	}
	return internalrepo.NewMemorySignalStore()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideSignalPublisher creates the Kafka signal publisher, or nil.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil || cfg.Kafka.SignalsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates the text-event consumer, or nil.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.TextTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTextBuffer creates the sentiment document buffer.
func ProvideTextBuffer(cfg *config.Config) *sentiment.TextBuffer {
	return sentiment.NewTextBuffer(cfg.Sentiment.MaxDocs)
}

// ProvideKafkaTextsHandler registers the handler for the text topic.
func ProvideKafkaTextsHandler(buffer *sentiment.TextBuffer, m repository.Metrics, cfg *config.Config) *usecase.KafkaTextsHandler {
	return usecase.NewKafkaTextsHandler(cfg.Kafka.TextTopic, buffer, m)
}

// ProvideSentimentScorer builds the scorer over the text buffer. With
// sentiment disabled the scorer has no source and always scores neutral.
func ProvideSentimentScorer(buffer *sentiment.TextBuffer, l *applogger.Logger, cfg *config.Config) dservice.SentimentScorer {
	var source repository.TextSource
	if cfg.Sentiment.Enabled {
		source = buffer
	}
	return sentiment.NewScorer(source, l, sentiment.ScorerOptions{
		Window:   cfg.Sentiment.Window,
		MaxAge:   cfg.Sentiment.MaxAge,
		CacheTTL: cfg.CacheTTL.Sentiment,
	})
}

// ProvideIndicatorEngine creates the indicator engine.
func ProvideIndicatorEngine() dservice.IndicatorEngine {
	return indicators.NewEngine()
}

// ProvideFuser creates the signal fuser from the fusion config.
func ProvideFuser(cfg *config.Config) dservice.SignalFuser {
	return usecase.NewFuser(cfg.Fusion)
}

// ProvideMarketData creates the candle fetch client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	return marketdata.NewClient(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Timeout, l)
}

// ProvideQuoteBoard creates the live price board; last prices are mirrored
// into the metrics gauge.
func ProvideQuoteBoard(m repository.Metrics) *usecase.QuoteBoard {
	return usecase.NewQuoteBoard(m.RecordLastPrice)
}

// ProvideQuoteCollector wires stream -> pipeline -> board, or nil when the
// live stream is disabled.
func ProvideQuoteCollector(board *usecase.QuoteBoard, m repository.Metrics, cfg *config.Config) *usecase.QuoteCollector {
	if !cfg.MarketData.StreamEnabled || cfg.MarketData.WebSocketURL == "" {
		return nil
	}
	stream := marketdata.NewStream(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
	)
	pipe := mid.NewQuotePipeline(board, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewQuoteCollector(stream, board, m, pipe, cfg.Scanner.Symbols)
}

// ProvideScheduler creates the scan scheduler.
func ProvideScheduler(
	market repository.MarketData,
	engine dservice.IndicatorEngine,
	scorer dservice.SentimentScorer,
	fuser dservice.SignalFuser,
	store repository.SignalStore,
	publisher repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
	board *usecase.QuoteBoard,
	cfg *config.Config,
) *usecase.Scheduler {
	return usecase.NewScheduler(market, engine, scorer, fuser, store, publisher, m, l, board,
		usecase.SchedulerConfig{
			Timeframe:     models.NormalizeTimeframe(cfg.Scanner.Timeframe),
			Interval:      cfg.Scanner.Interval,
			Lookback:      cfg.Scanner.Lookback,
			MaxConcurrent: cfg.Scanner.MaxConcurrent,
			FetchTimeout:  cfg.Scanner.FetchTimeout,
			RetryMax:      cfg.Scanner.RetryMax,
			BackoffMin:    cfg.Scanner.BackoffMin,
			BackoffMax:    cfg.Scanner.BackoffMax,
			MaxFetchRPS:   cfg.Scanner.MaxFetchRPS,
			MinConfidence: cfg.Fusion.MinConfidence,
		})
}

// ProvideCacheService builds the layered latest-signal cache, or nil when
// Redis is off (the memory store alone is fast enough without one).
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("stockpulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvideSignalService creates the read surface over the store.
func ProvideSignalService(store repository.SignalStore, c pkgcache.Service, cfg *config.Config, l *applogger.Logger) *usecase.SignalService {
	return usecase.NewSignalService(store, c, cfg.CacheTTL.LatestSignal, l)
}

// ProvideScanQueue creates the redis-backed scan request queue, or nil.
func ProvideScanQueue(scheduler *usecase.Scheduler, l *applogger.Logger, cfg *config.Config) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	job := usecase.NewScanJob(scheduler, l)
	return pkgqueue.NewRedisConsumer(l,
		&pkgqueue.QueueConfig{Workers: 2, QueueSize: 100, RetryLimit: 3, RetryDelay: 5 * time.Second},
		client,
		[]pkgqueue.Job{job},
		pkgqueue.WithKeyPrefix("stockpulse:queue"),
	)
}

// ProvideHTTPHandler builds the Echo handler plus the quick net/http routes.
func ProvideHTTPHandler(l *applogger.Logger, scheduler *usecase.Scheduler, signals *usecase.SignalService, cfg *config.Config) xhttp.Handler {
	h := api.NewScannerEchoHandler(l, scheduler, signals)

	quick := api.NewQuickHandler(signals)
	quick.SetLogger(l)
	if cfg.Redis.Enabled {
		quick.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		quick.SetCache(icache.NewTTLCache())
	}
	h.SetQuick(quick)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	scheduler *usecase.Scheduler,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTextsHandler,
	queue *pkgqueue.RedisQueue,
	chClient *pkgch.Client,
	store repository.SignalStore,
	publisher repository.Publisher,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, scheduler, collector, consumer, kh, queue, chClient, store, publisher)
	app.SetHTTPHandler(handler)
	return app
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
