// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"StockPulse/pkg/config"
	"StockPulse/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	marketData := ProvideMarketData(cfg, logger)
	indicatorEngine := ProvideIndicatorEngine()
	textBuffer := ProvideTextBuffer(cfg)
	sentimentScorer := ProvideSentimentScorer(textBuffer, logger, cfg)
	signalFuser := ProvideFuser(cfg)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	signalStore := ProvideSignalStore(client, cfg)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	publisher := ProvideSignalPublisher(producer, cfg)
	metrics := ProvideMetrics()
	quoteBoard := ProvideQuoteBoard(metrics)
	scheduler := ProvideScheduler(marketData, indicatorEngine, sentimentScorer, signalFuser, signalStore, publisher, metrics, logger, quoteBoard, cfg)
	quoteCollector := ProvideQuoteCollector(quoteBoard, metrics, cfg)
	consumer, err := ProvideKafkaConsumer(cfg)
	if err != nil {
		return nil, err
	}
	kafkaTextsHandler := ProvideKafkaTextsHandler(textBuffer, metrics, cfg)
	redisQueue := ProvideScanQueue(scheduler, logger, cfg)
	service, err := ProvideCacheService(cfg)
	if err != nil {
		return nil, err
	}
	signalService := ProvideSignalService(signalStore, service, cfg, logger)
	handler := ProvideHTTPHandler(logger, scheduler, signalService, cfg)
	app := ProvideApp(cfg, scheduler, quoteCollector, consumer, kafkaTextsHandler, redisQueue, client, signalStore, publisher, handler)
	return app, nil
}
