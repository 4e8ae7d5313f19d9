package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/sentiment"
	pkgkafka "StockPulse/pkg/kafka"
)

// KafkaTextsHandler consumes raw text events (news headlines, posts) and
// feeds them into the sentiment buffer.
type KafkaTextsHandler struct {
	topic   string
	buffer  *sentiment.TextBuffer
	metrics domrepo.Metrics
}

func NewKafkaTextsHandler(topic string, buffer *sentiment.TextBuffer, metrics domrepo.Metrics) *KafkaTextsHandler {
	return &KafkaTextsHandler{topic: topic, buffer: buffer, metrics: metrics}
}

func (h *KafkaTextsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, text, source, t}
func (h *KafkaTextsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string `json:"symbol"`
		Text   string `json:"text"`
		Source string `json:"source"`
		T      int64  `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	ts := time.Unix(m.T, 0).UTC()
	if m.T == 0 {
		ts = time.Now().UTC()
	}
	h.metrics.RecordLatency("text_ingest_e2e_seconds", time.Since(ts).Seconds())

	h.buffer.Add(models.TextItem{
		Symbol:    m.Symbol,
		Text:      m.Text,
		Source:    m.Source,
		Timestamp: ts,
	})
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTextsHandler)(nil)
