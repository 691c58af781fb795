package usecase

import (
	"context"
	"encoding/json"
	"time"

	"VolWatch/internal/domain/models"
	domrepo "VolWatch/internal/domain/repository"
	pkgkafka "VolWatch/pkg/kafka"
)

// KafkaAlertsHandler consumes alert events from Kafka and archives them.
type KafkaAlertsHandler struct {
	topic   string
	archive domrepo.AlertArchive
	metrics domrepo.Metrics
}

func NewKafkaAlertsHandler(topic string, archive domrepo.AlertArchive, metrics domrepo.Metrics) *KafkaAlertsHandler {
	return &KafkaAlertsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaAlertsHandler) Topic() string { return h.topic }

func (h *KafkaAlertsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.AlertEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	// E2E latency from emission to archive (approx)
	h.metrics.RecordLatency("alert_e2e_seconds", time.Since(ev.Timestamp).Seconds())

	start := time.Now()
	if err := h.archive.Store(ctx, &ev); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("alert_archive_seconds", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAlertsHandler)(nil)
