package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"VolWatch/internal/domain/models"
	"VolWatch/internal/domain/repository"
	pkgkafka "VolWatch/pkg/kafka"
)

// KafkaAlertPublisher implements AlertPublisher for Kafka.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher creates a Kafka alert publisher.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) repository.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

// Publish keys messages by symbol so one partition sees a symbol's alerts in order.
func (p *KafkaAlertPublisher) Publish(ctx context.Context, a *models.AlertEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(a.Symbol), a)
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// ClickHouseAlertArchive implements AlertArchive for ClickHouse.
type ClickHouseAlertArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseAlertArchive creates a ClickHouse alert archive.
func NewClickHouseAlertArchive(db *sql.DB, table string) repository.AlertArchive {
	return &ClickHouseAlertArchive{db: db, table: table}
}

func (s *ClickHouseAlertArchive) Store(ctx context.Context, a *models.AlertEvent) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (id, kind, symbol, timeframe, price, signal, regime, squeeze_bars, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	var price float64
	if a.Price != nil {
		price = *a.Price
	}
	_, err := s.db.ExecContext(ctx, q,
		a.ID,
		string(a.Kind),
		a.Symbol,
		a.Timeframe,
		price,
		string(a.Signal),
		string(a.Regime),
		uint32(a.SqueezeBars),
		a.Timestamp,
	)
	return err
}

func (s *ClickHouseAlertArchive) Query(ctx context.Context, f repository.AlertQuery) ([]*models.AlertEvent, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	where := "symbol = ?"
	args := []interface{}{f.Symbol}
	if f.Timeframe != "" {
		where += " AND timeframe = ?"
		args = append(args, f.Timeframe)
	}
	if !f.From.IsZero() {
		where += " AND ts >= ?"
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where += " AND ts <= ?"
		args = append(args, f.To)
	}
	args = append(args, limit)

	q := fmt.Sprintf(
		"SELECT id, kind, symbol, timeframe, price, signal, regime, squeeze_bars, ts FROM %s WHERE %s ORDER BY ts DESC LIMIT ?",
		s.table, where,
	)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AlertEvent
	for rows.Next() {
		var (
			ev     models.AlertEvent
			kind   string
			signal string
			regime string
			price  float64
			bars   uint32
			ts     time.Time
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.Symbol, &ev.Timeframe, &price, &signal, &regime, &bars, &ts); err != nil {
			return nil, err
		}
		ev.Kind = models.AlertKind(kind)
		ev.Signal = models.BreakoutSignal(signal)
		ev.Regime = models.RegimeState(regime)
		ev.SqueezeBars = int(bars)
		ev.Timestamp = ts
		p := price
		ev.Price = &p
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (s *ClickHouseAlertArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
