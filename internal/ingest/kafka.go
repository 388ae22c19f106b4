package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"siteguard/internal/config"
)

const (
	kafkaSitesKey  = "sites"
	kafkaAlertsKey = "alerts"
)

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Lag() int64
	Close() error
}

// KafkaSource reads a compacted topic whose records are keyed "sites" and
// "alerts". Each fetch scans partition 0 from the start and keeps the last
// value seen per key.
type KafkaSource struct {
	newReader func() kafkaMessageReader
	timeout   time.Duration
	logger    *zap.Logger
}

func NewKafkaSource(cfg config.KafkaConfig, logger *zap.Logger) *KafkaSource {
	return NewKafkaSourceWith(func() kafkaMessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:   cfg.Brokers,
			Topic:     cfg.Topic,
			Partition: 0,
			MinBytes:  1,
			MaxBytes:  10e6,
		})
	}, cfg.ReadTimeout, logger)
}

func NewKafkaSourceWith(newReader func() kafkaMessageReader, timeout time.Duration, logger *zap.Logger) *KafkaSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSource{newReader: newReader, timeout: timeout, logger: logger}
}

func (s *KafkaSource) Name() string { return "kafka" }

func (s *KafkaSource) Fetch(ctx context.Context) (*Snapshot, error) {
	r := s.newReader()
	defer r.Close()

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sitesValue, alertsValue []byte
	read := 0
	for {
		m, err := r.ReadMessage(readCtx)
		if err != nil {
			if readCtx.Err() != nil {
				break
			}
			s.logger.Warn("kafka read error", zap.Error(err))
			if !BackoffSleep(readCtx, 100*time.Millisecond) {
				break
			}
			continue
		}
		read++
		switch string(m.Key) {
		case kafkaSitesKey:
			sitesValue = m.Value
		case kafkaAlertsKey:
			alertsValue = m.Value
		}
		if r.Lag() == 0 {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sitesValue == nil {
		return nil, fmt.Errorf("kafka: %w", ErrNoSnapshot)
	}
	sites, err := DecodeSites(sitesValue)
	if err != nil {
		return nil, err
	}
	var alerts []map[string]any
	if alertsValue != nil {
		if alerts, err = DecodeAlerts(alertsValue); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("kafka snapshot read", zap.Int("messages", read))
	return newSnapshot(s.Name(), sites, alerts), nil
}

func (s *KafkaSource) Close() error { return nil }
