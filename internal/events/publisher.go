// Package events fans committed ledger entries out to Kafka for
// downstream audit and analytics. Publishing is fire-and-forget after
// commit: the ledger itself is the source of truth, so delivery failures
// are logged and dropped.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/playvault/playvault/internal/domain"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishEntry(entry *domain.LedgerEntry)
}

type ledgerEvent struct {
	ID           int64          `json:"id"`
	UserID       int            `json:"user_id"`
	Type         string         `json:"type"`
	PointsDelta  int64          `json:"points_delta"`
	BalanceAfter int64          `json:"balance_after"`
	Meta         map[string]any `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
	}
	go p.drainErrors()
	return p, nil
}

func (p *KafkaPublisher) drainErrors() {
	for err := range p.producer.Errors() {
		zap.L().Error("ledger event delivery failed", zap.Error(err))
	}
}

func (p *KafkaPublisher) PublishEntry(entry *domain.LedgerEntry) {
	if entry == nil {
		return
	}
	payload, err := json.Marshal(ledgerEvent{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Type:         entry.Type,
		PointsDelta:  entry.PointsDelta,
		BalanceAfter: entry.BalanceAfter,
		Meta:         entry.Meta,
		CreatedAt:    entry.CreatedAt,
	})
	if err != nil {
		zap.L().Error("can't encode ledger event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(entry.UserID)),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case p.producer.Input() <- msg:
	default:
		zap.L().Warn("ledger event dropped, producer backlogged", zap.Int64("entry_id", entry.ID))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishEntry(*domain.LedgerEntry) {}
