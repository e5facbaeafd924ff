package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-booking/pkg/retry"
	"github.com/twmb/franz-go/pkg/kgo"
)

var ErrNoTopic = errors.New("kafka: message topic is required")

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers  []string
	ClientID string
	// MaxRetries and RetryInterval apply to the initial broker ping
	MaxRetries    int
	RetryInterval time.Duration
	// BatchSize caps records buffered per partition
	BatchSize int
	LingerMs  int
	// ProduceTimeout bounds a single synchronous produce
	ProduceTimeout time.Duration
}

// DefaultProducerConfig returns sane producer defaults
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ClientID:       "event-booking",
		MaxRetries:     3,
		RetryInterval:  time.Second,
		BatchSize:      100,
		LingerMs:       10,
		ProduceTimeout: 5 * time.Second,
	}
}

// Message is one record to publish
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Producer publishes records through a franz-go client
type Producer struct {
	client  *kgo.Client
	timeout time.Duration
}

// NewProducer creates a client and waits until a broker answers
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are required")
	}
	defaults := DefaultProducerConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	if cfg.ProduceTimeout <= 0 {
		cfg.ProduceTimeout = defaults.ProduceTimeout
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	}
	if cfg.LingerMs > 0 {
		opts = append(opts, kgo.ProducerLinger(time.Duration(cfg.LingerMs)*time.Millisecond))
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, kgo.MaxBufferedRecords(cfg.BatchSize*100))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}

	err = retry.Do(ctx, &retry.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInterval,
		MaxInterval:     4 * cfg.RetryInterval,
		Multiplier:      2.0,
	}, func(ctx context.Context) error {
		return client.Ping(ctx)
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: brokers unreachable: %w", err)
	}

	return &Producer{client: client, timeout: cfg.ProduceTimeout}, nil
}

// Produce publishes msg and waits for the broker acknowledgement
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	record, err := toRecord(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// ProduceJSON marshals value and publishes it under key
func (p *Producer) ProduceJSON(ctx context.Context, topic, key string, value interface{}, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}
	return p.Produce(ctx, &Message{
		Topic:     topic,
		Key:       []byte(key),
		Value:     data,
		Headers:   headers,
		Timestamp: time.Now(),
	})
}

// Close flushes buffered records and closes the client
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

func toRecord(msg *Message) (*kgo.Record, error) {
	if msg == nil || msg.Topic == "" {
		return nil, ErrNoTopic
	}

	record := &kgo.Record{
		Topic:     msg.Topic,
		Key:       msg.Key,
		Value:     msg.Value,
		Timestamp: msg.Timestamp,
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	for k, v := range msg.Headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return record, nil
}
