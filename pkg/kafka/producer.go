package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// Keyed is implemented by payloads that choose their own partition key
type Keyed interface {
	Key() string
}

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	DefaultTopic   string
	ProduceTimeout time.Duration
}

// Producer publishes JSON payloads with franz-go
type Producer struct {
	client  *kgo.Client
	timeout time.Duration
	topic   string
}

// NewProducer creates a producer and verifies broker reachability
func NewProducer(ctx context.Context, cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.DefaultTopic != "" {
		opts = append(opts, kgo.DefaultProduceTopic(cfg.DefaultTopic))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka brokers: %w", err)
	}

	timeout := cfg.ProduceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Producer{client: client, timeout: timeout, topic: cfg.DefaultTopic}, nil
}

// BuildRecord encodes payload as a JSON record. An empty topic falls back to the default topic.
func BuildRecord(topic string, payload interface{}, headers map[string]string) (*kgo.Record, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	rec := &kgo.Record{Topic: topic, Value: value}
	if k, ok := payload.(Keyed); ok {
		rec.Key = []byte(k.Key())
	}
	for name, v := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: name, Value: []byte(v)})
	}
	return rec, nil
}

// Publish synchronously produces payload to topic
func (p *Producer) Publish(ctx context.Context, topic string, payload interface{}, headers map[string]string) error {
	rec, err := BuildRecord(topic, payload, headers)
	if err != nil {
		return err
	}
	if rec.Topic == "" && p.topic == "" {
		return errors.New("kafka: no topic for record")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", rec.Topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the client
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
