// Package export mirrors audit entries onto a Kafka topic for downstream
// consumers (compliance archiving, anomaly detection). The in-schema audit
// log remains the source of truth; export is best effort and never blocks
// or fails the request that produced the entry.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"hearth/internal/audit"
	id "hearth/pkg/domain"
)

// envelope is the exported record shape. The household identifier rides
// along explicitly since entries inside a schema don't carry it.
type envelope struct {
	HouseholdID string      `json:"household_id"`
	Entry       audit.Entry `json:"entry"`
}

// Publisher produces audit entries to a single topic, keyed by household so
// one household's entries stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Publish enqueues one entry asynchronously. Delivery failures are logged
// and dropped; the caller has already durably written the entry.
func (p *Publisher) Publish(ctx context.Context, householdID id.HouseholdID, e audit.Entry) {
	payload, err := json.Marshal(envelope{HouseholdID: householdID.String(), Entry: e})
	if err != nil {
		p.logger.Warn("audit export serialization failed", "error", err, "entry_id", e.ID.String())
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(householdID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit export delivery failed",
				"error", err,
				"entry_id", e.ID.String(),
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return fmt.Errorf("flush audit export: %w", err)
	}
	p.client.Close()
	return nil
}
