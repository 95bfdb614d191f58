// Package events publishes newly detected ownership chains for the downstream
// reveal and contact workflows.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"

	"chainlead/internal/chain/models"
	"chainlead/internal/platform/config"
	"chainlead/internal/platform/tracing"
)

// TypeChainDetected is the event type header and payload discriminator.
const TypeChainDetected = "ownership_chain.detected"

// ChainDetected is the JSON payload published per inserted chain.
type ChainDetected struct {
	Type                 string          `json:"type"`
	ChainID              string          `json:"chain_id"`
	SoldListingID        string          `json:"sold_listing_id,omitempty"`
	SoldAddress          string          `json:"sold_address"`
	SoldCity             string          `json:"sold_city"`
	SoldState            string          `json:"sold_state"`
	SoldZip              string          `json:"sold_zip"`
	BuyerName            string          `json:"buyer_name"`
	BuyerNameNormalized  string          `json:"buyer_name_normalized"`
	OwnedPropertyAddress string          `json:"owned_property_address"`
	OwnedPropertyCity    string          `json:"owned_property_city"`
	OwnedPropertyState   string          `json:"owned_property_state"`
	OwnedPropertyZip     string          `json:"owned_property_zip"`
	ConfidenceScore      int             `json:"confidence_score"`
	MatchSignals         map[string]bool `json:"match_signals"`
	DetectedAt           time.Time       `json:"detected_at"`
}

// NewChainDetected builds the event payload for chain.
func NewChainDetected(chain *models.OwnershipChain) ChainDetected {
	m := chain.Match
	return ChainDetected{
		Type:                 TypeChainDetected,
		ChainID:              chain.ID.String(),
		SoldListingID:        chain.SoldListingID,
		SoldAddress:          m.Sold.Street,
		SoldCity:             m.Sold.City,
		SoldState:            m.Sold.State,
		SoldZip:              m.Sold.Zip,
		BuyerName:            m.BuyerName,
		BuyerNameNormalized:  m.BuyerNameNormalized,
		OwnedPropertyAddress: m.Owned.Street,
		OwnedPropertyCity:    m.Owned.City,
		OwnedPropertyState:   m.Owned.State,
		OwnedPropertyZip:     m.Owned.Zip,
		ConfidenceScore:      m.ConfidenceScore,
		MatchSignals:         m.Signals,
		DetectedAt:           chain.CreatedAt.UTC(),
	}
}

// KafkaPublisher produces chain events to a Kafka topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.ChainsTopic),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: cfg.ChainsTopic}, nil
}

// EnsureTopic creates the chains topic if it does not exist.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	resp, err := kadm.NewClient(p.client).CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// PublishChainDetected synchronously produces one event keyed by the address pair.
func (p *KafkaPublisher) PublishChainDetected(ctx context.Context, chain *models.OwnershipChain) error {
	ctx, span := tracing.StartSpan(ctx, "events.PublishChainDetected",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("chain_id", chain.ID.String()),
	)
	defer span.End()

	value, err := json.Marshal(NewChainDetected(chain))
	if err != nil {
		return fmt.Errorf("encode chain event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(chain.Match.Sold.Street + "|" + chain.Match.Owned.Street),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(TypeChainDetected)},
		},
	}
	if tp := tracing.TraceParent(ctx); tp != "" {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: "traceparent", Value: []byte(tp)})
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("produce chain event: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

// PublishChainDetected does nothing.
func (Noop) PublishChainDetected(context.Context, *models.OwnershipChain) error {
	return nil
}
