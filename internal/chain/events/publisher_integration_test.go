//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"chainlead/internal/chain/events"
	"chainlead/internal/chain/models"
	"chainlead/internal/platform/config"
	"chainlead/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda  *containers.RedpandaContainer
	publisher *events.KafkaPublisher
	topic     string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.topic = "ownership-chains.detected.test"

	publisher, err := events.NewKafkaPublisher(config.KafkaConfig{Brokers: s.redpanda.Brokers, ChainsTopic: s.topic})
	s.Require().NoError(err)
	s.publisher = publisher

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(s.publisher.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(s.publisher.EnsureTopic(ctx, 1, 1), "second create is a no-op")
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *KafkaPublisherSuite) TestPublishChainDetected() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	match, err := models.NewChainMatch(
		models.Address{Street: "12 Oak St", City: "Austin", State: "TX", Zip: "78701"},
		models.BuyerInfo{BuyerName: "Jane Doe"},
		models.Address{Street: "9 Elm St", City: "Dallas", State: "TX", Zip: "75201"},
		70,
		map[string]bool{"exactNameMatch": true, "mailingMismatch": true, "sameState": true},
	)
	s.Require().NoError(err)
	chain := models.NewOwnershipChain(*match, "L-7", time.Now())

	s.Require().NoError(s.publisher.PublishChainDetected(ctx, chain))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var event events.ChainDetected
	s.Require().NoError(json.Unmarshal(records[0].Value, &event))
	s.Equal(chain.ID.String(), event.ChainID)
	s.Equal("L-7", event.SoldListingID)
	s.Equal("12 Oak St|9 Elm St", string(records[0].Key))
}
