// Package kafkabroker implements transport.Broker on top of franz-go,
// grounded on the Kafka adapter wiring sketched in
// services/kafka/internal/adapters/apache/client.go and the franz-go
// dependency carried (indirectly) by services/bifrost. Response and
// acknowledge queues are per-origin topics ("response.{originId}",
// "acknowledge.{originId}"), consumed from the tail only — spec §4.6 calls
// these non-durable, non-persistent: a dead origin's backlog is allowed to
// be lost, the caller will simply time out.
package kafkabroker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// topicPartitions/topicReplicationFactor are the auto-created defaults for
// an origin's response/acknowledge topics. These queues are non-durable
// scratch space (spec §4.6) — one partition and a single replica, so
// in-flight traffic on a broker that restarts can be lost.
const (
	topicPartitions        = 1
	topicReplicationFactor = 1
)

var _ transport.Broker = (*Broker)(nil)

func responseTopic(originId string) string {
	return "response." + originId
}

func acknowledgeTopic(originId string) string {
	return "acknowledge." + originId
}

// Broker is a franz-go backed transport.Broker.
type Broker struct {
	seeds []string
	prod  *kgo.Client
	admin *kadm.Client
}

// New creates a broker that produces against the given seed brokers.
// Consumers are created lazily per origin in ConsumeResponses/
// ConsumeAcknowledges, each with its own client bound to a single topic.
func New(seeds ...string) (*Broker, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(seeds...))
	if err != nil {
		return nil, fmt.Errorf("kafkabroker: new producer client: %w", err)
	}
	return &Broker{seeds: seeds, prod: client, admin: kadm.NewClient(client)}, nil
}

// ensureTopic creates topic if it doesn't already exist. An origin's
// response/acknowledge topics are named after its originId, so they can't
// be provisioned up front — the first publish or consume for a new origin
// creates them on demand instead of relying on broker auto-creation
// (which most production clusters disable).
func (b *Broker) ensureTopic(ctx context.Context, topic string) error {
	resp, err := b.admin.CreateTopics(ctx, topicPartitions, topicReplicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("kafkabroker: create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafkabroker: create topic %s: %w", topic, t.Err)
		}
	}
	return nil
}

// Close releases the producer client.
func (b *Broker) Close() {
	b.prod.Close()
}

func (b *Broker) publish(ctx context.Context, topic string, payload any) error {
	if err := b.ensureTopic(ctx, topic); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafkabroker: encode: %w", err)
	}
	record := &kgo.Record{Topic: topic, Value: body}
	results := b.prod.ProduceSync(ctx, record)
	return results.FirstErr()
}

// PublishResponse implements transport.Broker.
func (b *Broker) PublishResponse(ctx context.Context, originId string, resp *relaytypes.TargetResponse) error {
	return b.publish(ctx, responseTopic(originId), resp)
}

// PublishAcknowledge implements transport.Broker.
func (b *Broker) PublishAcknowledge(ctx context.Context, originId string, ack *relaytypes.AcknowledgeRequest) error {
	return b.publish(ctx, acknowledgeTopic(originId), ack)
}

func (b *Broker) consume(ctx context.Context, topic string, decode func([]byte) error) error {
	if err := b.ensureTopic(ctx, topic); err != nil {
		return err
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return fmt.Errorf("kafkabroker: new consumer client for %s: %w", topic, err)
	}
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, fetchErr := range fetches.Errors() {
			if fetchErr.Err != nil {
				// Decoding/transport errors on one partition must not crash
				// the consumer loop — they are skipped without logging (spec §7
				// DecodingError).
				continue
			}
		}
		fetches.EachRecord(func(record *kgo.Record) {
			if err := decode(record.Value); err != nil {
				// Malformed frame: drop it, per spec §7 DecodingError policy.
				return
			}
		})
	}
}

// ConsumeResponses implements transport.Broker.
func (b *Broker) ConsumeResponses(ctx context.Context, originId string, handler func(*relaytypes.TargetResponse)) error {
	return b.consume(ctx, responseTopic(originId), func(raw []byte) error {
		var resp relaytypes.TargetResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		handler(&resp)
		return nil
	})
}

// ConsumeAcknowledges implements transport.Broker.
func (b *Broker) ConsumeAcknowledges(ctx context.Context, originId string, handler func(*relaytypes.AcknowledgeRequest)) error {
	return b.consume(ctx, acknowledgeTopic(originId), func(raw []byte) error {
		var ack relaytypes.AcknowledgeRequest
		if err := json.Unmarshal(raw, &ack); err != nil {
			return err
		}
		handler(&ack)
		return nil
	})
}
