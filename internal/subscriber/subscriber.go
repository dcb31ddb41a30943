package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/redis/go-redis/v9"
	"log/slog"
	"supmap-tracker/internal/navigation"
)

// LocationSink receives the location samples read from the channel.
type LocationSink interface {
	OnLocationUpdated(p navigation.Point)
}

// Subscriber forwards the location samples published on a Redis channel
// to the gps tracker.
type Subscriber struct {
	logger *slog.Logger
	client *redis.Client
	topic  string
	sink   LocationSink
}

func NewSubscriber(logger *slog.Logger, client *redis.Client, topic string, sink LocationSink) *Subscriber {
	return &Subscriber{
		logger: logger,
		client: client,
		topic:  topic,
		sink:   sink,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("Redis subscriber is running", "topic", s.topic)
	pubsub := s.client.Subscribe(ctx, s.topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	msgCh := pubsub.Channel()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				s.logger.Warn("pubsub channel closed by Redis")
				return nil
			}
			if err := s.handleMessage(msg); err != nil {
				s.logger.Error("error handling message", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("shutting down Redis subscriber")
			return nil
		}
	}
}

func (s *Subscriber) handleMessage(msg *redis.Message) error {
	s.logger.Debug("received message", "channel", msg.Channel, "payload", msg.Payload)

	var sample LocationMessage
	if err := json.Unmarshal([]byte(msg.Payload), &sample); err != nil {
		return fmt.Errorf("unmarshalling location: %w", err)
	}
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}

	s.sink.OnLocationUpdated(sample.Point())
	return nil
}
