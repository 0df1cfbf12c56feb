package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// ChannelPrefix namespaces per-user push channels
const ChannelPrefix = "rentrover:user:"

// NewRedisClient parses a redis:// URL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func userChannel(userID uuid.UUID) string {
	return ChannelPrefix + userID.String()
}

// RedisPusher publishes push events to the user's channel so that whichever
// API process holds the session can deliver it.
type RedisPusher struct {
	client redis.UniversalClient
}

func NewRedisPusher(client redis.UniversalClient) *RedisPusher {
	return &RedisPusher{client: client}
}

func (p *RedisPusher) Publish(ctx context.Context, userID uuid.UUID, event bids.PushEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal push event: %w", err)
	}
	if err := p.client.Publish(ctx, userChannel(userID), frame).Err(); err != nil {
		return fmt.Errorf("failed to publish push event: %w", err)
	}
	return nil
}

// RedisRelay forwards events from the per-user channels to the local hub
type RedisRelay struct {
	client redis.UniversalClient
	hub    *Hub
	logger *slog.Logger
}

func NewRedisRelay(client redis.UniversalClient, hub *Hub, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, logger: logger}
}

// Run blocks until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to push channels: %w", err)
	}
	r.logger.Info("Push relay subscribed", "pattern", ChannelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg)
		}
	}
}

func (r *RedisRelay) forward(msg *redis.Message) {
	userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, ChannelPrefix))
	if err != nil {
		r.logger.Warn("Ignoring push on unexpected channel", "channel", msg.Channel)
		return
	}
	r.hub.Deliver(userID, []byte(msg.Payload))
}

// LogPusher drops push events after logging them. Used when Redis is not configured.
type LogPusher struct {
	logger *slog.Logger
}

func NewLogPusher(logger *slog.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) Publish(ctx context.Context, userID uuid.UUID, event bids.PushEvent) error {
	p.logger.DebugContext(ctx, "Push event (redis disabled)", "user_id", userID, "type", event.Type)
	return nil
}
