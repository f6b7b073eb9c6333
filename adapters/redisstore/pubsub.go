package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SeaCloudHub/objdetect/domain/pubsub"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	rdb *redis.Client
}

type RedisPubSub struct {
	rps *redis.PubSub
}

func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func (r *RedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := encode(message)
	if err != nil {
		return err
	}

	if err := r.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	return nil
}

func (r *RedisClient) Subscribe(ctx context.Context, channel string) pubsub.PubSub {
	return &RedisPubSub{rps: r.rdb.Subscribe(ctx, channel)}
}

func (r *RedisClient) Close() error {
	return r.rdb.Close()
}

func (r *RedisPubSub) ReceiveMessage(ctx context.Context) (pubsub.Message, error) {
	msg, err := r.rps.ReceiveMessage(ctx)
	if err != nil {
		return pubsub.Message{}, err
	}

	return pubsub.Message{
		Channel: msg.Channel,
		Payload: msg.Payload,
	}, nil
}

func (r *RedisPubSub) Close() error {
	return r.rps.Close()
}

func encode(message interface{}) (interface{}, error) {
	switch m := message.(type) {
	case string, []byte:
		return m, nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return payload, nil
}
