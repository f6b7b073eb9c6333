package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestParseFromConfig(t *testing.T) {
	opts := ParseFromConfig(&config.Config{Redis: config.RedisConfig{Addr: "localhost:6379", DB: 2, Channel: "detections"}})

	assert.True(t, opts.Enabled())
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "detections", opts.Channel)
	assert.False(t, Options{}.Enabled())
}

func TestEncode(t *testing.T) {
	payload, err := encode("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", payload)

	payload, err = encode(map[string]int{"cat": 2})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"cat":2}`), payload)

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestNewConnectionUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewConnection(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func startRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("cannot start redis container: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	return endpoint
}

func TestPublishSubscribe(t *testing.T) {
	addr := startRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := NewConnection(ctx, Options{Addr: addr})
	require.NoError(t, err)

	client := NewRedisClient(rdb)
	defer client.Close()

	sub := client.Subscribe(ctx, "detections")
	defer sub.Close()

	// Wait for the subscription to be active before publishing.
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, "detections").Result()
		return err == nil && n["detections"] > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, client.Publish(ctx, "detections", map[string]int{"count": 3}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "detections", msg.Channel)
	assert.JSONEq(t, `{"count":3}`, msg.Payload)
}
