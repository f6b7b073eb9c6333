package pubsub

import "context"

type Message struct {
	Channel string
	Payload string
}

type PubSub interface {
	ReceiveMessage(ctx context.Context) (Message, error)
	Close() error
}

// Publisher sends a message to every subscriber of channel. Strings and
// byte slices are sent as is, anything else is encoded as JSON.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

type Service interface {
	Publisher
	Subscribe(ctx context.Context, channel string) PubSub
}
