package entity

import "context"

// Publisher prepares the stream it publishes ticks into.
type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

// Subscriber binds to its durable consumer and releases it on shutdown.
type Subscriber interface {
	JetstreamEventSubscribe(ctx context.Context) error
	Close() error
}
