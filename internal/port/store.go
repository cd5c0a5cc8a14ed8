package port

import (
	"context"
	"time"
)

// MessageHandler receives the raw payload of one published message.
type MessageHandler func(payload string)

// Subscription is a handle to one registered handler on one channel.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}

// Store is the capability surface the chat core needs from its backing
// store: string keys, ordered lists with an atomic push+trim, key expiry,
// and publish/subscribe channels. The production implementation is Redis;
// tests inject an in-memory implementation.
type Store interface {
	// Get returns the value at key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetNX writes the value only if the key does not exist and reports
	// whether the write happened.
	SetNX(ctx context.Context, key, value string) (bool, error)

	// LRange returns list elements between start and stop inclusive; a stop
	// of -1 addresses the last element.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	// LRem removes every occurrence of value from the list. A list that
	// becomes empty ceases to exist.
	LRem(ctx context.Context, key, value string) error
	// PushTrim prepends value and trims the list to at most limit elements,
	// as one atomic unit.
	PushTrim(ctx context.Context, key, value string, limit int64) error

	Exists(ctx context.Context, key string) (bool, error)
	// Persist clears any pending expiry on the given keys atomically.
	Persist(ctx context.Context, keys ...string) error
	// Expire schedules the given keys to be removed after ttl. A ttl of zero
	// or less removes them immediately.
	Expire(ctx context.Context, ttl time.Duration, keys ...string) error

	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string, handler MessageHandler) (Subscription, error)

	Close() error
}
