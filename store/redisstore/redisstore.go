// Package redisstore is a concrete store.Store adapter backed by Redis
// pub/sub, offered as the reference "out of scope... only the interface is
// required" adapter (spec §1). It is not imported by any core package;
// embedding programs opt in explicitly.
//
// Grounded on pgollucci-loom's go.mod dependency on github.com/redis/go-redis/v9
// (the concrete client package is not present in that repo's retrieved
// files, so usage here follows the go-redis v9 public API directly).
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/igniter-go/igniter/store"
)

// Store adapts a *redis.Client to store.Store.
type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Publish(ctx context.Context, channel string, message []byte) error {
	return s.client.Publish(ctx, channel, message).Err()
}

func (s *Store) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := s.client.Subscribe(ctx, channel)

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var _ store.Store = (*Store)(nil)
