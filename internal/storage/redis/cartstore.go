// Package redis persists per-session cart state in Redis, one key per
// concern so the item list, shipping address, and payment method can be
// written independently.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on Redis. Values are best-effort: a
// corrupt value is deleted and replaced by the zero value on load, so the
// worst case for the buyer is an empty cart. Writes are last-writer-wins
// across tabs and sessions.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a CartStore. ttl bounds how long an idle cart
// survives; zero means no expiry.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// NewClient connects a go-redis client from a redis:// URL.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

func itemsKey(sid string) string    { return "cart:" + sid + ":items" }
func shippingKey(sid string) string { return "cart:" + sid + ":shipping" }
func paymentKey(sid string) string  { return "cart:" + sid + ":payment" }

// Load assembles the persisted cart for a session. Missing keys load as
// zero values; corrupt keys are dropped with a warning.
func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	c := &cart.Cart{}

	if b, err := s.get(ctx, itemsKey(sessionID)); err != nil {
		return nil, err
	} else if b != nil {
		items, err := decodeItems(b)
		if err != nil {
			s.dropCorrupt(ctx, itemsKey(sessionID), err)
		} else {
			c.Items = items
		}
	}

	if b, err := s.get(ctx, shippingKey(sessionID)); err != nil {
		return nil, err
	} else if b != nil {
		addr, err := decodeAddress(b)
		if err != nil {
			s.dropCorrupt(ctx, shippingKey(sessionID), err)
		} else {
			c.ShippingAddress = addr
		}
	}

	if b, err := s.get(ctx, paymentKey(sessionID)); err != nil {
		return nil, err
	} else if b != nil {
		c.PaymentMethod = string(b)
	}

	return c, nil
}

// get returns nil bytes without error when the key does not exist.
func (s *CartStore) get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get %s", key)
	}
	return b, nil
}

// dropCorrupt deletes an undecodable key so the next load starts clean.
func (s *CartStore) dropCorrupt(ctx context.Context, key string, cause error) {
	zctx.From(ctx).Warn("Dropping corrupt cart key",
		zap.String("key", key), zap.Error(cause))
	if err := s.client.Del(ctx, key).Err(); err != nil {
		zctx.From(ctx).Warn("Failed to delete corrupt cart key",
			zap.String("key", key), zap.Error(err))
	}
}

// SaveItems overwrites the persisted item list.
func (s *CartStore) SaveItems(ctx context.Context, sessionID string, items []cart.Item) error {
	if len(items) == 0 {
		// An empty list and a missing key load identically; keep the
		// keyspace clean.
		if err := s.client.Del(ctx, itemsKey(sessionID)).Err(); err != nil {
			return errors.Wrap(err, "delete cart items")
		}
		return nil
	}
	if err := s.client.Set(ctx, itemsKey(sessionID), encodeItems(items), s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set cart items")
	}
	return nil
}

// SaveShippingAddress overwrites the persisted shipping address.
func (s *CartStore) SaveShippingAddress(ctx context.Context, sessionID string, addr cart.Address) error {
	if err := s.client.Set(ctx, shippingKey(sessionID), encodeAddress(addr), s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set shipping address")
	}
	return nil
}

// SavePaymentMethod overwrites the persisted payment method.
func (s *CartStore) SavePaymentMethod(ctx context.Context, sessionID, method string) error {
	if err := s.client.Set(ctx, paymentKey(sessionID), method, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set payment method")
	}
	return nil
}

// Clear removes the item list. Shipping address and payment method are
// session preferences and survive checkout.
func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, itemsKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
