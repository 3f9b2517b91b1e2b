package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/pkg/redis"
)

// ProductSelection is what the customer picked on the product page.
type ProductSelection struct {
	Fabric   string `json:"fabric"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Seed is the typed hand-off into a new order wizard.
type Seed struct {
	Fabric   string
	Quantity int
}

// SeedFrom falls back to the default fabric and a quantity of one for
// anything missing or not in the catalog.
func SeedFrom(sel *ProductSelection, c *catalog.Catalog) Seed {
	seed := Seed{Fabric: catalog.DefaultFabric, Quantity: 1}
	if sel == nil {
		return seed
	}
	if f, ok := c.Lookup(sel.Fabric); ok {
		seed.Fabric = f.Name
	}
	if sel.Quantity >= 1 {
		seed.Quantity = sel.Quantity
	}
	return seed
}

type Store interface {
	Read(ctx context.Context, key string) (*ProductSelection, error)
	Write(ctx context.Context, key string, sel ProductSelection) error
	Clear(ctx context.Context, key string) error
}

// RedisStore keeps one selection per session key for the session TTL.
type RedisStore struct {
	kv  redis.KV
	ttl time.Duration
}

func NewRedisStore(kv redis.KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

// Read returns nil without error when nothing was selected.
func (s *RedisStore) Read(ctx context.Context, key string) (*ProductSelection, error) {
	data, err := s.kv.Get(ctx, selectionKey(key))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}

	var sel ProductSelection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}
	return &sel, nil
}

func (s *RedisStore) Write(ctx context.Context, key string, sel ProductSelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	if err := s.kv.Set(ctx, selectionKey(key), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.kv.Del(ctx, selectionKey(key)); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}

func selectionKey(key string) string {
	return "selection:" + key
}
