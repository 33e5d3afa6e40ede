package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	addressSetKey = "stablecoins:addresses"
	addressSetTTL = 5 * time.Minute
)

// StablecoinSet caches the known stablecoin address set so every
// aggregation pass does not re-query the store. Cache misses and redis
// failures both report ok=false; callers fall back to the store.
type StablecoinSet struct {
	cli *redis.Client
}

func NewStablecoinSet(url string) (*StablecoinSet, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &StablecoinSet{cli: redis.NewClient(opts)}, nil
}

func (s *StablecoinSet) Close() error {
	return s.cli.Close()
}

// Get returns the cached address set. ok=false means absent or
// unreachable, never an empty set: an empty known set is representable
// only by falling through to the store.
func (s *StablecoinSet) Get(ctx context.Context) ([]string, bool) {
	addrs, err := s.cli.SMembers(ctx, addressSetKey).Result()
	if err != nil || len(addrs) == 0 {
		return nil, false
	}
	return addrs, true
}

// Set replaces the cached address set.
func (s *StablecoinSet) Set(ctx context.Context, addresses []string) error {
	if len(addresses) == 0 {
		return s.cli.Del(ctx, addressSetKey).Err()
	}

	members := make([]interface{}, len(addresses))
	for i, addr := range addresses {
		members[i] = addr
	}

	pipe := s.cli.TxPipeline()
	pipe.Del(ctx, addressSetKey)
	pipe.SAdd(ctx, addressSetKey, members...)
	pipe.Expire(ctx, addressSetKey, addressSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate drops the cached set. Called after a new detection so the
// next aggregation pass sees the new address immediately.
func (s *StablecoinSet) Invalidate(ctx context.Context) error {
	return s.cli.Del(ctx, addressSetKey).Err()
}
