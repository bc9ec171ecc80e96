package dns

import (
	"context"
	"fmt"
	"hash/fnv" // FNV-1a: A fast, non-cryptographic hash function
	"sync"
	"time"

	"github.com/proxyd/proxyd/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// cacheShard is a single, thread-safe partition of the cache.
type cacheShard struct {
	records map[string]AddressRecord
	mu      sync.RWMutex
}

type CacheAttrs struct {
	NumOfShards uint8
	// Coalesce makes lookup-and-store atomic per host: concurrent misses on
	// the same host share one lookup instead of racing to replace the record.
	Coalesce bool
}

// Cache maps hosts to their most recent AddressRecord. It is safe for
// concurrent use and is meant to be shared by every connection handler.
//
// Records are never evicted; a host that is not requested again keeps its
// last record for the lifetime of the cache.
type Cache struct {
	logger zerolog.Logger

	lookuper Lookuper
	shards   []*cacheShard
	group    *singleflight.Group
	now      func() time.Time
}

func NewCache(
	logger zerolog.Logger,
	lookuper Lookuper,
	attrs CacheAttrs,
) *Cache {
	if attrs.NumOfShards == 0 {
		panic(
			fmt.Errorf("number of shards must be greater than 0, got %d", attrs.NumOfShards),
		)
	}

	c := &Cache{
		logger:   logger,
		lookuper: lookuper,
		shards:   make([]*cacheShard, attrs.NumOfShards),
		now:      time.Now,
	}

	for i := range attrs.NumOfShards {
		c.shards[i] = &cacheShard{records: make(map[string]AddressRecord)}
	}

	if attrs.Coalesce {
		c.group = &singleflight.Group{}
	}

	return c
}

func (c *Cache) getShard(host string) *cacheShard {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(host))
	return c.shards[hasher.Sum64()%uint64(len(c.shards))]
}

// Resolve returns the address of host, served from a live record when one
// exists. Otherwise it performs a lookup and replaces the stored record.
//
// Without coalescing, the check and the replace are separate steps: racing
// misses may each look up and store, and the last write wins.
func (c *Cache) Resolve(ctx context.Context, host string) (string, error) {
	logger := logging.WithLocalScope(ctx, c.logger, "cache")

	if rec, ok := c.Get(host); ok && rec.IsLive(c.now()) {
		logger.Trace().Str("addr", rec.Address).Msg("hit")
		return rec.Address, nil
	}

	logger.Trace().Str("next", c.lookuper.Info()).Msg("miss")

	if c.group == nil {
		return c.lookupAndStore(ctx, logger, host)
	}

	v, err, shared := c.group.Do(host, func() (any, error) {
		// A flight started after another one stored a fresh record must not
		// look up again.
		if rec, ok := c.Get(host); ok && rec.IsLive(c.now()) {
			return rec.Address, nil
		}

		return c.lookupAndStore(ctx, logger, host)
	})
	if err != nil {
		return "", err
	}

	if shared {
		logger.Trace().Msg("shared lookup")
	}

	return v.(string), nil
}

func (c *Cache) lookupAndStore(
	ctx context.Context,
	logger zerolog.Logger,
	host string,
) (string, error) {
	addr, err := c.lookuper.Lookup(ctx, host)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrResolution, host, err)
	}

	if addr == "" {
		return "", fmt.Errorf("%w for %s: empty answer", ErrResolution, host)
	}

	c.store(AddressRecord{Host: host, Address: addr, ResolvedAt: c.now()})
	logger.Trace().Str("addr", addr).Msg("set")

	return addr, nil
}

// store replaces any record held for rec.Host.
func (c *Cache) store(rec AddressRecord) {
	shard := c.getShard(rec.Host)
	shard.mu.Lock()
	shard.records[rec.Host] = rec
	shard.mu.Unlock()
}

// Get returns the stored record for host regardless of its liveness.
func (c *Cache) Get(host string) (AddressRecord, bool) {
	shard := c.getShard(host)
	shard.mu.RLock()
	rec, ok := shard.records[host]
	shard.mu.RUnlock()

	return rec, ok
}

// Len returns the number of hosts held by the cache.
func (c *Cache) Len() int {
	n := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		n += len(shard.records)
		shard.mu.RUnlock()
	}

	return n
}
