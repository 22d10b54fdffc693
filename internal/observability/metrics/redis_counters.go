package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
)

const (
	// DefaultCounterKeyPrefix namespaces per-plugin hashes: <prefix><plugin name>.
	DefaultCounterKeyPrefix = "metrics:plugins:"
	// DefaultFlushInterval is how often in-memory deltas are written to Redis.
	DefaultFlushInterval = 10 * time.Second

	fieldSuccess = "success"
	fieldFailure = "failure"
	fieldGroup   = "group"
	fieldType    = "type"
	fieldUpdated = "updated_at"
)

// PluginCounter is the persisted success/failure tally for one plugin.
type PluginCounter struct {
	Plugin    model.PluginIdentity `json:"plugin"`
	Success   int64                `json:"success"`
	Failure   int64                `json:"failure"`
	UpdatedAt time.Time            `json:"updated_at,omitzero"`
}

// RedisCountersOptions configures RedisCounters.
type RedisCountersOptions struct {
	Client redis.UniversalClient // Required
	Logger *slog.Logger
	Config RedisCountersConfig
}

// RedisCountersConfig tunes key layout and flush cadence.
type RedisCountersConfig struct {
	KeyPrefix     string
	FlushInterval time.Duration
}

type counterPair struct {
	id      model.PluginIdentity
	success atomic.Int64
	failure atomic.Int64
}

// RedisCounters keeps per-plugin counters in memory and periodically adds the
// deltas to Redis hashes with HINCRBY, so several router instances share one
// tally. Recording never touches the network.
type RedisCounters struct {
	client   redis.UniversalClient
	logger   *slog.Logger
	prefix   string
	interval time.Duration

	mu       sync.RWMutex
	counters map[model.PluginIdentity]*counterPair

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

var _ core.PluginMetrics = (*RedisCounters)(nil)

// NewRedisCounters constructs RedisCounters. It panics if Client is nil.
func NewRedisCounters(opts RedisCountersOptions) *RedisCounters {
	if opts.Client == nil {
		panic("redis counters: client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := opts.Config.KeyPrefix
	if prefix == "" {
		prefix = DefaultCounterKeyPrefix
	}
	interval := opts.Config.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &RedisCounters{
		client:   opts.Client,
		logger:   logger.With("component", "redis_counters"),
		prefix:   prefix,
		interval: interval,
		counters: make(map[model.PluginIdentity]*counterPair),
		stopCh:   make(chan struct{}),
	}
}

// RecordSuccess implements core.PluginMetrics.
func (c *RedisCounters) RecordSuccess(id model.PluginIdentity) { c.pair(id).success.Add(1) }

// RecordFailure implements core.PluginMetrics.
func (c *RedisCounters) RecordFailure(id model.PluginIdentity) { c.pair(id).failure.Add(1) }

func (c *RedisCounters) pair(id model.PluginIdentity) *counterPair {
	c.mu.RLock()
	p, ok := c.counters[id]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok = c.counters[id]; ok {
		return p
	}
	p = &counterPair{id: id}
	c.counters[id] = p
	return p
}

// Start flushes pending deltas every interval until ctx is done or Stop is called.
func (c *RedisCounters) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.finalFlush()
				return
			case <-c.stopCh:
				c.finalFlush()
				return
			case <-ticker.C:
				if err := c.Flush(ctx); err != nil {
					c.logger.WarnContext(ctx, "flush plugin counters failed", "error", err)
				}
			}
		}
	}()
}

func (c *RedisCounters) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("final flush of plugin counters failed", "error", err)
	}
}

// Stop ends the flush loop after a last flush. It is safe to call more than once.
func (c *RedisCounters) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Flush writes pending deltas to Redis. Deltas that fail to write are put back.
func (c *RedisCounters) Flush(ctx context.Context) error {
	type delta struct {
		pair             *counterPair
		success, failure int64
	}

	c.mu.RLock()
	deltas := make([]delta, 0, len(c.counters))
	for _, p := range c.counters {
		d := delta{pair: p, success: p.success.Swap(0), failure: p.failure.Swap(0)}
		if d.success != 0 || d.failure != 0 {
			deltas = append(deltas, d)
		}
	}
	c.mu.RUnlock()

	if len(deltas) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range deltas {
			key := c.key(d.pair.id.Name)
			if d.success != 0 {
				pipe.HIncrBy(ctx, key, fieldSuccess, d.success)
			}
			if d.failure != 0 {
				pipe.HIncrBy(ctx, key, fieldFailure, d.failure)
			}
			pipe.HSet(ctx, key, fieldGroup, d.pair.id.Group, fieldType, d.pair.id.Type, fieldUpdated, now)
		}
		return nil
	})
	if err != nil {
		for _, d := range deltas {
			d.pair.success.Add(d.success)
			d.pair.failure.Add(d.failure)
		}
		return fmt.Errorf("redis counters flush: %w", err)
	}
	return nil
}

// Snapshot reads every plugin hash under the key prefix, sorted by plugin name.
func (c *RedisCounters) Snapshot(ctx context.Context) ([]PluginCounter, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis counters scan: %w", err)
	}

	out := make([]PluginCounter, 0, len(keys))
	for _, key := range keys {
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis counters read %s: %w", key, err)
		}
		out = append(out, parseCounter(key[len(c.prefix):], fields))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plugin.Name < out[j].Plugin.Name })
	return out, nil
}

func (c *RedisCounters) key(name string) string {
	return c.prefix + name
}

func parseCounter(name string, fields map[string]string) PluginCounter {
	pc := PluginCounter{
		Plugin: model.PluginIdentity{Name: name, Group: fields[fieldGroup], Type: fields[fieldType]},
	}
	pc.Success, _ = strconv.ParseInt(fields[fieldSuccess], 10, 64)
	pc.Failure, _ = strconv.ParseInt(fields[fieldFailure], 10, 64)
	if ts, err := time.Parse(time.RFC3339, fields[fieldUpdated]); err == nil {
		pc.UpdatedAt = ts
	}
	return pc
}
