// Package cache keeps loaded payloads in memory and revalidates them against
// the modification time of the directory they were built from.
//
// Concurrency notes:
//   - At most one load runs per key. Callers that miss while a load is in
//     flight join it and receive the same value.
//   - The leader re-checks the entry after registering, so a caller that
//     missed just before another load settled does not parse again.
//   - The in-flight registration is released on success, error and panic.
//   - A caller whose ctx ends stops waiting; the load keeps running for the
//     other waiters and still populates the entry.
package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"nyassess/domain/core"
	"nyassess/internal"

	"golang.org/x/sync/singleflight"
)

// StatFunc returns a directory's modification stamp, 0 when the directory is
// missing or unreadable.
type StatFunc func(dir string) int64

// DirModTime is the StatFunc backed by os.Stat.
func DirModTime(dir string) int64 {
	fi, err := os.Stat(dir)
	if err != nil {
		return 0
	}
	return fi.ModTime().UnixNano()
}

// LoadFunc computes the value for a key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	stamp int64
	value V
}

// Options configures a Freshness cache. Zero fields take defaults.
type Options struct {
	Stat    StatFunc
	Metrics Metrics
	Logger  *internal.Logger
}

// Freshness is an mtime-validated, request-coalescing cache. Values handed
// out are shared between callers and must not be mutated.
type Freshness[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group

	stat    StatFunc
	metrics Metrics
	logger  *internal.Logger
}

// New creates an empty cache.
func New[V any](opts Options) *Freshness[V] {
	c := &Freshness[V]{
		entries: make(map[string]entry[V]),
		stat:    opts.Stat,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if c.stat == nil {
		c.stat = DirModTime
	}
	if c.metrics == nil {
		c.metrics = NoopMetrics{}
	}
	if c.logger == nil {
		c.logger = internal.DefaultLogger
	}
	return c
}

// Get returns the value cached under key if dir has not changed since it was
// stored; otherwise it joins or starts a load.
func (c *Freshness[V]) Get(ctx context.Context, key, dir string, load LoadFunc[V]) (V, error) {
	var zero V
	if v, ok := c.lookup(key, c.stat(dir)); ok {
		c.metrics.Hit(key)
		return v, nil
	}

	leader := false
	ch := c.group.DoChan(key, func() (interface{}, error) {
		leader = true
		return c.fill(ctx, key, dir, load)
	})

	select {
	case res := <-ch:
		if !leader {
			c.metrics.Coalesced(key)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// fill runs on the leader's goroutine while the key is registered as in flight.
func (c *Freshness[V]) fill(ctx context.Context, key, dir string, load LoadFunc[V]) (v interface{}, err error) {
	stamp := c.stat(dir)
	if cached, ok := c.lookup(key, stamp); ok {
		c.metrics.Hit(key)
		return cached, nil
	}
	c.metrics.Miss(key)

	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = core.NewComputationError(key, fmt.Errorf("panic: %v", r))
			v = nil
		}
		c.metrics.Loaded(key, time.Since(startTime), err)
		if err != nil {
			c.logger.Error("[Cache] load %s failed: %v", key, err)
		}
	}()

	value, err := load(context.WithoutCancel(ctx))
	if err != nil {
		if !core.IsInvalidArgument(err) && !core.IsComputationFailure(err) {
			err = core.NewComputationError(key, err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{stamp: stamp, value: value}
	c.mu.Unlock()

	c.logger.Debug("[Cache] stored %s (stamp %d) in %.2fms", key, stamp,
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return value, nil
}

func (c *Freshness[V]) lookup(key string, stamp int64) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.stamp != stamp {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops the entry for key so the next Get reloads it. An
// in-flight load is not affected.
func (c *Freshness[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Freshness[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
