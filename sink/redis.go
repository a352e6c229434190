package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/logging"
	"github.com/matt-g-everett/ledmotion/value"
)

// Redis mirrors properties into hashes, one per target:
//
//	HSET <prefix><target> <property> <value>
//
// Writes are buffered and handed over once per engine frame, so Redis must
// also be registered as an engine Observer. Run sends them.
type Redis struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	log     *slog.Logger
	batches chan map[key]value.Value

	mu      sync.Mutex
	cache   map[key]value.Value
	pending map[key]value.Value
}

type RedisOption func(*Redis)

// WithPrefix sets the hash key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithTimeout bounds each round trip.
func WithTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.timeout = d
	}
}

func WithLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.log = l
	}
}

// NewRedis connects to a Redis server.
func NewRedis(address, password string, db int, opts ...RedisOption) *Redis {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		prefix:  "ledmotion:",
		timeout: time.Second,
		log:     logging.NewNop(),
		cache:   make(map[key]value.Value),
		pending: make(map[key]value.Value),
		batches: make(chan map[key]value.Value, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(target anim.Target) string {
	return r.prefix + fmt.Sprint(target)
}

// Read returns the last value written, or the one stored in Redis.
func (r *Redis) Read(target anim.Target, property string) (any, bool) {
	r.mu.Lock()
	v, ok := r.cache[key{target, property}]
	r.mu.Unlock()
	if ok {
		return v.Clone(), true
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	s, err := r.client.HGet(ctx, r.key(target), property).Result()
	if err != nil {
		if !errors.Is(err, backend.Nil) {
			r.log.Warn("redis read failed", "target", target, "property", property, "error", err)
		}
		return nil, false
	}
	return s, true
}

func (r *Redis) Write(target anim.Target, property string, v value.Value) {
	k := key{target, property}
	r.mu.Lock()
	r.cache[k] = v.Clone()
	r.pending[k] = v.Clone()
	r.mu.Unlock()
}

// Observe hands the writes buffered during the frame to Run. While Run is
// still busy with an earlier batch they stay pending for the next frame.
func (r *Redis) Observe(anim.TickStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return
	}
	select {
	case r.batches <- r.pending:
		r.pending = make(map[key]value.Value)
	default:
	}
}

// Run sends the batches handed over by Observe until ctx ends, then
// flushes whatever is left.
func (r *Redis) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case batch := <-r.batches:
				r.merge(batch)
			default:
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if err := r.Flush(flushCtx); err != nil {
				r.log.Warn("redis flush failed", "error", err)
			}
			return ctx.Err()
		case batch := <-r.batches:
			sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
			err := r.send(sendCtx, batch)
			cancel()
			if err != nil {
				r.log.Warn("redis flush failed", "error", err)
			}
		}
	}
}

// merge puts a batch back under the pending writes, which are newer.
func (r *Redis) merge(batch map[key]value.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range batch {
		if _, ok := r.pending[k]; !ok {
			r.pending[k] = v
		}
	}
}

// Flush sends every buffered write in one pipeline.
func (r *Redis) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[key]value.Value)
	r.mu.Unlock()
	return r.send(ctx, pending)
}

func (r *Redis) send(ctx context.Context, batch map[key]value.Value) error {
	if len(batch) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for k, v := range batch {
		pipe.HSet(ctx, r.key(k.target), k.property, v.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
