package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

const dialTimeout = 5 * time.Second

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to the Redis named by REDIS_ADDR and bridges event
// messages over the REDIS_CHANNEL pub/sub channel. Callers decide whether a
// missing address means "disabled" or "misconfigured".
func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: dialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("component", "RedisEventBus"),
		rdb:     rdb,
		channel: envutil.String("REDIS_CHANNEL", "ml-events"),
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg types.EventMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the bridge channel and hands every decoded
// message to onMsg from a dedicated goroutine until ctx ends. The initial
// Receive confirms the subscription is live before this returns.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m types.EventMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		frames := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok || frame == nil {
					return
				}
				b.deliver(frame.Payload, onMsg)
			}
		}
	}()
	return nil
}

func (b *redisBus) deliver(payload string, onMsg func(m types.EventMessage)) {
	var msg types.EventMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.log.Warn("bad event payload on bridge channel", "error", err)
		return
	}
	onMsg(msg)
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
