package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// redisBackend stores scope entries in Redis/Valkey, JSON-marshaling values
// and relying on the server's own PX expiry instead of client-side TTL
// bookkeeping. Adapted from the teacher's JSON-marshal-with-PX-ttl Store and
// SCAN/UNLINK DeletePrefix pattern, reused here per scope via a key prefix
// instead of per decision-cache namespace.
type redisBackend struct {
	client valkey.Client
	prefix string
}

func newRedisBackend(client valkey.Client, prefix string) *redisBackend {
	return &redisBackend{client: client, prefix: prefix}
}

func (b *redisBackend) namespaced(key string) string {
	return b.prefix + ":" + key
}

func (b *redisBackend) get(key string) (any, bool) {
	ctx := context.Background()
	resp := b.client.Do(ctx, b.client.B().Get().Key(b.namespaced(key)).Build())
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return nil, false
		}
		return nil, false
	}
	payload, err := resp.AsBytes()
	if err != nil {
		return nil, false
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (b *redisBackend) put(key string, value any, ttl time.Duration) {
	ctx := context.Background()
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	cmd := b.client.B().Set().Key(b.namespaced(key)).Value(string(payload))
	if ttl > 0 {
		b.client.Do(ctx, cmd.Px(ttl).Build())
		return
	}
	b.client.Do(ctx, cmd.Build())
}

func (b *redisBackend) remove(key string) {
	ctx := context.Background()
	b.client.Do(ctx, b.client.B().Unlink().Key(b.namespaced(key)).Build())
}

func (b *redisBackend) containsKey(key string) bool {
	ctx := context.Background()
	resp := b.client.Do(ctx, b.client.B().Exists().Key(b.namespaced(key)).Build())
	n, err := resp.ToInt64()
	return err == nil && n > 0
}

func (b *redisBackend) size() int {
	keys := b.scanKeys()
	return len(keys)
}

func (b *redisBackend) clear() {
	keys := b.scanKeys()
	if len(keys) == 0 {
		return
	}
	ctx := context.Background()
	b.client.Do(ctx, b.client.B().Unlink().Key(keys...).Build())
}

func (b *redisBackend) scanKeys() []string {
	ctx := context.Background()
	pattern := fmt.Sprintf("%s:*", b.prefix)
	var cursor uint64
	var out []string
	for {
		resp := b.client.Do(ctx, b.client.B().Scan().Cursor(cursor).Match(pattern).Count(200).Build())
		entry, err := resp.AsScanEntry()
		if err != nil {
			return out
		}
		out = append(out, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}
	return out
}
