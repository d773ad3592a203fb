package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// CachedStatus is the projection kept per order.
type CachedStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatusCache struct{ RDB *redis.Client }

func (c *StatusCache) Get(ctx context.Context, orderID int64) (CachedStatus, bool, error) {
	var cs CachedStatus
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cs, false, nil
	}
	if err != nil {
		return cs, false, err
	}
	if err := json.Unmarshal(b, &cs); err != nil {
		return cs, false, fmt.Errorf("decode cached status for order %d: %w", orderID, err)
	}
	return cs, true, nil
}

// setIfNewer compares versions and writes in one server-side step. Entries
// without a version are always replaced.
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, doc = pcall(cjson.decode, cur)
  if ok and type(doc) == 'table' and type(doc.v) == 'number' and doc.v > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// storedStatus carries the version the script compares: UpdatedAt in
// microseconds, which is postgres timestamp precision and exact in a Lua number.
type storedStatus struct {
	CachedStatus
	V int64 `json:"v"`
}

// Set writes cs unless the cache already holds a newer entry, so late events
// and slow database fallbacks cannot roll the cache back.
func (c *StatusCache) Set(ctx context.Context, orderID int64, cs CachedStatus) error {
	b, err := json.Marshal(storedStatus{CachedStatus: cs, V: cs.UpdatedAt.UnixMicro()})
	if err != nil {
		return err
	}
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	return setIfNewer.Run(ctx, c.RDB, []string{key}, b, cs.UpdatedAt.UnixMicro(), TTLStatusCache.Milliseconds()).Err()
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Dedup remembers processed event ids per consuming service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, fmt.Sprintf(KeyDedup, d.Service, eventID))
}

func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Err()
}
