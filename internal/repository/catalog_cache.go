package repository

import (
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "time"

    "github.com/bradfitz/gomemcache/memcache"
    "github.com/karlseguin/ccache/v3"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// CachedCatalog wraps a Catalog with two cache levels: an in-process
// ccache for the hot path and an optional memcached shared by every
// instance.  Lookups try the local cache first, then memcached, then the
// underlying catalog; results are written back to both levels.  Misses
// (ErrNotFound) are not cached.
type CachedCatalog struct {
    next   Catalog
    local  *ccache.Cache[[]byte]
    shared *memcache.Client
    ttl    time.Duration
    log    *slog.Logger
}

// NewCachedCatalog returns a caching wrapper around next.  shared may be
// nil, in which case only the local level is used.
func NewCachedCatalog(next Catalog, shared *memcache.Client, size int64, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
    if size <= 0 {
        size = 1000
    }
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &CachedCatalog{
        next:   next,
        local:  ccache.New(ccache.Configure[[]byte]().MaxSize(size)),
        shared: shared,
        ttl:    ttl,
        log:    logger,
    }
}

// Stop releases the local cache's background worker.
func (c *CachedCatalog) Stop() { c.local.Stop() }

func (c *CachedCatalog) get(key string, dst interface{}) bool {
    if item := c.local.Get(key); item != nil && !item.Expired() {
        if err := json.Unmarshal(item.Value(), dst); err == nil {
            return true
        }
    }
    if c.shared == nil {
        return false
    }
    it, err := c.shared.Get(key)
    if err != nil {
        if !errors.Is(err, memcache.ErrCacheMiss) {
            c.log.Warn("memcached get failed", "key", key, "error", err)
        }
        return false
    }
    if err := json.Unmarshal(it.Value, dst); err != nil {
        c.log.Warn("memcached value unreadable", "key", key, "error", err)
        return false
    }
    c.local.Set(key, it.Value, c.ttl)
    return true
}

func (c *CachedCatalog) set(key string, v interface{}) {
    raw, err := json.Marshal(v)
    if err != nil {
        return
    }
    c.local.Set(key, raw, c.ttl)
    if c.shared == nil {
        return
    }
    if err := c.shared.Set(&memcache.Item{Key: key, Value: raw, Expiration: int32(c.ttl / time.Second)}); err != nil {
        c.log.Warn("memcached set failed", "key", key, "error", err)
    }
}

func (c *CachedCatalog) GetRoom(ctx context.Context, id string) (*model.Room, error) {
    key := "catalog:room:" + id
    var room model.Room
    if c.get(key, &room) {
        return &room, nil
    }
    r, err := c.next.GetRoom(ctx, id)
    if err != nil {
        return nil, err
    }
    c.set(key, r)
    return r, nil
}

func (c *CachedCatalog) ListRooms(ctx context.Context) ([]model.Room, error) {
    const key = "catalog:rooms"
    var rooms []model.Room
    if c.get(key, &rooms) {
        return rooms, nil
    }
    rooms, err := c.next.ListRooms(ctx)
    if err != nil {
        return nil, err
    }
    c.set(key, rooms)
    return rooms, nil
}

func (c *CachedCatalog) GetService(ctx context.Context, id string) (*model.Service, error) {
    key := "catalog:service:" + id
    var s model.Service
    if c.get(key, &s) {
        return &s, nil
    }
    out, err := c.next.GetService(ctx, id)
    if err != nil {
        return nil, err
    }
    c.set(key, out)
    return out, nil
}

func (c *CachedCatalog) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
    key := "catalog:event_type:" + id
    var e model.EventType
    if c.get(key, &e) {
        return &e, nil
    }
    out, err := c.next.GetEventType(ctx, id)
    if err != nil {
        return nil, err
    }
    c.set(key, out)
    return out, nil
}
