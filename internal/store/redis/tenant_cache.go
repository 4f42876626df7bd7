package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/reservo/internal/domain"
)

// TenantSource is the authoritative tenant lookup behind the cache.
type TenantSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// TenantCache caches tenant lookups in Redis with a TTL. Cache failures fall
// through to the source; misses in the source are never cached.
type TenantCache struct {
	client *redis.Client
	source TenantSource
	ttl    time.Duration
}

func NewTenantCache(client *redis.Client, source TenantSource, ttl time.Duration) *TenantCache {
	return &TenantCache{client: client, source: source, ttl: ttl}
}

type cachedTenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *TenantCache) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	key := "tenant:slug:" + slug
	var ct cachedTenant
	if c.readCache(ctx, key, &ct) {
		return ct.tenant(), nil
	}
	t, err := c.source.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, t)
	return t, nil
}

func (c *TenantCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	key := "tenant:id:" + id.String()
	var ct cachedTenant
	if c.readCache(ctx, key, &ct) {
		return ct.tenant(), nil
	}
	t, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, t)
	return t, nil
}

// Invalidate drops both cache entries of a tenant.
func (c *TenantCache) Invalidate(ctx context.Context, t *domain.Tenant) {
	if c.client == nil {
		return
	}
	_ = c.client.Del(ctx, "tenant:slug:"+t.Slug, "tenant:id:"+t.ID.String()).Err()
}

func (c *TenantCache) readCache(ctx context.Context, key string, out *cachedTenant) bool {
	if c.client == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *TenantCache) writeCache(ctx context.Context, key string, t *domain.Tenant) {
	if c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(cachedTenant{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Timezone: t.Timezone,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}

func (ct *cachedTenant) tenant() *domain.Tenant {
	return &domain.Tenant{
		ID: ct.ID, Name: ct.Name, Slug: ct.Slug, Timezone: ct.Timezone,
		CreatedAt: ct.CreatedAt, UpdatedAt: ct.UpdatedAt,
	}
}
