package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/config"
	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/services"
)

const maintenanceKey = "licensegate:config:maintenance"

// Connect opens a Redis client and checks it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	const op = "cache.Connect"
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return client, nil
}

// MaintenanceStore is the durable home of the maintenance toggle.
type MaintenanceStore interface {
	services.MaintenanceReader
	services.MaintenanceWriter
}

// MaintenanceCache fronts the maintenance toggle, which is read on every
// verification. Redis failures fall through to the backing store.
type MaintenanceCache struct {
	db      *redis.Client
	backing MaintenanceStore
	ttl     time.Duration
}

func NewMaintenanceCache(db *redis.Client, backing MaintenanceStore, ttl time.Duration) *MaintenanceCache {
	return &MaintenanceCache{db: db, backing: backing, ttl: ttl}
}

func (c *MaintenanceCache) GetMaintenance(ctx context.Context) (models.MaintenanceConfig, error) {
	var cfg models.MaintenanceConfig

	val, err := c.db.Get(ctx, maintenanceKey).Bytes()
	switch {
	case err == nil:
		if jerr := json.Unmarshal(val, &cfg); jerr == nil {
			return cfg, nil
		}
		log.Printf("[MaintenanceCache] dropping undecodable entry")
	case err != redis.Nil:
		log.Printf("[MaintenanceCache] get err=%v", err)
	}

	cfg, err = c.backing.GetMaintenance(ctx)
	if err != nil {
		return models.MaintenanceConfig{}, err
	}
	c.store(ctx, cfg)
	return cfg, nil
}

// SetMaintenance writes through to the backing store, then refreshes the entry.
func (c *MaintenanceCache) SetMaintenance(ctx context.Context, cfg models.MaintenanceConfig) error {
	if err := c.backing.SetMaintenance(ctx, cfg); err != nil {
		return err
	}
	c.store(ctx, cfg)
	return nil
}

// Invalidate drops the cached toggle.
func (c *MaintenanceCache) Invalidate(ctx context.Context) error {
	return c.db.Del(ctx, maintenanceKey).Err()
}

func (c *MaintenanceCache) store(ctx context.Context, cfg models.MaintenanceConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.db.Set(ctx, maintenanceKey, data, c.ttl).Err(); err != nil {
		log.Printf("[MaintenanceCache] set err=%v", err)
	}
}
