// Package cache keeps live batch status entries in Redis so staff can poll
// progress without hitting Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BatchStatus is the transient view of one batch run.
type BatchStatus struct {
	BatchID       int64  `json:"batch_id"`
	State         string `json:"state"` // "running" | "done" | "failed"
	ItemsTotal    int    `json:"items_total"`
	ItemsDone     int    `json:"items_done"`
	ItemsFailed   int    `json:"items_failed"`
	Truncated     bool   `json:"truncated"`
	DownloadToken string `json:"download_token,omitempty"`
}

type Cache struct {
	Redis     redis.UniversalClient
	Namespace string
	TTL       time.Duration
}

func NewCache(namespace string, redisCl redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{
		Namespace: namespace,
		Redis:     redisCl,
		TTL:       ttl,
	}
}

func (c *Cache) key(batchID int64) string {
	return fmt.Sprintf("%s:%d", c.Namespace, batchID)
}

// StoreStatus writes the status entry, refreshing its TTL.
func (c *Cache) StoreStatus(ctx context.Context, st BatchStatus) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, c.key(st.BatchID), raw, c.TTL).Err()
}

// GetStatus loads one status entry. Missing entries return redis.Nil.
func (c *Cache) GetStatus(ctx context.Context, batchID int64) (BatchStatus, error) {
	var st BatchStatus
	raw, err := c.Redis.Get(ctx, c.key(batchID)).Bytes()
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(raw, &st)
	return st, err
}

// Remove drops one status entry.
func (c *Cache) Remove(ctx context.Context, batchID int64) error {
	return c.Redis.Del(ctx, c.key(batchID)).Err()
}
