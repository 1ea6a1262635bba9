// Package cache holds the Redis-backed snapshot cache for the public lot
// listing. The cache is display-only: allocation decisions never read it,
// so staleness between invalidations is acceptable.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"parkhub/internal/entities"

	"github.com/redis/go-redis/v9"
)

const lotListingKey = "parkhub:lots:active"

// NewRedisClient instantiates a Redis client from environment variables
// (REDIS_ADDR or REDIS_HOST/REDIS_PORT, REDIS_PASSWORD, REDIS_DB,
// REDIS_TLS). It returns nil when no server can be reached so callers can
// degrade gracefully by running uncached.
func NewRedisClient() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr := os.Getenv("REDIS_ADDR")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			dbNum = n
		}
	}
	var tlsConf *tls.Config
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, lot listing cache disabled: %v", addr, err)
		return nil
	}
	return client
}

// LotCache implements the service-layer cache contract over Redis.
type LotCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLotCache(client *redis.Client, ttl time.Duration) *LotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LotCache{Client: client, TTL: ttl}
}

func (c *LotCache) GetListing(ctx context.Context) ([]entities.LotResponse, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	raw, err := c.Client.Get(ctx, lotListingKey).Bytes()
	if err != nil {
		return nil, false
	}
	var lots []entities.LotResponse
	if err := json.Unmarshal(raw, &lots); err != nil {
		return nil, false
	}
	return lots, true
}

func (c *LotCache) SetListing(ctx context.Context, lots []entities.LotResponse) {
	if c == nil || c.Client == nil {
		return
	}
	raw, err := json.Marshal(lots)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, lotListingKey, raw, c.TTL).Err(); err != nil {
		log.Printf("cache lot listing: %v", err)
	}
}

func (c *LotCache) Invalidate(ctx context.Context) {
	if c == nil || c.Client == nil {
		return
	}
	if err := c.Client.Del(ctx, lotListingKey).Err(); err != nil {
		log.Printf("invalidate lot listing cache: %v", err)
	}
}
