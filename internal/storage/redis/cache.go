// Package redis provides a Redis-backed balance cache for the ledger.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/settleup/internal/models"
)

const (
	pairKeyPrefix  = "settleup:balance:"
	groupKeyPrefix = "settleup:group_balances:"
)

// Cache stores pair balances as JSON strings and group member balances
// as one hash per group. Entries expire after ttl; 0 disables expiry.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, addr string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
		DB:    db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func pairKey(a, b string) string {
	first, second := models.CanonicalPair(a, b)
	return pairKeyPrefix + first + ":" + second
}

// GetPair returns the cached balance between a and b, or nil if absent.
func (c *Cache) GetPair(ctx context.Context, a, b string) (*models.Balance, error) {
	val, err := c.client.Get(ctx, pairKey(a, b)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var bal models.Balance
	if err := json.Unmarshal(val, &bal); err != nil {
		return nil, fmt.Errorf("decode cached balance: %w", err)
	}
	return &bal, nil
}

// PutPair overwrites the cached balance of a pair.
func (c *Cache) PutPair(ctx context.Context, bal *models.Balance) error {
	val, err := json.Marshal(bal)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	if err := c.client.Set(ctx, pairKey(bal.FirstID, bal.SecondID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetMemberBalances returns the cached member balances of a group, ordered by member ID.
func (c *Cache) GetMemberBalances(ctx context.Context, groupID string) ([]models.MemberBalance, error) {
	fields, err := c.client.HGetAll(ctx, groupKeyPrefix+groupID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	balances := make([]models.MemberBalance, 0, len(fields))
	for member, raw := range fields {
		var mb models.MemberBalance
		if err := json.Unmarshal([]byte(raw), &mb); err != nil {
			return nil, fmt.Errorf("decode member balance %s: %w", member, err)
		}
		balances = append(balances, mb)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].MemberID < balances[j].MemberID })
	return balances, nil
}

// PutMemberBalances atomically replaces every cached member balance of a group.
func (c *Cache) PutMemberBalances(ctx context.Context, groupID string, balances []models.MemberBalance) error {
	key := groupKeyPrefix + groupID
	values := make([]any, 0, 2*len(balances))
	for _, mb := range balances {
		mb.GroupID = groupID
		raw, err := json.Marshal(mb)
		if err != nil {
			return fmt.Errorf("encode member balance: %w", err)
		}
		values = append(values, mb.MemberID, string(raw))
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace member balances: %w", err)
	}
	return nil
}
