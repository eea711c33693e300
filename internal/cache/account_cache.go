package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	dom "github.com/mattyz777/matt-conduit/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyAccount = "account:view:"

// cachedAccount is what we keep in Redis; the password hash is never written.
type cachedAccount struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Age       *int32     `json:"age"`
	Gender    dom.Gender `json:"gender"`
	Email     *string    `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AccountCache caches account views by id in Redis.
type AccountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAccountCache returns a new AccountCache.
func NewAccountCache(rdb *redis.Client, ttl time.Duration) *AccountCache {
	return &AccountCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached account, or nil on a miss. The result carries no password hash.
func (c *AccountCache) Get(ctx context.Context, id int64) (*dom.Account, error) {
	b, err := c.rdb.Get(ctx, accountKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v cachedAccount
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &dom.Account{
		ID:        v.ID,
		Username:  v.Username,
		Age:       v.Age,
		Gender:    v.Gender,
		Email:     v.Email,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}, nil
}

// Set stores the account view.
func (c *AccountCache) Set(ctx context.Context, a dom.Account) error {
	b, err := json.Marshal(cachedAccount{
		ID:        a.ID,
		Username:  a.Username,
		Age:       a.Age,
		Gender:    a.Gender,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, accountKey(a.ID), b, c.ttl).Err()
}

// Invalidate drops the cached view of id (called on every write).
func (c *AccountCache) Invalidate(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, accountKey(id)).Err()
}

func accountKey(id int64) string {
	return keyAccount + strconv.FormatInt(id, 10)
}
