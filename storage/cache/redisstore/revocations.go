package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/session"
)

const keyPrefix = "harmony:revoked:"

// RevocationStore keeps revoked token IDs in redis, each key expiring with its token.
type RevocationStore struct {
	client  *redis.Client
	nowFunc func() time.Time
}

var _ session.RevocationStore = (*RevocationStore)(nil) // interface compliance check

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// Open connects to redis & checks that it answers.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := NewClient(conf)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client, nowFunc: time.Now}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.nowFunc())
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(s.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(), "revoking token")
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, keyPrefix+tokenID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "checking revoked token")
	}
	return true, nil
}
