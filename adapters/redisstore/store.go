package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/conserver"
)

const recordKeyPrefix = "vcon:"

// Store keeps vCons as JSON strings under "vcon:<uuid>".
type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
	}
}

var _ conserver.RecordStore = (*Store)(nil)

func recordKey(id string) string {
	return recordKeyPrefix + id
}

func (s *Store) Get(ctx context.Context, id string) (*conserver.Vcon, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, conserver.ErrRecordNotFound
	} else if err != nil {
		return nil, err
	}

	var v conserver.Vcon
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// Put replaces the stored vCon and keeps any expiry already set on it.
func (s *Store) Put(ctx context.Context, v *conserver.Vcon) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.client.SetArgs(ctx, recordKey(v.UUID), data, redis.SetArgs{KeepTTL: true}).Err()
}

func (s *Store) Expire(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.PExpire(ctx, recordKey(id), ttl).Result()
	if err != nil {
		return err
	}

	if !ok {
		return conserver.ErrRecordNotFound
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, recordKey(id)).Err()
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, recordKey(id)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
