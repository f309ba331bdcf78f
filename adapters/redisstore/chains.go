package redisstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/conserver"
)

// ChainStore keeps definitions as JSON strings under "chain:<name>", "link:<name>" and "storage:<name>".
type ChainStore struct {
	client redis.UniversalClient
}

func NewChainStore(client redis.UniversalClient) *ChainStore {
	return &ChainStore{
		client: client,
	}
}

var _ conserver.ChainStore = (*ChainStore)(nil)

func (s *ChainStore) Chains(ctx context.Context) ([]conserver.Chain, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, conserver.ChainKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []conserver.Chain{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	chains := make([]conserver.Chain, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			// Deleted between the scan and the read.
			continue
		}

		var c conserver.Chain
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, err
		}

		chains = append(chains, c)
	}

	sort.Slice(chains, func(i, j int) bool {
		return chains[i].Name < chains[j].Name
	})

	return chains, nil
}

func (s *ChainStore) Chain(ctx context.Context, name string) (*conserver.Chain, error) {
	var c conserver.Chain
	err := s.get(ctx, conserver.ChainKey(name), &c, conserver.ErrChainNotFound)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *ChainStore) Link(ctx context.Context, name string) (*conserver.StageDefinition, error) {
	var def conserver.StageDefinition
	err := s.get(ctx, conserver.LinkKey(name), &def, conserver.ErrLinkNotFound)
	if err != nil {
		return nil, err
	}

	return &def, nil
}

func (s *ChainStore) Storage(ctx context.Context, name string) (*conserver.StageDefinition, error) {
	var def conserver.StageDefinition
	err := s.get(ctx, conserver.StorageKey(name), &def, conserver.ErrStorageNotFound)
	if err != nil {
		return nil, err
	}

	return &def, nil
}

func (s *ChainStore) PutChain(ctx context.Context, c conserver.Chain) error {
	return s.put(ctx, conserver.ChainKey(c.Name), c)
}

func (s *ChainStore) PutLink(ctx context.Context, name string, def conserver.StageDefinition) error {
	return s.put(ctx, conserver.LinkKey(name), def)
}

func (s *ChainStore) PutStorage(ctx context.Context, name string, def conserver.StageDefinition) error {
	return s.put(ctx, conserver.StorageKey(name), def)
}

func (s *ChainStore) DeleteChain(ctx context.Context, name string) error {
	return s.client.Del(ctx, conserver.ChainKey(name)).Err()
}

func (s *ChainStore) get(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return notFound
	} else if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func (s *ChainStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, 0).Err()
}
