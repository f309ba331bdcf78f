package memchainstore

import (
	"context"
	"sort"
	"sync"

	"github.com/vcon-dev/conserver"
)

func New() *Store {
	return &Store{
		chains:   make(map[string]conserver.Chain),
		links:    make(map[string]conserver.StageDefinition),
		storages: make(map[string]conserver.StageDefinition),
	}
}

var _ conserver.ChainStore = (*Store)(nil)

// Store keeps chain, link and storage definitions in memory. Definitions are copied on the way in and on
// the way out.
type Store struct {
	mu       sync.Mutex
	chains   map[string]conserver.Chain
	links    map[string]conserver.StageDefinition
	storages map[string]conserver.StageDefinition
}

func (s *Store) Chains(ctx context.Context) ([]conserver.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chains := make([]conserver.Chain, 0, len(s.chains))
	for _, c := range s.chains {
		chains = append(chains, copyChain(c))
	}

	sort.Slice(chains, func(i, j int) bool {
		return chains[i].Name < chains[j].Name
	})

	return chains, nil
}

func (s *Store) Chain(ctx context.Context, name string) (*conserver.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chains[name]
	if !ok {
		return nil, conserver.ErrChainNotFound
	}

	cp := copyChain(c)
	return &cp, nil
}

func (s *Store) Link(ctx context.Context, name string) (*conserver.StageDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.links[name]
	if !ok {
		return nil, conserver.ErrLinkNotFound
	}

	return copyDefinition(def), nil
}

func (s *Store) Storage(ctx context.Context, name string) (*conserver.StageDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.storages[name]
	if !ok {
		return nil, conserver.ErrStorageNotFound
	}

	return copyDefinition(def), nil
}

func (s *Store) PutChain(ctx context.Context, c conserver.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chains[c.Name] = copyChain(c)
	return nil
}

func (s *Store) PutLink(ctx context.Context, name string, def conserver.StageDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[name] = *copyDefinition(def)
	return nil
}

func (s *Store) PutStorage(ctx context.Context, name string, def conserver.StageDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.storages[name] = *copyDefinition(def)
	return nil
}

func (s *Store) DeleteChain(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chains, name)
	return nil
}

func copyChain(c conserver.Chain) conserver.Chain {
	c.Links = append([]string(nil), c.Links...)
	c.IngressLists = append([]string(nil), c.IngressLists...)
	c.IngressTopics = append([]string(nil), c.IngressTopics...)
	c.EgressLists = append([]string(nil), c.EgressLists...)
	c.EgressChains = append([]string(nil), c.EgressChains...)
	c.Storages = append([]string(nil), c.Storages...)
	return c
}

func copyDefinition(def conserver.StageDefinition) *conserver.StageDefinition {
	return &conserver.StageDefinition{
		Module:  def.Module,
		Options: def.Options.Clone(),
	}
}
