package memrecordstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

// New constructs and returns an in-memory Store configured by the provided options. Records are stored in
// their JSON form so that callers never share memory with the store.
func New(opts ...Option) *Store {
	// Set option defaults
	opt := options{
		clock: clock.RealClock{},
	}

	// Set option overrides
	for _, o := range opts {
		o(&opt)
	}

	return &Store{
		clock:   opt.clock,
		records: make(map[string]entry),
	}
}

type options struct {
	clock clock.Clock
}

type Option func(o *options)

// WithClock sets the clock used to evaluate record expiry.
func WithClock(clock clock.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

var _ conserver.RecordStore = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	clock clock.Clock

	records map[string]entry
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (s *Store) Get(ctx context.Context, id string) (*conserver.Vcon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return nil, conserver.ErrRecordNotFound
	}

	var v conserver.Vcon
	err := json.Unmarshal(e.data, &v)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// Put replaces the stored vCon. An expiry set on the record is kept.
func (s *Store) Put(ctx context.Context, v *conserver.Vcon) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.lookup(v.UUID)
	e.data = b
	s.records[v.UUID] = e

	return nil
}

func (s *Store) Expire(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return conserver.ErrRecordNotFound
	}

	e.expiresAt = s.clock.Now().Add(ttl)
	s.records[id] = e

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(id)
	return ok, nil
}

// lookup returns the entry for id, evicting it when it has expired. The caller must hold mu.
func (s *Store) lookup(id string) (entry, bool) {
	e, ok := s.records[id]
	if !ok {
		return entry{}, false
	}

	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.records, id)
		return entry{}, false
	}

	return e, true
}
