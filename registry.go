package conserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"
)

// Link is a single processing step of a chain. Run returns the id of the vCon to continue the chain with, or
// an empty string to halt the chain without treating it as an error. A link that changes the vCon must write
// the full vCon back to the record store before returning. Links must be safe to run twice on the same vCon.
type Link interface {
	Run(ctx context.Context, vconID string, linkName string, opts StageOptions) (string, error)
}

// LinkFunc allows a plain function to be used as a Link.
type LinkFunc func(ctx context.Context, vconID string, linkName string, opts StageOptions) (string, error)

func (f LinkFunc) Run(ctx context.Context, vconID string, linkName string, opts StageOptions) (string, error) {
	return f(ctx, vconID, linkName, opts)
}

// Storage persists a vCon as a side effect of a chain reaching its end.
type Storage interface {
	Save(ctx context.Context, vconID string, opts StageOptions) error
}

// StorageFunc allows a plain function to be used as a Storage.
type StorageFunc func(ctx context.Context, vconID string, opts StageOptions) error

func (f StorageFunc) Save(ctx context.Context, vconID string, opts StageOptions) error {
	return f(ctx, vconID, opts)
}

// Deps are the live connections handed to modules when they are constructed. They are owned by the engine
// and are never package level state.
type Deps struct {
	Records    RecordStore
	Queue      Queue
	Logger     Logger
	Clock      clock.Clock
	HTTPClient *http.Client
}

// LinkModule is the registration entry of a link implementation.
type LinkModule struct {
	Defaults StageOptions
	New      func(d Deps) (Link, error)
}

// StorageModule is the registration entry of a storage implementation.
type StorageModule struct {
	Defaults StageOptions
	New      func(d Deps) (Storage, error)
}

// NewLinkModule is a convenience for modules that need no construction.
func NewLinkModule(l Link, defaults StageOptions) LinkModule {
	return LinkModule{
		Defaults: defaults,
		New: func(Deps) (Link, error) {
			return l, nil
		},
	}
}

// NewStorageModule is a convenience for modules that need no construction.
func NewStorageModule(s Storage, defaults StageOptions) StorageModule {
	return StorageModule{
		Defaults: defaults,
		New: func(Deps) (Storage, error) {
			return s, nil
		},
	}
}

// Registry maps module names to link and storage implementations. Modules are constructed the first time
// they are resolved and cached for the lifetime of the registry.
type Registry struct {
	mu       sync.Mutex
	links    map[string]LinkModule
	storages map[string]StorageModule

	linkCache    map[string]Link
	storageCache map[string]Storage
}

func NewRegistry() *Registry {
	return &Registry{
		links:        make(map[string]LinkModule),
		storages:     make(map[string]StorageModule),
		linkCache:    make(map[string]Link),
		storageCache: make(map[string]Storage),
	}
}

func (r *Registry) RegisterLink(module string, m LinkModule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[module] = m
	delete(r.linkCache, module)
}

func (r *Registry) RegisterStorage(module string, m StorageModule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.storages[module] = m
	delete(r.storageCache, module)
}

// LinkModules returns the names of the registered link modules.
func (r *Registry) LinkModules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.links))
	for name := range r.links {
		names = append(names, name)
	}

	return names
}

// ResolveLink returns the cached link for the module, constructing it on first use. Construction happens
// outside the lock so two callers may construct the same module concurrently; the first one cached wins.
func (r *Registry) ResolveLink(module string, d Deps) (Link, StageOptions, error) {
	r.mu.Lock()
	m, ok := r.links[module]
	cached, isCached := r.linkCache[module]
	r.mu.Unlock()

	if !ok {
		return nil, nil, errors.Wrap(ErrModuleResolution, "unknown link module", j.MKV{"module": module})
	}

	if isCached {
		return cached, m.Defaults, nil
	}

	if m.New == nil {
		return nil, nil, errors.Wrap(ErrModuleResolution, "link module has no constructor", j.MKV{"module": module})
	}

	l, err := m.New(d)
	if err != nil {
		return nil, nil, errors.Wrap(ErrModuleResolution, err.Error(), j.MKV{"module": module})
	}

	r.mu.Lock()
	if existing, ok := r.linkCache[module]; ok {
		l = existing
	} else {
		r.linkCache[module] = l
	}
	r.mu.Unlock()

	return l, m.Defaults, nil
}

// ResolveStorage behaves like ResolveLink for storage modules.
func (r *Registry) ResolveStorage(module string, d Deps) (Storage, StageOptions, error) {
	r.mu.Lock()
	m, ok := r.storages[module]
	cached, isCached := r.storageCache[module]
	r.mu.Unlock()

	if !ok {
		return nil, nil, errors.Wrap(ErrModuleResolution, "unknown storage module", j.MKV{"module": module})
	}

	if isCached {
		return cached, m.Defaults, nil
	}

	if m.New == nil {
		return nil, nil, errors.Wrap(ErrModuleResolution, "storage module has no constructor", j.MKV{"module": module})
	}

	s, err := m.New(d)
	if err != nil {
		return nil, nil, errors.Wrap(ErrModuleResolution, err.Error(), j.MKV{"module": module})
	}

	r.mu.Lock()
	if existing, ok := r.storageCache[module]; ok {
		s = existing
	} else {
		r.storageCache[module] = s
	}
	r.mu.Unlock()

	return s, m.Defaults, nil
}

// EffectiveOptions returns the options a stage runs with: the module defaults overlaid with the options of the
// stage definition. The result is always a fresh copy.
func EffectiveOptions(defaults StageOptions, def StageDefinition) StageOptions {
	return defaults.Merge(def.Options)
}
