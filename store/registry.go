package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oroko-systems/ringstore/audit"
	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/config"
	"github.com/oroko-systems/ringstore/events"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/logging"
	"github.com/oroko-systems/ringstore/secureram"
)

// Opener constructs the blockstore.Store a StoreURL names. Store URLs
// are treated as opaque: the registry defers to an injected Opener
// instead of parsing schemes itself, so which transports exist
// (file://, sled://, dropbox://, http://) is entirely an external
// collaborator's decision.
type Opener func(storeURL string) (blockstore.Store, error)

// Registry is the process-level map of store name → *Facade, backing the
// config-facing service operations: list_stores, upsert_store_config,
// delete_store_config, get_default_store, set_default_store,
// generate_id.
type Registry struct {
	mu sync.Mutex

	configDir string
	open      Opener
	alloc     secureram.Allocator
	log       logging.Logger
	sink      events.Sink

	cfg     *config.UserConfig
	facades map[string]*Facade
}

// NewRegistry loads the user config from configDir (creating an empty
// one if absent) and returns a Registry ready to open stores from it.
func NewRegistry(configDir string, open Opener, alloc secureram.Allocator, log logging.Logger, sink events.Sink) (*Registry, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	return &Registry{
		configDir: configDir,
		open:      open,
		alloc:     alloc,
		log:       log,
		sink:      sink,
		cfg:       cfg,
		facades:   make(map[string]*Facade),
	}, nil
}

// ListStores returns every registered store's config.
func (reg *Registry) ListStores() map[string]config.StoreConfig {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.cfg.ListStores()
}

// UpsertStoreConfig registers sc (or updates an existing entry with the
// same name) and persists the registry's config.
func (reg *Registry) UpsertStoreConfig(sc config.StoreConfig) (config.StoreConfig, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	saved := reg.cfg.UpsertStoreConfig(sc)
	if err := config.Save(reg.configDir, reg.cfg); err != nil {
		return config.StoreConfig{}, err
	}
	return saved, nil
}

// DeleteStoreConfig removes a store's registration and drops any open
// Facade for it from the registry. That Facade is not locked by this
// call.
func (reg *Registry) DeleteStoreConfig(name string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.cfg.DeleteStoreConfig(name)
	delete(reg.facades, name)
	return config.Save(reg.configDir, reg.cfg)
}

// GetDefaultStore returns the default store's config.
func (reg *Registry) GetDefaultStore() (config.StoreConfig, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.cfg.GetDefaultStore()
}

// SetDefaultStore changes which registered store is the default.
func (reg *Registry) SetDefaultStore(name string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if err := reg.cfg.SetDefaultStore(name); err != nil {
		return err
	}
	return config.Save(reg.configDir, reg.cfg)
}

// GenerateID mints a fresh random id, for clients to use as a secret_id
// or identity_id before calling Add or AddIdentity.
func GenerateID() string {
	return config.GenerateID()
}

// Open returns the running Facade for name, constructing and loading one
// from its registered StoreConfig on first use.
func (reg *Registry) Open(ctx context.Context, name string) (*Facade, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if f, ok := reg.facades[name]; ok {
		return f, nil
	}

	sc, ok := reg.cfg.Stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrStoreNotFound, name)
	}

	bs, err := reg.open(sc.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidStoreUrl, err)
	}

	auditLog := audit.New(reg.configDir)
	timeout := time.Duration(sc.AutolockTimeoutSecs) * time.Second
	f := NewFacade(name, bs, sc.ClientID, reg.alloc, reg.log, auditLog, reg.sink, timeout)
	if err := f.Load(ctx); err != nil {
		return nil, err
	}

	reg.facades[name] = f
	return f, nil
}

// Tick forwards an autolock clock tick to every currently-open Facade.
func (reg *Registry) Tick(now time.Time) {
	reg.mu.Lock()
	facades := make([]*Facade, 0, len(reg.facades))
	for _, f := range reg.facades {
		facades = append(facades, f)
	}
	reg.mu.Unlock()

	for _, f := range facades {
		f.Tick(now)
	}
}
