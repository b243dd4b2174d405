// Package config persists the process-local registry of known stores:
// where each one lives, which client/node id this machine uses to write
// to it, and which identity and autolock timeout to default to.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StoreConfig is everything a client needs to remember about one store
// between runs: where to find it, how to identify itself to it, and its
// per-store defaults.
type StoreConfig struct {
	Name                string `toml:"name"`
	StoreURL            string `toml:"store_url"`
	ClientID            string `toml:"client_id"`
	AutolockTimeoutSecs int    `toml:"autolock_timeout_secs"`
	DefaultIdentityID   string `toml:"default_identity_id"`
}

// UserConfig is the full set of stores a user's client knows about, plus
// which one is the default when no store name is given explicitly.
type UserConfig struct {
	DefaultStore string                 `toml:"default_store"`
	Stores       map[string]StoreConfig `toml:"stores"`
}

const defaultAutolockTimeoutSecs = 300

// configFilePath returns the on-disk location of the user config file
// under dir, as <settings-dir>/config.toml.
func configFilePath(dir string) string {
	return filepath.Join(dir, "config.toml")
}

// Load reads the user config from dir, returning an empty-but-usable
// UserConfig if no file exists yet.
func Load(dir string) (*UserConfig, error) {
	cfg := &UserConfig{Stores: make(map[string]StoreConfig)}

	path := configFilePath(dir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := LoadTOML(path, cfg); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	if cfg.Stores == nil {
		cfg.Stores = make(map[string]StoreConfig)
	}
	return cfg, nil
}

// Save writes cfg back to dir.
func Save(dir string, cfg *UserConfig) error {
	path := configFilePath(dir)
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("config: save %s: %w", path, err)
	}
	return nil
}

// ListStores returns every known store's config.
func (c *UserConfig) ListStores() map[string]StoreConfig {
	out := make(map[string]StoreConfig, len(c.Stores))
	for k, v := range c.Stores {
		out[k] = v
	}
	return out
}

// UpsertStoreConfig adds sc or replaces the existing entry with the same
// Name. If this is the first store registered, it becomes the default.
// A zero ClientID or AutolockTimeoutSecs is filled in with a fresh
// generated id and the package default, respectively, so callers never
// need to special-case first-time registration.
func (c *UserConfig) UpsertStoreConfig(sc StoreConfig) StoreConfig {
	if sc.ClientID == "" {
		sc.ClientID = GenerateID()
	}
	if sc.AutolockTimeoutSecs == 0 {
		sc.AutolockTimeoutSecs = defaultAutolockTimeoutSecs
	}

	if c.Stores == nil {
		c.Stores = make(map[string]StoreConfig)
	}
	c.Stores[sc.Name] = sc

	if c.DefaultStore == "" {
		c.DefaultStore = sc.Name
	}
	return sc
}

// DeleteStoreConfig removes a store's registration. If it was the
// default, the default is cleared; callers should prompt the user to
// set a new one if any stores remain.
func (c *UserConfig) DeleteStoreConfig(name string) {
	delete(c.Stores, name)
	if c.DefaultStore == name {
		c.DefaultStore = ""
	}
}

// GetDefaultStore returns the default store's config, or false if none
// is set.
func (c *UserConfig) GetDefaultStore() (StoreConfig, bool) {
	if c.DefaultStore == "" {
		return StoreConfig{}, false
	}
	sc, ok := c.Stores[c.DefaultStore]
	return sc, ok
}

// SetDefaultStore changes which registered store is the default.
func (c *UserConfig) SetDefaultStore(name string) error {
	if _, ok := c.Stores[name]; !ok {
		return fmt.Errorf("config: unknown store %q", name)
	}
	c.DefaultStore = name
	return nil
}

// GenerateID mints a fresh random id suitable for use as a client_id,
// node_id, or identity_id.
func GenerateID() string {
	return uuid.New().String()
}
