package adapters

import (
	"fmt"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Adapter type names accepted in descriptors.
const (
	TypeRegionFeed   = "region_feed"
	TypeAlertsAPI    = "alerts_api"
	TypeIdentityFeed = "identity_feed"
	TypeBulletin     = "bulletin"
	TypeAtomBoard    = "atom_board"
	TypeWarningTable = "warning_table"
)

// Registry maps descriptor types to adapters. Legacy-shaped fetch functions
// are wrapped via feed.AdapterFunc once, at registration time.
type Registry struct {
	adapters map[string]feed.Adapter
}

// NewRegistry wires the built-in adapters over a shared HTTP client.
func NewRegistry(client *Client) *Registry {
	r := &Registry{adapters: make(map[string]feed.Adapter)}
	r.Register(TypeRegionFeed, NewRegionFeed(client))
	r.Register(TypeAlertsAPI, NewAlertsAPI(client))
	r.Register(TypeIdentityFeed, NewIdentityFeed(client))
	r.Register(TypeBulletin, NewBulletin(client))
	r.Register(TypeAtomBoard, NewAtomBoard(client))
	r.Register(TypeWarningTable, NewWarningTable(client))
	return r
}

// Register adds or replaces the adapter for a type.
func (r *Registry) Register(typ string, a feed.Adapter) {
	r.adapters[typ] = a
}

// Resolve returns the adapter for the descriptor's type.
func (r *Registry) Resolve(desc feed.Descriptor) (feed.Adapter, error) {
	a, ok := r.adapters[desc.Type]
	if !ok {
		return nil, &feed.ConfigError{
			Field: "sources." + desc.Key + ".type",
			Err:   fmt.Errorf("unknown adapter type %q", desc.Type),
		}
	}
	return a, nil
}

// Validate checks every descriptor against the registry and kind rules; it
// fails fast before any round runs.
func (r *Registry) Validate(sources map[string]feed.Descriptor) error {
	for key, desc := range sources {
		if desc.Key == "" || desc.Key != key {
			return &feed.ConfigError{
				Field: "sources." + key + ".key",
				Err:   fmt.Errorf("descriptor key %q does not match map key", desc.Key),
			}
		}
		if !desc.Kind.Valid() {
			return &feed.ConfigError{
				Field: "sources." + key + ".kind",
				Err:   fmt.Errorf("unknown kind %q", desc.Kind),
			}
		}
		if desc.URL == "" && len(desc.URLs) == 0 {
			return &feed.ConfigError{
				Field: "sources." + key + ".url",
				Err:   fmt.Errorf("descriptor has neither url nor urls"),
			}
		}
		if _, err := r.Resolve(desc); err != nil {
			return err
		}
	}
	return nil
}
