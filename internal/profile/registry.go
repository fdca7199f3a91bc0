// Package profile holds the process-wide registry of network profiles.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

// Registry resolves network ids to profiles. It has no mutation path after
// New returns, so it is safe for concurrent use.
type Registry struct {
	profiles map[string]domain.NetworkProfile
}

// New builds a registry. Later profiles replace earlier ones with the same
// network id, which lets a profiles directory override the bundled set.
func New(profiles ...domain.NetworkProfile) *Registry {
	r := &Registry{profiles: make(map[string]domain.NetworkProfile, len(profiles))}
	for _, p := range profiles {
		r.profiles[strings.ToLower(p.NetworkID)] = p
	}
	return r
}

// Load builds a registry from the bundled profiles plus, when dir is not
// empty, every profile file in dir.
func Load(dir string) (*Registry, error) {
	profiles, err := Bundled()
	if err != nil {
		return nil, fmt.Errorf("bundled profiles: %w", err)
	}
	if dir != "" {
		extra, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, extra...)
	}
	return New(profiles...), nil
}

// Resolve returns the profile for networkID. Lookup is case-insensitive.
func (r *Registry) Resolve(networkID string) (domain.NetworkProfile, error) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(networkID))]
	if !ok {
		return domain.NetworkProfile{}, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnknownNetwork, networkID, strings.Join(r.Networks(), ", "))
	}
	return p, nil
}

// Networks lists the registered network ids in sorted order.
func (r *Registry) Networks() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
