package platform

import "sort"

// Registry maps platforms to their strategy. It is built once at startup and
// never mutated afterwards, so lookups are safe from any goroutine.
type Registry struct {
	strategies map[Platform]Strategy
}

// NewRegistry validates the configuration and wires the platform mapping.
// Facebook and Instagram deliberately share the meta strategy instance.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	meta := newMetaStrategy(cfg.Meta)
	return &Registry{
		strategies: map[Platform]Strategy{
			PlatformFacebook:  meta,
			PlatformInstagram: meta,
			PlatformTwitter:   newTwitterStrategy(cfg.Twitter),
			PlatformTikTok:    newTikTokStrategy(cfg.TikTok),
		},
	}, nil
}

// Get returns the strategy registered for the platform.
func (r *Registry) Get(p Platform) (Strategy, bool) {
	s, ok := r.strategies[p]
	return s, ok
}

// Platforms lists the registered platforms in stable order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.strategies))
	for p := range r.strategies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
