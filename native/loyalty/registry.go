package loyalty

import (
	"fmt"
	"strings"
	"time"
)

// Registry is the ordered, read-only set of campaigns known to the process.
// Order matters: when several campaigns are active at once the earliest
// registered one wins.
type Registry struct {
	campaigns []*Campaign
	byID      map[string]*Campaign
	fallback  *Campaign
}

// NewRegistry validates every campaign and builds a registry. The first
// perpetual campaign in the list doubles as the fallback returned by
// ActiveOrDefault when nothing else is active.
func NewRegistry(list ...*Campaign) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Campaign, len(list))}
	for _, c := range list {
		if err := Validate(c); err != nil {
			return nil, err
		}
		id := strings.TrimSpace(c.ID)
		if _, exists := r.byID[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrCampaignExists, id)
		}
		r.byID[id] = c
		r.campaigns = append(r.campaigns, c)
		if r.fallback == nil && c.Perpetual() {
			r.fallback = c
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static configuration known to be valid.
func MustRegistry(list ...*Campaign) *Registry {
	r, err := NewRegistry(list...)
	if err != nil {
		panic(err)
	}
	return r
}

// RequirePerpetual returns ErrNoPerpetual when the registry has no campaign
// that can serve as a permanent fallback.
func (r *Registry) RequirePerpetual() error {
	if r == nil || r.fallback == nil {
		return ErrNoPerpetual
	}
	return nil
}

// Campaigns returns the registered campaigns in registration order.
func (r *Registry) Campaigns() []*Campaign {
	if r == nil {
		return nil
	}
	out := make([]*Campaign, len(r.campaigns))
	copy(out, r.campaigns)
	return out
}

// Len returns the number of registered campaigns.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.campaigns)
}

// Get looks up a campaign by id.
func (r *Registry) Get(id string) (*Campaign, error) {
	if r == nil {
		return nil, ErrCampaignNotFound
	}
	c, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	return c, nil
}

// Active returns the first campaign active at now, or nil.
func (r *Registry) Active(now time.Time) *Campaign {
	if r == nil {
		return nil
	}
	return ActiveCampaign(r.campaigns, now)
}

// ActiveOrDefault resolves the active campaign and falls back to the first
// perpetual campaign. It returns ErrNoActiveCampaign when neither exists.
func (r *Registry) ActiveOrDefault(now time.Time) (*Campaign, error) {
	if c := r.Active(now); c != nil {
		return c, nil
	}
	if r != nil && r.fallback != nil {
		return r.fallback, nil
	}
	return nil, ErrNoActiveCampaign
}

// Statuses maps each campaign id to its status at now.
func (r *Registry) Statuses(now time.Time) map[string]Status {
	out := make(map[string]Status, r.Len())
	if r == nil {
		return out
	}
	for _, c := range r.campaigns {
		out[c.ID] = StatusAt(c, now)
	}
	return out
}
