package engine

import "github.com/scrypster/recall/pkg/types"

// NoiseFilter drops extracted mentions of famous people and well-known
// companies, which almost never describe the user's own contacts.
type NoiseFilter struct {
	people    map[string]bool
	companies map[string]bool
}

// NewNoiseFilter builds a filter from noise lists. A nil argument loads the
// built-in lists.
func NewNoiseFilter(lists *NoiseLists) (*NoiseFilter, error) {
	if lists == nil {
		var err error
		if lists, err = LoadNoiseLists(""); err != nil {
			return nil, err
		}
	}
	f := &NoiseFilter{
		people:    make(map[string]bool, len(lists.FamousPeople)),
		companies: make(map[string]bool, len(lists.Companies)),
	}
	for _, p := range lists.FamousPeople {
		f.people[NormalizeEntityValue(p)] = true
	}
	for _, c := range lists.Companies {
		f.companies[NormalizeEntityValue(c)] = true
	}
	return f, nil
}

// IsNoise reports whether e should be discarded. Identity mentions are
// never noise.
func (f *NoiseFilter) IsNoise(e *types.Entity) bool {
	if e == nil || e.IsIdentity {
		return false
	}
	n := NormalizeEntityValue(e.Value)
	switch e.Type {
	case types.EntityTypePerson:
		return f.people[n]
	case types.EntityTypeCompany:
		return f.companies[n]
	}
	return false
}

// Filter returns the mentions that are not noise, in input order.
func (f *NoiseFilter) Filter(mentions []*types.Entity) []*types.Entity {
	out := make([]*types.Entity, 0, len(mentions))
	for _, m := range mentions {
		if m != nil && !f.IsNoise(m) {
			out = append(out, m)
		}
	}
	return out
}
