package domain

import "strings"

// SearchFilter is a partial predicate over the listing collection. Zero
// fields impose no constraint.
type SearchFilter struct {
	Location    string       `json:"location,omitempty"`
	Kind        PropertyKind `json:"type,omitempty"`
	MinBedrooms int          `json:"bedrooms,omitempty"`
	MaxPrice    int64        `json:"price,omitempty"`
}

// Matches reports whether the property satisfies every set predicate.
func (f *SearchFilter) Matches(p *Property) bool {
	if f == nil || p == nil {
		return p != nil
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	if f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	return true
}

// Apply narrows the collection to the properties matching the filter. The
// source slice and the filter are never mutated; the result preserves the
// source order.
func (f *SearchFilter) Apply(properties []*Property) []*Property {
	result := make([]*Property, 0, len(properties))
	for _, p := range properties {
		if f.Matches(p) {
			result = append(result, p)
		}
	}
	return result
}

// IsEmpty reports whether no predicate is set.
func (f *SearchFilter) IsEmpty() bool {
	return f == nil || (f.Location == "" && f.Kind == "" && f.MinBedrooms == 0 && f.MaxPrice == 0)
}
