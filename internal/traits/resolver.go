package traits

import (
	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// Resolver completes partial trait assignments using the catalog's
// correlation rules.
//
// Resolution is single-pass in catalog declaration order. Only explicitly
// supplied traits contribute to derivation; derived values never feed back
// into other derivations, so there is no fixed-point iteration and no order
// sensitivity beyond the catalog's own ordering.
type Resolver struct {
	cat *Catalog
}

// NewResolver returns a resolver over cat.
func NewResolver(cat *Catalog) *Resolver {
	return &Resolver{cat: cat}
}

// Resolve validates partial and returns a complete trait vector. Supplied
// values are copied verbatim. Each missing trait starts at its catalog
// default and, when any of its correlation sources were supplied, is shifted
// by the mean of (source - 0.5) * weight over those sources, then clamped to
// [0, 1]. Averaging keeps a trait with many weak correlates from drifting
// further than one with a single strong correlate. A nil or empty partial
// yields the catalog defaults.
func (r *Resolver) Resolve(partial map[schemas.TraitID]float64) (schemas.TraitVector, error) {
	if err := r.cat.Validate(partial); err != nil {
		return nil, err
	}
	out := make(schemas.TraitVector, r.cat.Len())
	for _, def := range r.cat.defs {
		if v, ok := partial[def.ID]; ok {
			out[def.ID] = v
			continue
		}
		value := def.Default
		var shift float64
		var contributing int
		for _, corr := range def.Correlations {
			src, ok := partial[corr.Source]
			if !ok {
				continue
			}
			shift += (src - 0.5) * corr.Weight
			contributing++
		}
		if contributing > 0 {
			value = clamp01(def.Default + shift/float64(contributing))
		}
		out[def.ID] = value
	}
	return out, nil
}

// Contribution is one correlation's share of a derived value.
type Contribution struct {
	Source      schemas.TraitID `json:"source"`
	SourceValue float64         `json:"source_value"`
	Weight      float64         `json:"weight"`
	Delta       float64         `json:"delta"`
	Rationale   string          `json:"rationale"`
}

// Derivation explains how one trait got its resolved value.
type Derivation struct {
	Trait         schemas.TraitID `json:"trait"`
	Value         float64         `json:"value"`
	Default       float64         `json:"default"`
	Supplied      bool            `json:"supplied"`
	Contributions []Contribution  `json:"contributions,omitempty"`
}

// Explain resolves partial and reports, per trait in catalog order, whether
// the value was supplied, defaulted, or derived, and which correlations
// moved it.
func (r *Resolver) Explain(partial map[schemas.TraitID]float64) ([]Derivation, error) {
	resolved, err := r.Resolve(partial)
	if err != nil {
		return nil, err
	}
	out := make([]Derivation, 0, r.cat.Len())
	for _, def := range r.cat.defs {
		d := Derivation{
			Trait:   def.ID,
			Value:   resolved[def.ID],
			Default: def.Default,
		}
		if _, ok := partial[def.ID]; ok {
			d.Supplied = true
			out = append(out, d)
			continue
		}
		for _, corr := range def.Correlations {
			src, ok := partial[corr.Source]
			if !ok {
				continue
			}
			d.Contributions = append(d.Contributions, Contribution{
				Source:      corr.Source,
				SourceValue: src,
				Weight:      corr.Weight,
				Delta:       (src - 0.5) * corr.Weight,
				Rationale:   corr.Rationale,
			})
		}
		// Deltas are averaged, not summed, so scale each contribution down
		// to its share of the applied shift.
		if n := len(d.Contributions); n > 1 {
			for i := range d.Contributions {
				d.Contributions[i].Delta /= float64(n)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
