package schemas

// PersonaTemplate is a named, human-authored partial trait assignment. The
// resolver derives everything the template leaves unset.
type PersonaTemplate struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Traits      map[TraitID]float64 `json:"traits" yaml:"traits"`
}
