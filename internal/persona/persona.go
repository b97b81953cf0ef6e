// Package persona turns named templates or questionnaire-style partial
// answers into complete trait profiles.
package persona

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/traits"
)

// ErrUnknownPersona marks lookups of template names that were never
// registered.
var ErrUnknownPersona = errors.New("unknown persona")

// ErrDuplicatePersona marks attempts to register a template name twice.
var ErrDuplicatePersona = errors.New("persona already registered")

// Profile is a resolved persona: a complete trait vector plus the identity
// it was built from.
type Profile struct {
	Name   string
	Traits schemas.TraitVector
}

// Builder resolves templates and answers into complete profiles. It is safe
// for concurrent reads once construction and registration are done; callers
// that register templates at runtime must serialize that themselves.
type Builder struct {
	catalog   *traits.Catalog
	resolver  *traits.Resolver
	templates map[string]schemas.PersonaTemplate
	builtins  []string
	customs   []string
}

// NewBuilder returns a builder preloaded with the built-in templates.
func NewBuilder(catalog *traits.Catalog) *Builder {
	b := &Builder{
		catalog:   catalog,
		resolver:  traits.NewResolver(catalog),
		templates: make(map[string]schemas.PersonaTemplate),
	}
	for _, tpl := range builtinTemplates() {
		// Built-ins are curated against the catalog; a failure here is a
		// programming error, caught by the package tests.
		if err := b.add(tpl); err != nil {
			panic(fmt.Sprintf("persona: built-in template %q: %v", tpl.Name, err))
		}
		b.builtins = append(b.builtins, tpl.Name)
	}
	return b
}

func (b *Builder) add(tpl schemas.PersonaTemplate) error {
	if tpl.Name == "" {
		return fmt.Errorf("persona template: name must not be empty")
	}
	if _, exists := b.templates[tpl.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePersona, tpl.Name)
	}
	if err := b.catalog.Validate(tpl.Traits); err != nil {
		return fmt.Errorf("persona template %q: %w", tpl.Name, err)
	}
	b.templates[tpl.Name] = tpl
	return nil
}

// Register adds a template. The name must be unused and every trait entry
// must validate against the catalog.
func (b *Builder) Register(tpl schemas.PersonaTemplate) error {
	if err := b.add(tpl); err != nil {
		return err
	}
	b.customs = append(b.customs, tpl.Name)
	return nil
}

// Templates lists registered templates: built-ins in curated order, then
// any registered additions sorted by name.
func (b *Builder) Templates() []schemas.PersonaTemplate {
	names := append([]string(nil), b.builtins...)
	extra := append([]string(nil), b.customs...)
	sort.Strings(extra)
	names = append(names, extra...)

	out := make([]schemas.PersonaTemplate, 0, len(names))
	for _, n := range names {
		out = append(out, b.templates[n])
	}
	return out
}

// Template returns the raw (unresolved) template for name.
func (b *Builder) Template(name string) (schemas.PersonaTemplate, error) {
	tpl, ok := b.templates[name]
	if !ok {
		return schemas.PersonaTemplate{}, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	return tpl, nil
}

// FromTemplate resolves the named template into a complete profile.
// Overrides replace individual template entries before resolution, so an
// override participates in correlation derivation exactly as if the template
// author had written it.
func (b *Builder) FromTemplate(name string, overrides map[schemas.TraitID]float64) (Profile, error) {
	tpl, ok := b.templates[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}

	merged := make(map[schemas.TraitID]float64, len(tpl.Traits)+len(overrides))
	for id, v := range tpl.Traits {
		merged[id] = v
	}
	for id, v := range overrides {
		merged[id] = v
	}

	vec, err := b.resolver.Resolve(merged)
	if err != nil {
		return Profile{}, fmt.Errorf("persona %q: %w", name, err)
	}
	return Profile{Name: name, Traits: vec}, nil
}

// FromAnswers resolves a free-form partial assignment into a complete
// profile. Unknown trait IDs and out-of-range values are rejected.
func (b *Builder) FromAnswers(answers map[schemas.TraitID]float64) (Profile, error) {
	vec, err := b.resolver.Resolve(answers)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Name: "custom", Traits: vec}, nil
}

// Explain reports the per-trait derivation for the named template plus
// overrides, for persona inspection tooling.
func (b *Builder) Explain(name string, overrides map[schemas.TraitID]float64) ([]traits.Derivation, error) {
	tpl, ok := b.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	merged := make(map[schemas.TraitID]float64, len(tpl.Traits)+len(overrides))
	for id, v := range tpl.Traits {
		merged[id] = v
	}
	for id, v := range overrides {
		merged[id] = v
	}
	return b.resolver.Explain(merged)
}
