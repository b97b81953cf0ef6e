package traits

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

func TestResolver_Resolve_EmptyYieldsDefaults(t *testing.T) {
	cat := NewCatalog()
	r := NewResolver(cat)

	got, err := r.Resolve(nil)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(cat.Defaults(), got))
}

func TestResolver_Resolve_SuppliedValuesAreVerbatim(t *testing.T) {
	r := NewResolver(NewCatalog())

	partial := map[schemas.TraitID]float64{
		schemas.TraitPatience:  0.0,
		schemas.TraitCuriosity: 1.0,
		schemas.TraitAnxiety:   0.137,
	}
	got, err := r.Resolve(partial)
	require.NoError(t, err)

	assert.Equal(t, 0.0, got[schemas.TraitPatience])
	assert.Equal(t, 1.0, got[schemas.TraitCuriosity])
	assert.Equal(t, 0.137, got[schemas.TraitAnxiety])
}

func TestResolver_Resolve_DerivesFromCorrelations(t *testing.T) {
	r := NewResolver(NewCatalog())

	// Low patience should drag persistence below its default and push
	// impulsivity above its default.
	got, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitPatience: 0.1,
	})
	require.NoError(t, err)

	// persistence: 0.5 + (0.1-0.5)*0.6 = 0.26
	assert.InDelta(t, 0.26, got[schemas.TraitPersistence], 1e-9)
	persistenceDef, err := NewCatalog().Get(schemas.TraitPersistence)
	require.NoError(t, err)
	assert.Less(t, got[schemas.TraitPersistence], persistenceDef.Default)

	// impulsivity: 0.45 + (0.1-0.5)*(-0.5) = 0.65
	assert.InDelta(t, 0.65, got[schemas.TraitImpulsivity], 1e-9)

	// timeHorizon: 0.5 + (0.1-0.5)*0.4 = 0.34
	assert.InDelta(t, 0.34, got[schemas.TraitTimeHorizon], 1e-9)
}

func TestResolver_Resolve_AveragesMultipleSources(t *testing.T) {
	r := NewResolver(NewCatalog())

	got, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitPatience:   0.9,
		schemas.TraitResilience: 0.9,
	})
	require.NoError(t, err)

	// persistence: 0.5 + ((0.9-0.5)*0.6 + (0.9-0.5)*0.3) / 2 = 0.68
	assert.InDelta(t, 0.68, got[schemas.TraitPersistence], 1e-9)

	// A second agreeing source must never push the trait further than the
	// strongest source would alone.
	single, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitPatience: 0.9,
	})
	require.NoError(t, err)
	assert.Less(t, got[schemas.TraitPersistence], single[schemas.TraitPersistence])
}

func TestResolver_Resolve_DerivedValuesStayInRange(t *testing.T) {
	r := NewResolver(NewCatalog())

	// Even with every supplied source pinned to an extreme, derived traits
	// must stay inside [0,1].
	for _, pin := range []float64{0.0, 1.0} {
		got, err := r.Resolve(map[schemas.TraitID]float64{
			schemas.TraitConfidence: pin,
			schemas.TraitResilience: pin,
			schemas.TraitPatience:   pin,
		})
		require.NoError(t, err)
		for id, v := range got {
			assert.GreaterOrEqual(t, v, 0.0, "trait %s at pin %g", id, pin)
			assert.LessOrEqual(t, v, 1.0, "trait %s at pin %g", id, pin)
		}
	}

	// anxiety with both sources hostile: 0.4 + (-0.3 + -0.15)/2 = 0.175
	got, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitConfidence: 1.0,
		schemas.TraitResilience: 1.0,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.175, got[schemas.TraitAnxiety], 1e-9)
}

func TestResolver_Resolve_NoChainedDerivation(t *testing.T) {
	r := NewResolver(NewCatalog())

	// techLiteracy shifts comprehension, but the derived comprehension must
	// not then shift readingSpeed: only supplied traits contribute.
	got, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitTechLiteracy: 1.0,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.65, got[schemas.TraitComprehension], 1e-9)
	assert.Equal(t, 0.5, got[schemas.TraitReadingSpeed])
}

func TestResolver_Resolve_IdempotentOnCompleteVectors(t *testing.T) {
	r := NewResolver(NewCatalog())

	first, err := r.Resolve(map[schemas.TraitID]float64{
		schemas.TraitPatience:   0.15,
		schemas.TraitConfidence: 0.8,
	})
	require.NoError(t, err)

	second, err := r.Resolve(first)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
}

func TestResolver_Resolve_Deterministic(t *testing.T) {
	r := NewResolver(NewCatalog())
	partial := map[schemas.TraitID]float64{
		schemas.TraitPatience:     0.2,
		schemas.TraitTechLiteracy: 0.9,
		schemas.TraitAnxiety:      0.7,
	}

	a, err := r.Resolve(partial)
	require.NoError(t, err)
	b, err := r.Resolve(partial)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestResolver_Resolve_RejectsBadInput(t *testing.T) {
	r := NewResolver(NewCatalog())

	t.Run("UnknownTrait", func(t *testing.T) {
		_, err := r.Resolve(map[schemas.TraitID]float64{"charisma": 0.5})
		assert.ErrorIs(t, err, ErrUnknownTrait)
	})

	t.Run("OutOfRangeValue", func(t *testing.T) {
		_, err := r.Resolve(map[schemas.TraitID]float64{schemas.TraitPatience: 1.5})
		var ive *InvalidValueError
		require.ErrorAs(t, err, &ive)
		assert.Equal(t, 1.5, ive.Value)
	})
}

func TestResolver_Explain(t *testing.T) {
	r := NewResolver(NewCatalog())

	expl, err := r.Explain(map[schemas.TraitID]float64{
		schemas.TraitPatience: 0.1,
	})
	require.NoError(t, err)
	require.Len(t, expl, 25)

	byTrait := map[schemas.TraitID]Derivation{}
	for _, d := range expl {
		byTrait[d.Trait] = d
	}

	t.Run("SuppliedTrait", func(t *testing.T) {
		d := byTrait[schemas.TraitPatience]
		assert.True(t, d.Supplied)
		assert.Equal(t, 0.1, d.Value)
		assert.Empty(t, d.Contributions)
	})

	t.Run("DerivedTrait", func(t *testing.T) {
		d := byTrait[schemas.TraitPersistence]
		assert.False(t, d.Supplied)
		require.Len(t, d.Contributions, 1)
		c := d.Contributions[0]
		assert.Equal(t, schemas.TraitPatience, c.Source)
		assert.Equal(t, 0.1, c.SourceValue)
		assert.InDelta(t, -0.24, c.Delta, 1e-9)
		assert.NotEmpty(t, c.Rationale)
	})

	t.Run("UntouchedTraitHasNoContributions", func(t *testing.T) {
		d := byTrait[schemas.TraitVisualSearch]
		assert.False(t, d.Supplied)
		assert.Empty(t, d.Contributions)
		assert.Equal(t, d.Default, d.Value)
	})
}

func TestResolver_Explain_DeltasMatchAppliedShift(t *testing.T) {
	r := NewResolver(NewCatalog())

	expl, err := r.Explain(map[schemas.TraitID]float64{
		schemas.TraitPatience:   0.9,
		schemas.TraitResilience: 0.9,
	})
	require.NoError(t, err)

	var d Derivation
	for _, cand := range expl {
		if cand.Trait == schemas.TraitPersistence {
			d = cand
		}
	}
	require.Len(t, d.Contributions, 2)

	var sum float64
	for _, c := range d.Contributions {
		sum += c.Delta
	}
	assert.InDelta(t, d.Value-d.Default, sum, 1e-9, "contributions must account for the whole shift")
	assert.InDelta(t, 0.12, d.Contributions[0].Delta, 1e-9)
	assert.InDelta(t, 0.06, d.Contributions[1].Delta, 1e-9)
}
