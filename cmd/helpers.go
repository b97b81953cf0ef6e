// File: cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/browser"
	"github.com/xkilldash9x/meander-cli/internal/fixture"
	"github.com/xkilldash9x/meander-cli/internal/journey"
	"github.com/xkilldash9x/meander-cli/internal/persona"
	"github.com/xkilldash9x/meander-cli/internal/store"
)

// parseTraitOverrides turns repeated --trait flags ("patience=0.2") into a
// partial trait assignment. Unknown IDs and out-of-range values are rejected
// later by the catalog, with a more specific error than a flag parser could
// give.
func parseTraitOverrides(flags []string) (map[schemas.TraitID]float64, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[schemas.TraitID]float64, len(flags))
	for _, f := range flags {
		id, raw, ok := strings.Cut(f, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid trait override %q, expected traitId=value", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid trait override %q: %w", f, err)
		}
		out[schemas.TraitID(id)] = v
	}
	return out, nil
}

// buildProfile resolves a persona name plus overrides into a complete
// profile. The reserved name "custom" builds purely from the overrides.
func (a *app) buildProfile(name string, overrides map[schemas.TraitID]float64) (persona.Profile, error) {
	if name == "custom" {
		return a.builder.FromAnswers(overrides)
	}
	return a.builder.FromTemplate(name, overrides)
}

// resolveSeed picks the effective random seed: explicit flag, then config,
// then ambient entropy. The chosen value lands in the journey result either
// way, so every run stays replayable.
func resolveSeed(flagSeed, cfgSeed int64) int64 {
	if flagSeed != 0 {
		return flagSeed
	}
	if cfgSeed != 0 {
		return cfgSeed
	}
	return time.Now().UnixNano()
}

// explorerSpec is everything needed to stand up the observe/act seam for one
// journey.
type explorerSpec struct {
	fixturePath string
	startURL    string
	goalURL     string
	record      string
}

// openExplorer builds the explorer for one journey: a fixture player when a
// script is given, a live chromedp session otherwise. The returned cleanup
// must run after the journey finishes; the returned start URL falls back to
// the script's first page for fixture runs.
func (a *app) openExplorer(ctx context.Context, log *zap.Logger, spec explorerSpec) (journey.Explorer, string, func(), error) {
	if spec.fixturePath != "" {
		script, err := fixture.LoadScriptFile(spec.fixturePath)
		if err != nil {
			return nil, "", nil, err
		}
		player, err := fixture.NewPlayer(script)
		if err != nil {
			return nil, "", nil, err
		}
		startURL := spec.startURL
		if startURL == "" {
			startURL = script.Steps[0].Page.URL
		}
		return player, startURL, func() {}, nil
	}

	if spec.startURL == "" {
		return nil, "", nil, fmt.Errorf("either --url or --fixture is required")
	}

	exp := browser.New(a.cfg.Browser, log)
	if spec.goalURL != "" {
		exp.MarkGoalURL(spec.goalURL)
	}
	if err := exp.Start(ctx, spec.startURL); err != nil {
		return nil, "", nil, fmt.Errorf("starting browser session: %w", err)
	}
	return exp, spec.startURL, exp.Close, nil
}

// openStore connects to the journey archive and makes sure the schema
// exists. The caller owns the returned close function.
func (a *app) openStore(ctx context.Context, log *zap.Logger) (*store.Store, func(), error) {
	if !a.cfg.Store.Enabled {
		return nil, nil, fmt.Errorf("journey archive is disabled; set store.enabled and MEANDER_DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, a.cfg.Store.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to journey archive: %w", err)
	}
	st, err := store.New(ctx, pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}
