// Package mcp exposes the journey engine to MCP agent hosts over stdio. The
// tools run against fixture scripts only: an agent host drives simulations
// and reads traces, it never gets handed a live browser.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/fixture"
	"github.com/xkilldash9x/meander-cli/internal/journey"
	"github.com/xkilldash9x/meander-cli/internal/persona"
	"github.com/xkilldash9x/meander-cli/internal/traits"
)

// Server wraps the MCP SDK server around the simulation engine. Finished
// journeys are kept in memory for the lifetime of the server so get_journey
// works without a database.
type Server struct {
	MCPServer *sdkmcp.Server

	catalog *traits.Catalog
	builder *persona.Builder
	orch    *journey.Orchestrator
	log     *zap.Logger

	mu      sync.Mutex
	results map[string]*schemas.JourneyResult
}

// NewServer builds the MCP surface over an already-initialized persona
// builder and orchestrator tuning set.
func NewServer(catalog *traits.Catalog, builder *persona.Builder, tun journey.Tunings, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog: catalog,
		builder: builder,
		orch:    journey.New(logger, tun, nil),
		log:     logger.Named("mcp"),
		results: make(map[string]*schemas.JourneyResult),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "meander", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over the given transport until the context ends.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_personas",
		Description: "List available persona templates with their descriptions.",
	}, s.handleListPersonas)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "explain_persona",
		Description: "Resolve a persona (template plus optional trait overrides) into a complete trait vector and explain every derived value.",
	}, s.handleExplainPersona)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_journey",
		Description: "Run one simulated journey against a recorded fixture script and return the trace summary.",
	}, s.handleRunJourney)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_journey",
		Description: "Fetch the full trace of a journey previously run by this server.",
	}, s.handleGetJourney)
}

// --- Tool input/output types ---

type listPersonasInput struct{}

type personaInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// ExplicitTraits counts the traits the template pins; the rest derive
	// from correlations.
	ExplicitTraits int `json:"explicit_traits"`
}

type listPersonasOutput struct {
	Personas []personaInfo `json:"personas"`
}

type explainPersonaInput struct {
	Persona      string             `json:"persona" jsonschema:"persona template name, or custom to build purely from custom_traits"`
	CustomTraits map[string]float64 `json:"custom_traits,omitempty" jsonschema:"partial trait assignment overriding the template, values in [0,1]"`
}

type traitExplanation struct {
	Trait    string  `json:"trait"`
	Value    float64 `json:"value"`
	Level    string  `json:"level"`
	Supplied bool    `json:"supplied"`
	// DerivedFrom lists the correlation sources that moved this value away
	// from its catalog default.
	DerivedFrom []string `json:"derived_from,omitempty"`
}

type explainPersonaOutput struct {
	Persona string             `json:"persona"`
	Traits  []traitExplanation `json:"traits"`
}

type runJourneyInput struct {
	Persona      string             `json:"persona" jsonschema:"persona template name, or custom"`
	CustomTraits map[string]float64 `json:"custom_traits,omitempty" jsonschema:"partial trait overrides, values in [0,1]"`
	Goal         string             `json:"goal" jsonschema:"what the simulated user is trying to accomplish"`
	ScriptPath   string             `json:"script_path,omitempty" jsonschema:"path to a recorded fixture script JSON file"`
	ScriptJSON   string             `json:"script_json,omitempty" jsonschema:"inline fixture script JSON, used when script_path is empty"`
	MaxSteps     int                `json:"max_steps,omitempty" jsonschema:"step budget (default 20)"`
	MaxTimeSec   float64            `json:"max_time_sec,omitempty" jsonschema:"simulated-time budget in seconds (0 = none)"`
	Seed         int64              `json:"seed,omitempty" jsonschema:"random seed for reproducibility (0 picks one)"`
}

type runJourneyOutput struct {
	JourneyID   string                    `json:"journey_id"`
	Reason      schemas.TerminationReason `json:"reason"`
	GoalReached bool                      `json:"goal_reached"`
	Steps       int                       `json:"steps"`
	SimSeconds  float64                   `json:"sim_seconds"`
	Friction    []schemas.FrictionPoint   `json:"friction,omitempty"`
	Seed        int64                     `json:"seed"`
}

type getJourneyInput struct {
	JourneyID string `json:"journey_id" jsonschema:"journey ID returned by run_journey"`
}

type getJourneyOutput struct {
	Result *schemas.JourneyResult `json:"result"`
}

// --- Tool handlers ---

func (s *Server) handleListPersonas(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listPersonasInput) (*sdkmcp.CallToolResult, listPersonasOutput, error) {
	templates := s.builder.Templates()
	out := listPersonasOutput{Personas: make([]personaInfo, 0, len(templates))}
	for _, tpl := range templates {
		out.Personas = append(out.Personas, personaInfo{
			Name:           tpl.Name,
			Description:    tpl.Description,
			ExplicitTraits: len(tpl.Traits),
		})
	}
	return nil, out, nil
}

func (s *Server) handleExplainPersona(ctx context.Context, _ *sdkmcp.CallToolRequest, input explainPersonaInput) (*sdkmcp.CallToolResult, explainPersonaOutput, error) {
	overrides := toTraitMap(input.CustomTraits)

	var (
		derivations []traits.Derivation
		err         error
	)
	if input.Persona == "custom" {
		derivations, err = traits.NewResolver(s.catalog).Explain(overrides)
	} else {
		derivations, err = s.builder.Explain(input.Persona, overrides)
	}
	if err != nil {
		return nil, explainPersonaOutput{}, err
	}

	out := explainPersonaOutput{Persona: input.Persona, Traits: make([]traitExplanation, 0, len(derivations))}
	for _, d := range derivations {
		label, err := s.catalog.LevelLabel(d.Trait, d.Value)
		if err != nil {
			return nil, explainPersonaOutput{}, err
		}
		exp := traitExplanation{
			Trait:    string(d.Trait),
			Value:    d.Value,
			Level:    label,
			Supplied: d.Supplied,
		}
		for _, c := range d.Contributions {
			exp.DerivedFrom = append(exp.DerivedFrom, string(c.Source))
		}
		out.Traits = append(out.Traits, exp)
	}
	return nil, out, nil
}

func (s *Server) handleRunJourney(ctx context.Context, _ *sdkmcp.CallToolRequest, input runJourneyInput) (*sdkmcp.CallToolResult, runJourneyOutput, error) {
	script, err := loadScript(input)
	if err != nil {
		return nil, runJourneyOutput{}, err
	}
	player, err := fixture.NewPlayer(script)
	if err != nil {
		return nil, runJourneyOutput{}, err
	}

	profile, err := s.buildProfile(input.Persona, toTraitMap(input.CustomTraits))
	if err != nil {
		return nil, runJourneyOutput{}, err
	}

	seed := input.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cfg := schemas.JourneyConfig{
		Persona:    profile.Name,
		Goal:       input.Goal,
		StartURL:   script.Steps[0].Page.URL,
		MaxSteps:   input.MaxSteps,
		MaxTime:    time.Duration(input.MaxTimeSec * float64(time.Second)),
		RandomSeed: seed,
	}

	result, err := s.orch.Run(ctx, profile, cfg, player)
	if err != nil {
		return nil, runJourneyOutput{}, err
	}

	s.mu.Lock()
	s.results[result.JourneyID] = result
	s.mu.Unlock()
	s.log.Info("journey complete",
		zap.String("journeyID", result.JourneyID),
		zap.String("persona", result.Persona),
		zap.String("reason", string(result.Reason)))

	return nil, runJourneyOutput{
		JourneyID:   result.JourneyID,
		Reason:      result.Reason,
		GoalReached: result.GoalReached,
		Steps:       len(result.Steps),
		SimSeconds:  result.SimDuration,
		Friction:    result.Friction,
		Seed:        result.Seed,
	}, nil
}

func (s *Server) handleGetJourney(ctx context.Context, _ *sdkmcp.CallToolRequest, input getJourneyInput) (*sdkmcp.CallToolResult, getJourneyOutput, error) {
	s.mu.Lock()
	result, ok := s.results[input.JourneyID]
	s.mu.Unlock()
	if !ok {
		return nil, getJourneyOutput{}, fmt.Errorf("no journey %q on this server (run_journey first)", input.JourneyID)
	}
	return nil, getJourneyOutput{Result: result}, nil
}

// --- helpers ---

func (s *Server) buildProfile(name string, overrides map[schemas.TraitID]float64) (persona.Profile, error) {
	if name == "custom" {
		return s.builder.FromAnswers(overrides)
	}
	return s.builder.FromTemplate(name, overrides)
}

func loadScript(input runJourneyInput) (fixture.Script, error) {
	switch {
	case input.ScriptPath != "":
		return fixture.LoadScriptFile(input.ScriptPath)
	case input.ScriptJSON != "":
		return fixture.LoadScript(strings.NewReader(input.ScriptJSON))
	default:
		return fixture.Script{}, fmt.Errorf("run_journey needs script_path or script_json")
	}
}

func toTraitMap(in map[string]float64) map[schemas.TraitID]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[schemas.TraitID]float64, len(in))
	for id, v := range in {
		out[schemas.TraitID(id)] = v
	}
	return out
}
