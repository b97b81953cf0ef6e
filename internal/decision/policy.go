// Package decision implements the per-step choice model: information-scent
// scoring over the observed candidates, trait-banded selection, patch
// leaving, commitment discounting and the retry budget. The policy is
// deterministic for a fixed seed; all randomness flows through the injected
// rand.Rand and is consumed in a fixed order.
package decision

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// Request carries everything one decision needs. DwellSeconds is the
// simulated time already spent on the current page fingerprint; Visited maps
// followed hrefs to how often they were taken.
type Request struct {
	Goal         Goal
	Observation  schemas.Observation
	State        schemas.StateSnapshot
	DwellSeconds float64
	Visited      map[string]int
}

// Policy scores and selects actions for one persona. Construct once per
// journey; the zero value is not usable.
type Policy struct {
	tun Tuning
	rng *rand.Rand

	foraging      float64
	comprehension float64
	sigma         float64
	scentMix      float64
	beta          float64
	delta         float64
	topK          int
	curiosity     float64
	wordsPerSec   float64
	readFraction  float64
	scanFactor    float64
	hesitationSec float64
	dwellLimit    float64
	scentFloor    float64
}

// NewPolicy derives the per-persona decision parameters from the resolved
// trait vector. The rng must be dedicated to this policy: selection order
// and noise both consume from it.
func NewPolicy(tv schemas.TraitVector, tun Tuning, rng *rand.Rand) (*Policy, error) {
	if err := tun.Validate(); err != nil {
		return nil, err
	}

	foraging := tv.Get(schemas.TraitInformationForaging, 0.5)
	comprehension := tv.Get(schemas.TraitComprehension, 0.5)
	timeHorizon := tv.Get(schemas.TraitTimeHorizon, 0.5)
	workingMemory := tv.Get(schemas.TraitWorkingMemory, 0.5)
	decisiveness := tv.Get(schemas.TraitDecisiveness, 0.5)

	return &Policy{
		tun:           tun,
		rng:           rng,
		foraging:      foraging,
		comprehension: comprehension,
		sigma:         tun.NoiseSigmaMax * (1 - comprehension),
		// High foragers weight label scent over visual prominence.
		scentMix: 0.4 + 0.5*foraging,
		// Quasi-hyperbolic discounting: beta is the present bias, delta the
		// per-step discount. Long horizons soften both.
		beta:          0.55 + 0.4*timeHorizon,
		delta:         0.85 + 0.14*timeHorizon,
		topK:          2 + int(math.Round(workingMemory*5)),
		curiosity:     tv.Get(schemas.TraitCuriosity, 0.5),
		wordsPerSec:   tun.WordsPerSecondMin + tun.WordsPerSecondSpread*tv.Get(schemas.TraitReadingSpeed, 0.5),
		readFraction:  0.35 + 0.4*tv.Get(schemas.TraitPlanningDepth, 0.5),
		scanFactor:    1.2 - tv.Get(schemas.TraitVisualSearch, 0.5),
		hesitationSec: tun.HesitationMaxSec * (1 - decisiveness),
		dwellLimit:    tun.DwellBaseSec + (1-foraging)*tun.DwellSpreadSec,
		scentFloor:    tun.ScentFloorBase + foraging*tun.ScentFloorSpread,
	}, nil
}

// RetryBudget is how many attempts a transiently failing action deserves:
// floor(1 + persistence*7), so even a defeatist tries once.
func RetryBudget(tv schemas.TraitVector) int {
	return int(math.Floor(1 + tv.Get(schemas.TraitPersistence, 0.5)*7))
}

type scored struct {
	candidate schemas.CandidateElement
	score     float64
	// raw is the plain scent before novelty, discounting and noise; the
	// page's best raw scent goes into the decision for the session to read.
	raw   float64
	index int
}

// Decide produces the next decision. It is total: any observation, including
// an empty one, yields a well-formed decision rather than an error.
func (p *Policy) Decide(req Request) schemas.Decision {
	obs := req.Observation

	if obs.Empty() {
		return schemas.Decision{
			Kind:       schemas.DecisionAbandon,
			Action:     schemas.ActionNone,
			Confidence: 0,
			Monologue:  abandonMonologue(req.State),
			SimSeconds: p.readCost(obs.Content) + p.hesitationSec,
		}
	}

	ranked := p.scoreCandidates(req)
	best := ranked[0]
	bestScent := 0.0
	for _, s := range ranked {
		if s.raw > bestScent {
			bestScent = s.raw
		}
	}

	// Patch leaving: enough time sunk into a page that smells wrong.
	if req.DwellSeconds > p.dwellLimit && best.score < p.scentFloor {
		return schemas.Decision{
			Kind:       schemas.DecisionLeave,
			Action:     schemas.ActionBack,
			Confidence: best.score,
			BestScent:  bestScent,
			Scores:     p.traceScores(ranked),
			Monologue:  leaveMonologue(best.score, req.State),
			SimSeconds: p.decisionCost(obs, best.score),
		}
	}

	choice := p.selectFrom(ranked)
	target := choice.candidate

	action := schemas.ActionClick
	typed := ""
	if target.Role == schemas.RoleInput {
		action = schemas.ActionType
		typed = strings.Join(req.Goal.Tokens(), " ")
	}

	return schemas.Decision{
		Kind:       schemas.DecisionEngage,
		Action:     action,
		Target:     &target,
		TypedText:  typed,
		Confidence: choice.score,
		BestScent:  bestScent,
		Scores:     p.traceScores(ranked),
		Monologue:  engageMonologue(choice.score, target.Label, req.State),
		SimSeconds: p.decisionCost(obs, best.score),
	}
}

// scoreCandidates computes the final scent score for every candidate in
// observation order, then ranks them. Noise is drawn in observation order so
// a fixed seed reproduces identical scores.
func (p *Policy) scoreCandidates(req Request) []scored {
	out := make([]scored, 0, len(req.Observation.Candidates))
	for i, c := range req.Observation.Candidates {
		text := c.Label
		if c.Href != "" {
			text += " " + hrefWords(c.Href)
		}
		coverage := req.Goal.Coverage(text)

		raw := coverage*p.scentMix + c.Prominence*(1-p.scentMix)
		score := raw

		if c.Href != "" && req.Visited[c.Href] == 0 {
			score += p.curiosity * p.tun.NoveltyBonus
		}
		if c.FlowDepth > 0 {
			score *= p.beta * math.Pow(p.delta, float64(c.FlowDepth))
		}
		if p.sigma > 0 {
			score += p.rng.NormFloat64() * p.sigma
		}

		out = append(out, scored{candidate: c, score: clamp01(score), raw: raw, index: i})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].score != out[b].score {
			return out[a].score > out[b].score
		}
		if out[a].candidate.Prominence != out[b].candidate.Prominence {
			return out[a].candidate.Prominence > out[b].candidate.Prominence
		}
		return out[a].index < out[b].index
	})
	return out
}

// selectFrom applies the foraging-banded selection rule to ranked
// candidates. Strong foragers trust the scent gradient and take the top
// candidate outright; middling ones sample proportionally to score; weak
// ones pick near-randomly among what fits in working memory.
func (p *Policy) selectFrom(ranked []scored) scored {
	if p.foraging > p.tun.ArgmaxForaging {
		return ranked[0]
	}

	if p.foraging >= p.tun.GuessForaging {
		if choice, ok := p.sampleProportional(ranked); ok {
			return choice
		}
	}

	k := p.topK
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[p.rng.Intn(k)]
}

// sampleProportional draws one candidate with probability proportional to
// its score. Candidates with non-positive scores never win.
func (p *Policy) sampleProportional(ranked []scored) (scored, bool) {
	var total float64
	for _, s := range ranked {
		if s.score > 0 {
			total += s.score
		}
	}
	if total <= 0 {
		return scored{}, false
	}
	r := p.rng.Float64() * total
	var cum float64
	for _, s := range ranked {
		if s.score <= 0 {
			continue
		}
		cum += s.score
		if r < cum {
			return s, true
		}
	}
	// Float accumulation can leave r just above the final cum.
	return ranked[len(ranked)-1], true
}

func (p *Policy) traceScores(ranked []scored) []schemas.ScoredCandidate {
	n := len(ranked)
	if n > p.tun.TraceScoreLimit {
		n = p.tun.TraceScoreLimit
	}
	out := make([]schemas.ScoredCandidate, 0, n)
	for _, s := range ranked[:n] {
		out = append(out, schemas.ScoredCandidate{
			Ref:   s.candidate.Ref,
			Label: s.candidate.Label,
			Score: s.score,
		})
	}
	return out
}

// decisionCost is the simulated seconds a decision consumes: reading the
// content the persona bothers with, scanning the candidates, and hesitating
// in proportion to how unconvincing the best option is.
func (p *Policy) decisionCost(obs schemas.Observation, bestScore float64) float64 {
	cost := p.readCost(obs.Content)
	cost += float64(len(obs.Candidates)) * p.tun.ScanSecPerCandidate * p.scanFactor
	cost += p.hesitationSec * (1 - clamp01(bestScore))
	return cost
}

func (p *Policy) readCost(content []schemas.ContentBlock) float64 {
	total := 0
	for _, block := range content {
		total += len(strings.Fields(block.Text))
	}
	considered := float64(total) * p.readFraction
	return considered / p.wordsPerSec
}

// hrefWords turns a URL path into scent-bearing words, e.g.
// "/plans/pricing-tiers" contributes "plans pricing tiers".
func hrefWords(href string) string {
	href = strings.TrimPrefix(href, "http://")
	href = strings.TrimPrefix(href, "https://")
	if i := strings.IndexByte(href, '/'); i >= 0 {
		href = href[i:]
	} else {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '-', '_', '.', '?', '=', '&', '#':
			return ' '
		}
		return r
	}, href)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
