package sim

import (
	"strings"

	"github.com/ignite/phishsim-monitor/internal/store"
)

// EngagementProfile holds the per-attack-level probabilities driving the
// human side of the simulation.
type EngagementProfile struct {
	OpenProb       float64
	ClickGivenOpen float64
}

// Engagement probabilities by attack sophistication. More convincing
// emails get opened and clicked more.
var engagementProfiles = map[string]EngagementProfile{
	store.LevelBasic:    {OpenProb: 0.25, ClickGivenOpen: 0.18},
	store.LevelAdvanced: {OpenProb: 0.45, ClickGivenOpen: 0.35},
	store.LevelExpert:   {OpenProb: 0.54, ClickGivenOpen: 0.54},
}

// Fixed probabilities independent of attack level.
const (
	reportBeforeClickProb = 0.08 // opened but not clicked
	reportAfterClickProb  = 0.12 // clicked, then second thoughts
	phantomClickProb      = 0.01 // automated scanner on an unopened email
)

// ProfileFor returns the engagement profile for an attack level. Unknown
// levels fall back to the advanced profile; this is a documented default,
// not an error.
func ProfileFor(level string) EngagementProfile {
	if p, ok := engagementProfiles[strings.ToLower(strings.TrimSpace(level))]; ok {
		return p
	}
	return engagementProfiles[store.LevelAdvanced]
}

// Base detection rates by attack level: the probability the simulated
// security stack flags the email, i.e. 1 minus the published bypass rate
// for that category of lure.
var baseDetectionRates = map[string]float64{
	store.LevelBasic:    0.822,
	store.LevelAdvanced: 0.468,
	store.LevelExpert:   0.46,
}

// BaseDetectionRateFor mirrors ProfileFor's fallback for unknown levels.
func BaseDetectionRateFor(level string) float64 {
	if r, ok := baseDetectionRates[strings.ToLower(strings.TrimSpace(level))]; ok {
		return r
	}
	return baseDetectionRates[store.LevelAdvanced]
}

// ModelAdjustment shifts the detection rate for output of a given model
// family. The table is ordered: the first substring match wins, so the
// entry for a family prefix shadows anything after it.
type ModelAdjustment struct {
	Substring string
	Delta     float64
}

var modelAdjustments = []ModelAdjustment{
	{"gpt-4", -0.05},
	{"gpt-3.5", -0.02},
	{"claude", -0.03},
	{"llama", +0.02},
}

// AdjustmentForModel returns the detection-rate delta for a model
// identifier. Matching is case-insensitive substring containment over the
// ordered table; no match means zero.
func AdjustmentForModel(model string) float64 {
	m := strings.ToLower(model)
	for _, adj := range modelAdjustments {
		if strings.Contains(m, adj.Substring) {
			return adj.Delta
		}
	}
	return 0
}

// ModelsMatch implements the fuzzy per-model metric matching rule: an
// email belongs to a model key when either string contains the other,
// case-insensitively. The dashboards query with family prefixes like
// "gpt-4", so exact matching would change observable breakdowns.
func ModelsMatch(emailModel, key string) bool {
	a := strings.ToLower(strings.TrimSpace(emailModel))
	b := strings.ToLower(strings.TrimSpace(key))
	if a == "" || b == "" {
		return a == b
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
