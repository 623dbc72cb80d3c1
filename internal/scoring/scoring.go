// Package scoring computes multi-factor confidence scores for discovery
// evidence. Scoring is pure: no I/O, deterministic for identical input.
package scoring

import (
	"strings"
	"time"
)

// Weights for combining the four factors into the overall score.
// They must sum to 1.0; scoring_test.go enforces this.
const (
	WeightCompleteness = 0.30
	WeightReliability  = 0.40
	WeightRecency      = 0.15
	WeightValidation   = 0.15
)

// Recency decays linearly with evidence age and bottoms out at zero.
const (
	maxRecencyScore     = 1.0
	recencyDecayPerYear = 0.1
	daysPerYear         = 365.25
)

// sourceReliability maps a declared evidence source type to its trust tier.
// Unrecognized sources fall through to the "unknown" floor.
var sourceReliability = map[string]float64{
	"internal_source": 0.95,
	"official_doc":    0.95,
	"known_api_db":    0.80,
	"partner_api":     0.75,
	"code_repository": 0.60,
	"blog":            0.50,
	"web_search":      0.40,
	"forum":           0.30,
	"unknown":         0.20,
}

// Metadata carries the caller-supplied provenance of an evidence set.
// All fields are optional; absent fields degrade to the neutral or lowest
// score of their factor rather than failing.
type Metadata struct {
	SourceType          string    `json:"source_type,omitempty"`
	FieldsPresent       int       `json:"fields_present,omitempty"`
	TotalExpectedFields int       `json:"total_expected_fields,omitempty"`
	DiscoveredAt        time.Time `json:"discovery_timestamp,omitempty"`
	Validated           bool      `json:"validated,omitempty"`
}

// Breakdown is the four confidence sub-scores, each in [0,1], and their
// weighted sum.
type Breakdown struct {
	Completeness float64 `json:"completeness"`
	Reliability  float64 `json:"reliability"`
	Recency      float64 `json:"recency"`
	Validation   float64 `json:"validation"`
	Overall      float64 `json:"-"`
}

// Score computes the confidence breakdown for the given metadata. A nil
// metadata scores every factor at its floor (or neutral, for recency).
func Score(md *Metadata) Breakdown {
	if md == nil {
		md = &Metadata{}
	}

	b := Breakdown{
		Completeness: Completeness(md.FieldsPresent, md.TotalExpectedFields),
		Reliability:  Reliability(md.SourceType),
		Recency:      Recency(md.DiscoveredAt, time.Now()),
		Validation:   Validation(md.Validated),
	}
	b.Overall = clamp(b.Completeness*WeightCompleteness +
		b.Reliability*WeightReliability +
		b.Recency*WeightRecency +
		b.Validation*WeightValidation)
	return b
}

// Completeness is the fraction of expected metadata fields present.
// A zero expectation scores 0.0 rather than dividing by zero.
func Completeness(fieldsPresent, totalExpected int) float64 {
	if totalExpected <= 0 {
		return 0.0
	}
	return clamp(float64(fieldsPresent) / float64(totalExpected))
}

// Reliability looks up the trust tier for a source type. Empty or
// unrecognized types score the unknown floor.
func Reliability(sourceType string) float64 {
	if score, ok := sourceReliability[strings.ToLower(sourceType)]; ok {
		return score
	}
	return sourceReliability["unknown"]
}

// Recency decays by 10% per year of evidence age, clamped at zero, so a
// 15-year-old discovery scores exactly 0.0. An unknown (zero) timestamp
// scores the neutral 0.5; a future timestamp scores the maximum.
func Recency(discoveredAt, now time.Time) float64 {
	if discoveredAt.IsZero() {
		return 0.5
	}
	age := now.Sub(discoveredAt)
	if age < 0 {
		return maxRecencyScore
	}
	years := age.Hours() / 24 / daysPerYear
	return clamp(maxRecencyScore - recencyDecayPerYear*years)
}

// Validation is binary: evidence is either marked validated by an external
// process or it is not.
func Validation(validated bool) float64 {
	if validated {
		return 1.0
	}
	return 0.0
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
