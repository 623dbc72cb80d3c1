package profiler

import (
	"github.com/PentesterFlow/APIProfiler/internal/classify"
	"github.com/PentesterFlow/APIProfiler/internal/dedup"
	"github.com/PentesterFlow/APIProfiler/internal/evidence"
	"github.com/PentesterFlow/APIProfiler/internal/patterns"
	"github.com/PentesterFlow/APIProfiler/internal/scoring"
	"github.com/PentesterFlow/APIProfiler/internal/signature"
)

// AnalysisReport is the final output of one pipeline run. Its JSON shape
// is a compatibility surface: field names and nesting are fixed.
type AnalysisReport struct {
	DiscoveryMethod string          `json:"discovery_method"`
	RawDataSummary  string          `json:"raw_data_summary"`
	AnalysisSummary AnalysisSummary `json:"analysis_summary"`
}

// AnalysisSummary holds the confidence scoring and convention analysis.
type AnalysisSummary struct {
	ConfidenceScore   float64                   `json:"confidence_score"`
	ConfidenceDetails scoring.Breakdown         `json:"confidence_details"`
	APIConventions    patterns.ConventionReport `json:"api_conventions"`
}

// EndpointSummary summarizes a deduplicated endpoint list.
type EndpointSummary struct {
	Total      int            `json:"total"`
	ByMethod   map[string]int `json:"by_method"`
	ByCategory map[string]int `json:"by_category"`
	BySource   map[string]int `json:"by_source"`
}

// Evidence and result types re-exported for callers of the public API.
type (
	HTTPInteraction = evidence.HTTPInteraction
	RequestRecord   = evidence.RequestRecord
	ResponseRecord  = evidence.ResponseRecord
	SpecDocument    = evidence.SpecDocument
	EndpointRecord  = evidence.EndpointRecord
	Metadata        = scoring.Metadata
	Category        = classify.Category
)

// Endpoint categories.
const (
	CategoryREST      = classify.REST
	CategoryGraphQL   = classify.GraphQL
	CategorySOAP      = classify.SOAP
	CategoryWebSocket = classify.WebSocket
	CategoryUnknown   = classify.Unknown
)

// Normalize canonicalizes a URL and HTTP method into the comparable form
// used as an endpoint identity.
func Normalize(url, method string) (string, string) {
	return signature.Normalize(url, method)
}

// Categorize classifies one endpoint record into a protocol/style
// category.
func Categorize(rec EndpointRecord) Category {
	return classify.Categorize(rec)
}

// Deduplicate removes records whose normalized (url, method) signature
// already appeared earlier in the list, preserving order.
func Deduplicate(records []EndpointRecord) []EndpointRecord {
	return dedup.Deduplicate(records)
}
