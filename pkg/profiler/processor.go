// Package profiler turns raw API discovery evidence into a structured,
// confidence-scored description of an API's conventions.
package profiler

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/PentesterFlow/APIProfiler/internal/cache"
	"github.com/PentesterFlow/APIProfiler/internal/classify"
	"github.com/PentesterFlow/APIProfiler/internal/dedup"
	apperrors "github.com/PentesterFlow/APIProfiler/internal/errors"
	"github.com/PentesterFlow/APIProfiler/internal/evidence"
	"github.com/PentesterFlow/APIProfiler/internal/logger"
	"github.com/PentesterFlow/APIProfiler/internal/patterns"
	"github.com/PentesterFlow/APIProfiler/internal/scoring"
)

// Discovery methods whose data payload doubles as structured evidence.
const (
	methodOpenAPISpec = "openapi_spec"
	methodMitmproxy   = "mitmproxy"
)

// Processor is the pipeline orchestrator: it validates inputs, consults
// the result cache, runs scoring and pattern recognition, and assembles
// the final report. The cache is owned by the processor and injected at
// construction rather than shared module state.
type Processor struct {
	cfg   *Config
	cache *cache.Cache
	log   *logger.Logger
}

// New creates a processor from the given configuration. A nil config
// selects the defaults.
func New(cfg *Config) (*Processor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg.loggerConfig("processor"))

	resultCache, err := cache.New(cache.Config{
		Dir:    cfg.CacheDir,
		Name:   cfg.CacheName,
		TTL:    cfg.CacheTTL,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result cache: %w", err)
	}

	return &Processor{
		cfg:   cfg,
		cache: resultCache,
		log:   log,
	}, nil
}

// Close releases the processor's resources. The cache holds no open
// handles between operations, so this is currently a lifecycle no-op,
// kept so callers can treat the processor as an owned resource.
func (p *Processor) Close() error {
	return nil
}

// Process runs the full pipeline over one evidence set. discoveryMethod
// and data are required; spec and interactions are independently
// optional. Identical calls within the cache TTL return the cached
// report verbatim.
func (p *Processor) Process(discoveryMethod string, data any, spec SpecDocument, interactions []HTTPInteraction) (*AnalysisReport, error) {
	return p.ProcessWithMetadata(discoveryMethod, data, spec, interactions, nil)
}

// ProcessWithMetadata is Process with caller-supplied provenance metadata
// for confidence scoring. Metadata does not participate in the cache key.
func (p *Processor) ProcessWithMetadata(discoveryMethod string, data any, spec SpecDocument, interactions []HTTPInteraction, md *Metadata) (*AnalysisReport, error) {
	start := time.Now()

	if strings.TrimSpace(discoveryMethod) == "" {
		return nil, apperrors.NewInvalidInput("process", "discovery_method is required")
	}
	if data == nil {
		return nil, apperrors.NewInvalidInput("process", "data is required")
	}

	key, err := cache.Key(discoveryMethod, data)
	if err != nil {
		return nil, apperrors.New(apperrors.InvalidInput, "process", "data is not JSON-compatible", err)
	}

	var cached AnalysisReport
	if p.cache.Get(key, &cached) {
		// Overall is derived and excluded from the wire form; rebuild it so
		// a cached report matches a fresh one field for field.
		cached.AnalysisSummary.ConfidenceDetails.Overall = cached.AnalysisSummary.ConfidenceScore
		p.log.ProcessEvent(discoveryMethod, true, cached.AnalysisSummary.ConfidenceScore, time.Since(start))
		return &cached, nil
	}

	spec, interactions = promote(discoveryMethod, data, spec, interactions)

	// Scoring and recognition are independent pure computations; run them
	// concurrently.
	var breakdown scoring.Breakdown
	var conventions patterns.ConventionReport
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		breakdown = scoring.Score(md)
	}()
	go func() {
		defer wg.Done()
		conventions = patterns.NewRecognizer(spec, interactions, p.log).Identify()
	}()
	wg.Wait()

	report := &AnalysisReport{
		DiscoveryMethod: discoveryMethod,
		RawDataSummary:  summarizeRawData(data),
		AnalysisSummary: AnalysisSummary{
			ConfidenceScore:   breakdown.Overall,
			ConfidenceDetails: breakdown,
			APIConventions:    conventions,
		},
	}

	p.cache.Put(key, report)
	p.log.ProcessEvent(discoveryMethod, false, breakdown.Overall, time.Since(start))
	return report, nil
}

// SummarizeEndpoints flattens the evidence set into a deduplicated,
// categorized endpoint summary. Not part of the AnalysisReport wire
// contract.
func (p *Processor) SummarizeEndpoints(spec SpecDocument, interactions []HTTPInteraction) EndpointSummary {
	seen := dedup.NewSignatureSet(p.cfg.EstimatedEndpoints)
	records := dedup.DeduplicateInto(seen, evidence.Records(spec, interactions))

	summary := EndpointSummary{
		Total:      len(records),
		ByMethod:   map[string]int{},
		ByCategory: map[string]int{},
		BySource:   map[string]int{},
	}
	for _, rec := range records {
		if rec.Method != "" {
			summary.ByMethod[rec.Method]++
		}
		summary.ByCategory[string(classify.Categorize(rec))]++
		if rec.Source != "" {
			summary.BySource[rec.Source]++
		}
	}
	return summary
}

// ClearCache removes every cached result.
func (p *Processor) ClearCache() (int, error) {
	return p.cache.ClearAll()
}

// ClearStaleCache removes every expired cached result.
func (p *Processor) ClearStaleCache() (int, error) {
	return p.cache.ClearStale()
}

// CachePath returns the location of the cache file.
func (p *Processor) CachePath() string {
	return p.cache.Path()
}

// promote reuses the data payload as structured evidence for discovery
// methods whose payload is the spec or the traffic itself, unless the
// caller already supplied that evidence explicitly.
func promote(discoveryMethod string, data any, spec SpecDocument, interactions []HTTPInteraction) (SpecDocument, []HTTPInteraction) {
	if spec == nil && discoveryMethod == methodOpenAPISpec {
		switch v := data.(type) {
		case SpecDocument:
			spec = v
		case map[string]any:
			spec = SpecDocument(v)
		}
	}

	if interactions == nil && discoveryMethod == methodMitmproxy {
		switch v := data.(type) {
		case []HTTPInteraction:
			interactions = v
		case []any:
			// Loosely-typed capture data: round-trip through JSON into the
			// typed interaction shape, dropping whatever does not fit.
			if raw, err := json.Marshal(v); err == nil {
				var converted []HTTPInteraction
				if err := json.Unmarshal(raw, &converted); err == nil {
					interactions = converted
				}
			}
		}
	}

	return spec, interactions
}

// summarizeRawData renders a short human-readable description of the
// opaque data payload's shape. This is the only place that sniffs the
// payload's type.
func summarizeRawData(data any) string {
	switch v := data.(type) {
	case map[string]any:
		return fmt.Sprintf("mapping with %d keys", len(v))
	case []any:
		return fmt.Sprintf("list with %d items", len(v))
	case string:
		return fmt.Sprintf("string with length %d", len(v))
	}

	// Typed maps and slices still count as mappings and lists.
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		return fmt.Sprintf("mapping with %d keys", rv.Len())
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("list with %d items", rv.Len())
	default:
		return fmt.Sprintf("data of type %T", data)
	}
}
