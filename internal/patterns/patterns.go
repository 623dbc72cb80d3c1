// Package patterns extracts API convention facts from discovery evidence:
// an optional OpenAPI document and optional captured HTTP interactions.
// Each of the seven report sections is computed independently so a failure
// in one heuristic cannot blank the whole report.
package patterns

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/PentesterFlow/APIProfiler/internal/errors"
	"github.com/PentesterFlow/APIProfiler/internal/evidence"
	"github.com/PentesterFlow/APIProfiler/internal/logger"
)

// ConventionReport is the aggregated output of all recognition sections.
// Sections with no supporting evidence serialize as empty objects, never
// as null.
type ConventionReport struct {
	NamingConventions NamingSection     `json:"naming_conventions"`
	Versioning        VersioningSection `json:"versioning"`
	Authentication    AuthSection       `json:"authentication"`
	Pagination        PaginationSection `json:"pagination"`
	DataFormats       FormatsSection    `json:"data_formats"`
	HTTPMethods       map[string]int    `json:"http_methods"`
	StatusCodes       map[string]int    `json:"status_codes"`
}

// NamingSection tallies identifier styles per surface and names the single
// most frequent style overall.
type NamingSection struct {
	PredominantStyle string         `json:"predominant_style,omitempty"`
	PathSegments     map[string]int `json:"path_segments,omitempty"`
	QueryParameters  map[string]int `json:"query_parameters,omitempty"`
	HeaderParameters map[string]int `json:"header_parameters,omitempty"`
	PathParameters   map[string]int `json:"path_parameters,omitempty"`
	RequestBodyKeys  map[string]int `json:"request_body_keys,omitempty"`
	ResponseBodyKeys map[string]int `json:"response_body_keys,omitempty"`
	SchemaKeys       map[string]int `json:"component_schema_keys,omitempty"`
}

// VersioningSection records which versioning strategies were observed and
// the literal version strings found.
type VersioningSection struct {
	Strategies         []string       `json:"strategies,omitempty"`
	PathVersions       []string       `json:"path_versions,omitempty"`
	HeaderVersions     map[string]int `json:"header_versions,omitempty"`
	QueryParamVersions map[string]int `json:"query_param_versions,omitempty"`
	IdentifiedVersions []string       `json:"identified_versions,omitempty"`
}

// AuthScheme is one security scheme declared by the spec.
type AuthScheme struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Scheme    string `json:"scheme,omitempty"`
	In        string `json:"in,omitempty"`
	ParamName string `json:"param_name,omitempty"`
}

// AuthSection records authentication schemes and where credentials were
// carried.
type AuthSection struct {
	Schemes             []string       `json:"schemes,omitempty"`
	Locations           []string       `json:"locations,omitempty"`
	SpecSchemes         []AuthScheme   `json:"spec_schemes,omitempty"`
	ObservedHeaders     map[string]int `json:"observed_headers,omitempty"`
	ObservedQueryParams map[string]int `json:"observed_query_params,omitempty"`
}

// PaginationSection records which pagination families were observed and
// the parameter names backing each.
type PaginationSection struct {
	Styles        []string            `json:"styles,omitempty"`
	Parameters    map[string][]string `json:"parameters,omitempty"`
	LinkRelations map[string]int      `json:"link_relations,omitempty"`
}

// FormatsSection records payload formats from headers and the spec.
type FormatsSection struct {
	RequestContentTypes  map[string]int      `json:"request_content_types,omitempty"`
	ResponseContentTypes map[string]int      `json:"response_content_types,omitempty"`
	AcceptHeaders        map[string]int      `json:"accept_headers,omitempty"`
	SpecConsumes         map[string]int      `json:"spec_consumes,omitempty"`
	SpecProduces         map[string]int      `json:"spec_produces,omitempty"`
	Classes              map[string][]string `json:"classes,omitempty"`
}

// Recognizer inspects one evidence set. It never mutates its inputs.
type Recognizer struct {
	spec         evidence.SpecDocument
	interactions []evidence.HTTPInteraction
	log          *logger.Logger
}

// NewRecognizer creates a recognizer over the given evidence. Either
// source may be nil; an absent source simply contributes nothing.
func NewRecognizer(spec evidence.SpecDocument, interactions []evidence.HTTPInteraction, log *logger.Logger) *Recognizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Recognizer{
		spec:         spec,
		interactions: interactions,
		log:          log.WithComponent("patterns"),
	}
}

// Identify runs all sections and aggregates the report. Sections run
// independently: a panic inside one leaves that section empty and the
// rest intact.
func (r *Recognizer) Identify() ConventionReport {
	var report ConventionReport

	r.runSection("naming_conventions", func() any {
		report.NamingConventions = r.namingConventions()
		return report.NamingConventions
	})
	r.runSection("versioning", func() any {
		report.Versioning = r.versioning()
		return report.Versioning
	})
	r.runSection("authentication", func() any {
		report.Authentication = r.authentication()
		return report.Authentication
	})
	r.runSection("pagination", func() any {
		report.Pagination = r.pagination()
		return report.Pagination
	})
	r.runSection("data_formats", func() any {
		report.DataFormats = r.dataFormats()
		return report.DataFormats
	})
	r.runSection("http_methods", func() any {
		report.HTTPMethods = r.httpMethods()
		return report.HTTPMethods
	})
	r.runSection("status_codes", func() any {
		report.StatusCodes = r.statusCodes()
		return report.StatusCodes
	})

	// Flat map sections must marshal as {} even when their section failed.
	if report.HTTPMethods == nil {
		report.HTTPMethods = map[string]int{}
	}
	if report.StatusCodes == nil {
		report.StatusCodes = map[string]int{}
	}

	return report
}

// runSection isolates one section: a panic degrades to an empty result
// for that section only.
func (r *Recognizer) runSection(name string, fn func() any) {
	defer func() {
		if rec := recover(); rec != nil {
			err := apperrors.NewRecognition(name, fmt.Errorf("%v", rec))
			r.log.WithError(err).Warnf("section %s degraded to empty result", name)
		}
	}()
	result := fn()
	r.log.SectionEvent(name, sectionEmpty(result))
}

// sectionEmpty reports whether a section result would serialize with no
// evidence in it. All section fields carry omitempty, so an empty section
// marshals as {} (or null for a nil flat map).
func sectionEmpty(result any) bool {
	b, err := json.Marshal(result)
	if err != nil {
		return true
	}
	s := string(b)
	return s == "{}" || s == "null"
}
