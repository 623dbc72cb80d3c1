// Package evidence defines the input data model for the analysis pipeline.
package evidence

import "strings"

// HTTPInteraction is one captured request/response pair. Immutable once
// supplied; the pipeline never writes back into it.
type HTTPInteraction struct {
	Request  RequestRecord  `json:"request"`
	Response ResponseRecord `json:"response"`
}

// RequestRecord holds the request half of an interaction.
type RequestRecord struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// ResponseRecord holds the response half of an interaction.
type ResponseRecord struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`
}

// SpecDocument is an OpenAPI/Swagger document in loosely-typed form.
// Documents in the wild are frequently partial or malformed, so every
// accessor tolerates missing or wrong-typed fields instead of failing.
type SpecDocument map[string]any

// Lookup walks nested maps by key and returns the value, or nil if any
// step is absent or not a map.
func (s SpecDocument) Lookup(keys ...string) any {
	var current any = map[string]any(s)
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// Map returns the nested map at the key path, or an empty map.
func (s SpecDocument) Map(keys ...string) map[string]any {
	if m, ok := s.Lookup(keys...).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// String returns the nested string at the key path, or "".
func (s SpecDocument) String(keys ...string) string {
	if v, ok := s.Lookup(keys...).(string); ok {
		return v
	}
	return ""
}

// Paths returns the spec's path item map.
func (s SpecDocument) Paths() map[string]any {
	return s.Map("paths")
}

// SecuritySchemes returns the declared security schemes.
func (s SpecDocument) SecuritySchemes() map[string]any {
	return s.Map("components", "securitySchemes")
}

// Schemas returns the component schema definitions.
func (s SpecDocument) Schemas() map[string]any {
	return s.Map("components", "schemas")
}

// EndpointRecord is one observed or declared API call, as produced by the
// upstream collectors (traffic capture, spec parsing). Transformations
// produce new records; existing ones are read-only.
type EndpointRecord struct {
	URL             string            `json:"url"`
	Method          string            `json:"method,omitempty"`
	Source          string            `json:"discovery_source,omitempty"`
	StatusCode      int               `json:"status_code,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	Description     string            `json:"description,omitempty"`
	RequestBody     string            `json:"request_body,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	SpecLinked      bool              `json:"spec_linked,omitempty"`
}

// HeaderValue looks up a header by name, case-insensitively.
func HeaderValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// HTTPMethods is the set of standard HTTP request methods, in canonical
// uppercase form.
var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE"}

// IsHTTPMethod reports whether method is a standard HTTP method.
// The check is case-sensitive; callers normalize first.
func IsHTTPMethod(method string) bool {
	for _, m := range HTTPMethods {
		if method == m {
			return true
		}
	}
	return false
}
