package evidence

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Records flattens an evidence set into endpoint records: one record per
// path/method pair declared in the spec, one per captured interaction.
// Either source may be absent.
func Records(spec SpecDocument, interactions []HTTPInteraction) []EndpointRecord {
	var records []EndpointRecord

	for path, item := range spec.Paths() {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, op := range pathItem {
			upper := strings.ToUpper(method)
			if !IsHTTPMethod(upper) {
				continue
			}
			rec := EndpointRecord{
				URL:        path,
				Method:     upper,
				Source:     "openapi_spec",
				SpecLinked: true,
			}
			if opMap, ok := op.(map[string]any); ok {
				if summary, ok := opMap["summary"].(string); ok {
					rec.Description = summary
				}
			}
			records = append(records, rec)
		}
	}

	for _, in := range interactions {
		rec := EndpointRecord{
			URL:             in.Request.URL,
			Method:          strings.ToUpper(in.Request.Method),
			Source:          "http_traffic",
			StatusCode:      in.Response.StatusCode,
			ContentType:     mediaType(HeaderValue(in.Response.Headers, "Content-Type")),
			RequestBody:     bodyString(in.Request.Body),
			ResponseBody:    bodyString(in.Response.Body),
			ResponseHeaders: in.Response.Headers,
		}
		records = append(records, rec)
	}

	return records
}

// bodyString renders a loosely-typed body for heuristic inspection.
func bodyString(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// mediaType strips parameters from a Content-Type value.
func mediaType(value string) string {
	if idx := strings.Index(value, ";"); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
