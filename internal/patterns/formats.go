package patterns

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PentesterFlow/APIProfiler/internal/evidence"
)

// Format classes.
const (
	classJSON  = "json"
	classXML   = "xml"
	classForm  = "form"
	classOther = "other"
)

// classifyFormat buckets one media type value.
func classifyFormat(value string) string {
	lower := strings.ToLower(value)
	switch {
	case strings.Contains(lower, "json"):
		return classJSON
	case strings.Contains(lower, "xml"):
		return classXML
	case strings.Contains(lower, "form-urlencoded"), strings.Contains(lower, "multipart/form-data"):
		return classForm
	default:
		return classOther
	}
}

func (r *Recognizer) dataFormats() FormatsSection {
	requestTypes := map[string]int{}
	responseTypes := map[string]int{}
	acceptTypes := map[string]int{}
	specConsumes := map[string]int{}
	specProduces := map[string]int{}

	// Swagger 2.0 global consumes/produces.
	countStringList(r.spec.Lookup("consumes"), specConsumes)
	countStringList(r.spec.Lookup("produces"), specProduces)

	for _, item := range r.spec.Paths() {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, op := range pathItem {
			if !evidence.IsHTTPMethod(strings.ToUpper(method)) {
				continue
			}
			opMap, ok := op.(map[string]any)
			if !ok {
				continue
			}
			countStringList(opMap["consumes"], specConsumes)
			countStringList(opMap["produces"], specProduces)

			// OpenAPI 3 media types under requestBody and responses.
			if body, ok := opMap["requestBody"].(map[string]any); ok {
				if content, ok := body["content"].(map[string]any); ok {
					for mediaType := range content {
						specConsumes[mediaType]++
					}
				}
			}
			if responses, ok := opMap["responses"].(map[string]any); ok {
				for _, resp := range responses {
					respMap, ok := resp.(map[string]any)
					if !ok {
						continue
					}
					if content, ok := respMap["content"].(map[string]any); ok {
						for mediaType := range content {
							specProduces[mediaType]++
						}
					}
				}
			}
		}
	}

	for _, in := range r.interactions {
		if ct := evidence.HeaderValue(in.Request.Headers, "Content-Type"); ct != "" {
			requestTypes[baseMediaType(ct)]++
		}
		if accept := evidence.HeaderValue(in.Request.Headers, "Accept"); accept != "" {
			// Accept can list several types with q-factors.
			for _, part := range strings.Split(accept, ",") {
				acceptTypes[baseMediaType(part)]++
			}
		}
		if ct := evidence.HeaderValue(in.Response.Headers, "Content-Type"); ct != "" {
			responseTypes[baseMediaType(ct)]++
		}
	}

	classes := map[string][]string{}
	for _, counter := range []map[string]int{requestTypes, responseTypes, acceptTypes, specConsumes, specProduces} {
		for value := range counter {
			class := classifyFormat(value)
			if !containsString(classes[class], value) {
				classes[class] = append(classes[class], value)
			}
		}
	}
	for class := range classes {
		sort.Strings(classes[class])
	}
	if len(classes) == 0 {
		classes = nil
	}

	return FormatsSection{
		RequestContentTypes:  prune(requestTypes),
		ResponseContentTypes: prune(responseTypes),
		AcceptHeaders:        prune(acceptTypes),
		SpecConsumes:         prune(specConsumes),
		SpecProduces:         prune(specProduces),
		Classes:              classes,
	}
}

// httpMethods is a frequency table over spec operations and captured
// interactions.
func (r *Recognizer) httpMethods() map[string]int {
	methods := map[string]int{}

	for _, item := range r.spec.Paths() {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method := range pathItem {
			upper := strings.ToUpper(method)
			if evidence.IsHTTPMethod(upper) {
				methods[upper]++
			}
		}
	}

	for _, in := range r.interactions {
		if method := strings.ToUpper(in.Request.Method); method != "" {
			methods[method]++
		}
	}

	return methods
}

// statusCodes is a frequency table over spec-declared responses and
// observed response codes.
func (r *Recognizer) statusCodes() map[string]int {
	codes := map[string]int{}

	for _, item := range r.spec.Paths() {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, op := range pathItem {
			if !evidence.IsHTTPMethod(strings.ToUpper(method)) {
				continue
			}
			opMap, ok := op.(map[string]any)
			if !ok {
				continue
			}
			if responses, ok := opMap["responses"].(map[string]any); ok {
				for code := range responses {
					codes[code]++
				}
			}
		}
	}

	for _, in := range r.interactions {
		if in.Response.StatusCode != 0 {
			codes[strconv.Itoa(in.Response.StatusCode)]++
		}
	}

	return codes
}

// baseMediaType strips parameters and whitespace from a media type value.
func baseMediaType(value string) string {
	if idx := strings.Index(value, ";"); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

// countStringList tallies every string in a loosely-typed list.
func countStringList(raw any, counter map[string]int) {
	list, ok := raw.([]any)
	if !ok {
		return
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			counter[s]++
		}
	}
}
