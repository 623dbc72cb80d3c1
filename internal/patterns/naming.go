package patterns

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PentesterFlow/APIProfiler/internal/evidence"
)

// Recognized identifier styles. styleOrder doubles as the deterministic
// tie-break order for predominant_style.
const (
	styleSnake      = "snake_case"
	styleCamel      = "camelCase"
	stylePascal     = "PascalCase"
	styleUpperSnake = "UPPER_SNAKE_CASE"
	styleKebab      = "kebab-case"
	styleOther      = "mixed/other"
)

var styleOrder = []string{styleSnake, styleCamel, stylePascal, styleUpperSnake, styleKebab}

var (
	camelPattern      = regexp.MustCompile(`^[a-z]+(?:[A-Z][a-z0-9]*)+$`)
	snakePattern      = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)
	pascalPattern     = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	upperSnakePattern = regexp.MustCompile(`^[A-Z0-9]+(?:_[A-Z0-9]+)+$`)
	kebabPattern      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)+$`)
)

// classifyStyle buckets one identifier. A bare lowercase token has no
// separator to distinguish snake_case from camelCase; it counts as
// snake_case, the first style in the enumeration order.
func classifyStyle(name string) string {
	switch {
	case name == "":
		return styleOther
	case camelPattern.MatchString(name):
		return styleCamel
	case snakePattern.MatchString(name):
		return styleSnake
	case upperSnakePattern.MatchString(name):
		return styleUpperSnake
	case pascalPattern.MatchString(name):
		return stylePascal
	case kebabPattern.MatchString(name):
		return styleKebab
	default:
		return styleOther
	}
}

func (r *Recognizer) namingConventions() NamingSection {
	pathSegments := map[string]int{}
	queryParams := map[string]int{}
	headerParams := map[string]int{}
	pathParams := map[string]int{}
	requestKeys := map[string]int{}
	responseKeys := map[string]int{}
	schemaKeys := map[string]int{}

	tally := func(counter map[string]int, name string) {
		counter[classifyStyle(name)]++
	}

	// Spec paths: segments, declared parameters, body schema properties.
	for path, item := range r.spec.Paths() {
		for _, segment := range pathTokens(path) {
			tally(pathSegments, segment)
		}
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
			for _, param := range specParameters(opMap) {
				name, _ := param["name"].(string)
				if name == "" {
					continue
				}
				switch param["in"] {
				case "query":
					tally(queryParams, name)
				case "header":
					tally(headerParams, name)
				case "path":
					tally(pathParams, name)
				}
			}
			for _, key := range r.bodyPropertyKeys(opMap, "requestBody") {
				tally(requestKeys, key)
			}
			for _, key := range r.responsePropertyKeys(opMap) {
				tally(responseKeys, key)
			}
		}
	}

	// Component schemas: the schema name itself plus its property keys.
	for name, def := range r.spec.Schemas() {
		tally(schemaKeys, name)
		if defMap, ok := def.(map[string]any); ok {
			if props, ok := defMap["properties"].(map[string]any); ok {
				for key := range props {
					tally(schemaKeys, key)
				}
			}
		}
	}

	// Interactions: URL path segments, query parameter names, header keys,
	// body keys.
	for _, in := range r.interactions {
		for _, segment := range urlPathTokens(in.Request.URL) {
			tally(pathSegments, segment)
		}
		for name := range in.Request.Params {
			tally(queryParams, name)
		}
		for _, name := range urlQueryNames(in.Request.URL) {
			if _, dup := in.Request.Params[name]; !dup {
				tally(queryParams, name)
			}
		}
		for name := range in.Request.Headers {
			tally(headerParams, name)
		}
		for _, key := range bodyKeys(in.Request.Body) {
			tally(requestKeys, key)
		}
		for _, key := range bodyKeys(in.Response.Body) {
			tally(responseKeys, key)
		}
	}

	section := NamingSection{
		PathSegments:     prune(pathSegments),
		QueryParameters:  prune(queryParams),
		HeaderParameters: prune(headerParams),
		PathParameters:   prune(pathParams),
		RequestBodyKeys:  prune(requestKeys),
		ResponseBodyKeys: prune(responseKeys),
		SchemaKeys:       prune(schemaKeys),
	}
	section.PredominantStyle = predominantStyle(
		pathSegments, queryParams, headerParams, pathParams,
		requestKeys, responseKeys, schemaKeys)
	return section
}

// predominantStyle sums the recognized styles across all surfaces and
// returns the most frequent, ties broken by enumeration order.
func predominantStyle(counters ...map[string]int) string {
	totals := map[string]int{}
	for _, counter := range counters {
		for style, count := range counter {
			if style != styleOther {
				totals[style] += count
			}
		}
	}

	best := ""
	bestCount := 0
	for _, style := range styleOrder {
		if totals[style] > bestCount {
			best = style
			bestCount = totals[style]
		}
	}
	return best
}

// prune drops empty counters so they serialize away entirely.
func prune(counter map[string]int) map[string]int {
	if len(counter) == 0 {
		return nil
	}
	return counter
}

// pathTokens splits a path template into its literal segments, skipping
// {placeholder} segments.
func pathTokens(path string) []string {
	var tokens []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || strings.HasPrefix(segment, "{") || strings.HasSuffix(segment, "}") {
			continue
		}
		tokens = append(tokens, segment)
	}
	return tokens
}

// urlPathTokens extracts path segments from a request URL, absolute or
// relative.
func urlPathTokens(raw string) []string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return pathTokens(parsed.Path)
}

// urlQueryNames extracts query parameter names from a request URL.
func urlQueryNames(raw string) []string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	var names []string
	for name := range parsed.Query() {
		names = append(names, name)
	}
	return names
}

// bodyKeys returns the top-level keys of a loosely-typed JSON body.
func bodyKeys(body any) []string {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

// specParameters returns the operation's parameter objects.
func specParameters(op map[string]any) []map[string]any {
	raw, ok := op["parameters"].([]any)
	if !ok {
		return nil
	}
	var params []map[string]any
	for _, p := range raw {
		if pm, ok := p.(map[string]any); ok {
			params = append(params, pm)
		}
	}
	return params
}

// bodyPropertyKeys resolves an operation's request body schema, following
// one level of $ref into components/schemas, and returns its property
// keys.
func (r *Recognizer) bodyPropertyKeys(op map[string]any, field string) []string {
	body, ok := op[field].(map[string]any)
	if !ok {
		return nil
	}
	content, ok := body["content"].(map[string]any)
	if !ok {
		return nil
	}
	var keys []string
	for _, media := range content {
		mediaMap, ok := media.(map[string]any)
		if !ok {
			continue
		}
		keys = append(keys, r.schemaPropertyKeys(mediaMap)...)
	}
	return keys
}

// responsePropertyKeys returns property keys from every response body
// schema in the operation.
func (r *Recognizer) responsePropertyKeys(op map[string]any) []string {
	responses, ok := op["responses"].(map[string]any)
	if !ok {
		return nil
	}
	var keys []string
	for _, resp := range responses {
		respMap, ok := resp.(map[string]any)
		if !ok {
			continue
		}
		content, ok := respMap["content"].(map[string]any)
		if !ok {
			continue
		}
		for _, media := range content {
			mediaMap, ok := media.(map[string]any)
			if !ok {
				continue
			}
			keys = append(keys, r.schemaPropertyKeys(mediaMap)...)
		}
	}
	return keys
}

// schemaPropertyKeys extracts property keys from a media type object's
// schema, inline or referenced.
func (r *Recognizer) schemaPropertyKeys(media map[string]any) []string {
	schema, ok := media["schema"].(map[string]any)
	if !ok {
		return nil
	}

	if ref, ok := schema["$ref"].(string); ok {
		parts := strings.Split(ref, "/")
		name := parts[len(parts)-1]
		if resolved, ok := r.spec.Schemas()[name].(map[string]any); ok {
			schema = resolved
		} else {
			return nil
		}
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	return keys
}
