package patterns

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PentesterFlow/APIProfiler/internal/evidence"
)

// Versioning strategy tags.
const (
	strategyPath   = "path"
	strategyHeader = "header"
	strategyQuery  = "query"
)

var (
	pathVersionPattern  = regexp.MustCompile(`(?i)/v([0-9]+(?:\.[0-9]+)*)(?:/|$|\?)`)
	mediaVersionPattern = regexp.MustCompile(`(?i)\bv([0-9]+(?:\.[0-9]+)*)\b`)
	versionQueryParams  = []string{"version", "api_version", "apiversion", "api-version"}
)

func (r *Recognizer) versioning() VersioningSection {
	headerVersions := map[string]int{}
	queryVersions := map[string]int{}
	identified := map[string]struct{}{}
	seenPaths := map[string]struct{}{}
	var pathVersions []string

	addPathVersion := func(s string) {
		if match := pathVersionPattern.FindStringSubmatch(s); match != nil {
			version := "v" + match[1]
			if _, seen := seenPaths[version]; !seen {
				seenPaths[version] = struct{}{}
				pathVersions = append(pathVersions, version)
			}
			identified[version] = struct{}{}
		}
	}

	for path := range r.spec.Paths() {
		addPathVersion(path)
	}

	for _, in := range r.interactions {
		addPathVersion(in.Request.URL)

		for name, value := range in.Request.Headers {
			lower := strings.ToLower(name)
			switch {
			case strings.Contains(lower, "version"):
				headerVersions[value]++
				identified[value] = struct{}{}
			case lower == "accept" && strings.Contains(strings.ToLower(value), "vnd."):
				// Media type versioning: application/vnd.myapi.v1+json.
				if match := mediaVersionPattern.FindStringSubmatch(value); match != nil {
					version := "v" + match[1]
					headerVersions[version]++
					identified[version] = struct{}{}
				}
			case strings.Contains(strings.ToLower(value), "version"):
				headerVersions[value]++
				identified[value] = struct{}{}
			}
		}

		for name, value := range requestQueryParams(in.Request) {
			if containsString(versionQueryParams, strings.ToLower(name)) {
				queryVersions[value]++
				identified[value] = struct{}{}
			}
		}
	}

	section := VersioningSection{
		PathVersions:       pathVersions,
		HeaderVersions:     prune(headerVersions),
		QueryParamVersions: prune(queryVersions),
		IdentifiedVersions: sortedKeys(identified),
	}
	if len(pathVersions) > 0 {
		section.Strategies = append(section.Strategies, strategyPath)
	}
	if len(headerVersions) > 0 {
		section.Strategies = append(section.Strategies, strategyHeader)
	}
	if len(queryVersions) > 0 {
		section.Strategies = append(section.Strategies, strategyQuery)
	}
	return section
}

// Authentication scheme and location tags.
const (
	schemeBearer = "bearer"
	schemeAPIKey = "apiKey"
	schemeOAuth2 = "oauth2"
	schemeBasic  = "basic"

	locationHeader = "header"
	locationQuery  = "query"
)

// schemeOrder fixes the output ordering of detected schemes.
var schemeOrder = []string{schemeBearer, schemeAPIKey, schemeOAuth2, schemeBasic}

var (
	authHeaderNames = []string{"x-api-key", "apikey", "api-key", "x-auth-token"}
	authQueryParams = []string{"apikey", "api_key", "access_token", "auth_token", "token"}
)

func (r *Recognizer) authentication() AuthSection {
	observedHeaders := map[string]int{}
	observedQuery := map[string]int{}
	schemes := map[string]struct{}{}
	locations := map[string]struct{}{}
	var specSchemes []AuthScheme

	for name, raw := range r.spec.SecuritySchemes() {
		schemeObj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		scheme := AuthScheme{Name: name}
		scheme.Type, _ = schemeObj["type"].(string)
		switch scheme.Type {
		case "apiKey":
			scheme.In, _ = schemeObj["in"].(string)
			scheme.ParamName, _ = schemeObj["name"].(string)
			schemes[schemeAPIKey] = struct{}{}
			if scheme.In == "query" {
				locations[locationQuery] = struct{}{}
			} else {
				locations[locationHeader] = struct{}{}
			}
		case "http":
			scheme.Scheme, _ = schemeObj["scheme"].(string)
			switch strings.ToLower(scheme.Scheme) {
			case "bearer":
				schemes[schemeBearer] = struct{}{}
			case "basic":
				schemes[schemeBasic] = struct{}{}
			}
			locations[locationHeader] = struct{}{}
		case "oauth2":
			schemes[schemeOAuth2] = struct{}{}
			locations[locationHeader] = struct{}{}
		}
		specSchemes = append(specSchemes, scheme)
	}

	for _, in := range r.interactions {
		for name, value := range in.Request.Headers {
			lower := strings.ToLower(name)
			if lower == "authorization" {
				authType := "Unknown"
				if fields := strings.Fields(value); len(fields) > 1 {
					authType = fields[0]
				}
				observedHeaders["Authorization: "+authType]++
				locations[locationHeader] = struct{}{}
				switch strings.ToLower(authType) {
				case "bearer":
					schemes[schemeBearer] = struct{}{}
				case "basic":
					schemes[schemeBasic] = struct{}{}
				}
			} else if containsString(authHeaderNames, lower) {
				observedHeaders[lower]++
				schemes[schemeAPIKey] = struct{}{}
				locations[locationHeader] = struct{}{}
			}
		}

		for name := range requestQueryParams(in.Request) {
			if containsString(authQueryParams, strings.ToLower(name)) {
				observedQuery[strings.ToLower(name)]++
				schemes[schemeAPIKey] = struct{}{}
				locations[locationQuery] = struct{}{}
			}
		}
	}

	section := AuthSection{
		SpecSchemes:         specSchemes,
		ObservedHeaders:     prune(observedHeaders),
		ObservedQueryParams: prune(observedQuery),
	}
	for _, s := range schemeOrder {
		if _, ok := schemes[s]; ok {
			section.Schemes = append(section.Schemes, s)
		}
	}
	for _, loc := range []string{locationHeader, locationQuery} {
		if _, ok := locations[loc]; ok {
			section.Locations = append(section.Locations, loc)
		}
	}
	return section
}

// Pagination family tags and their recognized parameter names.
const (
	familyPage   = "page_based"
	familySize   = "size_based"
	familyOffset = "offset_based"
	familyCursor = "cursor_based"
	familyLink   = "link_header"
)

var paginationFamilies = []struct {
	family string
	params []string
}{
	{familyPage, []string{"page", "page_number", "pagenum"}},
	{familySize, []string{"size", "per_page", "pagesize", "limit", "count"}},
	{familyOffset, []string{"offset", "skip"}},
	{familyCursor, []string{"cursor", "next_token", "continuation_token", "next_cursor", "page_token"}},
}

var linkRelations = []string{"next", "prev", "first", "last"}

func (r *Recognizer) pagination() PaginationSection {
	parameters := map[string][]string{}
	relations := map[string]int{}
	styles := map[string]struct{}{}

	record := func(name string) {
		lower := strings.ToLower(name)
		for _, fam := range paginationFamilies {
			if containsString(fam.params, lower) {
				styles[fam.family] = struct{}{}
				if !containsString(parameters[fam.family], lower) {
					parameters[fam.family] = append(parameters[fam.family], lower)
				}
				return
			}
		}
	}

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
			for _, param := range specParameters(opMap) {
				if param["in"] == "query" {
					if name, _ := param["name"].(string); name != "" {
						record(name)
					}
				}
			}
		}
	}

	for _, in := range r.interactions {
		for name := range requestQueryParams(in.Request) {
			record(name)
		}

		link := evidence.HeaderValue(in.Response.Headers, "Link")
		for _, rel := range linkRelations {
			if strings.Contains(link, `rel="`+rel+`"`) {
				relations[rel]++
				styles[familyLink] = struct{}{}
			}
		}
	}

	section := PaginationSection{
		Parameters:    parameters,
		LinkRelations: prune(relations),
	}
	if len(parameters) == 0 {
		section.Parameters = nil
	}
	for _, fam := range []string{familyPage, familySize, familyOffset, familyCursor, familyLink} {
		if _, ok := styles[fam]; ok {
			section.Styles = append(section.Styles, fam)
		}
	}
	return section
}

// requestQueryParams merges pre-parsed params with those embedded in the
// request URL. Pre-parsed values win on conflict.
func requestQueryParams(req evidence.RequestRecord) map[string]string {
	merged := map[string]string{}
	if parsed, err := url.Parse(req.URL); err == nil {
		for name, values := range parsed.Query() {
			if len(values) > 0 {
				merged[name] = values[0]
			}
		}
	}
	for name, value := range req.Params {
		merged[name] = value
	}
	return merged
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
