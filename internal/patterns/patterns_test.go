package patterns

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PentesterFlow/APIProfiler/internal/evidence"
)

// =============================================================================
// Style Classification Tests
// =============================================================================

func TestClassifyStyle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"snake case", "user_id", "snake_case"},
		{"bare lowercase", "users", "snake_case"},
		{"lowercase with digits", "v2tokens", "snake_case"},
		{"camel case", "userId", "camelCase"},
		{"camel with digits", "pageSize2", "camelCase"},
		{"pascal case", "UserAccount", "PascalCase"},
		{"single capital", "X", "PascalCase"},
		{"upper snake", "API_KEY", "UPPER_SNAKE_CASE"},
		{"kebab case", "user-id", "kebab-case"},
		{"empty", "", "mixed/other"},
		{"mixed separators", "user_id-x", "mixed/other"},
		{"leading underscore", "_private", "mixed/other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStyle(tt.in); got != tt.want {
				t.Errorf("classifyStyle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Empty Evidence Tests
// =============================================================================

func TestIdentify_EmptyEvidence(t *testing.T) {
	report := NewRecognizer(nil, nil, nil).Identify()

	if report.NamingConventions.PredominantStyle != "" {
		t.Errorf("PredominantStyle = %q, want empty", report.NamingConventions.PredominantStyle)
	}
	if len(report.Versioning.Strategies) != 0 {
		t.Errorf("Versioning.Strategies = %v, want empty", report.Versioning.Strategies)
	}
	if report.HTTPMethods == nil || report.StatusCodes == nil {
		t.Fatal("HTTPMethods and StatusCodes must be non-nil even without evidence")
	}
	if len(report.HTTPMethods) != 0 {
		t.Errorf("HTTPMethods = %v, want empty", report.HTTPMethods)
	}
}

func TestIdentify_EmptySectionsMarshalAsObjects(t *testing.T) {
	report := NewRecognizer(nil, nil, nil).Identify()

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "null") {
		t.Errorf("empty report contains null sections: %s", raw)
	}
	for _, key := range []string{
		`"naming_conventions":{}`,
		`"versioning":{}`,
		`"authentication":{}`,
		`"pagination":{}`,
		`"data_formats":{}`,
		`"http_methods":{}`,
		`"status_codes":{}`,
	} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("empty report missing %s: %s", key, raw)
		}
	}
}

// =============================================================================
// Naming Convention Tests
// =============================================================================

func TestNamingConventions_FromInteractions(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method: "GET",
				URL:    "https://api.example.com/user_accounts/active_users?sort_order=asc",
			},
		},
		{
			Request: evidence.RequestRecord{
				Method: "POST",
				URL:    "https://api.example.com/user_accounts",
				Body:   map[string]any{"first_name": "a", "last_name": "b"},
			},
		},
	}

	r := NewRecognizer(nil, interactions, nil)
	section := r.namingConventions()

	if section.PredominantStyle != "snake_case" {
		t.Errorf("PredominantStyle = %q, want snake_case", section.PredominantStyle)
	}
	if section.PathSegments["snake_case"] == 0 {
		t.Error("PathSegments missing snake_case tally")
	}
	if section.RequestBodyKeys["snake_case"] != 2 {
		t.Errorf("RequestBodyKeys[snake_case] = %d, want 2", section.RequestBodyKeys["snake_case"])
	}
}

func TestNamingConventions_FromSpec(t *testing.T) {
	spec := evidence.SpecDocument{
		"openapi": "3.0.0",
		"paths": map[string]any{
			"/api/userAccounts/{accountId}": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "pageSize", "in": "query"},
						map[string]any{"name": "accountId", "in": "path"},
						map[string]any{"name": "X-Request-Id", "in": "header"},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"UserAccount": map[string]any{
					"properties": map[string]any{
						"displayName": map[string]any{"type": "string"},
						"createdAt":   map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	section := NewRecognizer(spec, nil, nil).namingConventions()

	if section.QueryParameters["camelCase"] != 1 {
		t.Errorf("QueryParameters[camelCase] = %d, want 1", section.QueryParameters["camelCase"])
	}
	if section.PathParameters["camelCase"] != 1 {
		t.Errorf("PathParameters[camelCase] = %d, want 1", section.PathParameters["camelCase"])
	}
	// {accountId} is a placeholder, not a literal segment.
	total := 0
	for _, n := range section.PathSegments {
		total += n
	}
	if total != 2 {
		t.Errorf("PathSegments total = %d, want 2 (api, userAccounts)", total)
	}
	if section.PredominantStyle != "camelCase" {
		t.Errorf("PredominantStyle = %q, want camelCase", section.PredominantStyle)
	}
}

func TestPredominantStyle_TieBreak(t *testing.T) {
	// Equal counts resolve in the fixed enumeration order, snake_case
	// first.
	snakeVsCamel := predominantStyle(map[string]int{
		"snake_case": 3,
		"camelCase":  3,
	})
	if snakeVsCamel != "snake_case" {
		t.Errorf("tie snake/camel = %q, want snake_case", snakeVsCamel)
	}

	camelVsPascal := predominantStyle(map[string]int{
		"camelCase":  2,
		"PascalCase": 2,
	})
	if camelVsPascal != "camelCase" {
		t.Errorf("tie camel/pascal = %q, want camelCase", camelVsPascal)
	}

	// mixed/other never wins no matter how frequent.
	withOther := predominantStyle(map[string]int{
		"mixed/other": 10,
		"kebab-case":  1,
	})
	if withOther != "kebab-case" {
		t.Errorf("predominant with other = %q, want kebab-case", withOther)
	}
}

// =============================================================================
// Versioning Tests
// =============================================================================

func TestVersioning(t *testing.T) {
	spec := evidence.SpecDocument{
		"paths": map[string]any{
			"/v1/users": map[string]any{},
			"/v2/users": map[string]any{},
		},
	}
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/v1/orders?api_version=2024-01",
				Headers: map[string]string{"X-API-Version": "3"},
			},
		},
	}

	section := NewRecognizer(spec, interactions, nil).versioning()

	wantStrategies := []string{"path", "header", "query"}
	if len(section.Strategies) != len(wantStrategies) {
		t.Fatalf("Strategies = %v, want %v", section.Strategies, wantStrategies)
	}
	for i, s := range wantStrategies {
		if section.Strategies[i] != s {
			t.Errorf("Strategies[%d] = %q, want %q", i, section.Strategies[i], s)
		}
	}

	if !containsString(section.PathVersions, "v1") || !containsString(section.PathVersions, "v2") {
		t.Errorf("PathVersions = %v, want v1 and v2", section.PathVersions)
	}
	if section.HeaderVersions["3"] != 1 {
		t.Errorf("HeaderVersions = %v, want {3: 1}", section.HeaderVersions)
	}
	if section.QueryParamVersions["2024-01"] != 1 {
		t.Errorf("QueryParamVersions = %v, want {2024-01: 1}", section.QueryParamVersions)
	}
}

func TestVersioning_AcceptMediaType(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/items",
				Headers: map[string]string{"Accept": "application/vnd.example.v2+json"},
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).versioning()
	if section.HeaderVersions["v2"] != 1 {
		t.Errorf("HeaderVersions = %v, want {v2: 1}", section.HeaderVersions)
	}
	if !containsString(section.Strategies, "header") {
		t.Errorf("Strategies = %v, want header present", section.Strategies)
	}
}

func TestVersioning_HeaderFirstDoesNotHidePathVersion(t *testing.T) {
	// The same version literal arriving through a header first must not
	// suppress a later path observation of it.
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/items",
				Headers: map[string]string{"Accept": "application/vnd.api.v1+json"},
			},
		},
		{
			Request: evidence.RequestRecord{
				Method: "GET",
				URL:    "https://api.example.com/v1/users",
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).versioning()

	if !containsString(section.PathVersions, "v1") {
		t.Errorf("PathVersions = %v, want v1", section.PathVersions)
	}
	if !containsString(section.Strategies, "path") {
		t.Errorf("Strategies = %v, want path present", section.Strategies)
	}
	if !containsString(section.Strategies, "header") {
		t.Errorf("Strategies = %v, want header present", section.Strategies)
	}
	if section.HeaderVersions["v1"] != 1 {
		t.Errorf("HeaderVersions = %v, want {v1: 1}", section.HeaderVersions)
	}
}

func TestVersioning_VersionInHeaderValue(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/items",
				Headers: map[string]string{"X-Custom": "version=2"},
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).versioning()
	if section.HeaderVersions["version=2"] != 1 {
		t.Errorf("HeaderVersions = %v, want {version=2: 1}", section.HeaderVersions)
	}
	if !containsString(section.Strategies, "header") {
		t.Errorf("Strategies = %v, want header present", section.Strategies)
	}
}

func TestVersioning_NoFalsePositives(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			// "vertical" must not read as a version segment.
			Request: evidence.RequestRecord{Method: "GET", URL: "https://example.com/vertical/items"},
		},
	}

	section := NewRecognizer(nil, interactions, nil).versioning()
	if len(section.PathVersions) != 0 {
		t.Errorf("PathVersions = %v, want empty", section.PathVersions)
	}
}

// =============================================================================
// Authentication Tests
// =============================================================================

func TestAuthentication_SpecSchemes(t *testing.T) {
	spec := evidence.SpecDocument{
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer"},
				"keyAuth":    map[string]any{"type": "apiKey", "in": "query", "name": "api_key"},
			},
		},
	}

	section := NewRecognizer(spec, nil, nil).authentication()

	if !containsString(section.Schemes, "bearer") || !containsString(section.Schemes, "apiKey") {
		t.Errorf("Schemes = %v, want bearer and apiKey", section.Schemes)
	}
	if !containsString(section.Locations, "header") || !containsString(section.Locations, "query") {
		t.Errorf("Locations = %v, want header and query", section.Locations)
	}
	if len(section.SpecSchemes) != 2 {
		t.Fatalf("SpecSchemes count = %d, want 2", len(section.SpecSchemes))
	}
}

func TestAuthentication_ObservedTraffic(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/users",
				Headers: map[string]string{"Authorization": "Bearer abc123"},
			},
		},
		{
			Request: evidence.RequestRecord{
				Method:  "GET",
				URL:     "https://api.example.com/users",
				Headers: map[string]string{"X-API-Key": "secret"},
			},
		},
		{
			Request: evidence.RequestRecord{
				Method: "GET",
				URL:    "https://api.example.com/items?api_key=secret",
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).authentication()

	if section.ObservedHeaders["Authorization: Bearer"] != 1 {
		t.Errorf("ObservedHeaders = %v, want Authorization: Bearer counted", section.ObservedHeaders)
	}
	if section.ObservedHeaders["x-api-key"] != 1 {
		t.Errorf("ObservedHeaders = %v, want x-api-key counted", section.ObservedHeaders)
	}
	if section.ObservedQueryParams["api_key"] != 1 {
		t.Errorf("ObservedQueryParams = %v, want api_key counted", section.ObservedQueryParams)
	}
	// Fixed scheme ordering: bearer before apiKey.
	if len(section.Schemes) != 2 || section.Schemes[0] != "bearer" || section.Schemes[1] != "apiKey" {
		t.Errorf("Schemes = %v, want [bearer apiKey]", section.Schemes)
	}
}

// =============================================================================
// Pagination Tests
// =============================================================================

func TestPagination(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method: "GET",
				URL:    "https://api.example.com/items?page=2&per_page=50",
			},
			Response: evidence.ResponseRecord{
				StatusCode: 200,
				Headers: map[string]string{
					"Link": `<https://api.example.com/items?page=3>; rel="next", <https://api.example.com/items?page=1>; rel="first"`,
				},
			},
		},
		{
			Request: evidence.RequestRecord{
				Method: "GET",
				URL:    "https://api.example.com/events?cursor=abc",
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).pagination()

	wantStyles := []string{"page_based", "size_based", "cursor_based", "link_header"}
	if len(section.Styles) != len(wantStyles) {
		t.Fatalf("Styles = %v, want %v", section.Styles, wantStyles)
	}
	for i, s := range wantStyles {
		if section.Styles[i] != s {
			t.Errorf("Styles[%d] = %q, want %q", i, section.Styles[i], s)
		}
	}
	if !containsString(section.Parameters["page_based"], "page") {
		t.Errorf("Parameters[page_based] = %v, want page", section.Parameters["page_based"])
	}
	if section.LinkRelations["next"] != 1 || section.LinkRelations["first"] != 1 {
		t.Errorf("LinkRelations = %v, want next and first", section.LinkRelations)
	}
}

func TestPagination_SpecParameters(t *testing.T) {
	spec := evidence.SpecDocument{
		"paths": map[string]any{
			"/items": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "limit", "in": "query"},
						map[string]any{"name": "offset", "in": "query"},
					},
				},
			},
		},
	}

	section := NewRecognizer(spec, nil, nil).pagination()
	if !containsString(section.Styles, "size_based") || !containsString(section.Styles, "offset_based") {
		t.Errorf("Styles = %v, want size_based and offset_based", section.Styles)
	}
}

// =============================================================================
// Data Format Tests
// =============================================================================

func TestDataFormats(t *testing.T) {
	interactions := []evidence.HTTPInteraction{
		{
			Request: evidence.RequestRecord{
				Method: "POST",
				URL:    "https://api.example.com/users",
				Headers: map[string]string{
					"Content-Type": "application/json; charset=utf-8",
					"Accept":       "application/json, application/xml",
				},
			},
			Response: evidence.ResponseRecord{
				StatusCode: 201,
				Headers:    map[string]string{"Content-Type": "application/json"},
			},
		},
	}

	section := NewRecognizer(nil, interactions, nil).dataFormats()

	if section.RequestContentTypes["application/json"] != 1 {
		t.Errorf("RequestContentTypes = %v, want parameters stripped", section.RequestContentTypes)
	}
	if section.AcceptHeaders["application/json"] != 1 || section.AcceptHeaders["application/xml"] != 1 {
		t.Errorf("AcceptHeaders = %v, want both listed types", section.AcceptHeaders)
	}
	if !containsString(section.Classes["json"], "application/json") {
		t.Errorf("Classes[json] = %v, want application/json", section.Classes["json"])
	}
	if !containsString(section.Classes["xml"], "application/xml") {
		t.Errorf("Classes[xml] = %v, want application/xml", section.Classes["xml"])
	}
}

func TestDataFormats_SpecMediaTypes(t *testing.T) {
	spec := evidence.SpecDocument{
		"swagger":  "2.0",
		"consumes": []any{"application/json"},
		"produces": []any{"application/json", "text/xml"},
		"paths": map[string]any{
			"/orders": map[string]any{
				"post": map[string]any{
					"requestBody": map[string]any{
						"content": map[string]any{
							"application/x-www-form-urlencoded": map[string]any{},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"content": map[string]any{"application/json": map[string]any{}},
						},
					},
				},
			},
		},
	}

	section := NewRecognizer(spec, nil, nil).dataFormats()

	if section.SpecConsumes["application/json"] != 1 {
		t.Errorf("SpecConsumes = %v, want global consumes counted", section.SpecConsumes)
	}
	if section.SpecConsumes["application/x-www-form-urlencoded"] != 1 {
		t.Errorf("SpecConsumes = %v, want requestBody media type counted", section.SpecConsumes)
	}
	if section.SpecProduces["application/json"] != 2 {
		t.Errorf("SpecProduces = %v, want global + response counted", section.SpecProduces)
	}
	if !containsString(section.Classes["form"], "application/x-www-form-urlencoded") {
		t.Errorf("Classes[form] = %v, want form media type", section.Classes["form"])
	}
}

// =============================================================================
// Method / Status Code Tests
// =============================================================================

func TestHTTPMethodsAndStatusCodes(t *testing.T) {
	spec := evidence.SpecDocument{
		"paths": map[string]any{
			"/users": map[string]any{
				"get":  map[string]any{"responses": map[string]any{"200": map[string]any{}}},
				"post": map[string]any{"responses": map[string]any{"201": map[string]any{}, "400": map[string]any{}}},
			},
		},
	}
	interactions := []evidence.HTTPInteraction{
		{
			Request:  evidence.RequestRecord{Method: "get", URL: "https://example.com/users"},
			Response: evidence.ResponseRecord{StatusCode: 200},
		},
		{
			Request:  evidence.RequestRecord{Method: "DELETE", URL: "https://example.com/users/1"},
			Response: evidence.ResponseRecord{StatusCode: 204},
		},
		{
			// No response captured: nothing to count.
			Request: evidence.RequestRecord{Method: "GET", URL: "https://example.com/ping"},
		},
	}

	r := NewRecognizer(spec, interactions, nil)

	methods := r.httpMethods()
	if methods["GET"] != 3 {
		t.Errorf("methods[GET] = %d, want 3 (spec + 2 observed)", methods["GET"])
	}
	if methods["POST"] != 1 || methods["DELETE"] != 1 {
		t.Errorf("methods = %v, want POST 1 and DELETE 1", methods)
	}

	codes := r.statusCodes()
	if codes["200"] != 2 {
		t.Errorf("codes[200] = %d, want 2", codes["200"])
	}
	if codes["201"] != 1 || codes["400"] != 1 || codes["204"] != 1 {
		t.Errorf("codes = %v", codes)
	}
	if _, ok := codes["0"]; ok {
		t.Error("codes counted a missing response as status 0")
	}
}

// =============================================================================
// Section Isolation Tests
// =============================================================================

func TestRunSection_ContainsPanic(t *testing.T) {
	r := NewRecognizer(nil, nil, nil)

	ran := false
	r.runSection("exploding", func() any {
		panic("boom")
	})
	r.runSection("healthy", func() any {
		ran = true
		return nil
	})

	if !ran {
		t.Error("a panicking section prevented later sections from running")
	}
}

func TestSectionEmpty(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   bool
	}{
		{"empty struct section", VersioningSection{}, true},
		{"nil flat map", map[string]int(nil), true},
		{"empty flat map", map[string]int{}, true},
		{"populated struct section", VersioningSection{Strategies: []string{"path"}}, false},
		{"populated flat map", map[string]int{"GET": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sectionEmpty(tt.result); got != tt.want {
				t.Errorf("sectionEmpty(%v) = %v, want %v", tt.result, got, tt.want)
			}
		})
	}
}

func TestIdentify_MalformedSpec(t *testing.T) {
	// Structurally wrong types everywhere must degrade, not panic.
	spec := evidence.SpecDocument{
		"paths": map[string]any{
			"/users": "not-a-path-item",
			"/orders": map[string]any{
				"get": "not-an-operation",
			},
		},
		"components": map[string]any{
			"securitySchemes": "nonsense",
			"schemas":         []any{"also", "nonsense"},
		},
		"consumes": "not-a-list",
	}

	report := NewRecognizer(spec, nil, nil).Identify()
	if report.HTTPMethods == nil {
		t.Fatal("HTTPMethods nil after malformed spec")
	}
	if report.HTTPMethods["GET"] != 1 {
		t.Errorf("methods = %v, want the one well-formed GET counted", report.HTTPMethods)
	}
}
