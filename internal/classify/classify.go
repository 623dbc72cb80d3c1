// Package classify assigns endpoint records to a protocol/style category.
package classify

import (
	"regexp"
	"strings"

	"github.com/PentesterFlow/APIProfiler/internal/evidence"
)

// Category is the protocol/style classification of an endpoint.
type Category string

const (
	REST      Category = "REST"
	GraphQL   Category = "GraphQL"
	SOAP      Category = "SOAP"
	WebSocket Category = "WebSocket"
	Unknown   Category = "Unknown"
)

// rule pairs a predicate with the category it assigns. Rules are evaluated
// in order, first match wins, so precedence is data rather than control
// flow: WebSocket and GraphQL carry unambiguous surface signals and must be
// tested before the broad REST catch-all.
type rule struct {
	name     string
	category Category
	match    func(evidence.EndpointRecord) bool
}

var rules = []rule{
	{"websocket_scheme", WebSocket, matchWebSocket},
	{"graphql_signals", GraphQL, matchGraphQL},
	{"soap_signals", SOAP, matchSOAP},
	{"rest_signals", REST, matchREST},
}

// Content types that indicate static assets rather than an API surface.
var nonAPIContentTypes = []string{
	"text/html",
	"image/jpeg",
	"image/png",
	"image/gif",
	"text/css",
	"application/javascript",
	"application/pdf",
}

// Content types that are strong REST indicators once SOAP has been ruled
// out (the SOAP rule runs earlier, so xml here is non-SOAP xml).
var restContentTypes = []string{
	"application/json",
	"application/xml",
	"text/xml",
	"application/octet-stream",
	"text/plain",
	"application/x-www-form-urlencoded",
}

var staticExtPattern = regexp.MustCompile(`\.(html|htm|css|js|png|jpg|jpeg|gif|pdf|txt|ico|svg|woff|woff2|ttf|eot)$`)

// Categorize classifies one endpoint record. A record without a usable URL
// is always Unknown.
func Categorize(rec evidence.EndpointRecord) Category {
	if strings.TrimSpace(rec.URL) == "" {
		return Unknown
	}
	for _, r := range rules {
		if r.match(rec) {
			return r.category
		}
	}
	return Unknown
}

func contentType(rec evidence.EndpointRecord) string {
	if rec.ContentType != "" {
		return strings.ToLower(rec.ContentType)
	}
	return strings.ToLower(evidence.HeaderValue(rec.ResponseHeaders, "Content-Type"))
}

func matchWebSocket(rec evidence.EndpointRecord) bool {
	url := strings.ToLower(rec.URL)
	return strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://")
}

func matchGraphQL(rec evidence.EndpointRecord) bool {
	url := strings.ToLower(rec.URL)
	if path := strings.SplitN(url, "?", 2)[0]; strings.HasSuffix(path, "/graphql") {
		return true
	}
	if strings.Contains(contentType(rec), "application/graphql") {
		return true
	}
	method := strings.ToUpper(rec.Method)
	if method == "POST" {
		body := rec.RequestBody + " " + rec.Description
		if strings.Contains(body, "query") || strings.Contains(body, "mutation") {
			return true
		}
		// GraphQL responses wrap everything in a top-level "data" object.
		resp := strings.TrimSpace(rec.ResponseBody)
		if strings.Contains(resp, `"data":`) &&
			(strings.Contains(resp, `"errors":`) || strings.HasPrefix(resp, "{")) {
			return true
		}
	}
	return false
}

func matchSOAP(rec evidence.EndpointRecord) bool {
	url := strings.ToLower(rec.URL)
	if strings.Contains(url, "?wsdl") {
		return true
	}
	ct := contentType(rec)
	if strings.Contains(ct, "application/soap+xml") {
		return true
	}
	body := strings.ToLower(rec.ResponseBody)
	envelope := strings.Contains(body, "<soap:envelope") ||
		strings.Contains(body, "<soapenv:envelope") ||
		strings.Contains(body, "<s:envelope")
	if strings.Contains(ct, "text/xml") && envelope {
		return true
	}
	return ct == "" && envelope
}

func matchREST(rec evidence.EndpointRecord) bool {
	if rec.SpecLinked {
		return true
	}
	ct := contentType(rec)
	for _, nonAPI := range nonAPIContentTypes {
		if strings.Contains(ct, nonAPI) {
			return false
		}
	}
	for _, restCT := range restContentTypes {
		if strings.Contains(ct, restCT) {
			return true
		}
	}
	if evidence.IsHTTPMethod(strings.ToUpper(rec.Method)) {
		path := strings.ToLower(strings.SplitN(rec.URL, "?", 2)[0])
		if (ct == "" || strings.HasPrefix(ct, "application/")) && !staticExtPattern.MatchString(path) {
			return true
		}
	}
	return false
}
