// Package dedup removes redundant endpoint records by normalized
// (url, method) signature.
package dedup

import (
	"github.com/PentesterFlow/APIProfiler/internal/evidence"
	"github.com/PentesterFlow/APIProfiler/internal/signature"
)

// Deduplicate returns the records whose signature has not appeared earlier
// in the list. Ordering is preserved and the first occurrence wins.
// Records without a usable URL are dropped.
func Deduplicate(records []evidence.EndpointRecord) []evidence.EndpointRecord {
	return DeduplicateInto(NewSignatureSet(len(records)), records)
}

// DeduplicateInto is Deduplicate with a caller-sized signature set, which
// also lets one set span several record batches.
func DeduplicateInto(seen *SignatureSet, records []evidence.EndpointRecord) []evidence.EndpointRecord {
	if len(records) == 0 {
		return nil
	}

	unique := make([]evidence.EndpointRecord, 0, len(records))

	for _, rec := range records {
		sig := signature.Key(rec.URL, rec.Method)
		if sig == "" || seen.Seen(sig) {
			continue
		}
		seen.Add(sig)
		unique = append(unique, rec)
	}

	return unique
}
