// Package identity derives the stable content hash that makes ingestion
// idempotent: two sightings of the identical announcement hash identically
// regardless of which scrape run produced them.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"OutageNotifier/internal/domain"
)

// EventHash computes the identity of a structured outage sighting from its
// defining fields. Fields are normalized (trimmed, upper-cased) and
// concatenated, with the empty string standing in for absent values. A
// digest collision is treated as identity, not retried.
func EventHash(t domain.EventType, area, district, houseNumbers, startTime string, lang domain.Language, planned bool) string {
	plannedField := "FALSE"
	if planned {
		plannedField = "TRUE"
	}

	var b strings.Builder
	for _, field := range []string{
		string(t), area, district, houseNumbers, startTime, string(lang), plannedField,
	} {
		b.WriteString(strings.ToUpper(strings.TrimSpace(field)))
	}

	return TextHash(b.String())
}

// TextHash computes the identity of a free-form announcement body, used for
// water/gas notices that carry no structured address fields.
func TextHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
