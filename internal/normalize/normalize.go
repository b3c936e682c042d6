// Package normalize turns free-text announcement fields into the stable
// forms the rest of the pipeline keys on. Every function here is
// idempotent: applying it to its own output returns the input unchanged,
// which hashing and re-aggregation both rely on.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// houseNumberExpr accepts digit-bearing tokens optionally decorated
	// with letters (Latin, Cyrillic, Armenian) and /-.,\ separators.
	houseNumberExpr = regexp.MustCompile(`^[\dA-ZА-Яа-ֆ/\\\-.,]*\d+[\dA-ZА-Яа-ֆ/\\\-.,]*$`)
	// numberLetterExpr matches the "5 Ա" building style: digits, one
	// space, one Armenian letter. Despite the space this is a house
	// number, not a district.
	numberLetterExpr = regexp.MustCompile(`^\d+ [Ա-Ֆա-ֆ]$`)

	whitespaceExpr = regexp.MustCompile(`\s+`)
)

// areaPrefixes are locale-specific settlement markers stripped from area
// names before canonicalization. Dot-terminated entries are abbreviations;
// the rest must be followed by a space.
var areaPrefixes = []string{
	"г.", "город ", "с.", "деревня ", "пгт ", "поселок ",
	"ք.", "քաղաք ", "գ.", "գյուղ ", "վ.", "ս.",
	"city of ", "settlement of ", "village of ",
}

// SplitAddress parses a free-text address into (area, district,
// houseNumbers), any of which may be empty. Segment zero up to the first
// comma is the area; the remainder is classified by trailing-token shape.
func SplitAddress(address string) (area, district, houseNumbers string) {
	parts := strings.SplitN(address, ",", 2)
	area = strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return area, "", ""
	}

	right := strings.TrimSpace(parts[1])
	if right == "" {
		return area, "", ""
	}

	if numberLetterExpr.MatchString(right) || houseNumberExpr.MatchString(right) {
		return area, "", right
	}

	lastSpace := strings.LastIndex(right, " ")
	if lastSpace < 0 {
		return area, right, ""
	}

	trailing := strings.TrimSpace(right[lastSpace+1:])
	if houseNumberExpr.MatchString(trailing) {
		return area, strings.TrimSpace(right[:lastSpace]), trailing
	}

	// The trailing token may be a single Armenian letter belonging to a
	// "5 Ա" house number one space further back.
	if secondLast := strings.LastIndex(right[:lastSpace], " "); secondLast >= 0 {
		wider := strings.TrimSpace(right[secondLast+1:])
		if numberLetterExpr.MatchString(wider) {
			return area, strings.TrimSpace(right[:secondLast]), wider
		}
	}

	return area, right, ""
}

// Field canonicalizes one free-text value: NBSP to space, whitespace runs
// collapsed, surrounding space trimmed.
func Field(value string) string {
	value = strings.ReplaceAll(value, " ", " ")
	value = whitespaceExpr.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// CleanAreaName strips settlement prefixes and parenthetical suffixes and
// capitalizes the result. Returns "" when nothing usable remains.
func CleanAreaName(raw string) string {
	name := Field(raw)

	lower := strings.ToLower(name)
	for _, prefix := range areaPrefixes {
		if strings.HasPrefix(lower, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	if idx := strings.Index(name, "("); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}

	return capitalize(name)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// SplitHouseNumbers breaks a comma-joined house-number value into its
// non-empty members.
func SplitHouseNumbers(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	numbers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			numbers = append(numbers, p)
		}
	}
	return numbers
}

// MergeHouseNumbers unions the two lists and orders the result naturally,
// so "2" sorts before "10". Union is commutative: merge order across
// sightings cannot change the final set.
func MergeHouseNumbers(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, n := range list {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			merged = append(merged, n)
		}
	}
	sortNatural(merged)
	return merged
}

func sortNatural(values []string) {
	// Insertion sort keeps this dependency-free; merged lists are small.
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && NaturalLess(values[j], values[j-1]); j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

// NaturalLess compares strings chunk-wise, treating digit runs as numbers.
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aNum, aRest := nextChunk(a)
		bChunk, bNum, bRest := nextChunk(b)

		if aNum && bNum {
			av, bv := trimZeros(aChunk), trimZeros(bChunk)
			if len(av) != len(bv) {
				return len(av) < len(bv)
			}
			if av != bv {
				return av < bv
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}

		a, b = aRest, bRest
	}
	return a == "" && b != ""
}

func nextChunk(s string) (chunk string, numeric bool, rest string) {
	runes := []rune(s)
	numeric = unicode.IsDigit(runes[0])
	i := 1
	for i < len(runes) && unicode.IsDigit(runes[i]) == numeric {
		i++
	}
	return string(runes[:i]), numeric, string(runes[i:])
}

func trimZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
