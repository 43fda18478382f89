// Package extract holds the pure text-extraction rules for dispensary
// listings: price, size, THC, strain type, the Florida store heuristic,
// and the product slug used in deduplication keys. Nothing in here
// touches the network or the DOM.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRE     = regexp.MustCompile(`\$\s*([0-9]+(?:\.[0-9]{2})?)`)
	sizeRE      = regexp.MustCompile(`(?i)\b(0\.5g|1g|2g|3\.5g|7g|10g|14g|28g)\b`)
	thcSingleRE = regexp.MustCompile(`(?i)\bTHC\b[^0-9]*([0-9]+(?:\.[0-9]+)?)\s*%`)
	thcRangeRE  = regexp.MustCompile(`(?i)\bTHC\b[^0-9]*([0-9]+(?:\.[0-9]+)?)\s*%[^0-9]+([0-9]+(?:\.[0-9]+)?)\s*%`)
	strainRE    = regexp.MustCompile(`(?i)\b(Indica|Sativa|Hybrid)\b`)
	brandLineRE = regexp.MustCompile(`(?i)Brand\s*[:\-]\s*([^\n\r]+)`)
)

// sizeGrams is the authoritative size token lookup. Tokens outside this
// table ("5g", "1oz", ...) do not map to grams.
var sizeGrams = map[string]float64{
	"0.5g": 0.5,
	"1g":   1.0,
	"2g":   2.0,
	"3.5g": 3.5,
	"7g":   7.0,
	"10g":  10.0,
	"14g":  14.0,
	"28g":  28.0,
}

// MinPrice returns the lowest $-formatted amount found in text. When a
// card shows a crossed-out regular price next to a sale price, the
// minimum is the price actually available.
func MinPrice(text string) (float64, bool) {
	matches := priceRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	min := 0.0
	found := false
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min, found
}

// Size returns the first canonical size token in text, lowercased.
func Size(text string) (string, bool) {
	m := sizeRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// GramsFromSize maps a canonical size token to grams. Unrecognized
// tokens return false rather than being parsed free-form.
func GramsFromSize(size string) (float64, bool) {
	g, ok := sizeGrams[strings.ToLower(size)]
	return g, ok
}

// THCPercent extracts a THC percentage from text. A range like
// "THC 18%-22%" takes precedence over a single value and yields the
// lower bound.
func THCPercent(text string) (float64, bool) {
	if m := thcRangeRE.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	if m := thcSingleRE.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// StrainType finds the first Indica/Sativa/Hybrid token in text and
// returns it with normalized casing.
func StrainType(text string) (string, bool) {
	m := strainRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	s := strings.ToLower(m[1])
	return strings.ToUpper(s[:1]) + s[1:], true
}

// BrandFromLabel extracts the value of a "Brand: X" style line.
func BrandFromLabel(text string) (string, bool) {
	m := brandLineRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	b := strings.TrimSpace(m[1])
	return b, b != ""
}

// LooksLikeFlorida reports whether a store anchor belongs to Florida,
// judged by display text suffix/substring or URL path markers. Either
// input may be empty; both empty is never a match.
func LooksLikeFlorida(href, text string) bool {
	t := strings.ToUpper(text)
	h := strings.ToLower(href)

	if strings.Contains(t, ", FL") || strings.HasSuffix(t, " FL") || strings.Contains(t, " FL ") {
		return true
	}
	if strings.Contains(h, "/florida") || strings.Contains(h, "-fl-") {
		return true
	}
	return strings.HasSuffix(h, "/fl") || strings.HasSuffix(h, "-fl")
}

// ProductSlug returns the path segment after "/product/" with query,
// fragment, and surrounding slashes stripped. A href without the marker
// comes back unchanged so dedup keys stay stable for malformed URLs.
func ProductSlug(href string) string {
	if href == "" {
		return ""
	}
	_, rest, ok := strings.Cut(href, "/product/")
	if !ok {
		return href
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")
	return strings.Trim(rest, "/")
}
