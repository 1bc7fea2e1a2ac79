// Package extract scans recognized receipt text for the most probable
// "total amount due" using layered, confidence-tiered heuristics.
//
// Two tiers: keyword-anchored matches ("total", "importe total", ...) are
// scored 60 base, +30 for a "total" line, +10 for a currency symbol;
// when no anchor matches, a generic currency-shaped number fallback takes
// the largest plausible value at a fixed confidence of 40, below any
// keyword match. Receipts vary wildly in layout, so the tiered fallback is
// deliberately preferred over a single fixed pattern, and the scoring
// values are a contract downstream confidence thresholds rely on.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Search window and plausibility bounds.
const (
	// searchWindowLines limits the scan to the last lines of the receipt,
	// where totals conventionally appear.
	searchWindowLines = 8
	// maxPlausibleAmount rejects values at or above 10,000,000.
	maxPlausibleAmount = 10_000_000
)

// Scoring constants (contract with downstream confidence thresholds).
const (
	keywordBaseConfidence  = 60
	totalLineBonus         = 30
	currencySymbolBonus    = 10
	fallbackConfidence     = 40
	maxExtractorConfidence = 100
)

// numberPattern tolerates both separator conventions: 1.234,56 and
// 1,234.56, as well as plain integers and short decimal tails.
const numberPattern = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`

// Keyword-anchored patterns, in priority order. Keyword matching runs over
// accent-folded lowercase text so OCR-mangled diacritics cannot hide an
// anchor.
// The leading \b keeps "subtotal" from anchoring as a total.
var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:importe|suma|monto|gran)\s+total[^\d$]*\$?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`\btotal\s*[:.]?\s*\$?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`\btotal\b.*?\$?\s*(` + numberPattern + `)`),
}

// genericPattern is the un-anchored fallback: any currency-shaped number.
var genericPattern = regexp.MustCompile(`\$?\s*(` + numberPattern + `)`)

// Amount is the extraction outcome. Value is nil when no plausible
// monetary figure was found; Confidence is 0 in that case.
type Amount struct {
	Value      *float64 `json:"value"`
	Confidence float64  `json:"confidence"`
}

// None is the empty extraction result.
func None() Amount { return Amount{} }

// Extractor scans OCR text for the receipt total. Its confidence is
// independent of OCR confidence.
type Extractor struct{}

// NewExtractor constructs an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract runs the two-tier search over the recognized text.
func (e *Extractor) Extract(text string) Amount {
	window := searchWindow(text)
	if len(window) == 0 {
		return None()
	}

	if best, ok := e.keywordSearch(window); ok {
		return best
	}
	return e.genericSearch(window)
}

// keywordSearch scores every keyword-anchored match across the window and
// keeps the highest-scoring candidate.
func (e *Extractor) keywordSearch(window []string) (Amount, bool) {
	bestScore := -1.0
	var bestValue float64
	for _, line := range window {
		folded := foldLine(line)
		for _, pat := range keywordPatterns {
			for _, m := range pat.FindAllStringSubmatch(folded, -1) {
				value, ok := normalizeAmount(m[1])
				if !ok {
					continue
				}
				score := float64(keywordBaseConfidence)
				if strings.Contains(folded, "total") {
					score += totalLineBonus
				}
				if strings.ContainsRune(line, '$') {
					score += currencySymbolBonus
				}
				if score > maxExtractorConfidence {
					score = maxExtractorConfidence
				}
				if score > bestScore {
					bestScore = score
					bestValue = value
				}
			}
		}
	}
	if bestScore < 0 {
		return Amount{}, false
	}
	v := bestValue
	return Amount{Value: &v, Confidence: bestScore}, true
}

// genericSearch takes the largest plausible currency-shaped number in the
// window at a fixed confidence below any keyword match.
func (e *Extractor) genericSearch(window []string) Amount {
	found := false
	var largest float64
	for _, line := range window {
		for _, m := range genericPattern.FindAllStringSubmatch(line, -1) {
			value, ok := normalizeAmount(m[1])
			if !ok {
				continue
			}
			if !found || value > largest {
				found = true
				largest = value
			}
		}
	}
	if !found {
		return None()
	}
	v := largest
	return Amount{Value: &v, Confidence: fallbackConfidence}
}

// searchWindow splits the text into trimmed, non-empty lines and returns
// the last searchWindowLines of them.
func searchWindow(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) > searchWindowLines {
		lines = lines[len(lines)-searchWindowLines:]
	}
	return lines
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldLine lowercases and strips diacritics for keyword matching.
func foldLine(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// normalizeAmount converts a separator-tolerant numeric string into a
// canonical decimal and applies the plausibility bounds (0, 10M).
// A trailing one- or two-digit group after the last separator is the
// decimal part; every other separator is a thousands separator.
func normalizeAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	lastSep := strings.LastIndexAny(s, ".,")
	intPart := s
	fracPart := ""
	if lastSep >= 0 {
		tail := s[lastSep+1:]
		if len(tail) >= 1 && len(tail) <= 2 {
			intPart = s[:lastSep]
			fracPart = tail
		}
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, intPart)
	if digits == "" {
		return 0, false
	}

	canonical := digits
	if fracPart != "" {
		canonical += "." + fracPart
	}
	value, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return 0, false
	}
	if value <= 0 || value >= maxPlausibleAmount {
		return 0, false
	}
	return value, true
}
