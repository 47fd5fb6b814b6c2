package engine

import (
	"sort"
	"strings"
)

// Detector finds technical/criticism keywords and trigger symbols in a
// message. Keywords are whole-word matches only; trigger symbols are matched
// per rune against the raw content.
type Detector struct {
	keywords map[string]struct{}
	symbols  map[rune]struct{}
}

// NewDetector builds a Detector from the configured vocabularies.
func NewDetector(cfg Config) *Detector {
	keywords := make(map[string]struct{}, len(cfg.TechnicalKeywords))
	for _, k := range cfg.TechnicalKeywords {
		keywords[k] = struct{}{}
	}
	symbols := make(map[rune]struct{}, len(cfg.TriggerSymbols))
	for _, s := range cfg.TriggerSymbols {
		for _, r := range s {
			symbols[r] = struct{}{}
		}
	}
	return &Detector{keywords: keywords, symbols: symbols}
}

// Detect returns the sorted set of matches. Duplicates collapse; order is
// irrelevant to callers but kept deterministic for logs and tests.
func (d *Detector) Detect(msg *Message) []string {
	found := make(map[string]struct{})

	for _, word := range strings.Fields(strings.ToLower(msg.Content)) {
		if _, ok := d.keywords[word]; ok {
			found[word] = struct{}{}
		}
	}

	for _, r := range msg.Content {
		if _, ok := d.symbols[r]; ok {
			found[string(r)] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for k := range found {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
