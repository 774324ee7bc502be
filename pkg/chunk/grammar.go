package chunk

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Grammar is one chunk suffix convention. The set of grammars is closed;
// Grammars returns them in matching priority.
type Grammar struct {
	Name   string
	Family Family
	re     *regexp.Regexp
	key    func(m []string) (uint64, bool)
}

var (
	// GrammarNumeric matches split-style numeric suffixes: .001, .002.
	GrammarNumeric = &Grammar{
		Name:   "numeric",
		Family: FamilyNumeric,
		re:     regexp.MustCompile(`^(\d+)$`),
		key:    decimalKey,
	}
	// GrammarAlpha matches split-style lowercase suffixes: .aa, .ab.
	GrammarAlpha = &Grammar{
		Name:   "alpha",
		Family: FamilyAlpha,
		re:     regexp.MustCompile(`^([a-z]+)$`),
		key:    alphaKey,
	}
	// GrammarPart matches .part1, .part2.
	GrammarPart = &Grammar{
		Name:   "part",
		Family: FamilyNumeric,
		re:     regexp.MustCompile(`^part(\d+)$`),
		key:    decimalKey,
	}
	// GrammarChunk matches .chunk1, .chunk2.
	GrammarChunk = &Grammar{
		Name:   "chunk",
		Family: FamilyNumeric,
		re:     regexp.MustCompile(`^chunk(\d+)$`),
		key:    decimalKey,
	}

	grammars = []*Grammar{GrammarNumeric, GrammarAlpha, GrammarPart, GrammarChunk}
)

// Grammars returns all grammars in priority order.
func Grammars() []*Grammar {
	out := make([]*Grammar, len(grammars))
	copy(out, grammars)
	return out
}

func (g *Grammar) String() string { return g.Name }

// Match reports whether suffix (the text after the last dot) follows g and
// yields a representable key.
func (g *Grammar) Match(suffix string) bool {
	_, ok := g.Key(suffix)
	return ok
}

// Key computes the ordering key of suffix.
func (g *Grammar) Key(suffix string) (Key, bool) {
	m := g.re.FindStringSubmatch(suffix)
	if m == nil {
		return Key{}, false
	}
	v, ok := g.key(m)
	if !ok {
		return Key{}, false
	}
	return Key{Family: g.Family, Value: v}, true
}

// Strip removes a trailing ".<suffix>" following g from name.
func (g *Grammar) Strip(name string) (string, bool) {
	base, suffix, ok := splitSuffix(name)
	if !ok || !g.Match(suffix) {
		return name, false
	}
	return base, true
}

// MatchSuffix returns the first grammar, in priority order, that accepts
// suffix.
func MatchSuffix(suffix string) (*Grammar, Key, bool) {
	for _, g := range grammars {
		if k, ok := g.Key(suffix); ok {
			return g, k, true
		}
	}
	return nil, Key{}, false
}

// splitSuffix splits name at its last dot. None of the grammars admit a
// dot, so the suffix is always the final dotted component.
func splitSuffix(name string) (base, suffix string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func decimalKey(m []string) (uint64, bool) {
	v, err := strconv.ParseUint(m[1], 10, 64)
	return v, err == nil
}

// alphaKey reads letters as base-26 digits with a=1, so "a" < "z" < "aa".
func alphaKey(m []string) (uint64, bool) {
	var v uint64
	for _, r := range m[1] {
		d := uint64(r-'a') + 1
		if v > (math.MaxUint64-d)/26 {
			return 0, false
		}
		v = v*26 + d
	}
	return v, true
}
