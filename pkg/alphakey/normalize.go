// Package alphakey turns free-text corporate names into the ordered keys used
// to probe the alphabetical index.
package alphakey

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IDSeparator joins an ordered key to the stable id that disambiguates ties.
// Past its leading character a key holds letters only, all of which sort
// above ':', so "acme:..." precedes "acmea...".
const IDSeparator = ":"

// symbolMark prefixes the keys of names that start with anything but a
// letter (a symbol or a digit). It sorts below every letter, which keeps
// those names together at the head of the corpus, ordered by their raw
// leading character.
const symbolMark = " "

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name is a normalised corporate name.
type Name struct {
	Original        string
	Stripped        string // legal-form ending removed
	AlphaKey        string // lower-case letters only
	OrderedAlphaKey string // the index probe key
	// Single marks one-character and symbol-only input. Such names skip
	// ending removal and are matched on their first character.
	Single bool
}

// Empty reports whether the name carries no usable key.
func (n Name) Empty() bool { return n.OrderedAlphaKey == "" }

// Normalizer derives Names using an immutable ending table.
type Normalizer struct {
	suffixes *SuffixTable
}

// NewNormalizer returns a Normalizer. A nil table selects the embedded default.
func NewNormalizer(t *SuffixTable) *Normalizer {
	if t == nil {
		t = DefaultSuffixTable()
	}
	return &Normalizer{suffixes: t}
}

// Normalize never fails: empty or meaningless input yields an empty key.
func (n *Normalizer) Normalize(raw string) Name {
	trimmed := strings.TrimSpace(raw)
	name := Name{Original: raw}

	if isSingle(trimmed) {
		name.Single = true
		name.Stripped = trimmed
	} else {
		name.Stripped = n.suffixes.Strip(trimmed)
	}
	name.AlphaKey = AlphaKey(name.Stripped)
	name.OrderedAlphaKey = orderedKey(name.Stripped, name.AlphaKey)
	return name
}

// Key returns the ordered key for a corpus name.
func (n *Normalizer) Key(corporateName string) string {
	return n.Normalize(corporateName).OrderedAlphaKey
}

// WithID appends the disambiguating id to an ordered key.
func WithID(key, id string) string {
	return key + IDSeparator + id
}

// AlphaKey lower-cases s, folds accents and drops every rune that is not a
// letter. Digits go too: "ACME 2000" and "ACME" share the key "acme".
func AlphaKey(s string) string {
	folded, _, _ := transform.String(stripAccents, strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func orderedKey(stripped, alpha string) string {
	r, size := utf8.DecodeRuneInString(stripped)
	if size == 0 {
		return ""
	}
	if unicode.IsLetter(r) {
		return alpha
	}
	return symbolMark + string(r) + alpha
}

func isSingle(s string) bool {
	if s == "" {
		return false
	}
	if utf8.RuneCountInString(s) == 1 {
		return true
	}
	for _, r := range s {
		if isAlnum(r) {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
