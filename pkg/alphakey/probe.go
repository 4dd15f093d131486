package alphakey

import (
	"strings"
	"unicode/utf8"
)

// Truncation bounds for first-token probes. Shorter prefixes match too much of
// the corpus; longer ones add round-trips without narrowing the match.
const (
	MinProbeLength = 2
	MaxProbeLength = 10
)

// GenerateProbes returns the probe keys for a name, most specific first.
// The first element is always the exact key.
//
// The index has no "nearest key" operator. Probing both a prefix and its
// previous-character variant lets prefix queries land on the entries just
// before the exact position as well as those after it.
func GenerateProbes(n Name) []string {
	exact := n.OrderedAlphaKey
	probes := []string{exact}
	seen := map[string]bool{exact: true}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		probes = append(probes, p)
	}

	if n.Single || utf8.RuneCountInString(n.Stripped) == 1 {
		r, _ := utf8.DecodeRuneInString(n.Stripped)
		if prev, ok := PreviousChar(r); ok {
			s := string(prev)
			add(orderedKey(s, AlphaKey(s)))
		}
		return probes
	}

	fields := strings.Fields(n.Stripped)
	if len(fields) == 0 {
		return probes
	}
	token := []rune(orderedKey(fields[0], AlphaKey(fields[0])))
	if len(token) > MaxProbeLength {
		token = token[:MaxProbeLength]
	}

	for l := len(token); l >= MinProbeLength; l-- {
		add(string(token[:l]))
	}
	for l := len(token); l >= MinProbeLength; l-- {
		if prev, ok := PreviousChar(token[l-1]); ok {
			add(string(token[:l-1]) + string(prev))
		}
	}
	return probes
}

// PreviousChar returns the character that sorts immediately before c within
// its class. Letters wrap ('a' to 'z', 'A' to 'Z'); '0' has no predecessor;
// any other character is its own predecessor.
func PreviousChar(c rune) (rune, bool) {
	switch {
	case c == '0':
		return 0, false
	case c > '0' && c <= '9':
		return c - 1, true
	case c == 'a':
		return 'z', true
	case c > 'a' && c <= 'z':
		return c - 1, true
	case c == 'A':
		return 'Z', true
	case c > 'A' && c <= 'Z':
		return c - 1, true
	default:
		return c, true
	}
}
