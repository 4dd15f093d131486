package alphakey

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed suffixes.yaml
var defaultSuffixes []byte

// suffixFile is the YAML schema of a legal-form ending table.
type suffixFile struct {
	Endings []string          `yaml:"endings"`
	Rewrite map[string]string `yaml:"rewrite"`
}

// SuffixTable maps legal-form endings to the form they strip down to.
// It is built once and never mutated, so it is safe for concurrent use.
type SuffixTable struct {
	// byTokens[n] holds the endings made of n whitespace-delimited tokens,
	// keyed by their upper-cased single-spaced form.
	byTokens  map[int]map[string][]string
	maxTokens int
	size      int
}

// DefaultSuffixTable returns the embedded UK/Welsh ending table.
func DefaultSuffixTable() *SuffixTable {
	t, err := ParseSuffixTable(defaultSuffixes)
	if err != nil {
		panic(fmt.Sprintf("alphakey: embedded suffix table: %v", err))
	}
	return t
}

// LoadSuffixTable reads an ending table from a YAML file.
// An empty path selects the embedded default.
func LoadSuffixTable(path string) (*SuffixTable, error) {
	if path == "" {
		return DefaultSuffixTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suffix table %s: %w", path, err)
	}
	t, err := ParseSuffixTable(data)
	if err != nil {
		return nil, fmt.Errorf("suffix table %s: %w", path, err)
	}
	return t, nil
}

// ParseSuffixTable builds a table from YAML. Plain endings strip to nothing;
// rewrite entries strip to their replacement.
func ParseSuffixTable(data []byte) (*SuffixTable, error) {
	var f suffixFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse suffix table: %w", err)
	}

	t := &SuffixTable{byTokens: make(map[int]map[string][]string)}
	for _, e := range f.Endings {
		if err := t.add(e, ""); err != nil {
			return nil, err
		}
	}
	for e, repl := range f.Rewrite {
		if err := t.add(e, repl); err != nil {
			return nil, err
		}
	}
	if t.size == 0 {
		return nil, fmt.Errorf("suffix table has no endings")
	}

	// A replacement that itself ends in a known ending would make stripping
	// depend on how many times it is applied.
	for _, set := range t.byTokens {
		for ending, repl := range set {
			if len(repl) == 0 {
				continue
			}
			if _, _, ok := t.match(append([]string{"X"}, repl...)); ok {
				return nil, fmt.Errorf("rewrite of %q ends in another ending", ending)
			}
		}
	}
	return t, nil
}

func (t *SuffixTable) add(ending, replacement string) error {
	tokens := strings.Fields(strings.ToUpper(ending))
	if len(tokens) == 0 {
		return fmt.Errorf("empty ending in suffix table")
	}
	key := strings.Join(tokens, " ")
	n := len(tokens)
	if len(strings.Fields(replacement)) >= n {
		return fmt.Errorf("rewrite of %q must be shorter than the ending", ending)
	}
	if t.byTokens[n] == nil {
		t.byTokens[n] = make(map[string][]string)
	}
	if _, dup := t.byTokens[n][key]; !dup {
		t.size++
	}
	t.byTokens[n][key] = strings.Fields(replacement)
	if n > t.maxTokens {
		t.maxTokens = n
	}
	return nil
}

// Len returns the number of distinct endings.
func (t *SuffixTable) Len() int { return t.size }

// match finds the longest ending that covers the trailing tokens, leaving at
// least one token in front of it. It returns how many tokens the ending spans.
func (t *SuffixTable) match(tokens []string) (int, []string, bool) {
	limit := t.maxTokens
	if limit > len(tokens)-1 {
		limit = len(tokens) - 1
	}
	for n := limit; n >= 1; n-- {
		set := t.byTokens[n]
		if set == nil {
			continue
		}
		tail := make([]string, n)
		for i, tok := range tokens[len(tokens)-n:] {
			tail[i] = strings.ToUpper(tok)
		}
		if repl, ok := set[strings.Join(tail, " ")]; ok {
			return n, repl, true
		}
	}
	return 0, nil, false
}

// Strip removes trailing legal-form endings from name. Names without a
// whitespace separator are returned unchanged. Stripping repeats until no
// ending matches, so Strip(Strip(s)) == Strip(s).
func (t *SuffixTable) Strip(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return strings.TrimSpace(name)
	}
	stripped := false
	for {
		n, repl, ok := t.match(tokens)
		if !ok {
			break
		}
		tokens = append(tokens[:len(tokens)-n:len(tokens)-n], repl...)
		stripped = true
	}
	if !stripped {
		return strings.TrimSpace(name)
	}
	return strings.Join(tokens, " ")
}
