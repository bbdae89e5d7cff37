package lexicon

import (
	"strings"
	"unicode/utf8"
)

// Normalizer turns free text into an ordered, deduplicated keyword list.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	stop     map[string]struct{}
	synonyms map[string][]string
}

// NewNormalizer folds the lexicon's stop-words and synonym table. Synonym values are
// tokenized, filtered like query tokens and closed transitively, so expanding an
// expansion never yields new terms.
func NewNormalizer(lex *Lexicon) *Normalizer {
	if lex == nil {
		lex = Default()
	}
	n := &Normalizer{
		stop:     make(map[string]struct{}, len(lex.StopWords)),
		synonyms: make(map[string][]string, len(lex.Synonyms)),
	}
	for _, w := range lex.StopWords {
		for _, tok := range strings.Fields(Fold(w)) {
			n.stop[tok] = struct{}{}
		}
	}

	direct := make(map[string][]string, len(lex.Synonyms))
	for key, values := range lex.Synonyms {
		k := Fold(key)
		if !n.keep(k) {
			continue
		}
		for _, v := range values {
			for _, tok := range strings.Fields(Fold(v)) {
				if n.keep(tok) && tok != k {
					direct[k] = appendUnique(direct[k], tok)
				}
			}
		}
	}
	for k := range direct {
		n.synonyms[k] = closure(k, direct)
	}
	return n
}

// Normalize lowercases, strips diacritics and punctuation, drops short tokens and
// stop-words, then appends synonym expansions after the original terms.
// An empty result means the text carries no searchable intent.
func (n *Normalizer) Normalize(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(Fold(text)) {
		if !n.keep(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	originals := len(out)
	for i := 0; i < originals; i++ {
		for _, syn := range n.synonyms[out[i]] {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			out = append(out, syn)
		}
	}
	return out
}

// IsStopWord reports whether the folded token is ignored by Normalize.
func (n *Normalizer) IsStopWord(tok string) bool {
	_, ok := n.stop[tok]
	return ok
}

// Synonyms returns the closed expansion of a folded term.
func (n *Normalizer) Synonyms(term string) []string {
	return append([]string(nil), n.synonyms[term]...)
}

func (n *Normalizer) keep(tok string) bool {
	if utf8.RuneCountInString(tok) <= 1 {
		return false
	}
	_, stop := n.stop[tok]
	return !stop
}

// closure walks the synonym graph breadth-first from key, excluding key itself.
func closure(key string, direct map[string][]string) []string {
	var out []string
	visited := map[string]struct{}{key: {}}
	queue := append([]string(nil), direct[key]...)
	for len(queue) > 0 {
		term := queue[0]
		queue = queue[1:]
		if _, ok := visited[term]; ok {
			continue
		}
		visited[term] = struct{}{}
		out = append(out, term)
		queue = append(queue, direct[term]...)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
