package lexicon

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds every curated word list the classifier and normalizer use.
// All lists are matched after Fold, so entries may be written with or without accents.
type Lexicon struct {
	StopWords       []string            `yaml:"stop_words"`
	Synonyms        map[string][]string `yaml:"synonyms"`
	HandoffPhrases  []string            `yaml:"handoff_phrases"`
	PurchasePhrases []string            `yaml:"purchase_phrases"`
	ProductTerms    []string            `yaml:"product_terms"`
	DeniedSenders   []string            `yaml:"denied_senders"`
	// AutomatedPatterns are case-insensitive regular expressions applied to the simplified message.
	AutomatedPatterns []string `yaml:"automated_patterns"`
}

// LoadFile reads a YAML lexicon and overlays it on the defaults: each list present
// in the file replaces the built-in one, absent lists keep their defaults.
func LoadFile(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML lexicon document and overlays it on the defaults.
func Parse(raw []byte) (*Lexicon, error) {
	var override Lexicon
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	return Default().Merge(&override), nil
}

// Merge returns a copy of l where every non-empty list of o replaces the one in l.
func (l *Lexicon) Merge(o *Lexicon) *Lexicon {
	out := *l
	if o == nil {
		return &out
	}
	if len(o.StopWords) > 0 {
		out.StopWords = o.StopWords
	}
	if len(o.Synonyms) > 0 {
		out.Synonyms = o.Synonyms
	}
	if len(o.HandoffPhrases) > 0 {
		out.HandoffPhrases = o.HandoffPhrases
	}
	if len(o.PurchasePhrases) > 0 {
		out.PurchasePhrases = o.PurchasePhrases
	}
	if len(o.ProductTerms) > 0 {
		out.ProductTerms = o.ProductTerms
	}
	if len(o.DeniedSenders) > 0 {
		out.DeniedSenders = o.DeniedSenders
	}
	if len(o.AutomatedPatterns) > 0 {
		out.AutomatedPatterns = o.AutomatedPatterns
	}
	return &out
}
