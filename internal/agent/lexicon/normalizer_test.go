package lexicon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"accents", "¿Cuánto CUESTA la pistola?", "cuanto cuesta la pistola"},
		{"enye", "Año Niño", "ano nino"},
		{"punctuation class", `hola!!! (precio) [retay], "negra"; 'ok':`, "hola precio retay negra ok"},
		{"whitespace runs", "  retay \t\n g17  ", "retay g17"},
		{"keeps other symbols", "G-17 9x19 $1.000", "g-17 9x19 $1 000"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fold(tc.in))
		})
	}
}

func TestSimplifyKeepsPunctuation(t *testing.T) {
	assert.Equal(t, "¿codigo de verificacion?", Simplify("¿Código de Verificación?"))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("quiero hablar con un asesor ya", "hablar con un asesor"))
	assert.True(t, ContainsPhrase("lo compro", "lo compro"))
	assert.False(t, ContainsPhrase("lo compromiso", "lo compro"))
	assert.False(t, ContainsPhrase("anything", ""))
}

func TestNormalizeScenario(t *testing.T) {
	n := NewNormalizer(Default())

	got := n.Normalize("cuanto vale la retay negra")
	assert.Equal(t, []string{"retay", "negra", "negro"}, got)
}

func TestNormalizeOrderOriginalsBeforeExpansions(t *testing.T) {
	n := NewNormalizer(&Lexicon{
		Synonyms: map[string][]string{
			"gas":      {"pimienta"},
			"linterna": {"lampara"},
		},
	})

	got := n.Normalize("gas linterna gas")
	assert.Equal(t, []string{"gas", "linterna", "pimienta", "lampara"}, got)
}

func TestNormalizeDropsShortTokensAndStopWords(t *testing.T) {
	n := NewNormalizer(&Lexicon{StopWords: []string{"la", "de"}})
	assert.Equal(t, []string{"bala", "goma"}, n.Normalize("x la bala de goma y"))
}

func TestNormalizeStopWordsOnlyIsEmpty(t *testing.T) {
	n := NewNormalizer(Default())
	inputs := []string{
		"",
		"   ",
		"¿?¡!.,;:(){}[]\"'",
		"hola, buenas tardes!",
		"¿Cuánto vale?",
		"Hola! quiero saber el precio por favor",
	}
	for _, in := range inputs {
		got := n.Normalize(in)
		assert.NotNil(t, got, "input %q", in)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(Default())
	inputs := []string{
		"cuanto vale la retay negra",
		"¿Tienen munición 9mm y gas pimienta?",
		"Busco una pistola traumática plateada con funda",
		"taser, chaleco y linterna",
		"hola",
	}
	for _, in := range inputs {
		first := n.Normalize(in)
		second := n.Normalize(strings.Join(first, " "))
		assert.ElementsMatch(t, first, second, "input %q", in)
	}
}

func TestSynonymClosureIsTransitive(t *testing.T) {
	n := NewNormalizer(&Lexicon{
		Synonyms: map[string][]string{
			"a1": {"b2"},
			"b2": {"c3"},
			"c3": {"a1"},
		},
	})
	assert.Equal(t, []string{"b2", "c3"}, n.Synonyms("a1"))
	assert.ElementsMatch(t, []string{"a1", "b2", "c3"}, n.Normalize("a1"))
}

func TestSynonymValuesAreFiltered(t *testing.T) {
	n := NewNormalizer(&Lexicon{
		StopWords: []string{"de"},
		Synonyms: map[string][]string{
			"Munición": {"cartuchos de goma", "x"},
		},
	})
	assert.Equal(t, []string{"cartuchos", "goma"}, n.Synonyms("municion"))
	assert.True(t, n.IsStopWord("de"))
}

func TestNilLexiconUsesDefaults(t *testing.T) {
	n := NewNormalizer(nil)
	require.True(t, n.IsStopWord("hola"))
}
