package intent

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/model"
)

const (
	RuleDeniedSender     = "denied_sender"
	RuleShortSender      = "short_sender_id"
	RuleAutomatedPattern = "automated_pattern"
	RuleSenderLoop       = "sender_loop"
	RuleHandoffPhrase    = "handoff_phrase"
	RulePurchasePhrase   = "purchase_phrase"
	RuleProductTerm      = "product_term"
	RuleCatalogTerm      = "catalog_term"
	RuleFallback         = "fallback"
)

// Rule is one tagged predicate of the chain. Match returns the evidence that fired it.
type Rule struct {
	Name    string
	Outcome model.Outcome
	Match   func(in *input) (string, bool)
}

// input is a message prepared once and shared by every rule.
type input struct {
	text       string
	simplified string
	folded     string
	tokens     []string
	sender     model.SenderContext
}

func newInput(text string, sender model.SenderContext) *input {
	folded := lexicon.Fold(text)
	return &input{
		text:       text,
		simplified: lexicon.Simplify(text),
		folded:     folded,
		tokens:     strings.Fields(folded),
		sender:     sender,
	}
}

func foldAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if f := lexicon.Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func deniedSenderRule(denied []string) Rule {
	denied = foldAll(denied)
	return Rule{
		Name:    RuleDeniedSender,
		Outcome: model.OutcomeSuppressAutomatedSender,
		Match: func(in *input) (string, bool) {
			fields := []string{lexicon.Fold(in.sender.DisplayName), lexicon.Fold(in.sender.SenderID)}
			for _, f := range fields {
				if f == "" {
					continue
				}
				for _, d := range denied {
					if strings.Contains(f, d) {
						return d, true
					}
				}
			}
			return "", false
		},
	}
}

// shortSenderRule only applies to phone-like ids: the part before '@' must be all digits,
// optionally prefixed by '+'.
func shortSenderRule(minDigits int) Rule {
	return Rule{
		Name:    RuleShortSender,
		Outcome: model.OutcomeSuppressAutomatedSender,
		Match: func(in *input) (string, bool) {
			if minDigits <= 0 {
				return "", false
			}
			local, _, _ := strings.Cut(in.sender.SenderID, "@")
			local = strings.TrimPrefix(strings.TrimSpace(local), "+")
			if local == "" || strings.IndexFunc(local, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
				return "", false
			}
			if utf8.RuneCountInString(local) < minDigits {
				return local, true
			}
			return "", false
		},
	}
}

func automatedPatternRule(patterns []string) (Rule, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Rule{}, fmt.Errorf("automated pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return Rule{
		Name:    RuleAutomatedPattern,
		Outcome: model.OutcomeSuppressAutomatedSender,
		Match: func(in *input) (string, bool) {
			for _, re := range compiled {
				if m := re.FindString(in.simplified); m != "" {
					return m, true
				}
			}
			return "", false
		},
	}, nil
}

func senderLoopRule(tracker *Tracker) Rule {
	return Rule{
		Name:    RuleSenderLoop,
		Outcome: model.OutcomeSuppressLoop,
		Match: func(in *input) (string, bool) {
			if tracker == nil || in.sender.SenderID == "" {
				return "", false
			}
			if tracker.Exceeded(in.sender.SenderID, in.sender.ReceivedAt) {
				return in.sender.SenderID, true
			}
			return "", false
		},
	}
}

func phraseRule(name string, outcome model.Outcome, phrases []string, when func(*input) bool) Rule {
	phrases = foldAll(phrases)
	return Rule{
		Name:    name,
		Outcome: outcome,
		Match: func(in *input) (string, bool) {
			if when != nil && !when(in) {
				return "", false
			}
			for _, p := range phrases {
				if lexicon.ContainsPhrase(in.folded, p) {
					return p, true
				}
			}
			return "", false
		},
	}
}

func catalogTermRule(vocab Vocabulary) Rule {
	return Rule{
		Name:    RuleCatalogTerm,
		Outcome: model.OutcomeProductSearchReply,
		Match: func(in *input) (string, bool) {
			if vocab == nil {
				return "", false
			}
			for _, tok := range in.tokens {
				if utf8.RuneCountInString(tok) >= 3 && vocab.HasTerm(tok) {
					return tok, true
				}
			}
			return "", false
		},
	}
}
