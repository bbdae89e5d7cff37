package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/chative-salesdesk/server/internal/agent/lexicon"
	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Vocabulary answers whether a folded token names something in the catalog.
type Vocabulary interface {
	HasTerm(term string) bool
}

// Classifier evaluates an ordered rule chain and stops at the first rule that matches.
// Automated-sender rules run before handoff and purchase rules, which run before the
// product check; anything left is AUTO_REPLY.
type Classifier struct {
	rules   []Rule
	tracker *Tracker
	now     func() time.Time
}

func NewClassifier(lex *lexicon.Lexicon, vocab Vocabulary, cfg model.ClassifierConfig, conv model.ConversationConfig) (*Classifier, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	tracker, err := NewTracker(cfg.LoopThreshold, cfg.LoopWindow, cfg.TrackedSenders)
	if err != nil {
		return nil, err
	}
	automated, err := automatedPatternRule(lex.AutomatedPatterns)
	if err != nil {
		return nil, err
	}

	minExchanges := conv.PurchaseMinExchanges
	rules := []Rule{
		deniedSenderRule(lex.DeniedSenders),
		shortSenderRule(cfg.MinSenderDigits),
		automated,
		senderLoopRule(tracker),
		phraseRule(RuleHandoffPhrase, model.OutcomeEscalateHumanRequest, lex.HandoffPhrases, nil),
		phraseRule(RulePurchasePhrase, model.OutcomeEscalatePurchase, lex.PurchasePhrases, func(in *input) bool {
			return in.sender.PriorExchanges >= minExchanges
		}),
		phraseRule(RuleProductTerm, model.OutcomeProductSearchReply, lex.ProductTerms, nil),
		catalogTermRule(vocab),
	}
	return &Classifier{rules: rules, tracker: tracker, now: time.Now}, nil
}

// Classify returns the outcome for one message. Empty or whitespace-only text is not
// classified and yields OutcomeNone. Classify never panics.
func (c *Classifier) Classify(text string, sender model.SenderContext) (out model.Classification) {
	if strings.TrimSpace(text) == "" {
		return model.Classification{Outcome: model.OutcomeNone}
	}
	if sender.ReceivedAt.IsZero() {
		sender.ReceivedAt = c.now()
	}
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("sender", sender.SenderID).Str("panic", fmt.Sprint(r)).Msg("classifier failed")
			out = model.Classification{Outcome: model.OutcomeNone, Rule: "error"}
		}
	}()

	in := newInput(text, sender)
	for _, rule := range c.rules {
		if evidence, ok := rule.Match(in); ok {
			out = model.Classification{Outcome: rule.Outcome, Rule: rule.Name, Evidence: evidence}
			if out.Outcome.IsSuppressed() {
				logx.Debug().Str("sender", sender.SenderID).Str("rule", rule.Name).
					Str("evidence", evidence).Msg("message suppressed")
			}
			return out
		}
	}
	return model.Classification{Outcome: model.OutcomeAutoReply, Rule: RuleFallback}
}

// RuleNames lists the chain in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return names
}

// ForgetSender drops the loop-detection history of a sender.
func (c *Classifier) ForgetSender(senderID string) {
	c.tracker.Forget(senderID)
}
