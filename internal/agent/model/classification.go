package model

import "time"

// Outcome is the routing decision for one inbound message.
type Outcome string

const (
	// OutcomeNone means no classification was performed (empty input).
	OutcomeNone Outcome = ""

	OutcomeAutoReply               Outcome = "AUTO_REPLY"
	OutcomeProductSearchReply      Outcome = "PRODUCT_SEARCH_REPLY"
	OutcomeEscalatePurchase        Outcome = "ESCALATE_PURCHASE"
	OutcomeEscalateHumanRequest    Outcome = "ESCALATE_HUMAN_REQUEST"
	OutcomeSuppressAutomatedSender Outcome = "SUPPRESS_AUTOMATED_SENDER"
	OutcomeSuppressLoop            Outcome = "SUPPRESS_LOOP"
)

// IsSuppressed reports whether the message must be dropped without reply or record.
func (o Outcome) IsSuppressed() bool {
	return o == OutcomeSuppressAutomatedSender || o == OutcomeSuppressLoop
}

// IsEscalation reports whether the message must be handed to a human agent.
func (o Outcome) IsEscalation() bool {
	return o == OutcomeEscalatePurchase || o == OutcomeEscalateHumanRequest
}

// SenderContext carries what the classifier knows about the sender besides the text.
type SenderContext struct {
	SenderID    string
	DisplayName string
	// PriorExchanges counts completed user+assistant pairs before this message.
	PriorExchanges int
	ReceivedAt     time.Time
}

// Classification is computed fresh per message and never stored as an entity.
type Classification struct {
	Outcome Outcome `json:"outcome"`
	// Rule names the rule that fired; Evidence is the phrase, pattern or field that matched.
	Rule     string `json:"rule,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}
