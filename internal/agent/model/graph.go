package model

import "time"

// InboundMessage is one chat message entering the pipeline.
type InboundMessage struct {
	SenderID    string    `json:"sender_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Text        string    `json:"text"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
}

// Decision flows between graph nodes after classification.
type Decision struct {
	Message        InboundMessage
	Classification Classification
	History        []Message
	Search         *SearchResult
	// HumanOwned is set when the client already has an active assignment and the
	// agent, not the assistant, answers.
	HumanOwned *Assignment
}

// Reply is the pipeline output handed back to the transport.
type Reply struct {
	ClientID   string        `json:"client_id"`
	Outcome    Outcome       `json:"outcome"`
	Text       string        `json:"text,omitempty"`
	Assignment *Assignment   `json:"assignment,omitempty"`
	Agent      *Agent        `json:"agent,omitempty"`
	Search     *SearchResult `json:"search,omitempty"`
	Degraded   bool          `json:"degraded,omitempty"`
	Rule       string        `json:"rule,omitempty"`
}

// Suppressed reports whether nothing must be sent back.
func (r *Reply) Suppressed() bool {
	return r == nil || r.Text == ""
}
