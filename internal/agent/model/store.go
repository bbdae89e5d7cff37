package model

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAgent     Role = "agent"
)

// Message is one persisted conversation turn.
type Message struct {
	ClientID  string    `json:"client_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type ClientStatus string

const (
	ClientNew       ClientStatus = "new"
	ClientEngaged   ClientStatus = "engaged"
	ClientEscalated ClientStatus = "escalated"
)

// ClientRecord is the persisted lead.
type ClientRecord struct {
	ID            string       `json:"id"`
	DisplayName   string       `json:"display_name"`
	Status        ClientStatus `json:"status"`
	LastOutcome   Outcome      `json:"last_outcome,omitempty"`
	MessageCount  int          `json:"message_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	LastMessageAt time.Time    `json:"last_message_at"`
}

// ClientPatch carries the fields to change; nil fields are left untouched.
type ClientPatch struct {
	DisplayName *string
	Status      *ClientStatus
	LastOutcome *Outcome
	// CountMessage increments MessageCount and bumps LastMessageAt.
	CountMessage bool
}

// Stats is the aggregate view for operators.
type Stats struct {
	Clients           int     `json:"clients"`
	EscalatedClients  int     `json:"escalated_clients"`
	ActiveAssignments int     `json:"active_assignments"`
	Agents            []Agent `json:"agents"`
}

type ClientStore interface {
	// GetClient returns an errx.ErrNotFound error when the client does not exist.
	GetClient(ctx context.Context, id string) (*ClientRecord, error)
	UpsertClient(ctx context.Context, id string, patch ClientPatch) (*ClientRecord, error)
	ListClients(ctx context.Context, limit int) ([]ClientRecord, error)
	// ResetClient removes the record and its messages and completes any active assignment.
	ResetClient(ctx context.Context, id string) error
}

type MessageStore interface {
	AppendMessage(ctx context.Context, clientID string, role Role, text string) error
	// RecentMessages returns at most limit messages in chronological order.
	RecentMessages(ctx context.Context, clientID string, limit int) ([]Message, error)
}

type AssignmentStore interface {
	// ActiveAssignment returns nil, nil when the client has no active assignment.
	ActiveAssignment(ctx context.Context, clientID string) (*Assignment, error)
	// CreateAssignment atomically completes any active assignment of the client,
	// inserts the new one and increments the agent's lifetime count.
	CreateAssignment(ctx context.Context, clientID, agentID string) (*Assignment, error)
	// CompleteAssignment returns nil, nil when there was nothing to close.
	CompleteAssignment(ctx context.Context, clientID string) (*Assignment, error)
	// LastAssignment returns the most recently created assignment, or nil, nil.
	LastAssignment(ctx context.Context) (*Assignment, error)
	// ListActiveAgents returns active agents ordered by Position.
	ListActiveAgents(ctx context.Context) ([]Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	// UpsertAgent creates or updates an agent, preserving its lifetime count.
	UpsertAgent(ctx context.Context, agent Agent) error
	SetAgentActive(ctx context.Context, id string, active bool) error
}

// Store is the storage collaborator used by the message pipeline and operators.
type Store interface {
	ClientStore
	MessageStore
	AssignmentStore
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Notifier delivers handoff notices to human agents over the chat transport.
type Notifier interface {
	NotifyAgent(ctx context.Context, notice HandoffNotice) error
}

// HandoffNotice is what an agent receives when a client is routed to them.
type HandoffNotice struct {
	Agent      Agent
	Assignment Assignment
	Client     ClientRecord
	Reason     Outcome
	Recent     []Message
}
