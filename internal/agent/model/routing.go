package model

import (
	"fmt"
	"strings"
	"time"
)

// Agent is a human sales advisor in the rotation roster.
type Agent struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactHandle string `json:"contact_handle"`
	Active        bool   `json:"active"`
	// Position fixes the roster order; rotation follows ascending Position.
	Position                int `json:"position"`
	LifetimeAssignmentCount int `json:"lifetime_assignment_count"`
}

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Assignment links a client to an agent. At most one active assignment exists per client.
type Assignment struct {
	ID          string           `json:"id"`
	ClientID    string           `json:"client_id"`
	AgentID     string           `json:"agent_id"`
	Status      AssignmentStatus `json:"status"`
	AssignedAt  time.Time        `json:"assigned_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Roster is the configured agent list, decoded from "id|name|handle,id|name|handle".
type Roster []Agent

// Decode implements envconfig.Decoder.
func (r *Roster) Decode(value string) error {
	var out Roster
	for i, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		id := strings.TrimSpace(parts[0])
		if id == "" {
			return fmt.Errorf("agent entry %d: empty id", i)
		}
		a := Agent{ID: id, Name: id, Active: true, Position: len(out)}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			a.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			a.ContactHandle = strings.TrimSpace(parts[2])
		}
		out = append(out, a)
	}
	*r = out
	return nil
}
