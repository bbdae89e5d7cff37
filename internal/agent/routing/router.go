package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/chative-salesdesk/server/internal/agent/model"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Router distributes new escalations round-robin over the active roster. Clients that
// already have an active assignment keep their agent.
type Router struct {
	store model.AssignmentStore

	// mu serializes the cursor read-advance-commit together with the sticky check,
	// so two escalations of the same client cannot both create an assignment.
	mu     sync.Mutex
	cursor int
}

func NewRouter(store model.AssignmentStore) *Router {
	return &Router{store: store, cursor: -1}
}

// Assign returns the client's active assignment, or creates one with the next agent in
// rotation. It returns nil, nil, nil when no agent is active.
func (r *Router) Assign(ctx context.Context, clientID string) (*model.Assignment, *model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.ActiveAssignment(ctx, clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("load active assignment: %w", err)
	}
	if current != nil {
		// the owning agent may have been deactivated since; look in the full list
		agents, err := r.store.ListAgents(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list agents: %w", err)
		}
		return current, findAgent(agents, current.AgentID), nil
	}
	roster, err := r.store.ListActiveAgents(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list active agents: %w", err)
	}
	if len(roster) == 0 {
		logx.Warn().Str("client_id", clientID).Msg("no active agents for escalation")
		return nil, nil, nil
	}

	next := (r.cursor + 1) % len(roster)
	agent := roster[next]
	assignment, err := r.store.CreateAssignment(ctx, clientID, agent.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create assignment: %w", err)
	}
	r.cursor = next
	agent.LifetimeAssignmentCount++

	logx.Info().Str("client_id", clientID).Str("agent_id", agent.ID).
		Int("cursor", next).Msg("client assigned")
	return assignment, &agent, nil
}

// Close completes the client's active assignment. The cursor is not touched.
func (r *Router) Close(ctx context.Context, clientID string) (*model.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.CompleteAssignment(ctx, clientID)
}

// Recover places the cursor on the last assigned agent so the next assignment goes to
// the one after it. When the last assignment is unknown or its agent left the roster,
// the agent with the highest lifetime count stands in for it (first one on ties).
// With no history at all the cursor stays at -1.
func (r *Router) Recover(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster, err := r.store.ListActiveAgents(ctx)
	if err != nil {
		return fmt.Errorf("list active agents: %w", err)
	}
	r.cursor = -1
	if len(roster) == 0 {
		return nil
	}

	last, err := r.store.LastAssignment(ctx)
	if err != nil {
		return fmt.Errorf("load last assignment: %w", err)
	}
	if last != nil {
		for i, a := range roster {
			if a.ID == last.AgentID {
				r.cursor = i
				logx.Info().Str("agent_id", a.ID).Int("cursor", i).Msg("rotation recovered from last assignment")
				return nil
			}
		}
	}

	best := -1
	for i, a := range roster {
		if a.LifetimeAssignmentCount > 0 && (best < 0 || a.LifetimeAssignmentCount > roster[best].LifetimeAssignmentCount) {
			best = i
		}
	}
	r.cursor = best
	logx.Info().Int("cursor", best).Msg("rotation recovered from assignment counts")
	return nil
}

// Cursor is the index of the last selected agent in the active roster, -1 before any.
func (r *Router) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

func findAgent(roster []model.Agent, id string) *model.Agent {
	for i := range roster {
		if roster[i].ID == id {
			a := roster[i]
			return &a
		}
	}
	return nil
}
