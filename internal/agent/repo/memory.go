package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
)

// MemoryStore keeps everything in process memory. It backs the CLI and tests and is
// lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	clients     map[string]*model.ClientRecord
	messages    map[string][]model.Message
	active      map[string]*model.Assignment
	assignments []model.Assignment
	agents      map[string]*model.Agent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  make(map[string]*model.ClientRecord),
		messages: make(map[string][]model.Message),
		active:   make(map[string]*model.Assignment),
		agents:   make(map[string]*model.Agent),
	}
}

func (s *MemoryStore) GetClient(_ context.Context, id string) (*model.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, errx.NotFound("client %s", id)
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) UpsertClient(_ context.Context, id string, patch model.ClientPatch) (*model.ClientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c, ok := s.clients[id]
	if !ok {
		c = newClient(id, now)
		s.clients[id] = c
	}
	applyPatch(c, patch, now)
	out := *c
	return &out, nil
}

func (s *MemoryStore) ListClients(_ context.Context, limit int) ([]model.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ClientRecord, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ResetClient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return errx.NotFound("client %s", id)
	}
	delete(s.clients, id)
	delete(s.messages, id)
	s.completeLocked(id, time.Now().UTC())
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, clientID string, role model.Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[clientID] = append(s.messages[clientID], model.Message{
		ClientID:  clientID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, clientID string, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[clientID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]model.Message{}, msgs...), nil
}

func (s *MemoryStore) ActiveAssignment(_ context.Context, clientID string) (*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.active[clientID]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) CreateAssignment(_ context.Context, clientID, agentID string) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, errx.NotFound("agent %s", agentID)
	}
	now := time.Now().UTC()
	s.completeLocked(clientID, now)

	a := model.Assignment{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		AgentID:    agentID,
		Status:     model.AssignmentActive,
		AssignedAt: now,
	}
	s.assignments = append(s.assignments, a)
	s.active[clientID] = &a
	agent.LifetimeAssignmentCount++
	out := a
	return &out, nil
}

func (s *MemoryStore) CompleteAssignment(_ context.Context, clientID string) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(clientID, time.Now().UTC()), nil
}

func (s *MemoryStore) completeLocked(clientID string, now time.Time) *model.Assignment {
	a, ok := s.active[clientID]
	if !ok {
		return nil
	}
	delete(s.active, clientID)
	for i := range s.assignments {
		if s.assignments[i].ID == a.ID {
			s.assignments[i].Status = model.AssignmentCompleted
			s.assignments[i].CompletedAt = &now
			out := s.assignments[i]
			return &out
		}
	}
	return nil
}

func (s *MemoryStore) LastAssignment(_ context.Context) (*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.assignments) == 0 {
		return nil, nil
	}
	out := s.assignments[len(s.assignments)-1]
	return &out, nil
}

func (s *MemoryStore) ListActiveAgents(ctx context.Context) ([]model.Agent, error) {
	all, _ := s.ListAgents(ctx)
	return activeOnly(all), nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]model.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sortAgents(out)
	return out, nil
}

func (s *MemoryStore) UpsertAgent(_ context.Context, agent model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.agents[agent.ID]; ok {
		agent.LifetimeAssignmentCount = prev.LifetimeAssignmentCount
	}
	s.agents[agent.ID] = &agent
	return nil
}

func (s *MemoryStore) SetAgentActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return errx.NotFound("agent %s", id)
	}
	a.Active = active
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*model.Stats, error) {
	agents, _ := s.ListAgents(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &model.Stats{Clients: len(s.clients), ActiveAssignments: len(s.active), Agents: agents}
	for _, c := range s.clients {
		if c.Status == model.ClientEscalated {
			st.EscalatedClients++
		}
	}
	return st, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ model.Store = (*MemoryStore)(nil)
