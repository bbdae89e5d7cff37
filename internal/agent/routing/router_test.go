package routing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative-salesdesk/server/internal/agent/model"
	"github.com/chative-salesdesk/server/internal/agent/repo"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

func newStore(t *testing.T, ids ...string) *repo.MemoryStore {
	t.Helper()
	s := repo.NewMemoryStore()
	for i, id := range ids {
		require.NoError(t, s.UpsertAgent(context.Background(), model.Agent{ID: id, Name: id, Active: true, Position: i}))
	}
	return s
}

func assign(t *testing.T, r *Router, clientID string) *model.Agent {
	t.Helper()
	a, agent, err := r.Assign(context.Background(), clientID)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, agent)
	assert.Equal(t, a.AgentID, agent.ID)
	return agent
}

func TestAssignScenario(t *testing.T) {
	r := NewRouter(newStore(t, "A", "B", "C"))
	assert.Equal(t, -1, r.Cursor())

	assert.Equal(t, "A", assign(t, r, "c1").ID)
	assert.Equal(t, 0, r.Cursor())
	assert.Equal(t, "B", assign(t, r, "c2").ID)
	assert.Equal(t, 1, r.Cursor())
	assert.Equal(t, "A", assign(t, r, "c1").ID, "sticky")
	assert.Equal(t, 1, r.Cursor())
	assert.Equal(t, "C", assign(t, r, "c3").ID)
	assert.Equal(t, 2, r.Cursor())
	assert.Equal(t, "A", assign(t, r, "c4").ID)
	assert.Equal(t, 0, r.Cursor())
}

func TestStickyReturnsSameAssignment(t *testing.T) {
	store := newStore(t, "A", "B")
	r := NewRouter(store)
	ctx := context.Background()

	first, _, err := r.Assign(ctx, "c1")
	require.NoError(t, err)
	cursor := r.Cursor()
	second, agent, err := r.Assign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, cursor, r.Cursor())
	assert.Equal(t, "A", agent.ID)

	agents, err := store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, agents[0].LifetimeAssignmentCount)
}

func TestStickySurvivesAgentDeactivation(t *testing.T) {
	store := newStore(t, "A", "B")
	r := NewRouter(store)
	ctx := context.Background()
	assign(t, r, "c1")
	require.NoError(t, store.SetAgentActive(ctx, "A", false))

	agent := assign(t, r, "c1")
	assert.Equal(t, "A", agent.ID)
}

func TestFairness(t *testing.T) {
	const k, n = 4, 23
	ids := make([]string, k)
	for i := range ids {
		ids[i] = fmt.Sprintf("agent-%d", i)
	}
	r := NewRouter(newStore(t, ids...))

	counts := map[string]int{}
	for i := 0; i < n; i++ {
		agent := assign(t, r, fmt.Sprintf("client-%d", i))
		assert.Equal(t, ids[i%k], agent.ID)
		counts[agent.ID]++
	}
	for _, id := range ids {
		assert.InDelta(t, float64(n)/k, counts[id], 1)
	}
}

func TestEmptyRoster(t *testing.T) {
	r := NewRouter(newStore(t))
	a, agent, err := r.Assign(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, agent)
	assert.Equal(t, -1, r.Cursor())
}

func TestCloseThenReassignAdvances(t *testing.T) {
	r := NewRouter(newStore(t, "A", "B"))
	ctx := context.Background()
	assign(t, r, "c1")

	done, err := r.Close(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, 0, r.Cursor())

	assert.Equal(t, "B", assign(t, r, "c1").ID)
}

func TestRecoverFromLastAssignment(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	r := NewRouter(store)
	for _, c := range []string{"c1", "c2", "c3", "c4", "c5"} {
		assign(t, r, c)
	}
	// counts are A=2 B=2 C=1 and B was assigned last

	restarted := NewRouter(store)
	require.NoError(t, restarted.Recover(context.Background()))
	assert.Equal(t, 1, restarted.Cursor())
	assert.Equal(t, "C", assign(t, restarted, "c6").ID)
}

func TestRecoverFallsBackToMaxCount(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, "A", "B", "C")
	r := NewRouter(store)
	for _, c := range []string{"c1", "c2", "c3", "c4"} {
		assign(t, r, c)
	}
	// A was last assigned and leaves the roster; B then has the highest count among the rest
	_, err := store.CreateAssignment(ctx, "extra", "B")
	require.NoError(t, err)
	_, err = store.CreateAssignment(ctx, "extra-2", "A")
	require.NoError(t, err)
	require.NoError(t, store.SetAgentActive(ctx, "A", false))

	restarted := NewRouter(store)
	require.NoError(t, restarted.Recover(ctx))
	assert.Equal(t, 0, restarted.Cursor(), "B is index 0 of the active roster [B C]")
	assert.Equal(t, "C", assign(t, restarted, "c9").ID)
}

func TestRecoverWithoutHistory(t *testing.T) {
	r := NewRouter(newStore(t, "A", "B"))
	require.NoError(t, r.Recover(context.Background()))
	assert.Equal(t, -1, r.Cursor())
	assert.Equal(t, "A", assign(t, r, "c1").ID)
}

func TestConcurrentEscalationsOfOneClient(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	r := NewRouter(store)

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, err := r.Assign(context.Background(), "c1")
			if assert.NoError(t, err) {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 0, r.Cursor())
}

type failingStore struct {
	*repo.MemoryStore
}

func (failingStore) CreateAssignment(context.Context, string, string) (*model.Assignment, error) {
	return nil, errors.New("write failed")
}

func TestFailedCreateKeepsCursor(t *testing.T) {
	r := NewRouter(failingStore{newStore(t, "A", "B")})
	_, _, err := r.Assign(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, -1, r.Cursor())
}

func TestFormatNotice(t *testing.T) {
	notice := model.HandoffNotice{
		Agent:  model.Agent{ID: "a", Name: "Ana"},
		Client: model.ClientRecord{ID: "573001112233@c.us", DisplayName: "Carlos"},
		Reason: model.OutcomeEscalatePurchase,
		Recent: []model.Message{
			{Role: model.RoleUser, Text: "cuanto vale la retay"},
			{Role: model.RoleAssistant, Text: "La Retay G17 cuesta $1.850.000 COP"},
		},
	}
	got := FormatNotice(notice)
	assert.Equal(t, "Nuevo cliente asignado: Carlos (573001112233@c.us)\n"+
		"Motivo: intencion de compra\n"+
		"Ultimos mensajes:\n"+
		"- [user] cuanto vale la retay\n"+
		"- [assistant] La Retay G17 cuesta $1.850.000 COP", got)

	assert.NoError(t, LogNotifier{}.NotifyAgent(context.Background(), notice))
}
