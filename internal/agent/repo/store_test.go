package repo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
	pkgredis "github.com/chative-salesdesk/server/pkg/redis"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

func openTestSQLite(t *testing.T) model.Store {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openTestRedis(t *testing.T) model.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", time.Hour)
	t.Cleanup(func() { s.Close() })
	return s
}

var drivers = map[string]func(t *testing.T) model.Store{
	"memory": func(*testing.T) model.Store { return NewMemoryStore() },
	"redis":  openTestRedis,
	"sqlite": openTestSQLite,
}

func forEachDriver(t *testing.T, fn func(t *testing.T, s model.Store)) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func seedAgents(t *testing.T, s model.Store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, s.UpsertAgent(context.Background(), model.Agent{ID: id, Name: "Agent " + id, Active: true, Position: i}))
	}
}

func ptr[T any](v T) *T { return &v }

func TestClientLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()

		_, err := s.GetClient(ctx, "c1")
		require.ErrorIs(t, err, errx.ErrNotFound)

		c, err := s.UpsertClient(ctx, "c1", model.ClientPatch{DisplayName: ptr("Ana"), CountMessage: true})
		require.NoError(t, err)
		assert.Equal(t, model.ClientNew, c.Status)
		assert.Equal(t, "Ana", c.DisplayName)
		assert.Equal(t, 1, c.MessageCount)
		assert.False(t, c.LastMessageAt.IsZero())

		// an empty display name never erases a known one
		c, err = s.UpsertClient(ctx, "c1", model.ClientPatch{
			DisplayName:  ptr(""),
			Status:       ptr(model.ClientEscalated),
			LastOutcome:  ptr(model.OutcomeEscalatePurchase),
			CountMessage: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana", c.DisplayName)
		assert.Equal(t, 2, c.MessageCount)

		got, err := s.GetClient(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, model.ClientEscalated, got.Status)
		assert.Equal(t, model.OutcomeEscalatePurchase, got.LastOutcome)
		assert.WithinDuration(t, c.CreatedAt, got.CreatedAt, time.Millisecond)

		time.Sleep(2 * time.Millisecond)
		_, err = s.UpsertClient(ctx, "c2", model.ClientPatch{})
		require.NoError(t, err)

		list, err := s.ListClients(ctx, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "c2", list[0].ID)

		list, err = s.ListClients(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, st.Clients)
		assert.Equal(t, 1, st.EscalatedClients)

		require.NoError(t, s.ResetClient(ctx, "c1"))
		_, err = s.GetClient(ctx, "c1")
		require.ErrorIs(t, err, errx.ErrNotFound)
		require.ErrorIs(t, s.ResetClient(ctx, "c1"), errx.ErrNotFound)

		st, err = s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Clients)
		assert.Zero(t, st.EscalatedClients)
	})
}

func TestMessages(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		require.NoError(t, s.AppendMessage(ctx, "c1", model.RoleUser, "hola"))
		require.NoError(t, s.AppendMessage(ctx, "c1", model.RoleAssistant, "buenas"))
		require.NoError(t, s.AppendMessage(ctx, "c1", model.RoleUser, "precio retay"))
		require.NoError(t, s.AppendMessage(ctx, "c2", model.RoleUser, "otro"))

		msgs, err := s.RecentMessages(ctx, "c1", 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "buenas", msgs[0].Text)
		assert.Equal(t, model.RoleAssistant, msgs[0].Role)
		assert.Equal(t, "precio retay", msgs[1].Text)
		assert.Equal(t, "c1", msgs[1].ClientID)

		all, err := s.RecentMessages(ctx, "c1", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		none, err := s.RecentMessages(ctx, "nobody", 5)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestAssignments(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedAgents(t, s, "a", "b")

		last, err := s.LastAssignment(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)

		active, err := s.ActiveAssignment(ctx, "c1")
		require.NoError(t, err)
		assert.Nil(t, active)

		first, err := s.CreateAssignment(ctx, "c1", "a")
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentActive, first.Status)
		assert.NotEmpty(t, first.ID)

		active, err = s.ActiveAssignment(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, first.ID, active.ID)

		// a replacement completes the previous active assignment
		second, err := s.CreateAssignment(ctx, "c1", "b")
		require.NoError(t, err)
		active, err = s.ActiveAssignment(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)
		assert.Equal(t, "b", active.AgentID)

		last, err = s.LastAssignment(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, last.ID)

		agents, err := s.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, 1, agents[0].LifetimeAssignmentCount)
		assert.Equal(t, 1, agents[1].LifetimeAssignmentCount)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.ActiveAssignments)

		done, err := s.CompleteAssignment(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, done)
		assert.Equal(t, model.AssignmentCompleted, done.Status)
		assert.NotNil(t, done.CompletedAt)

		done, err = s.CompleteAssignment(ctx, "c1")
		require.NoError(t, err)
		assert.Nil(t, done)

		_, err = s.CreateAssignment(ctx, "c2", "ghost")
		require.ErrorIs(t, err, errx.ErrNotFound)
	})
}

func TestResetCompletesAssignment(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedAgents(t, s, "a")
		_, err := s.UpsertClient(ctx, "c1", model.ClientPatch{})
		require.NoError(t, err)
		_, err = s.CreateAssignment(ctx, "c1", "a")
		require.NoError(t, err)

		require.NoError(t, s.ResetClient(ctx, "c1"))
		active, err := s.ActiveAssignment(ctx, "c1")
		require.NoError(t, err)
		assert.Nil(t, active)
	})
}

func TestAgents(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		require.NoError(t, s.UpsertAgent(ctx, model.Agent{ID: "z", Name: "Zoe", Active: true, Position: 0}))
		require.NoError(t, s.UpsertAgent(ctx, model.Agent{ID: "a", Name: "Ana", Active: true, Position: 1}))
		_, err := s.CreateAssignment(ctx, "c1", "z")
		require.NoError(t, err)

		// re-seeding keeps the lifetime count
		require.NoError(t, s.UpsertAgent(ctx, model.Agent{ID: "z", Name: "Zoe R", ContactHandle: "+57300", Active: true, Position: 0}))
		agents, err := s.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, "z", agents[0].ID)
		assert.Equal(t, "Zoe R", agents[0].Name)
		assert.Equal(t, "+57300", agents[0].ContactHandle)
		assert.Equal(t, 1, agents[0].LifetimeAssignmentCount)

		require.NoError(t, s.SetAgentActive(ctx, "z", false))
		roster, err := s.ListActiveAgents(ctx)
		require.NoError(t, err)
		require.Len(t, roster, 1)
		assert.Equal(t, "a", roster[0].ID)

		require.ErrorIs(t, s.SetAgentActive(ctx, "ghost", true), errx.ErrNotFound)
	})
}

func TestConcurrentAssignmentsKeepOneActive(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedAgents(t, s, "a", "b")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				agent := "a"
				if i%2 == 1 {
					agent = "b"
				}
				_, _ = s.CreateAssignment(ctx, "c1", agent)
			}(i)
		}
		wg.Wait()

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.ActiveAssignments)
	})
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, model.StoreConfig{Driver: "memory"}, pkgredis.Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, model.StoreConfig{Driver: "SQLite", SQLitePath: t.TempDir()}, pkgredis.Config{})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, model.StoreConfig{Driver: "redis"}, pkgredis.Config{URL: "redis://" + mr.Addr() + "/0", DialTimeout: 1})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, model.StoreConfig{Driver: "mongo"}, pkgredis.Config{})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, s.UpsertAgent(context.Background(), model.Agent{ID: "a", Name: "A", Active: true}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()
	agents, err := s.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestRedisHistoryTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:", time.Minute)
	require.NoError(t, s.AppendMessage(context.Background(), "c1", model.RoleUser, "hola"))
	assert.Equal(t, time.Minute, mr.TTL("p:messages:c1"))

	mr.FastForward(2 * time.Minute)
	msgs, err := s.RecentMessages(context.Background(), "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
