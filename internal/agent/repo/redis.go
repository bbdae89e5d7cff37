package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// stringGetter is satisfied by both the client and a watched *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// txRetries bounds optimistic-lock retries when a watched key changes under us.
const txRetries = 5

// RedisStore keeps clients as JSON strings, conversation history as one list per client
// and assignments under per-client keys. Multi-key updates use WATCH/MULTI/EXEC.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore uses ttl as the idle expiry of conversation history; zero keeps it forever.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) clientKey(id string) string { return r.prefix + "client:" + id }
func (r *RedisStore) clientsKey() string { return r.prefix + "clients" }
func (r *RedisStore) escalatedKey() string { return r.prefix + "clients:escalated" }
func (r *RedisStore) messagesKey(id string) string { return r.prefix + "messages:" + id }
func (r *RedisStore) activeKey(clientID string) string { return r.prefix + "assignment:active:" + clientID }
func (r *RedisStore) activeSetKey() string { return r.prefix + "assignments:active" }
func (r *RedisStore) lastKey() string { return r.prefix + "assignment:last" }
func (r *RedisStore) agentsKey() string { return r.prefix + "agents" }
func (r *RedisStore) countsKey() string { return r.prefix + "agent:count" }

// watch runs fn under WATCH on keys and retries when the transaction is aborted.
func (r *RedisStore) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < txRetries; i++ {
		err = r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (r *RedisStore) GetClient(ctx context.Context, id string) (*model.ClientRecord, error) {
	key := r.clientKey(id)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.Error().Err(err).Str("key", key).Msg("failed to load client from redis")
		}
		return nil, errx.WrapRedis(err)
	}
	var c model.ClientRecord
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal client %s: %w", id, err)
	}
	return &c, nil
}

func (r *RedisStore) UpsertClient(ctx context.Context, id string, patch model.ClientPatch) (*model.ClientRecord, error) {
	key := r.clientKey(id)
	var out model.ClientRecord
	err := r.watch(ctx, func(tx *redis.Tx) error {
		now := time.Now().UTC()
		c := newClient(id, now)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, c); err != nil {
				return fmt.Errorf("unmarshal client %s: %w", id, err)
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		applyPatch(c, patch, now)
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal client %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, r.clientsKey(), redis.Z{Score: float64(now.UnixNano()), Member: id})
			if c.Status == model.ClientEscalated {
				pipe.SAdd(ctx, r.escalatedKey(), id)
			} else {
				pipe.SRem(ctx, r.escalatedKey(), id)
			}
			return nil
		})
		out = *c
		return err
	}, key)
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to upsert client in redis")
		return nil, errx.WrapRedis(err)
	}
	return &out, nil
}

func (r *RedisStore) ListClients(ctx context.Context, limit int) ([]model.ClientRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.rdb.ZRevRange(ctx, r.clientsKey(), 0, stop).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	out := make([]model.ClientRecord, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.clientKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var c model.ClientRecord
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			logx.Warn().Err(err).Str("key", keys[i]).Msg("skipping undecodable client record")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *RedisStore) ResetClient(ctx context.Context, id string) error {
	key := r.clientKey(id)
	err := r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return errx.NotFound("client %s", id)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, r.messagesKey(id), r.activeKey(id))
			pipe.ZRem(ctx, r.clientsKey(), id)
			pipe.SRem(ctx, r.escalatedKey(), id)
			pipe.SRem(ctx, r.activeSetKey(), id)
			return nil
		})
		return err
	}, key, r.activeKey(id))
	if err != nil && !errors.Is(err, errx.ErrNotFound) {
		logx.Error().Err(err).Str("key", key).Msg("failed to reset client in redis")
	}
	return errx.WrapRedis(err)
}

func (r *RedisStore) AppendMessage(ctx context.Context, clientID string, role model.Role, text string) error {
	b, err := json.Marshal(model.Message{ClientID: clientID, Role: role, Text: text, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(clientID)
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on history key")
		}
	}
	return nil
}

func (r *RedisStore) RecentMessages(ctx context.Context, clientID string, limit int) ([]model.Message, error) {
	key := r.messagesKey(clientID)
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load history from redis")
		return nil, errx.WrapRedis(err)
	}
	msgs := make([]model.Message, 0, len(rows))
	for i, s := range rows {
		var m model.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *RedisStore) ActiveAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	return r.getAssignment(ctx, r.rdb, r.activeKey(clientID))
}

func (r *RedisStore) getAssignment(ctx context.Context, c stringGetter, key string) (*model.Assignment, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	var a model.Assignment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assignment %s: %w", key, err)
	}
	return &a, nil
}

func (r *RedisStore) CreateAssignment(ctx context.Context, clientID, agentID string) (*model.Assignment, error) {
	activeKey := r.activeKey(clientID)
	var created model.Assignment
	err := r.watch(ctx, func(tx *redis.Tx) error {
		ok, err := tx.HExists(ctx, r.agentsKey(), agentID).Result()
		if err != nil {
			return err
		}
		if !ok {
			return errx.NotFound("agent %s", agentID)
		}
		prev, err := r.getAssignment(ctx, tx, activeKey)
		if err != nil {
			return err
		}

		created = model.Assignment{
			ID:         uuid.NewString(),
			ClientID:   clientID,
			AgentID:    agentID,
			Status:     model.AssignmentActive,
			AssignedAt: time.Now().UTC(),
		}
		b, err := json.Marshal(created)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			// overwriting the active key completes the previous assignment
			pipe.Set(ctx, activeKey, b, 0)
			pipe.SAdd(ctx, r.activeSetKey(), clientID)
			pipe.Set(ctx, r.lastKey(), b, 0)
			pipe.HIncrBy(ctx, r.countsKey(), agentID, 1)
			return nil
		})
		if err == nil && prev != nil {
			logx.Warn().Str("client_id", clientID).Str("previous", prev.ID).Msg("replaced active assignment")
		}
		return err
	}, activeKey, r.agentsKey())
	if err != nil {
		if !errors.Is(err, errx.ErrNotFound) {
			logx.Error().Err(err).Str("client_id", clientID).Msg("failed to create assignment in redis")
		}
		return nil, errx.WrapRedis(err)
	}
	return &created, nil
}

func (r *RedisStore) CompleteAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	activeKey := r.activeKey(clientID)
	var done *model.Assignment
	err := r.watch(ctx, func(tx *redis.Tx) error {
		a, err := r.getAssignment(ctx, tx, activeKey)
		if err != nil || a == nil {
			done = nil
			return err
		}
		now := time.Now().UTC()
		a.Status = model.AssignmentCompleted
		a.CompletedAt = &now
		done = a
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, activeKey)
			pipe.SRem(ctx, r.activeSetKey(), clientID)
			return nil
		})
		return err
	}, activeKey)
	if err != nil {
		logx.Error().Err(err).Str("client_id", clientID).Msg("failed to complete assignment in redis")
		return nil, errx.WrapRedis(err)
	}
	return done, nil
}

func (r *RedisStore) LastAssignment(ctx context.Context) (*model.Assignment, error) {
	return r.getAssignment(ctx, r.rdb, r.lastKey())
}

func (r *RedisStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := r.rdb.HGetAll(ctx, r.agentsKey()).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	counts, err := r.rdb.HGetAll(ctx, r.countsKey()).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	out := make([]model.Agent, 0, len(rows))
	for id, raw := range rows {
		var a model.Agent
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("unmarshal agent %s: %w", id, err)
		}
		if n, err := strconv.Atoi(counts[id]); err == nil {
			a.LifetimeAssignmentCount = n
		}
		out = append(out, a)
	}
	sortAgents(out)
	return out, nil
}

func (r *RedisStore) ListActiveAgents(ctx context.Context) ([]model.Agent, error) {
	all, err := r.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return activeOnly(all), nil
}

// UpsertAgent stores the profile only; lifetime counts live in their own hash.
func (r *RedisStore) UpsertAgent(ctx context.Context, agent model.Agent) error {
	agent.LifetimeAssignmentCount = 0
	b, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.agentsKey(), agent.ID, b).Err(); err != nil {
		logx.Error().Err(err).Str("agent_id", agent.ID).Msg("failed to upsert agent in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStore) SetAgentActive(ctx context.Context, id string, active bool) error {
	key := r.agentsKey()
	err := r.watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if errors.Is(err, redis.Nil) {
			return errx.NotFound("agent %s", id)
		}
		if err != nil {
			return err
		}
		var a model.Agent
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return err
		}
		a.Active = active
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, b)
			return nil
		})
		return err
	}, key)
	return errx.WrapRedis(err)
}

func (r *RedisStore) Stats(ctx context.Context) (*model.Stats, error) {
	pipe := r.rdb.Pipeline()
	clients := pipe.ZCard(ctx, r.clientsKey())
	escalated := pipe.SCard(ctx, r.escalatedKey())
	active := pipe.SCard(ctx, r.activeSetKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errx.WrapRedis(err)
	}
	agents, err := r.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Stats{
		Clients:           int(clients.Val()),
		EscalatedClients:  int(escalated.Val()),
		ActiveAssignments: int(active.Val()),
		Agents:            agents,
	}, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

var _ model.Store = (*RedisStore)(nil)
