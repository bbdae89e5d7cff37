package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chative-salesdesk/server/internal/agent/model"
	pkgredis "github.com/chative-salesdesk/server/pkg/redis"
)

type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
	DriverSQLite Driver = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg model.StoreConfig, redisCfg pkgredis.Config) (model.Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(cfg.Driver))) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		client, err := redisCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.HistoryTTL), nil
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func newClient(id string, now time.Time) *model.ClientRecord {
	return &model.ClientRecord{ID: id, Status: model.ClientNew, CreatedAt: now, UpdatedAt: now}
}

func applyPatch(c *model.ClientRecord, patch model.ClientPatch, now time.Time) {
	if patch.DisplayName != nil && *patch.DisplayName != "" {
		c.DisplayName = *patch.DisplayName
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.LastOutcome != nil {
		c.LastOutcome = *patch.LastOutcome
	}
	if patch.CountMessage {
		c.MessageCount++
		c.LastMessageAt = now
	}
	c.UpdatedAt = now
}

func sortAgents(agents []model.Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Position != agents[j].Position {
			return agents[i].Position < agents[j].Position
		}
		return agents[i].ID < agents[j].ID
	})
}

func activeOnly(agents []model.Agent) []model.Agent {
	out := make([]model.Agent, 0, len(agents))
	for _, a := range agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}
