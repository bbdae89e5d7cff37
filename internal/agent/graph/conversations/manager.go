package conversations

import (
	"context"
	"errors"
	"strings"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
)

// MessagesManager owns how a turn reads and writes conversation state.
type MessagesManager struct {
	store        model.Store
	historyLimit int
}

func NewMessagesManager(store model.Store, config model.ConversationConfig) *MessagesManager {
	limit := config.HistoryLimit
	if limit <= 0 {
		limit = 12
	}
	return &MessagesManager{
		store:        store,
		historyLimit: limit,
	}
}

// =========== Reads ===========

// History returns the last messages of the client, oldest first.
func (cm *MessagesManager) History(ctx context.Context, clientID string) ([]model.Message, error) {
	return cm.store.RecentMessages(ctx, clientID, cm.historyLimit)
}

// ActiveAssignment returns the assignment that makes a human the owner of the conversation.
func (cm *MessagesManager) ActiveAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	return cm.store.ActiveAssignment(ctx, clientID)
}

// =========== Writes ===========

// SaveInbound records the user message and counts it on the client record.
func (cm *MessagesManager) SaveInbound(ctx context.Context, in model.InboundMessage, outcome model.Outcome) error {
	if err := cm.store.AppendMessage(ctx, in.SenderID, model.RoleUser, in.Text); err != nil {
		return err
	}
	name := strings.TrimSpace(in.DisplayName)
	_, err := cm.store.UpsertClient(ctx, in.SenderID, model.ClientPatch{
		DisplayName:  &name,
		LastOutcome:  &outcome,
		CountMessage: true,
	})
	return err
}

// SaveReply records an assistant reply. A client still marked new becomes engaged.
func (cm *MessagesManager) SaveReply(ctx context.Context, clientID string, content string) error {
	if err := cm.store.AppendMessage(ctx, clientID, model.RoleAssistant, content); err != nil {
		return err
	}
	client, err := cm.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return nil
		}
		return err
	}
	if client.Status != model.ClientNew {
		return nil
	}
	engaged := model.ClientEngaged
	_, err = cm.store.UpsertClient(ctx, clientID, model.ClientPatch{Status: &engaged})
	return err
}

// MarkEscalated flags the client as handed to a human and returns the updated record.
func (cm *MessagesManager) MarkEscalated(ctx context.Context, clientID string) (*model.ClientRecord, error) {
	escalated := model.ClientEscalated
	return cm.store.UpsertClient(ctx, clientID, model.ClientPatch{Status: &escalated})
}

// ====================== Helper function ======================

// Exchanges counts completed user/reply pairs in history. Replies written by a human
// agent count the same as assistant replies.
func Exchanges(history []model.Message) int {
	var users, replies int
	for _, m := range history {
		switch m.Role {
		case model.RoleUser:
			users++
		case model.RoleAssistant, model.RoleAgent:
			replies++
		}
	}
	return min(users, replies)
}
