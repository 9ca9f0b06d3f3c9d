package session

import (
	"context"
	"fmt"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
)

// Sender sends one turn to a vendor. *gateway.Gateway satisfies it.
type Sender interface {
	SendTurn(ctx context.Context, req gateway.TurnRequest) (string, error)
}

// Chat runs a full exchange against the active configuration.
type Chat struct {
	store  *Store
	sender Sender
	logger *zap.Logger
}

// NewChat creates a Chat.
func NewChat(store *Store, sender Sender, logger *zap.Logger) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{store: store, sender: sender, logger: logger.With(zap.String("component", "chat"))}
}

// Send appends text as a user turn, asks the vendor and appends the reply.
// On a gateway failure a system note is appended instead and the error is
// returned together with that note. The conversation stays locked for the
// whole exchange so concurrent sends replay each other's replies.
func (c *Chat) Send(ctx context.Context, conversationID, text string) (types.Turn, error) {
	rec, err := c.store.ActiveConfig(ctx)
	if err != nil {
		return types.Turn{}, err
	}
	kind, err := llm.ParseProviderKind(rec.Provider)
	if err != nil {
		return types.Turn{}, types.NewError(types.ErrUnknownProvider, err.Error())
	}

	unlock := c.store.lock(conversationID)
	defer unlock()

	conv, err := c.store.Conversation(ctx, conversationID)
	if err != nil {
		return types.Turn{}, err
	}
	prior := conv.Turns

	if err := c.store.appendLocked(ctx, conversationID, types.NewUserTurn(text)); err != nil {
		return types.Turn{}, err
	}

	reply, sendErr := c.sender.SendTurn(ctx, gateway.TurnRequest{
		Provider:       kind,
		Credential:     rec.Credential,
		Model:          rec.SelectedModel,
		CustomEndpoint: rec.CustomEndpoint,
		Prior:          prior,
		Text:           text,
	})
	if sendErr != nil {
		note := types.NewTurn(types.RoleSystem, FailureNote(sendErr))
		if err := c.store.appendLocked(ctx, conversationID, note); err != nil {
			c.logger.Error("failed to record failure note",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return note, sendErr
	}

	turn := types.NewAssistantTurn(reply)
	if err := c.store.appendLocked(ctx, conversationID, turn); err != nil {
		return types.Turn{}, err
	}
	return turn, nil
}

// FailureNote renders a gateway error as the text of a local system note.
func FailureNote(err error) string {
	e, ok := types.AsError(err)
	if !ok {
		return "Error: " + err.Error()
	}
	switch e.Code {
	case types.ErrMissingCredential:
		return "Error: no API key configured for " + e.Provider
	case types.ErrInvalidCustomEndpoint:
		return "Error: the custom endpoint URL is not valid"
	case types.ErrHTTPFailure:
		if e.Body == "" {
			return fmt.Sprintf("Error: HTTP %d", e.HTTPStatus)
		}
		return fmt.Sprintf("Error: HTTP %d: %s", e.HTTPStatus, e.Body)
	case types.ErrUnparsableResponse:
		return "Error: could not read the response from " + e.Provider
	case types.ErrUpstreamTimeout:
		return "Error: " + e.Provider + " did not respond in time"
	case types.ErrTransport:
		return "Error: could not reach " + e.Provider
	default:
		return "Error: " + e.Message
	}
}
