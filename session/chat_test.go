package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	mu    sync.Mutex
	reqs  []gateway.TurnRequest
	reply string
	err   error
}

func (f *fakeSender) SendTurn(_ context.Context, req gateway.TurnRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func setupChat(t *testing.T, sender Sender) (*Store, *Chat, string) {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveConfig(ctx, types.ConfigRecord{
		Provider:      "mistral",
		Credential:    "m-key",
		SelectedModel: "mistral-large-latest",
		IsActive:      true,
	}))
	id, err := store.NewConversation(ctx)
	require.NoError(t, err)
	return store, NewChat(store, sender, zaptest.NewLogger(t)), id
}

func TestChat_Success(t *testing.T) {
	sender := &fakeSender{reply: "Bonjour"}
	store, chat, id := setupChat(t, sender)
	ctx := context.Background()

	turn, err := chat.Send(ctx, id, "Hello")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, turn.Role)
	assert.Equal(t, "Bonjour", turn.Text)

	require.Len(t, sender.reqs, 1)
	req := sender.reqs[0]
	assert.Equal(t, llm.ProviderMistral, req.Provider)
	assert.Equal(t, "m-key", req.Credential)
	assert.Equal(t, "mistral-large-latest", req.Model)
	assert.Equal(t, "Hello", req.Text)
	assert.Empty(t, req.Prior)

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Hello", history[0].Text)
	assert.Equal(t, "Bonjour", history[1].Text)
}

func TestChat_PriorTurnsReplayed(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	_, chat, id := setupChat(t, sender)
	ctx := context.Background()

	_, err := chat.Send(ctx, id, "first")
	require.NoError(t, err)
	_, err = chat.Send(ctx, id, "second")
	require.NoError(t, err)

	require.Len(t, sender.reqs, 2)
	prior := sender.reqs[1].Prior
	require.Len(t, prior, 2)
	assert.Equal(t, "first", prior[0].Text)
	assert.Equal(t, types.RoleAssistant, prior[1].Role)
}

func TestChat_FailureAppendsSystemNote(t *testing.T) {
	sender := &fakeSender{err: types.NewHTTPFailureError("mistral", 401, "unauthorized")}
	store, chat, id := setupChat(t, sender)
	ctx := context.Background()

	note, err := chat.Send(ctx, id, "Hello")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrHTTPFailure))
	assert.Equal(t, types.RoleSystem, note.Role)
	assert.Equal(t, "Error: HTTP 401: unauthorized", note.Text)

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleUser, history[0].Role)
	assert.Equal(t, types.RoleSystem, history[1].Role)
}

func TestChat_NoActiveConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id, err := store.NewConversation(ctx)
	require.NoError(t, err)

	sender := &fakeSender{}
	_, err = NewChat(store, sender, nil).Send(ctx, id, "hi")
	assert.True(t, types.IsErrorCode(err, types.ErrConfigNotFound))
	assert.Empty(t, sender.reqs)

	history, _ := store.History(ctx, id)
	assert.Empty(t, history)
}

func TestChat_UnknownConversation(t *testing.T) {
	sender := &fakeSender{reply: "x"}
	_, chat, _ := setupChat(t, sender)

	_, err := chat.Send(context.Background(), "missing", "hi")
	assert.True(t, types.IsErrorCode(err, types.ErrConversationNotFound))
	assert.Empty(t, sender.reqs)
}

func TestFailureNote(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{types.NewMissingCredentialError("openai"), "Error: no API key configured for openai"},
		{types.NewInvalidCustomEndpointError("x", nil), "Error: the custom endpoint URL is not valid"},
		{types.NewHTTPFailureError("openai", 500, ""), "Error: HTTP 500"},
		{types.NewUnparsableResponseError("google", "candidates"), "Error: could not read the response from google"},
		{types.NewError(types.ErrUpstreamTimeout, "t").WithProvider("anthropic"), "Error: anthropic did not respond in time"},
		{types.NewError(types.ErrTransport, "t").WithProvider("openai"), "Error: could not reach openai"},
		{types.NewError(types.ErrInvalidRequest, "model is required"), "Error: model is required"},
		{errors.New("plain"), "Error: plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureNote(tt.err))
	}
}
