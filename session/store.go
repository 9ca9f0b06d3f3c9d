package session

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	conversationPrefix = "conversations:"
	configPrefix       = "configs:"
	configIndexKey     = "configs:index"

	lockStripes = 64
)

// Conversation is an ordered list of turns.
type Conversation struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Turns     []types.Turn `json:"turns"`
}

// Store persists conversations and provider configuration records through a KV.
// Appends to one conversation are serialized within the process.
type Store struct {
	kv     KV
	logger *zap.Logger

	convLocks [lockStripes]sync.Mutex
	configMu  sync.Mutex
}

// NewStore creates a Store on top of kv.
func NewStore(kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger.With(zap.String("component", "session_store"))}
}

// KV returns the underlying storage capability.
func (s *Store) KV() KV { return s.kv }

func (s *Store) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.convLocks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func storageError(op string, err error) error {
	return types.NewError(types.ErrStorage, op+" failed").WithCause(err)
}

func (s *Store) loadJSON(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.kv.Load(ctx, key)
	if err != nil {
		return false, storageError("load "+key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, storageError("decode "+key, err)
	}
	return true, nil
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return storageError("encode "+key, err)
	}
	if err := s.kv.Save(ctx, key, data); err != nil {
		return storageError("save "+key, err)
	}
	return nil
}

// --- 会话 ---

// NewConversation creates an empty conversation and returns its id.
func (s *Store) NewConversation(ctx context.Context) (string, error) {
	now := time.Now()
	conv := Conversation{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now, Turns: []types.Turn{}}
	if err := s.saveJSON(ctx, conversationPrefix+conv.ID, conv); err != nil {
		return "", err
	}
	s.logger.Debug("conversation created", zap.String("conversation_id", conv.ID))
	return conv.ID, nil
}

// Conversation loads a conversation by id.
func (s *Store) Conversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	ok, err := s.loadJSON(ctx, conversationPrefix+id, &conv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrConversationNotFound, fmt.Sprintf("conversation %q not found", id))
	}
	return &conv, nil
}

// History returns the turns of a conversation in order.
func (s *Store) History(ctx context.Context, id string) ([]types.Turn, error) {
	conv, err := s.Conversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

// AppendTurn appends one turn to a conversation.
func (s *Store) AppendTurn(ctx context.Context, id string, turn types.Turn) error {
	unlock := s.lock(id)
	defer unlock()
	return s.appendLocked(ctx, id, turn)
}

func (s *Store) appendLocked(ctx context.Context, id string, turn types.Turn) error {
	if !turn.Role.Valid() {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid role %q", turn.Role))
	}
	conv, err := s.Conversation(ctx, id)
	if err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	conv.Turns = append(conv.Turns, turn)
	conv.UpdatedAt = turn.CreatedAt
	return s.saveJSON(ctx, conversationPrefix+id, conv)
}

// --- 配置记录 ---

func configKey(kind llm.ProviderKind) string {
	return configPrefix + kind.String()
}

// SaveConfig stores the record for its provider. The credential is trimmed.
// Saving an active record deactivates every other record.
func (s *Store) SaveConfig(ctx context.Context, rec types.ConfigRecord) error {
	kind, err := llm.ParseProviderKind(rec.Provider)
	if err != nil {
		return types.NewError(types.ErrUnknownProvider, err.Error())
	}
	rec.Provider = kind.String()
	rec.Credential = llm.NormalizeCredential(rec.Credential)

	s.configMu.Lock()
	defer s.configMu.Unlock()

	index, err := s.configIndex(ctx)
	if err != nil {
		return err
	}

	if rec.IsActive {
		for _, other := range index {
			if other == rec.Provider {
				continue
			}
			var o types.ConfigRecord
			ok, err := s.loadJSON(ctx, configPrefix+other, &o)
			if err != nil {
				return err
			}
			if ok && o.IsActive {
				o.IsActive = false
				if err := s.saveJSON(ctx, configPrefix+other, o); err != nil {
					return err
				}
			}
		}
	}

	if err := s.saveJSON(ctx, configKey(kind), rec); err != nil {
		return err
	}
	if !slices.Contains(index, rec.Provider) {
		index = append(index, rec.Provider)
		sort.Strings(index)
		if err := s.saveJSON(ctx, configIndexKey, index); err != nil {
			return err
		}
	}

	s.logger.Info("config saved",
		zap.String("provider", rec.Provider),
		zap.String("credential", llm.MaskCredential(rec.Credential)),
		zap.Bool("active", rec.IsActive))
	return nil
}

// LoadConfig returns the record for a provider.
func (s *Store) LoadConfig(ctx context.Context, provider llm.ProviderKind) (types.ConfigRecord, error) {
	var rec types.ConfigRecord
	ok, err := s.loadJSON(ctx, configKey(provider), &rec)
	if err != nil {
		return types.ConfigRecord{}, err
	}
	if !ok {
		return types.ConfigRecord{}, types.NewError(types.ErrConfigNotFound,
			fmt.Sprintf("no configuration for provider %q", provider))
	}
	return rec, nil
}

// Configs returns all stored records sorted by provider.
func (s *Store) Configs(ctx context.Context) ([]types.ConfigRecord, error) {
	index, err := s.configIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.ConfigRecord, 0, len(index))
	for _, p := range index {
		var rec types.ConfigRecord
		ok, err := s.loadJSON(ctx, configPrefix+p, &rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ActiveConfig returns the single active record.
func (s *Store) ActiveConfig(ctx context.Context) (types.ConfigRecord, error) {
	recs, err := s.Configs(ctx)
	if err != nil {
		return types.ConfigRecord{}, err
	}
	for _, rec := range recs {
		if rec.IsActive {
			return rec, nil
		}
	}
	return types.ConfigRecord{}, types.NewError(types.ErrConfigNotFound, "no active configuration")
}

func (s *Store) configIndex(ctx context.Context) ([]string, error) {
	var index []string
	if _, err := s.loadJSON(ctx, configIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}
