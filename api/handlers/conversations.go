package handlers

import (
	"net/http"

	"github.com/BaSui01/chatgate/api"
	"github.com/BaSui01/chatgate/session"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 会话 Handler
// =============================================================================

// ConversationHandler 处理 /api/v1/conversations 下的端点
type ConversationHandler struct {
	store  *session.Store
	chat   *session.Chat
	logger *zap.Logger
}

// NewConversationHandler 创建 ConversationHandler
func NewConversationHandler(store *session.Store, chat *session.Chat, logger *zap.Logger) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{
		store:  store,
		chat:   chat,
		logger: logger.With(zap.String("handler", "conversations")),
	}
}

// HandleCreate 处理 POST /api/v1/conversations
func (h *ConversationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.NewConversation(r.Context())
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}
	WriteSuccessStatus(w, http.StatusCreated, api.CreateConversationResponse{ID: id})
}

// HandleGet 处理 GET /api/v1/conversations/{id}
func (h *ConversationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}

	conv, err := h.store.Conversation(r.Context(), id)
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}

	WriteSuccess(w, api.ConversationResponse{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Turns:     api.TurnsFrom(conv.Turns),
	})
}

// HandleMessage 处理 POST /api/v1/conversations/{id}/messages
// 供应商调用失败时，已写入会话的系统提示随错误一并返回。
func (h *ConversationHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "conversation id is required", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.MessageRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	turn, err := h.chat.Send(r.Context(), id, req.Text)
	if err != nil {
		if turn.Role == types.RoleSystem {
			WriteErrorWithData(w, AsAPIError(err), api.TurnFrom(turn), h.logger)
			return
		}
		WriteError(w, AsAPIError(err), h.logger)
		return
	}
	WriteSuccess(w, api.TurnFrom(turn))
}
