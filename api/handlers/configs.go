package handlers

import (
	"net/http"

	"github.com/BaSui01/chatgate/api"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/session"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
)

// =============================================================================
// ⚙️ 提供商配置 Handler
// =============================================================================

// ConfigHandler 处理 /api/v1/configs 下的端点。响应中的凭据始终掩码。
type ConfigHandler struct {
	store  *session.Store
	logger *zap.Logger
}

// NewConfigHandler 创建 ConfigHandler
func NewConfigHandler(store *session.Store, logger *zap.Logger) *ConfigHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigHandler{store: store, logger: logger.With(zap.String("handler", "configs"))}
}

// HandleList 处理 GET /api/v1/configs
func (h *ConfigHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Configs(r.Context())
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}
	out := make([]api.ConfigResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, configResponse(rec))
	}
	WriteSuccess(w, out)
}

// HandleActive 处理 GET /api/v1/configs/active
func (h *ConfigHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.ActiveConfig(r.Context())
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}
	WriteSuccess(w, configResponse(rec))
}

// HandleSave 处理 PUT /api/v1/configs
func (h *ConfigHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ConfigRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Provider == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "provider is required", h.logger)
		return
	}
	kind, err := llm.ParseProviderKind(req.Provider)
	if err != nil {
		WriteErrorMessage(w, types.ErrUnknownProvider, err.Error(), h.logger)
		return
	}

	if err := h.store.SaveConfig(r.Context(), req.ToDomain()); err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}

	rec, err := h.store.LoadConfig(r.Context(), kind)
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}
	WriteSuccess(w, configResponse(rec))
}

func configResponse(rec types.ConfigRecord) api.ConfigResponse {
	return api.ConfigResponse{
		Provider:       rec.Provider,
		Credential:     llm.MaskCredential(rec.Credential),
		SelectedModel:  rec.SelectedModel,
		CustomEndpoint: rec.CustomEndpoint,
		IsActive:       rec.IsActive,
	}
}
