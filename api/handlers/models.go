package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/chatgate/api"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/catalog"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
)

// ProviderKeyHeader 携带供应商凭据的请求头
const ProviderKeyHeader = "X-Provider-Key"

// =============================================================================
// 📋 模型发现 Handler
// =============================================================================

// ModelLister 返回带回退策略的模型列表。*catalog.Catalog 满足该接口。
type ModelLister interface {
	Models(ctx context.Context, req gateway.ModelsRequest) (catalog.Listing, error)
}

// ModelsHandler 处理 /api/v1/models 与 /api/v1/providers
type ModelsHandler struct {
	lister ModelLister
	logger *zap.Logger
}

// NewModelsHandler 创建 ModelsHandler
func NewModelsHandler(lister ModelLister, logger *zap.Logger) *ModelsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelsHandler{lister: lister, logger: logger.With(zap.String("handler", "models"))}
}

// HandleModels 处理 GET /api/v1/models?provider=&custom_endpoint=
// 实时发现失败不视为请求失败：返回 200 与回退列表，error 字段说明原因。
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := llm.ParseProviderKind(q.Get("provider"))
	if err != nil {
		WriteErrorMessage(w, types.ErrUnknownProvider, err.Error(), h.logger)
		return
	}

	listing, err := h.lister.Models(r.Context(), gateway.ModelsRequest{
		Provider:       kind,
		Credential:     r.Header.Get(ProviderKeyHeader),
		CustomEndpoint: q.Get("custom_endpoint"),
	})
	if err != nil {
		WriteError(w, AsAPIError(err), h.logger)
		return
	}

	resp := api.ModelsResponse{
		Provider: kind.String(),
		Models:   listing.Models,
		Source:   string(listing.Source),
	}
	if !listing.FetchedAt.IsZero() {
		at := listing.FetchedAt
		resp.FetchedAt = &at
	}
	if listing.Err != nil {
		e := AsAPIError(listing.Err)
		resp.Error = &api.Problem{Code: string(e.Code), Message: e.Message}
	}
	WriteSuccess(w, resp)
}

// HandleProviders 处理 GET /api/v1/providers
func (h *ModelsHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	infos := llm.Providers()
	out := make([]api.ProviderInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, api.ProviderInfo{
			Kind:           info.Kind.String(),
			DisplayName:    info.DisplayName,
			BaseURL:        info.BaseURL,
			AuthScheme:     string(info.Auth.Scheme),
			FallbackModels: info.FallbackModels,
		})
	}
	WriteSuccess(w, out)
}
