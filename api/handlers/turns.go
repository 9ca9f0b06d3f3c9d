package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BaSui01/chatgate/api"
	"github.com/BaSui01/chatgate/llm"
	"github.com/BaSui01/chatgate/llm/gateway"
	"github.com/BaSui01/chatgate/types"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 无状态对话 Handler
// =============================================================================

// TurnSender 发送一轮对话。*gateway.Gateway 满足该接口。
type TurnSender interface {
	SendTurn(ctx context.Context, req gateway.TurnRequest) (string, error)
}

// TurnHandler 处理 POST /api/v1/turns
type TurnHandler struct {
	sender TurnSender
	logger *zap.Logger
}

// NewTurnHandler 创建 TurnHandler
func NewTurnHandler(sender TurnSender, logger *zap.Logger) *TurnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnHandler{sender: sender, logger: logger.With(zap.String("handler", "turns"))}
}

// HandleSend 发送一轮对话并返回供应商回复
func (h *TurnHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	gwReq, err := toGatewayTurn(req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	text, sendErr := h.sender.SendTurn(r.Context(), gwReq)
	if sendErr != nil {
		WriteError(w, AsAPIError(sendErr), h.logger)
		return
	}

	WriteSuccess(w, api.TurnResponse{
		Provider: gwReq.Provider.String(),
		Model:    gwReq.Model,
		Text:     text,
	})
}

func toGatewayTurn(req api.TurnRequest) (gateway.TurnRequest, *types.Error) {
	kind, err := llm.ParseProviderKind(req.Provider)
	if err != nil {
		return gateway.TurnRequest{}, types.NewError(types.ErrUnknownProvider, err.Error())
	}

	prior := make([]types.Turn, 0, len(req.Prior))
	for i, t := range req.Prior {
		turn := t.ToDomain()
		if turn.Role != types.RoleUser && turn.Role != types.RoleAssistant {
			return gateway.TurnRequest{}, types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("prior[%d]: role must be user or assistant", i))
		}
		prior = append(prior, turn)
	}

	return gateway.TurnRequest{
		Provider:       kind,
		Credential:     req.Credential,
		Model:          req.Model,
		CustomEndpoint: req.CustomEndpoint,
		Prior:          prior,
		Text:           req.Text,
	}, nil
}
