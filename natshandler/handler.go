package natshandler

import (
	"context"
	"encoding/json"
	"net/http"

	"codeexec/model"
	"codeexec/service"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Handler serves execution requests arriving over NATS request/reply.
type Handler struct {
	service *service.CompilerService
	logger  *zap.Logger
}

func NewHandler(svc *service.CompilerService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

// Subscribe answers every request on subject. Each message is handled on its
// own goroutine so slow jobs do not hold up the subscription.
func (h *Handler) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		go h.HandleCompilerRequest(msg)
	})
}

func (h *Handler) HandleCompilerRequest(msg *nats.Msg) {
	if msg.Reply == "" {
		h.logger.Warn("Dropping execution request without reply subject", zap.String("subject", msg.Subject))
		return
	}

	resData := h.handle(context.Background(), msg.Data)
	if err := msg.Respond(resData); err != nil {
		h.logger.Error("Failed to send execution response", zap.Error(err))
	}
}

// handle turns one request payload into a response payload.
func (h *Handler) handle(ctx context.Context, data []byte) []byte {
	var (
		req model.ExecutionRequest
		res model.ExecutionResponse
	)
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Info("Failed to parse execution request", zap.Error(err))
		res = model.ExecutionResponse{Error: "Invalid request format", StatusCode: http.StatusBadRequest}
	} else {
		res = service.Response(h.service.Execute(ctx, req))
		h.logger.Debug("Execution request served",
			zap.String("language", req.Language),
			zap.Int("status", res.StatusCode))
	}

	out, err := json.Marshal(res)
	if err != nil {
		h.logger.Error("Failed to marshal execution response", zap.Error(err))
		return []byte(`{"error":"internal error","status_code":500}`)
	}
	return out
}
