package operations

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"philcali.me/todos/internal/exceptions"
	"philcali.me/todos/internal/logging"
)

type Operation func(ctx context.Context, request Request) (Response, error)

type Service interface {
	GetOperations() map[string]Operation
}

type Router struct {
	Operations map[string]Operation
	Logger     *zap.Logger
}

func NewRouter(logger *zap.Logger, services ...Service) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	operations := make(map[string]Operation)
	for _, service := range services {
		for name, operation := range service.GetOperations() {
			operations[name] = operation
		}
	}
	return &Router{
		Operations: operations,
		Logger:     logger,
	}
}

func translateError(err error) Response {
	kind := exceptions.KindOf(err)
	body := &ErrorBody{
		Kind:    kind.String(),
		Message: err.Error(),
	}
	var ve *exceptions.ValidationError
	if errors.As(err, &ve) {
		body.Path = ve.Path
		body.Message = ve.Message
	}
	return Response{
		StatusCode: exceptions.StatusCode(kind),
		Error:      body,
	}
}

func (r *Router) Invoke(ctx context.Context, request Request) Response {
	logger := logging.ForRequest(r.Logger, request.CorrelationId, request.UserEmail)
	operation, ok := r.Operations[request.Operation]
	if !ok {
		logger.Error("unknown operation", zap.String("operation", request.Operation))
		return translateError(exceptions.InvalidInput("Unsupported operation: " + request.Operation))
	}
	logger.Info("invoking operation", zap.String("operation", request.Operation), zap.String("todo_id", request.TodoId))
	resp, err := operation(logging.WithLogger(ctx, logger), request)
	if err != nil {
		translated := translateError(err)
		logger.Error("operation failed",
			zap.String("operation", request.Operation),
			zap.Int("status_code", translated.StatusCode),
			zap.Error(err))
		return translated
	}
	return resp
}
