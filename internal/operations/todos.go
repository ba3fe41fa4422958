package operations

import (
	"context"

	"go.uber.org/zap"
	"philcali.me/todos/internal/data"
	"philcali.me/todos/internal/exceptions"
	"philcali.me/todos/internal/logging"
	"philcali.me/todos/internal/schema"
)

type TodoService struct {
	data      data.TodoDataService
	validator *schema.Validator
}

func NewTodoRoute(data data.TodoDataService, validator *schema.Validator) Service {
	return &TodoService{
		data:      data,
		validator: validator,
	}
}

func (ts *TodoService) GetOperations() map[string]Operation {
	return map[string]Operation{
		List:   ts.ListTodos,
		Get:    ts.GetTodo,
		Create: ts.CreateTodo,
		Patch:  ts.PatchTodo,
		Delete: ts.DeleteTodo,
	}
}

func (ts *TodoService) ListTodos(ctx context.Context, request Request) (Response, error) {
	items, err := ts.data.ListTodos(ctx, request.UserEmail)
	return SerializeResponseOK(NewTodos, items, err)
}

func (ts *TodoService) GetTodo(ctx context.Context, request Request) (Response, error) {
	item, ok, err := ts.data.GetTodo(ctx, request.UserEmail, request.TodoId)
	if err == nil && !ok {
		logging.FromContext(ctx, nil).Info("todo item not found", zap.String("todo_id", request.TodoId))
		err = exceptions.NotFound("todo", request.TodoId)
	}
	return SerializeResponseOK(NewTodo, item, err)
}

func (ts *TodoService) CreateTodo(ctx context.Context, request Request) (Response, error) {
	input, err := ts.validator.Create(request.Payload)
	if err != nil {
		return Response{}, err
	}
	created, err := ts.data.CreateTodo(ctx, request.UserEmail, input)
	return SerializeResponse(NewTodo, created, err, 201)
}

func (ts *TodoService) PatchTodo(ctx context.Context, request Request) (Response, error) {
	input, err := ts.validator.Patch(request.Payload)
	if err != nil {
		return Response{}, err
	}
	updated, err := ts.data.PatchTodo(ctx, request.UserEmail, request.TodoId, input)
	return SerializeResponseOK(NewTodo, updated, err)
}

func (ts *TodoService) DeleteTodo(ctx context.Context, request Request) (Response, error) {
	return SerializeResponseNoContent(ts.data.DeleteTodo(ctx, request.UserEmail, request.TodoId))
}
