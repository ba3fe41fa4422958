package operations_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/exp/maps"
	"philcali.me/todos/internal/dynamodb/services"
	"philcali.me/todos/internal/dynamodb/todos"
	"philcali.me/todos/internal/operations"
	"philcali.me/todos/internal/schema"
	"philcali.me/todos/internal/test"
)

const email = "nobody@email.com"

type LocalServer struct {
	Router *operations.Router
	Client *test.MockClient
	Logs   *observer.ObservedLogs
}

func NewLocalServer(t *testing.T) *LocalServer {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	client := test.NewMockClient()
	table := services.NewTableService("TodoData", client, logger)
	router := operations.NewRouter(logger, operations.NewTodoRoute(
		todos.NewTodoService(table, logger, 50),
		schema.NewValidator(nil, logger),
	))
	return &LocalServer{Router: router, Client: client, Logs: logs}
}

func (ls *LocalServer) Invoke(t *testing.T, operation string, todoId string, payload schema.RawPayload) operations.Response {
	t.Helper()
	return ls.Router.Invoke(context.TODO(), operations.Request{
		Operation:     operation,
		UserEmail:     email,
		TodoId:        todoId,
		Payload:       payload,
		CorrelationId: "test-correlation",
	})
}

func requireTodo(t *testing.T, resp operations.Response) operations.Todo {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error %+v", resp.Error)
	todo, ok := resp.Body.(operations.Todo)
	require.True(t, ok, "body was %T", resp.Body)
	return todo
}

func TestRouter(t *testing.T) {
	server := NewLocalServer(t)

	t.Run("TodoWorkflow", func(t *testing.T) {
		created := server.Invoke(t, operations.Create, "", schema.RawPayload{
			"title":    "Complete project",
			"details":  "Finish the report",
			"due_date": "2024-02-29",
		})
		assert.Equal(t, 201, created.StatusCode)
		todo := requireTodo(t, created)
		assert.NotEmpty(t, todo.Id)
		assert.Equal(t, todo.CreateTime, todo.UpdateTime)
		assert.False(t, todo.Done)

		get := server.Invoke(t, operations.Get, todo.Id, nil)
		assert.Equal(t, 200, get.StatusCode)
		assert.Equal(t, todo, requireTodo(t, get))

		patched := server.Invoke(t, operations.Patch, todo.Id, schema.RawPayload{"done": true})
		assert.Equal(t, 200, patched.StatusCode)
		updated := requireTodo(t, patched)
		assert.True(t, updated.Done)
		assert.Equal(t, todo.Title, updated.Title)
		assert.Equal(t, todo.CreateTime, updated.CreateTime)

		list := server.Invoke(t, operations.List, "", nil)
		assert.Equal(t, 200, list.StatusCode)
		items, ok := list.Body.([]operations.Todo)
		require.True(t, ok)
		require.Len(t, items, 1)
		assert.Equal(t, updated, items[0])

		deleted := server.Invoke(t, operations.Delete, todo.Id, nil)
		assert.Equal(t, 204, deleted.StatusCode)
		assert.Nil(t, deleted.Body)

		again := server.Invoke(t, operations.Delete, todo.Id, nil)
		assert.Equal(t, 404, again.StatusCode)
		assert.Equal(t, "ItemNotFound", again.Error.Kind)

		missing := server.Invoke(t, operations.Get, todo.Id, nil)
		assert.Equal(t, 404, missing.StatusCode)
	})

	t.Run("EmptyListIsArray", func(t *testing.T) {
		list := server.Invoke(t, operations.List, "", nil)
		body, err := json.Marshal(list)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status_code": 200, "body": []}`, string(body))
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		resp := server.Invoke(t, operations.Create, "", schema.RawPayload{"title": "", "due_date": "2024-02-29"})
		assert.Equal(t, 400, resp.StatusCode)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ValidationError", resp.Error.Kind)
		assert.Equal(t, "$.title", resp.Error.Path)

		resp = server.Invoke(t, operations.Patch, "abc", schema.RawPayload{"done": "yes"})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "$.done", resp.Error.Path)
	})

	t.Run("PatchMissing", func(t *testing.T) {
		resp := server.Invoke(t, operations.Patch, "does-not-exist", schema.RawPayload{"done": true})
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("InvalidUser", func(t *testing.T) {
		resp := server.Router.Invoke(context.TODO(), operations.Request{Operation: operations.List, UserEmail: "nobody"})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "InvalidIdentifier", resp.Error.Kind)
	})

	t.Run("UnknownOperation", func(t *testing.T) {
		resp := server.Invoke(t, "archive", "", nil)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "InvalidInput", resp.Error.Kind)
	})

	t.Run("RequestScopedLogging", func(t *testing.T) {
		entries := server.Logs.FilterField(zap.String("correlation_id", "test-correlation")).All()
		require.NotEmpty(t, entries)
		for _, entry := range entries {
			assert.Equal(t, email, entry.ContextMap()["user_email"])
		}
		for _, message := range []string{"created todo item", "retrieving all todo items", "items from query"} {
			scoped := server.Logs.FilterField(zap.String("correlation_id", "test-correlation")).FilterMessage(message)
			assert.NotZero(t, scoped.Len(), message)
		}
	})
}

func TestStoreFailure(t *testing.T) {
	server := NewLocalServer(t)
	server.Client.QueryFunc = func(ctx context.Context, qi *dynamodb.QueryInput, f ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
		return nil, errors.New("service unavailable")
	}
	resp := server.Invoke(t, operations.List, "", nil)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "StoreError", resp.Error.Kind)
}

func TestOperations(t *testing.T) {
	route := operations.NewTodoRoute(nil, nil)
	names := maps.Keys(route.GetOperations())
	assert.ElementsMatch(t, []string{"list", "get", "create", "patch", "delete"}, names)
	for _, name := range names {
		assert.NotNil(t, route.GetOperations()[name], fmt.Sprintf("operation %s", name))
	}
}
