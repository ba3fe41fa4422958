package todos_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/todos/internal/dynamodb/services"
	"philcali.me/todos/internal/dynamodb/todos"
	"philcali.me/todos/internal/exceptions"
	"philcali.me/todos/internal/schema"
	"philcali.me/todos/internal/test"
)

func TestLocalTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DynamoDB Local in short mode")
	}
	server := test.StartLocalServer(test.LOCAL_DDB_PORT, t)
	client, err := server.CreateLocalClient()
	require.NoError(t, err)
	tableName, err := test.CreateTable(client)
	require.NoError(t, err)

	table := services.NewTableService(tableName, client, nil)
	table.RequireExisting = true
	svc := todos.NewTodoService(table, nil, 10)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.CreateTodo(ctx, rick, newInput(t, fmt.Sprintf("todo %d", i)))
		require.NoError(t, err)
	}
	items, err := svc.ListTodos(ctx, rick)
	require.NoError(t, err)
	require.Len(t, items, 25)

	id := items[0].SK[len("TODO#"):]
	patched, err := svc.PatchTodo(ctx, rick, id, patchInput(t, schema.RawPayload{"done": true, "details": "updated"}))
	require.NoError(t, err)
	assert.True(t, patched.Done)
	assert.Equal(t, items[0].Title, patched.Title)
	assert.Equal(t, items[0].CreateTime, patched.CreateTime)

	require.NoError(t, svc.DeleteTodo(ctx, rick, id))
	assert.Equal(t, exceptions.KindNotFound, exceptions.KindOf(svc.DeleteTodo(ctx, rick, id)))
	_, err = svc.PatchTodo(ctx, rick, id, patchInput(t, schema.RawPayload{"done": false}))
	assert.Equal(t, exceptions.KindNotFound, exceptions.KindOf(err))

	others, err := svc.ListTodos(ctx, morty)
	require.NoError(t, err)
	assert.Empty(t, others)
}
