package todos

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"philcali.me/todos/internal/data"
	"philcali.me/todos/internal/dynamodb/keys"
	"philcali.me/todos/internal/exceptions"
	"philcali.me/todos/internal/logging"
	"philcali.me/todos/internal/schema"
)

const resourceName = "todo"

type TodoDynamoDBService struct {
	Table    data.TableService
	Logger   *zap.Logger
	PageSize int32
	Now      func() time.Time
	NewId    func() (string, error)
}

func NewTodoService(table data.TableService, logger *zap.Logger, pageSize int) data.TodoDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoDynamoDBService{
		Table:    table,
		Logger:   logger,
		PageSize: data.PageSize(pageSize),
		Now: func() time.Time {
			return time.Now().UTC()
		},
		NewId: func() (string, error) {
			gid, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return gid.String(), nil
		},
	}
}

func (ts *TodoDynamoDBService) logger(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, ts.Logger)
}

func (ts *TodoDynamoDBService) itemKey(email string, todoId string) (string, string, error) {
	pk, err := keys.UserPartitionKey(email)
	if err != nil {
		return "", "", err
	}
	sk, err := keys.ItemSortKey(todoId)
	if err != nil {
		return "", "", err
	}
	return pk, sk, nil
}

func (ts *TodoDynamoDBService) ListTodos(ctx context.Context, email string) ([]data.TodoDTO, error) {
	ts.logger(ctx).Info("retrieving all todo items", zap.String("user_email", email))
	pk, err := keys.UserPartitionKey(email)
	if err != nil {
		return nil, err
	}
	items := make([]data.TodoDTO, 0)
	for item, err := range ts.Table.QueryPrefix(ctx, pk, keys.ItemSortKeyPrefix(), ts.PageSize) {
		if err != nil {
			return nil, err
		}
		var todo data.TodoDTO
		if err := attributevalue.UnmarshalMap(item, &todo); err != nil {
			return nil, exceptions.Store("Query", pk, err)
		}
		items = append(items, todo)
	}
	ts.logger(ctx).Info("items from query", zap.String("user_email", email), zap.Int("count", len(items)))
	return items, nil
}

func (ts *TodoDynamoDBService) GetTodo(ctx context.Context, email string, todoId string) (data.TodoDTO, bool, error) {
	ts.logger(ctx).Info("retrieving todo item", zap.String("user_email", email), zap.String("todo_id", todoId))
	var todo data.TodoDTO
	pk, sk, err := ts.itemKey(email, todoId)
	if err != nil {
		return todo, false, err
	}
	item, ok, err := ts.Table.Get(ctx, pk, sk)
	if err != nil || !ok {
		return todo, false, err
	}
	if err := attributevalue.UnmarshalMap(item, &todo); err != nil {
		return todo, false, exceptions.Store("GetItem", pk+"/"+sk, err)
	}
	return todo, true, nil
}

func (ts *TodoDynamoDBService) CreateTodo(ctx context.Context, email string, input schema.TodoInput) (data.TodoDTO, error) {
	var shim data.TodoDTO
	if !input.Valid() || input.Mode() != schema.Create {
		return shim, exceptions.InvalidInput("A todo must pass create validation before it is stored")
	}
	title, _ := input.Title()
	dueDate, _ := input.DueDate()
	if title == "" || dueDate == "" {
		return shim, exceptions.InvalidInput("A todo requires a title and a due_date")
	}
	pk, err := keys.UserPartitionKey(email)
	if err != nil {
		return shim, err
	}
	gid, err := ts.NewId()
	if err != nil {
		return shim, err
	}
	sk, err := keys.ItemSortKey(gid)
	if err != nil {
		return shim, err
	}
	done, _ := input.Done()
	now := ts.Now()
	shim = data.TodoDTO{
		PK:         pk,
		SK:         sk,
		Title:      title,
		DueDate:    dueDate,
		Done:       done,
		CreateTime: now,
		UpdateTime: now,
	}
	if details, ok := input.Details(); ok {
		shim.Details = &details
	}
	item, err := attributevalue.MarshalMap(shim)
	if err != nil {
		return shim, exceptions.StoreWriteFailed(resourceName, gid, err)
	}
	if err := ts.Table.Put(ctx, item); err != nil {
		ts.logger(ctx).Error("create todo failed", zap.String("user_email", email), zap.String("todo_id", gid), zap.Error(err))
		return shim, exceptions.StoreWriteFailed(resourceName, gid, err)
	}
	ts.logger(ctx).Info("created todo item", zap.String("user_email", email), zap.String("todo_id", gid))
	return shim, nil
}

func _delta(input schema.TodoInput, updateTime time.Time) data.Delta {
	delta := data.Delta{"updated_at": updateTime}
	if title, ok := input.Title(); ok {
		delta["title"] = title
	}
	if details, ok := input.Details(); ok {
		delta["details"] = details
	}
	if dueDate, ok := input.DueDate(); ok {
		delta["due_date"] = dueDate
	}
	if done, ok := input.Done(); ok {
		delta["done"] = done
	}
	return delta
}

func (ts *TodoDynamoDBService) PatchTodo(ctx context.Context, email string, todoId string, input schema.TodoInput) (data.TodoDTO, error) {
	if !input.Valid() {
		var shim data.TodoDTO
		return shim, exceptions.InvalidInput("A todo patch must pass validation before it is stored")
	}
	existing, ok, err := ts.GetTodo(ctx, email, todoId)
	if err != nil {
		return existing, err
	}
	if !ok {
		ts.logger(ctx).Error("patch failed on a missing todo item", zap.String("user_email", email), zap.String("todo_id", todoId))
		return existing, exceptions.NotFound(resourceName, todoId)
	}
	if err := ts.Table.UpdatePartial(ctx, existing.PK, existing.SK, _delta(input, ts.Now())); err != nil {
		if exceptions.KindOf(err) == exceptions.KindNotFound {
			return existing, exceptions.NotFound(resourceName, todoId)
		}
		return existing, exceptions.StoreWriteFailed(resourceName, todoId, err)
	}
	updated, ok, err := ts.GetTodo(ctx, email, todoId)
	if err != nil {
		return existing, err
	}
	if !ok {
		return existing, exceptions.NotFound(resourceName, todoId)
	}
	return updated, nil
}

func (ts *TodoDynamoDBService) DeleteTodo(ctx context.Context, email string, todoId string) error {
	existing, ok, err := ts.GetTodo(ctx, email, todoId)
	if err != nil {
		return err
	}
	if !ok {
		ts.logger(ctx).Error("delete failed on a missing todo item", zap.String("user_email", email), zap.String("todo_id", todoId))
		return exceptions.NotFound(resourceName, todoId)
	}
	if err := ts.Table.Delete(ctx, existing.PK, existing.SK); err != nil {
		if exceptions.KindOf(err) == exceptions.KindNotFound {
			return exceptions.NotFound(resourceName, todoId)
		}
		return err
	}
	return nil
}
