package data

import (
	"context"
	"time"

	"philcali.me/todos/internal/schema"
)

type TodoDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	Title      string    `dynamodbav:"title"`
	Details    *string   `dynamodbav:"details,omitempty"`
	DueDate    string    `dynamodbav:"due_date"`
	Done       bool      `dynamodbav:"done"`
	CreateTime time.Time `dynamodbav:"created_at"`
	UpdateTime time.Time `dynamodbav:"updated_at"`
}

type TodoDataService interface {
	ListTodos(ctx context.Context, email string) ([]TodoDTO, error)
	GetTodo(ctx context.Context, email string, todoId string) (TodoDTO, bool, error)
	CreateTodo(ctx context.Context, email string, input schema.TodoInput) (TodoDTO, error)
	PatchTodo(ctx context.Context, email string, todoId string, input schema.TodoInput) (TodoDTO, error)
	DeleteTodo(ctx context.Context, email string, todoId string) error
}
