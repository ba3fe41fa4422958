package operations

import (
	"time"

	"philcali.me/todos/internal/data"
	"philcali.me/todos/internal/dynamodb/keys"
	"philcali.me/todos/internal/schema"
)

const (
	List   = "list"
	Get    = "get"
	Create = "create"
	Patch  = "patch"
	Delete = "delete"
)

type Request struct {
	Operation     string            `json:"operation"`
	UserEmail     string            `json:"user_email"`
	TodoId        string            `json:"todo_id,omitempty"`
	Payload       schema.RawPayload `json:"payload,omitempty"`
	CorrelationId string            `json:"correlation_id,omitempty"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type Response struct {
	StatusCode int        `json:"status_code"`
	Body       any        `json:"body,omitempty"`
	Error      *ErrorBody `json:"error,omitempty"`
}

type Todo struct {
	Id         string    `json:"id"`
	Title      string    `json:"title"`
	Details    *string   `json:"details,omitempty"`
	DueDate    string    `json:"due_date"`
	Done       bool      `json:"done"`
	CreateTime time.Time `json:"created_at"`
	UpdateTime time.Time `json:"updated_at"`
}

func NewTodo(todo data.TodoDTO) Todo {
	return Todo{
		Id:         keys.ItemID(todo.SK),
		Title:      todo.Title,
		Details:    todo.Details,
		DueDate:    todo.DueDate,
		Done:       todo.Done,
		CreateTime: todo.CreateTime,
		UpdateTime: todo.UpdateTime,
	}
}

func NewTodos(todos []data.TodoDTO) []Todo {
	items := make([]Todo, len(todos))
	for i, todo := range todos {
		items[i] = NewTodo(todo)
	}
	return items
}
