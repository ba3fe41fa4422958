package exceptions_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"philcali.me/todos/internal/exceptions"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	cases := []struct {
		name   string
		err    error
		kind   exceptions.Kind
		status int
	}{
		{"InvalidIdentifier", exceptions.InvalidIdentifier("email", "nope"), exceptions.KindInvalidIdentifier, 400},
		{"InvalidInput", exceptions.InvalidInput("bad json"), exceptions.KindInvalidInput, 400},
		{"Validation", exceptions.Validation("todos", "$.done", "expected boolean"), exceptions.KindValidation, 400},
		{"NotFound", exceptions.NotFound("todo", "abc"), exceptions.KindNotFound, 404},
		{"Store", exceptions.Store("GetItem", "USER#a/TODO#b", cause), exceptions.KindStore, 500},
		{"WriteFailed", exceptions.StoreWriteFailed("todo", "abc", exceptions.Store("PutItem", "", cause)), exceptions.KindStore, 500},
		{"Wrapped", fmt.Errorf("patch: %w", exceptions.NotFound("todo", "abc")), exceptions.KindNotFound, 404},
		{"Plain", cause, exceptions.KindInternal, 500},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.kind, exceptions.KindOf(c.err))
			assert.Equal(t, c.status, exceptions.StatusCode(exceptions.KindOf(c.err)))
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("throttled")
	err := exceptions.StoreWriteFailed("todo", "abc", exceptions.Store("PutItem", "USER#a/TODO#abc", cause))
	if !errors.Is(err, cause) {
		t.Fatalf("Expected %v to wrap %v", err, cause)
	}
	var storeErr *exceptions.StoreError
	if !errors.As(err, &storeErr) || storeErr.Operation != "PutItem" {
		t.Fatalf("Expected a PutItem store error in %v", err)
	}
	se := err.ToServiceError()
	if se.StatusCode != 500 || !errors.Is(se, cause) {
		t.Fatalf("Unexpected service error %v", se)
	}
}
