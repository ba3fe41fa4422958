package exceptions

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidIdentifier
	KindInvalidInput
	KindValidation
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "InvalidIdentifier"
	case KindInvalidInput:
		return "InvalidInput"
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "ItemNotFound"
	case KindStore:
		return "StoreError"
	}
	return "InternalError"
}

type ServiceError struct {
	StatusCode int
	Cause      error
}

func (se *ServiceError) Error() string {
	return se.Cause.Error()
}

func (se *ServiceError) Unwrap() error {
	return se.Cause
}

type RequestError interface {
	ToServiceError() *ServiceError
	Kind() Kind
	Error() string
}

// StatusCode is the response code a transport should use for an error kind.
func StatusCode(kind Kind) int {
	switch kind {
	case KindInvalidIdentifier, KindInvalidInput, KindValidation:
		return 400
	case KindNotFound:
		return 404
	}
	return 500
}

// KindOf finds the first RequestError in the chain of err.
func KindOf(err error) Kind {
	var re RequestError
	if errors.As(err, &re) {
		return re.Kind()
	}
	return KindInternal
}

func serviceError(re RequestError) *ServiceError {
	return &ServiceError{
		StatusCode: StatusCode(re.Kind()),
		Cause:      re,
	}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func (nfe *NotFoundError) Kind() Kind {
	return KindNotFound
}

func (nfe *NotFoundError) ToServiceError() *ServiceError {
	return serviceError(nfe)
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func (ie *InvalidInputError) Kind() Kind {
	return KindInvalidInput
}

func (ie *InvalidInputError) ToServiceError() *ServiceError {
	return serviceError(ie)
}

func InvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{
		Message: message,
	}
}

type InvalidIdentifierError struct {
	Field string
	Value string
}

func (iie *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("Invalid %s identifier: %q", iie.Field, iie.Value)
}

func (iie *InvalidIdentifierError) Kind() Kind {
	return KindInvalidIdentifier
}

func (iie *InvalidIdentifierError) ToServiceError() *ServiceError {
	return serviceError(iie)
}

func InvalidIdentifier(field string, value string) *InvalidIdentifierError {
	return &InvalidIdentifierError{
		Field: field,
		Value: value,
	}
}

// ValidationError reports the first payload location that failed a schema.
type ValidationError struct {
	Schema  string
	Path    string
	Message string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("Input failed %s schema validation at %s: %s", ve.Schema, ve.Path, ve.Message)
}

func (ve *ValidationError) Kind() Kind {
	return KindValidation
}

func (ve *ValidationError) ToServiceError() *ServiceError {
	return serviceError(ve)
}

func Validation(schema string, path string, message string) *ValidationError {
	return &ValidationError{
		Schema:  schema,
		Path:    path,
		Message: message,
	}
}

// StoreError wraps a failed call against the table. Key is the composite
// key rendered as PK/SK when the operation targets a single item.
type StoreError struct {
	Operation string
	Key       string
	Cause     error
}

func (se *StoreError) Error() string {
	if se.Key == "" {
		return fmt.Sprintf("%s operation failed: %v", se.Operation, se.Cause)
	}
	return fmt.Sprintf("%s operation failed for %s: %v", se.Operation, se.Key, se.Cause)
}

func (se *StoreError) Unwrap() error {
	return se.Cause
}

func (se *StoreError) Kind() Kind {
	return KindStore
}

func (se *StoreError) ToServiceError() *ServiceError {
	return serviceError(se)
}

func Store(operation string, key string, cause error) *StoreError {
	return &StoreError{
		Operation: operation,
		Key:       key,
		Cause:     cause,
	}
}

type WriteFailedError struct {
	Resource string
	Id       string
	Cause    error
}

func (wfe *WriteFailedError) Error() string {
	return fmt.Sprintf("Failed to write %s with id %s: %v", wfe.Resource, wfe.Id, wfe.Cause)
}

func (wfe *WriteFailedError) Unwrap() error {
	return wfe.Cause
}

func (wfe *WriteFailedError) Kind() Kind {
	return KindStore
}

func (wfe *WriteFailedError) ToServiceError() *ServiceError {
	return serviceError(wfe)
}

func StoreWriteFailed(resource string, id string, cause error) *WriteFailedError {
	return &WriteFailedError{
		Resource: resource,
		Id:       id,
		Cause:    cause,
	}
}
