// Package schema gates write payloads behind JSON Schema documents before
// they are converted into typed inputs for the access patterns.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"philcali.me/todos/internal/exceptions"
)

//go:embed schemas/*.json
var embedded embed.FS

type SchemaType string

const (
	Todos SchemaType = "schema-todos.json"
)

type Mode int

const (
	// Create enforces the document as written.
	Create Mode = iota
	// Patch drops every required constraint so partial payloads pass while
	// the fields that are present keep their type and format checks.
	Patch
)

func (m Mode) String() string {
	if m == Patch {
		return "patch"
	}
	return "create"
}

// RawPayload is an untyped request body as decoded from JSON.
type RawPayload map[string]any

type Loader interface {
	Load(schemaType SchemaType) ([]byte, error)
}

type FSLoader struct {
	FS  fs.FS
	Dir string
}

func (fl *FSLoader) Load(schemaType SchemaType) ([]byte, error) {
	name := string(schemaType)
	if fl.Dir != "" {
		name = fl.Dir + "/" + name
	}
	return fs.ReadFile(fl.FS, name)
}

func DefaultLoader() Loader {
	return &FSLoader{FS: embedded, Dir: "schemas"}
}

type cacheKey struct {
	schemaType SchemaType
	mode       Mode
}

type Validator struct {
	Loader Loader
	Logger *zap.Logger

	mutex    sync.Mutex
	compiled map[cacheKey]*jsonschema.Schema
}

func NewValidator(loader Loader, logger *zap.Logger) *Validator {
	if loader == nil {
		loader = DefaultLoader()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		Loader:   loader,
		Logger:   logger,
		compiled: make(map[cacheKey]*jsonschema.Schema),
	}
}

// Keywords whose value is a single subschema.
var subschemaKeywords = []string{
	"additionalItems", "additionalProperties", "contains", "else", "if",
	"items", "not", "propertyNames", "then",
}

// Keywords whose value maps names onto subschemas.
var subschemaMapKeywords = []string{
	"$defs", "definitions", "dependencies", "patternProperties", "properties",
}

// Keywords whose value is a list of subschemas.
var subschemaListKeywords = []string{"allOf", "anyOf", "oneOf"}

// _stripRequired removes the required keyword from a schema object and every
// subschema below it. Property names are never touched, so a property that
// happens to be called "required" survives.
func _stripRequired(node any) {
	schema, ok := node.(map[string]any)
	if !ok {
		return
	}
	if _, ok := schema["required"].([]any); ok {
		delete(schema, "required")
	}
	for _, keyword := range subschemaKeywords {
		switch child := schema[keyword].(type) {
		case map[string]any:
			_stripRequired(child)
		case []any:
			for _, item := range child {
				_stripRequired(item)
			}
		}
	}
	for _, keyword := range subschemaMapKeywords {
		if children, ok := schema[keyword].(map[string]any); ok {
			for _, child := range children {
				_stripRequired(child)
			}
		}
	}
	for _, keyword := range subschemaListKeywords {
		if children, ok := schema[keyword].([]any); ok {
			for _, child := range children {
				_stripRequired(child)
			}
		}
	}
}

func (v *Validator) compile(schemaType SchemaType, mode Mode) (*jsonschema.Schema, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	key := cacheKey{schemaType: schemaType, mode: mode}
	if compiled, ok := v.compiled[key]; ok {
		return compiled, nil
	}
	v.Logger.Info("loading schema", zap.String("schemaType", string(schemaType)), zap.Stringer("mode", mode))
	document, err := v.Loader.Load(schemaType)
	if err != nil {
		return nil, err
	}
	if mode == Patch {
		var tree any
		if err := json.Unmarshal(document, &tree); err != nil {
			return nil, err
		}
		_stripRequired(tree)
		if document, err = json.Marshal(tree); err != nil {
			return nil, err
		}
	}
	url := fmt.Sprintf("mem://schemas/%s/%s", mode, schemaType)
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, bytes.NewReader(document)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	v.compiled[key] = compiled
	return compiled, nil
}

// Validate checks payload against the named schema. Failures are always a
// ValidationError carrying the JSON path of the first failing location.
func (v *Validator) Validate(payload RawPayload, schemaType SchemaType, mode Mode) error {
	compiled, err := v.compile(schemaType, mode)
	if err != nil {
		v.Logger.Error("schema failed to compile", zap.String("schemaType", string(schemaType)), zap.Error(err))
		return exceptions.Validation(string(schemaType), "$", err.Error())
	}
	var instance any = map[string]any(payload)
	if payload == nil {
		instance = nil
	}
	if err := compiled.Validate(instance); err != nil {
		path, message := _firstCause(err)
		v.Logger.Error("payload failed schema validation",
			zap.String("schemaType", string(schemaType)),
			zap.Stringer("mode", mode),
			zap.String("path", path),
			zap.String("message", message))
		return exceptions.Validation(string(schemaType), path, message)
	}
	return nil
}

func (v *Validator) decode(payload RawPayload, schemaType SchemaType, mode Mode) (TodoInput, error) {
	var input TodoInput
	if err := v.Validate(payload, schemaType, mode); err != nil {
		return input, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return input, exceptions.InvalidInput(err.Error())
	}
	if err := json.Unmarshal(raw, &input.fields); err != nil {
		return input, exceptions.InvalidInput(err.Error())
	}
	input.mode = mode
	input.validated = true
	return input, nil
}

// Create validates a full to-do payload and converts it to a typed input.
func (v *Validator) Create(payload RawPayload) (TodoInput, error) {
	return v.decode(payload, Todos, Create)
}

// Patch validates a partial to-do payload and converts it to a typed input.
func (v *Validator) Patch(payload RawPayload) (TodoInput, error) {
	return v.decode(payload, Todos, Patch)
}

func _leaves(ve *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return append(out, ve)
	}
	for _, cause := range ve.Causes {
		out = _leaves(cause, out)
	}
	return out
}

// _firstCause picks the leaf failure with the smallest instance location.
// Causes arrive in map iteration order, so they are sorted first.
func _firstCause(err error) (string, string) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "$", err.Error()
	}
	leaves := _leaves(ve, nil)
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		if leaves[i].KeywordLocation != leaves[j].KeywordLocation {
			return leaves[i].KeywordLocation < leaves[j].KeywordLocation
		}
		return leaves[i].Message < leaves[j].Message
	})
	return _jsonPath(leaves[0].InstanceLocation), leaves[0].Message
}

func _jsonPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "$"
	}
	var path strings.Builder
	path.WriteString("$")
	for _, segment := range strings.Split(pointer, "/") {
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		path.WriteString(".")
		path.WriteString(segment)
	}
	return path.String()
}
