package test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	equalCondition      = regexp.MustCompile(`(#\w+)\s*=\s*(:\w+)`)
	beginsWithCondition = regexp.MustCompile(`begins_with\s*\(\s*(#\w+)\s*,\s*(:\w+)\s*\)`)
)

type DynamoDBAPICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// MemoryTable is an in-process PK/SK table understanding the expressions the
// table service builds: key equality, begins_with, SET updates and
// attribute_exists conditions.
type MemoryTable struct {
	mutex   sync.Mutex
	items   map[string]map[string]map[string]types.AttributeValue
	Queries int
	Updates []*dynamodb.UpdateItemInput
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{
		items: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func _stringAttr(av types.AttributeValue) (string, error) {
	if sv, ok := av.(*types.AttributeValueMemberS); ok {
		return sv.Value, nil
	}
	return "", fmt.Errorf("expected a string attribute, got %T", av)
}

func _keyOf(key map[string]types.AttributeValue) (string, string, error) {
	pk, err := _stringAttr(key["PK"])
	if err != nil {
		return "", "", err
	}
	sk, err := _stringAttr(key["SK"])
	return pk, sk, err
}

func _copy(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *MemoryTable) lookup(pk string, sk string) (map[string]types.AttributeValue, bool) {
	partition, ok := m.items[pk]
	if !ok {
		return nil, false
	}
	item, ok := partition[sk]
	return item, ok
}

func (m *MemoryTable) checkCondition(condition *string, pk string, sk string) error {
	if condition == nil || !strings.Contains(*condition, "attribute_exists") {
		return nil
	}
	if _, ok := m.lookup(pk, sk); !ok {
		return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	return nil
}

// Len counts the items stored under a partition.
func (m *MemoryTable) Len(pk string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.items[pk])
}

func (m *MemoryTable) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	pk, sk, err := _keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	if item, ok := m.lookup(pk, sk); ok {
		return &dynamodb.GetItemOutput{Item: _copy(item)}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *MemoryTable) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	pk, sk, err := _keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	partition, ok := m.items[pk]
	if !ok {
		partition = make(map[string]map[string]types.AttributeValue)
		m.items[pk] = partition
	}
	partition[sk] = _copy(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MemoryTable) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Updates = append(m.Updates, params)
	pk, sk, err := _keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	if err := m.checkCondition(params.ConditionExpression, pk, sk); err != nil {
		return nil, err
	}
	update := aws.ToString(params.UpdateExpression)
	if !strings.HasPrefix(strings.TrimSpace(update), "SET") {
		return nil, fmt.Errorf("unsupported update expression %q", update)
	}
	item, ok := m.lookup(pk, sk)
	if !ok {
		item = _copy(params.Key)
	} else {
		item = _copy(item)
	}
	for _, match := range equalCondition.FindAllStringSubmatch(update, -1) {
		name, ok := params.ExpressionAttributeNames[match[1]]
		if !ok {
			return nil, fmt.Errorf("unknown name placeholder %s", match[1])
		}
		value, ok := params.ExpressionAttributeValues[match[2]]
		if !ok {
			return nil, fmt.Errorf("unknown value placeholder %s", match[2])
		}
		item[name] = value
	}
	if _, ok := m.items[pk]; !ok {
		m.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	m.items[pk][sk] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *MemoryTable) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	pk, sk, err := _keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	if err := m.checkCondition(params.ConditionExpression, pk, sk); err != nil {
		return nil, err
	}
	if partition, ok := m.items[pk]; ok {
		delete(partition, sk)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *MemoryTable) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Queries++
	condition := aws.ToString(params.KeyConditionExpression)
	var pk, prefix string
	for _, match := range equalCondition.FindAllStringSubmatch(condition, -1) {
		if params.ExpressionAttributeNames[match[1]] == "PK" {
			value, err := _stringAttr(params.ExpressionAttributeValues[match[2]])
			if err != nil {
				return nil, err
			}
			pk = value
		}
	}
	if match := beginsWithCondition.FindStringSubmatch(condition); match != nil {
		value, err := _stringAttr(params.ExpressionAttributeValues[match[2]])
		if err != nil {
			return nil, err
		}
		prefix = value
	}
	if pk == "" {
		return nil, errors.New("query requires a partition key condition")
	}
	var sortKeys []string
	for sk := range m.items[pk] {
		if strings.HasPrefix(sk, prefix) {
			sortKeys = append(sortKeys, sk)
		}
	}
	sort.Strings(sortKeys)
	start := 0
	if params.ExclusiveStartKey != nil {
		_, after, err := _keyOf(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(sortKeys, after)
		if start < len(sortKeys) && sortKeys[start] == after {
			start++
		}
	}
	end := len(sortKeys)
	if params.Limit != nil && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}
	output := &dynamodb.QueryOutput{}
	for _, sk := range sortKeys[start:end] {
		output.Items = append(output.Items, _copy(m.items[pk][sk]))
	}
	output.Count = int32(len(output.Items))
	if end < len(sortKeys) {
		last := m.items[pk][sortKeys[end-1]]
		output.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	return output, nil
}

// MockClient forwards to a MemoryTable unless an operation is overridden.
type MockClient struct {
	Table      *MemoryTable
	GetFunc    DynamoDBAPICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	QueryFunc  DynamoDBAPICall[dynamodb.QueryInput, dynamodb.QueryOutput]
	PutFunc    DynamoDBAPICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	UpdateFunc DynamoDBAPICall[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
	DeleteFunc DynamoDBAPICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
}

func NewMockClient() *MockClient {
	return &MockClient{Table: NewMemoryTable()}
}

func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, params, optFns...)
	}
	return m.Table.GetItem(ctx, params, optFns...)
}

func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, params, optFns...)
	}
	return m.Table.Query(ctx, params, optFns...)
}

func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, params, optFns...)
	}
	return m.Table.PutItem(ctx, params, optFns...)
}

func (m *MockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, params, optFns...)
	}
	return m.Table.UpdateItem(ctx, params, optFns...)
}

func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, params, optFns...)
	}
	return m.Table.DeleteItem(ctx, params, optFns...)
}
