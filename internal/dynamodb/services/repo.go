package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"philcali.me/todos/internal/data"
	"philcali.me/todos/internal/dynamodb/keys"
	"philcali.me/todos/internal/exceptions"
	"philcali.me/todos/internal/logging"
)

// DynamoDBAPI is the subset of the DynamoDB client the table service calls.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

type TableDynamoDBService struct {
	DynamoDB  DynamoDBAPI
	TableName string
	Logger    *zap.Logger
	// RequireExisting guards updates and deletes with attribute_exists
	// conditions, turning a write against a missing key into NotFound.
	RequireExisting bool
}

func NewTableService(tableName string, client DynamoDBAPI, logger *zap.Logger) *TableDynamoDBService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableDynamoDBService{
		DynamoDB:  client,
		TableName: tableName,
		Logger:    logger,
	}
}

func _getKey(pks string, sks string) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(pks)
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(sks)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{keys.PartitionKeyAttr: pk, keys.SortKeyAttr: sk}, nil
}

func _keyString(pk string, sk string) string {
	return fmt.Sprintf("%s/%s", pk, sk)
}

func _existsCondition() expression.ConditionBuilder {
	return expression.Name(keys.PartitionKeyAttr).AttributeExists().And(expression.Name(keys.SortKeyAttr).AttributeExists())
}

func _isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (ts *TableDynamoDBService) logger(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, ts.Logger)
}

func (ts *TableDynamoDBService) fail(ctx context.Context, operation string, pk string, sk string, err error) error {
	ts.logger(ctx).Error("table operation failed",
		zap.String("operation", operation),
		zap.String("table", ts.TableName),
		zap.String("pk", pk),
		zap.String("sk", sk),
		zap.Error(err))
	return exceptions.Store(operation, _keyString(pk, sk), err)
}

func (ts *TableDynamoDBService) Get(ctx context.Context, pk string, sk string) (data.Item, bool, error) {
	ts.logger(ctx).Debug("get item", zap.String("pk", pk), zap.String("sk", sk))
	key, err := _getKey(pk, sk)
	if err != nil {
		return nil, false, ts.fail(ctx, "GetItem", pk, sk, err)
	}
	response, err := ts.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ts.TableName),
		Key:       key,
	})
	if err != nil {
		return nil, false, ts.fail(ctx, "GetItem", pk, sk, err)
	}
	if response.Item == nil {
		return nil, false, nil
	}
	return response.Item, true, nil
}

// QueryPrefix lists every item in a partition whose sort key begins with
// prefix, following LastEvaluatedKey page by page. Each range over the
// sequence starts a fresh query. Breaking out of the loop, or cancelling
// ctx, stops further page requests.
func (ts *TableDynamoDBService) QueryPrefix(ctx context.Context, pk string, prefix string, pageSize int32) iter.Seq2[data.Item, error] {
	return func(yield func(data.Item, error) bool) {
		if pageSize <= 0 {
			pageSize = data.DefaultPageSize
		}
		ts.logger(ctx).Debug("query by prefix", zap.String("pk", pk), zap.String("prefix", prefix), zap.Int32("pageSize", pageSize))
		keyEx := expression.Key(keys.PartitionKeyAttr).Equal(expression.Value(pk)).
			And(expression.Key(keys.SortKeyAttr).BeginsWith(prefix))
		expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
		if err != nil {
			yield(nil, ts.fail(ctx, "Query", pk, prefix, err))
			return
		}
		paginator := dynamodb.NewQueryPaginator(ts.DynamoDB, &dynamodb.QueryInput{
			TableName:                 aws.String(ts.TableName),
			Limit:                     aws.Int32(pageSize),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		pages := 0
		for paginator.HasMorePages() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			output, err := paginator.NextPage(ctx)
			if err != nil {
				yield(nil, ts.fail(ctx, "Query", pk, prefix, err))
				return
			}
			pages++
			ts.logger(ctx).Debug("query page", zap.String("pk", pk), zap.Int("page", pages), zap.Int("items", len(output.Items)))
			for _, item := range output.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

func (ts *TableDynamoDBService) Put(ctx context.Context, item data.Item) error {
	pk, sk := _attrString(item, keys.PartitionKeyAttr), _attrString(item, keys.SortKeyAttr)
	ts.logger(ctx).Debug("put item", zap.String("pk", pk), zap.String("sk", sk))
	output, err := ts.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		Item:      item,
		TableName: aws.String(ts.TableName),
	})
	if err != nil {
		return ts.fail(ctx, "PutItem", pk, sk, err)
	}
	if output == nil {
		return ts.fail(ctx, "PutItem", pk, sk, errors.New("missing acknowledgement"))
	}
	return nil
}

// UpdatePartial sets exactly the attributes named in delta and leaves the
// rest of the stored item untouched. An empty delta never reaches the table.
func (ts *TableDynamoDBService) UpdatePartial(ctx context.Context, pk string, sk string, delta data.Delta) error {
	if len(delta) == 0 {
		return nil
	}
	names := make([]string, 0, len(delta))
	for name := range delta {
		if name == keys.PartitionKeyAttr || name == keys.SortKeyAttr {
			return exceptions.InvalidInput(fmt.Sprintf("Cannot update key attribute %s", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)
	ts.logger(ctx).Debug("update item", zap.String("pk", pk), zap.String("sk", sk), zap.Strings("attributes", names))
	key, err := _getKey(pk, sk)
	if err != nil {
		return ts.fail(ctx, "UpdateItem", pk, sk, err)
	}
	var update expression.UpdateBuilder
	for _, name := range names {
		update = update.Set(expression.Name(name), expression.Value(delta[name]))
	}
	builder := expression.NewBuilder().WithUpdate(update)
	if ts.RequireExisting {
		builder = builder.WithCondition(_existsCondition())
	}
	expr, err := builder.Build()
	if err != nil {
		return ts.fail(ctx, "UpdateItem", pk, sk, err)
	}
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(ts.TableName),
		Key:                       key,
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
	}
	if ts.RequireExisting {
		input.ConditionExpression = expr.Condition()
	}
	if _, err = ts.DynamoDB.UpdateItem(ctx, input); err != nil {
		if _isConditionFailure(err) {
			return exceptions.NotFound("item", _keyString(pk, sk))
		}
		return ts.fail(ctx, "UpdateItem", pk, sk, err)
	}
	return nil
}

func (ts *TableDynamoDBService) Delete(ctx context.Context, pk string, sk string) error {
	ts.logger(ctx).Debug("delete item", zap.String("pk", pk), zap.String("sk", sk))
	key, err := _getKey(pk, sk)
	if err != nil {
		return ts.fail(ctx, "DeleteItem", pk, sk, err)
	}
	input := &dynamodb.DeleteItemInput{
		Key:       key,
		TableName: aws.String(ts.TableName),
	}
	if ts.RequireExisting {
		expr, err := expression.NewBuilder().WithCondition(_existsCondition()).Build()
		if err != nil {
			return ts.fail(ctx, "DeleteItem", pk, sk, err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}
	if _, err = ts.DynamoDB.DeleteItem(ctx, input); err != nil {
		if _isConditionFailure(err) {
			return exceptions.NotFound("item", _keyString(pk, sk))
		}
		return ts.fail(ctx, "DeleteItem", pk, sk, err)
	}
	return nil
}

func _attrString(item data.Item, name string) string {
	if sv, ok := item[name].(*types.AttributeValueMemberS); ok {
		return sv.Value
	}
	return ""
}
