package data

import (
	"context"
	"iter"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultPageSize = 50

// Item is a raw table row keyed by attribute name.
type Item = map[string]types.AttributeValue

// Delta names the attributes a partial update overwrites.
type Delta map[string]any

// PageSize converts a configured page size into a query Limit. Non-positive
// sizes fall back to the default and oversized ones clamp to MaxInt32.
func PageSize(size int) int32 {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(size)
}

// TableService is the generic key-value surface of the single table.
type TableService interface {
	Get(ctx context.Context, pk string, sk string) (Item, bool, error)
	QueryPrefix(ctx context.Context, pk string, prefix string, pageSize int32) iter.Seq2[Item, error]
	Put(ctx context.Context, item Item) error
	UpdatePartial(ctx context.Context, pk string, sk string, delta Delta) error
	Delete(ctx context.Context, pk string, sk string) error
}
