package dynamodb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"photographer-backend/internal/repository"
	"photographer-backend/internal/repository/storetest"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items by partition key. Scans ignore filter expressions, which
// the store compensates for by re-checking every match in process.
type fakeDynamo struct {
	mu               sync.Mutex
	items            map[string]map[string]types.AttributeValue
	unprocessedFirst bool
	batchCalls       int
	scanErr          error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func pk(item map[string]types.AttributeValue) string {
	return item["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pk(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pk(in.Item)
	if in.ConditionExpression != nil && strings.Contains(*in.ConditionExpression, "attribute_not_exists") {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pk(in.Key)
	if _, exists := f.items[key]; !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := make([]map[string]types.AttributeValue, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return &dynamodb.ScanOutput{Items: out}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++

	unprocessed := map[string][]types.WriteRequest{}
	for table, requests := range in.RequestItems {
		for i, r := range requests {
			if f.unprocessedFirst && i == 0 {
				f.unprocessedFirst = false
				unprocessed[table] = append(unprocessed[table], r)
				continue
			}
			f.items[pk(r.PutRequest.Item)] = r.PutRequest.Item
		}
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil
}

func (f *fakeDynamo) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.PhotographerStore {
		return NewStore(newFakeDynamo(), "photographers", nil)
	})
}

func TestSaveAll(t *testing.T) {
	t.Run("Should resubmit unprocessed items", func(t *testing.T) {
		client := newFakeDynamo()
		client.unprocessedFirst = true
		s := NewStore(client, "photographers", nil)

		require.NoError(t, s.SaveAll(context.Background(), storetest.Fixtures()))
		assert.Equal(t, 2, client.batchCalls)
		n, err := s.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})
}

func TestClassify(t *testing.T) {
	t.Run("Should mark server faults as unavailable", func(t *testing.T) {
		client := newFakeDynamo()
		client.scanErr = &smithy.GenericAPIError{Code: "InternalServerError", Fault: smithy.FaultServer}
		s := NewStore(client, "photographers", nil)

		_, err := s.FindByEventType(context.Background(), "Wedding")
		assert.ErrorIs(t, err, repository.ErrUnavailable)
	})

	t.Run("Should mark throttling as unavailable", func(t *testing.T) {
		err := classify("scan", &types.ProvisionedThroughputExceededException{})
		assert.ErrorIs(t, err, repository.ErrUnavailable)
	})

	t.Run("Should keep client faults as plain errors", func(t *testing.T) {
		cause := &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient}
		err := classify("scan", cause)
		assert.False(t, errors.Is(err, repository.ErrUnavailable))
		assert.ErrorIs(t, err, cause)
	})
}
