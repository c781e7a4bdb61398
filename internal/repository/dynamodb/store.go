// Package dynamodb stores photographers in a single DynamoDB table.
//
// Items use PK "PHOTOGRAPHER#<id>" and SK "PROFILE". The dataset is small, so
// queries other than FindByID scan the table with a filter and finish ordering
// and exact matching in process.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	entityType   = "PHOTOGRAPHER"
	profileSK    = "PROFILE"
	batchSize    = 25
	maxAttempts  = 5
	retryBackoff = 50 * time.Millisecond
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type photographerItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	ID          int64    `dynamodbav:"ID"`
	UID         string   `dynamodbav:"UID"`
	FirstName   string   `dynamodbav:"FirstName"`
	LastName    string   `dynamodbav:"LastName"`
	Username    string   `dynamodbav:"Username"`
	Email       string   `dynamodbav:"Email"`
	Avatar      string   `dynamodbav:"Avatar"`
	Gender      string   `dynamodbav:"Gender"`
	PhoneNumber string   `dynamodbav:"PhoneNumber"`
	DateOfBirth string   `dynamodbav:"DateOfBirth"`
	Latitude    float64  `dynamodbav:"Latitude"`
	Longitude   float64  `dynamodbav:"Longitude"`
	EventTypes  []string `dynamodbav:"EventTypes"`
}

func partitionKey(id int64) string {
	return "PHOTOGRAPHER#" + strconv.FormatInt(id, 10)
}

func key(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(id)},
		"SK": &types.AttributeValueMemberS{Value: profileSK},
	}
}

func toItem(p *domain.Photographer) photographerItem {
	eventTypes := p.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return photographerItem{
		PK: partitionKey(p.ID), SK: profileSK, EntityType: entityType,
		ID: p.ID, UID: p.UID, FirstName: p.FirstName, LastName: p.LastName,
		Username: p.Username, Email: p.Email, Avatar: p.Avatar, Gender: p.Gender,
		PhoneNumber: p.PhoneNumber, DateOfBirth: p.DateOfBirth,
		Latitude: p.Latitude, Longitude: p.Longitude, EventTypes: eventTypes,
	}
}

func (it photographerItem) toDomain() *domain.Photographer {
	return &domain.Photographer{
		ID: it.ID, UID: it.UID, FirstName: it.FirstName, LastName: it.LastName,
		Username: it.Username, Email: it.Email, Avatar: it.Avatar, Gender: it.Gender,
		PhoneNumber: it.PhoneNumber, DateOfBirth: it.DateOfBirth,
		Latitude: it.Latitude, Longitude: it.Longitude, EventTypes: it.EventTypes,
	}
}

// Store is a PhotographerStore over DynamoDB.
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
}

func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, tableName: tableName, logger: logger.Named("dynamodb")}
}

// classify marks throttling and service faults as unavailability.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultServer {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
	}
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	if errors.As(err, &throughput) || errors.As(err, &limit) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// scan returns every photographer matching filter, ordered by id. Items that do
// not decode as photographers are skipped.
func (s *Store) scan(ctx context.Context, filter expression.ConditionBuilder, keep func(*domain.Photographer) bool) ([]*domain.Photographer, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityType)).And(filter)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build scan expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	out := []*domain.Photographer{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("scan photographers", err)
		}
		var items []photographerItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal photographers: %w", err)
		}
		for _, it := range items {
			if it.EntityType != entityType {
				continue
			}
			p := it.toDomain()
			if keep == nil || keep(p) {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func everything() expression.ConditionBuilder {
	return expression.Name("ID").AttributeExists()
}

func (s *Store) FindPage(ctx context.Context, page, size int) ([]*domain.Photographer, int64, error) {
	all, err := s.scan(ctx, everything(), nil)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	offset := repository.Offset(page, size)
	if size <= 0 || offset >= len(all) {
		return []*domain.Photographer{}, total, nil
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Photographer, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("get photographer %d", id), err)
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}

	var it photographerItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal photographer %d: %w", id, err)
	}
	return it.toDomain(), nil
}

func (s *Store) FindByEventType(ctx context.Context, eventType string) ([]*domain.Photographer, error) {
	return s.scan(ctx, expression.Name("EventTypes").Contains(eventType), func(p *domain.Photographer) bool {
		return p.HasEventType(eventType)
	})
}

func (s *Store) FindOrderedByBirthDate(ctx context.Context, descending bool, limit int) ([]*domain.Photographer, error) {
	all, err := s.scan(ctx, everything(), nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if descending {
			return all[i].DateOfBirth > all[j].DateOfBirth
		}
		return all[i].DateOfBirth < all[j].DateOfBirth
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) FindByProximity(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.Photographer, error) {
	minLat, maxLat, minLng, maxLng := repository.BoundingBox(lat, lng, radiusKm)
	filter := expression.Name("Latitude").Between(expression.Value(minLat), expression.Value(maxLat)).
		And(expression.Name("Longitude").Between(expression.Value(minLng), expression.Value(maxLng)))

	candidates, err := s.scan(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	return repository.WithinRadius(candidates, lat, lng, radiusKm), nil
}

// Save upserts p. A zero id is replaced by the next free id, claimed with a
// conditional put and retried on conflict.
func (s *Store) Save(ctx context.Context, p *domain.Photographer) (*domain.Photographer, error) {
	saved := *p
	saved.EventTypes = append([]string(nil), p.EventTypes...)

	if saved.ID != 0 {
		if err := s.put(ctx, &saved, false); err != nil {
			return nil, err
		}
		return &saved, nil
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		all, err := s.scan(ctx, everything(), nil)
		if err != nil {
			return nil, err
		}
		saved.ID = 1
		if n := len(all); n > 0 {
			saved.ID = all[n-1].ID + 1
		}

		err = s.put(ctx, &saved, true)
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			s.logger.Debug("Id already claimed, retrying", zap.Int64("id", saved.ID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}
	return nil, fmt.Errorf("allocate photographer id: %w", repository.ErrUnavailable)
}

func (s *Store) put(ctx context.Context, p *domain.Photographer, mustBeNew bool) error {
	av, err := attributevalue.MarshalMap(toItem(p))
	if err != nil {
		return fmt.Errorf("marshal photographer %d: %w", p.ID, err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if mustBeNew {
		expr, err := expression.NewBuilder().
			WithCondition(expression.Name("PK").AttributeNotExists()).
			Build()
		if err != nil {
			return fmt.Errorf("build put condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return err
		}
		return classify(fmt.Sprintf("put photographer %d", p.ID), err)
	}
	return nil
}

// SaveAll writes in batches of 25, resubmitting unprocessed items.
func (s *Store) SaveAll(ctx context.Context, photographers []*domain.Photographer) error {
	requests := make([]types.WriteRequest, 0, len(photographers))
	for _, p := range photographers {
		if p.ID == 0 {
			return fmt.Errorf("bulk save requires ids, got photographer %q without one", p.Email)
		}
		av, err := attributevalue.MarshalMap(toItem(p))
		if err != nil {
			return fmt.Errorf("marshal photographer %d: %w", p.ID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	for start := 0; start < len(requests); start += batchSize {
		end := start + batchSize
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.writeBatch(ctx, requests[start:end]); err != nil {
			return err
		}
	}

	s.logger.Info("Photographers written", zap.Int("count", len(requests)))
	return nil
}

func (s *Store) writeBatch(ctx context.Context, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.tableName: batch}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return classify("batch write photographers", err)
		}
		if len(out.UnprocessedItems[s.tableName]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("batch write photographers: %d items unprocessed: %w",
		len(pending[s.tableName]), repository.ErrUnavailable)
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("build delete condition: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      key(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return repository.ErrNotFound
	}
	if err != nil {
		return classify(fmt.Sprintf("delete photographer %d", id), err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	all, err := s.scan(ctx, everything(), nil)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return classify("describe table", err)
	}
	return nil
}

var _ repository.PhotographerStore = (*Store)(nil)
