package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ovall/shortlink/internal/shortlink"
	"go.uber.org/zap"
)

// DynamoStore is a DynamoDB-backed implementation of shortlink.Repository.
//
// Links live in a table keyed by slug; slug minting uses an atomic ADD on a
// counter item, so concurrent callers serialize at the counter partition.
type DynamoStore struct {
	client        *dynamodb.Client
	linksTable    string
	countersTable string
	timeout       time.Duration
	logger        *zap.Logger
}

// NewDynamoStore creates a repository over the given tables.
func NewDynamoStore(client *dynamodb.Client, linksTable, countersTable string, logger *zap.Logger) *DynamoStore {
	return &DynamoStore{
		client:        client,
		linksTable:    linksTable,
		countersTable: countersTable,
		timeout:       defaultTimeout,
		logger:        logger,
	}
}

// dynamoLink is the persisted item shape.
type dynamoLink struct {
	Slug        string `dynamodbav:"slug"`
	OriginalURL string `dynamodbav:"original_url"`
	CreatedAt   string `dynamodbav:"created_at"`
	CreatedBy   string `dynamodbav:"created_by"`
	DeletedAt   string `dynamodbav:"deleted_at,omitempty"`
}

func marshalLink(link *shortlink.ShortLink) (map[string]types.AttributeValue, error) {
	item := dynamoLink{
		Slug:        string(link.Slug),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:   string(link.CreatedBy),
	}
	if link.DeletedAt != nil {
		item.DeletedAt = link.DeletedAt.UTC().Format(time.RFC3339)
	}

	return attributevalue.MarshalMap(item)
}

func unmarshalLink(attrs map[string]types.AttributeValue) (*shortlink.ShortLink, error) {
	var item dynamoLink
	if err := attributevalue.UnmarshalMap(attrs, &item); err != nil {
		return nil, err
	}

	if item.Slug == "" || item.OriginalURL == "" {
		return nil, errors.New("missing required attributes")
	}

	createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	link := &shortlink.ShortLink{
		Slug:        shortlink.Slug(item.Slug),
		OriginalURL: item.OriginalURL,
		CreatedAt:   createdAt,
		CreatedBy:   shortlink.UserEmail(item.CreatedBy),
	}

	if item.DeletedAt != "" {
		deletedAt, err := time.Parse(time.RFC3339, item.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("parse deleted_at: %w", err)
		}

		link.DeletedAt = &deletedAt
	}

	return link, nil
}

func (d *DynamoStore) Get(ctx context.Context, slug shortlink.Slug) (*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.linksTable),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: string(slug)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get: %w", err)
	}

	if len(out.Item) == 0 {
		return nil, shortlink.ErrNotFound
	}

	link, err := unmarshalLink(out.Item)
	if err != nil {
		return nil, fmt.Errorf("dynamo get: %w", err)
	}

	if link.DeletedAt != nil {
		return nil, shortlink.ErrNotFound
	}

	return link, nil
}

func (d *DynamoStore) Put(ctx context.Context, link *shortlink.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	item, err := marshalLink(link)
	if err != nil {
		return fmt.Errorf("dynamo put marshal: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.linksTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(slug)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return shortlink.ErrAlreadyExists
		}

		return fmt.Errorf("dynamo put: %w", err)
	}

	return nil
}

func (d *DynamoStore) List(ctx context.Context, limit int) ([]*shortlink.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.linksTable),
		Limit:     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo scan: %w", err)
	}

	links := make([]*shortlink.ShortLink, 0, len(out.Items))

	for _, item := range out.Items {
		link, err := unmarshalLink(item)
		if err != nil {
			d.logger.Warn("dropping malformed shortlink item", zap.Error(err))
			continue
		}

		if link.DeletedAt != nil {
			continue
		}

		links = append(links, link)
	}

	return links, nil
}

func (d *DynamoStore) Delete(ctx context.Context, slug shortlink.Slug, deletedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.linksTable),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: string(slug)},
		},
		UpdateExpression:    aws.String("SET deleted_at = :d"),
		ConditionExpression: aws.String("attribute_exists(slug) AND attribute_not_exists(deleted_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: deletedAt.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return shortlink.ErrNotFound
		}

		return fmt.Errorf("dynamo delete: %w", err)
	}

	return nil
}

func (d *DynamoStore) IncrementCounter(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// ADD creates the item with value 1 when it does not exist yet.
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.countersTable),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression:         aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("dynamo counter increment: %w", err)
	}

	attr, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("dynamo counter increment: unexpected value attribute")
	}

	value, err := strconv.ParseUint(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dynamo counter increment: %w", err)
	}

	return value, nil
}

func isConditionalCheckFailed(err error) bool {
	var condFailed *types.ConditionalCheckFailedException

	return errors.As(err, &condFailed)
}
