package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoPutter interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type processedItem struct {
	EventKey    string `dynamodbav:"eventKey"`
	Provider    string `dynamodbav:"provider"`
	EventID     string `dynamodbav:"eventId"`
	ProcessedAt string `dynamodbav:"processedAt"`
	ExpiresAt   int64  `dynamodbav:"expiresAt"`
}

// DynamoStore dedupes with a conditional PutItem. The table's TTL
// attribute should be set to expiresAt.
type DynamoStore struct {
	client    dynamoPutter
	tableName string
	retention time.Duration
	now       func() time.Time
}

var _ Deduper = (*DynamoStore)(nil)

func NewDynamoStore(client dynamoPutter, tableName string, retention time.Duration) *DynamoStore {
	if client == nil {
		panic("events: dynamodb client required")
	}
	if tableName == "" {
		panic("events: table name cannot be empty")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &DynamoStore{client: client, tableName: tableName, retention: retention, now: time.Now}
}

func (s *DynamoStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(processedItem{
		EventKey:    provider + "#" + eventID,
		Provider:    provider,
		EventID:     eventID,
		ProcessedAt: now.Format(time.RFC3339Nano),
		ExpiresAt:   now.Add(s.retention).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("events: marshal processed item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(eventKey)"),
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			return false, nil
		}
		return false, fmt.Errorf("events: dynamodb mark processed: %w", err)
	}
	return true, nil
}
