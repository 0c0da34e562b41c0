package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const dynamoKey = "user_id"

// dynamoAPI is the part of *dynamodb.Client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore keeps each user's document as one DynamoDB item keyed by user_id.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// NewDynamoStoreFromEnv builds a client from the default AWS credential chain.
func NewDynamoStoreFromEnv(ctx context.Context, tableName string) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName), nil
}

func (s *DynamoStore) key(userID string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		dynamoKey: &dynamodbtypes.AttributeValueMemberS{Value: userID},
	}
}

// Get implements DocumentStore.
func (s *DynamoStore) Get(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if result.Item == nil {
		return Document{}, nil
	}

	doc := Document{}
	if err := attributevalue.UnmarshalMap(result.Item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	delete(doc, dynamoKey)
	return doc, nil
}

// Merge implements DocumentStore with a single UpdateItem SET expression, so
// attributes not named in fields are preserved server-side.
func (s *DynamoStore) Merge(ctx context.Context, userID string, fields Document) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		if k == dynamoKey {
			return fmt.Errorf("field %q is reserved", dynamoKey)
		}
		names = append(names, k)
	}
	slices.Sort(names)

	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]dynamodbtypes.AttributeValue, len(names))
	expr := "SET "
	for i, name := range names {
		av, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		exprNames[n] = name
		exprValues[v] = av
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(userID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}
