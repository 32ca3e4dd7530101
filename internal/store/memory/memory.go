// Package memory implements store.FileStore.
//
// With a nil DynamoDB client it keeps files in an in-process map (the
// authoritative mode used by tests and DEV_MODE). With a client it
// persists to a DynamoDB table, relying on conditional expressions so
// that create/update/delete stay atomic per name.
package memory

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"filegate/internal/store"
)

func getTableName() *string {
	name := os.Getenv("FILES_TABLE")
	if name == "" {
		name = "FilegateFiles"
	}
	return aws.String(name)
}

type fileRecord struct {
	Name         string    `dynamodbav:"name"`
	Content      string    `dynamodbav:"content"`
	Version      int64     `dynamodbav:"version"`
	ModifiedTime time.Time `dynamodbav:"modified_time"`
}

// Store implements store.FileStore.
// If client is nil, it uses an in-memory map guarded by a mutex.
// If client is set, it uses DynamoDB (for deployed persistence).
type Store struct {
	client *dynamodb.Client

	mu    sync.RWMutex
	files map[string]*store.File
}

// NewStore creates a Store. Pass nil to run fully in-process.
func NewStore(client *dynamodb.Client) *Store {
	return &Store{
		client: client,
		files:  make(map[string]*store.File),
	}
}

func (s *Store) Create(ctx context.Context, name, content string) (*store.File, error) {
	now := time.Now()

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.files[name]; ok {
			return nil, store.ErrAlreadyExists
		}
		f := &store.File{Name: name, Content: content, Version: 0, ModifiedTime: now}
		s.files[name] = f
		cp := *f
		return &cp, nil
	}

	item, err := attributevalue.MarshalMap(fileRecord{
		Name:         name,
		Content:      content,
		Version:      0,
		ModifiedTime: now,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                getTableName(),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#n)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, err
	}

	return &store.File{Name: name, Content: content, Version: 0, ModifiedTime: now}, nil
}

func (s *Store) Read(ctx context.Context, name string) (*store.File, error) {
	if s.client == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		f, ok := s.files[name]
		if !ok {
			return nil, store.ErrNotFound
		}
		cp := *f
		return &cp, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: getTableName(),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, store.ErrNotFound
	}

	var rec fileRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return recordToFile(rec), nil
}

func (s *Store) Update(ctx context.Context, name, content string) (*store.File, error) {
	now := time.Now()

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		f, ok := s.files[name]
		if !ok {
			return nil, store.ErrNotFound
		}
		f.Content = content
		f.Version++
		f.ModifiedTime = now
		cp := *f
		return &cp, nil
	}

	// Single UpdateItem keeps the version increment atomic per name.
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: getTableName(),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression:    aws.String("SET #c = :c, #mt = :mt, #v = #v + :one"),
		ConditionExpression: aws.String("attribute_exists(#n)"),
		ExpressionAttributeNames: map[string]string{
			"#n":  "name",
			"#c":  "content",
			"#v":  "version",
			"#mt": "modified_time",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":   &types.AttributeValueMemberS{Value: content},
			":mt":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var rec fileRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, err
	}
	return recordToFile(rec), nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.files[name]; !ok {
			return store.ErrNotFound
		}
		delete(s.files, name)
		return nil
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: getTableName(),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression:      aws.String("attribute_exists(#n)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string

	if s.client == nil {
		s.mu.RLock()
		for name := range s.files {
			names = append(names, name)
		}
		s.mu.RUnlock()
		sort.Strings(names)
		return names, nil
	}

	// Scan is fine at this table's scale; names are the whole key space.
	var lastKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                getTableName(),
			ProjectionExpression:     aws.String("#n"),
			ExpressionAttributeNames: map[string]string{"#n": "name"},
			ExclusiveStartKey:        lastKey,
		})
		if err != nil {
			return nil, err
		}
		var recs []fileRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
			return nil, err
		}
		for _, rec := range recs {
			names = append(names, rec.Name)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	sort.Strings(names)
	return names, nil
}

func recordToFile(rec fileRecord) *store.File {
	return &store.File{
		Name:         rec.Name,
		Content:      rec.Content,
		Version:      rec.Version,
		ModifiedTime: rec.ModifiedTime,
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
