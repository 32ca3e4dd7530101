// Package broker serializes non-admin mutation intents and gates them
// behind admin approval. The broker owns request records exclusively;
// executing an approved action against the file store is the command
// engine's job, so queue operations never block unrelated file reads.
package broker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"filegate/internal/model"
)

// counterID is the reserved id of the allocator item in DynamoDB mode.
const counterID = 0

func getTableName() *string {
	name := os.Getenv("REQUESTS_TABLE")
	if name == "" {
		name = "FilegateRequests"
	}
	return aws.String(name)
}

// Broker is the pending change-request queue.
// If client is nil, requests live in an in-process slice guarded by a
// mutex. If client is set, requests persist to DynamoDB with ids
// allocated from an atomic counter item and the pending -> terminal
// transition enforced by a conditional update.
type Broker struct {
	client *dynamodb.Client

	mu     sync.Mutex
	nextID int64
	order  []int64
	byID   map[int64]*model.ChangeRequest
}

// NewBroker creates a Broker. Pass nil to run fully in-process.
func NewBroker(client *dynamodb.Client) *Broker {
	return &Broker{
		client: client,
		byID:   make(map[int64]*model.ChangeRequest),
	}
}

// Submit validates and enqueues a change request with a fresh,
// strictly increasing id and status pending. Content must be non-nil
// for CREATE and EDIT.
func (b *Broker) Submit(ctx context.Context, requester, action, filename string, content *string) (*model.ChangeRequest, error) {
	act, ok := model.ParseRequestAction(action)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if act.NeedsContent() && content == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingContent, act)
	}

	req := &model.ChangeRequest{
		Requester: requester,
		Action:    act,
		Filename:  filename,
		Content:   content,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}

	if b.client == nil {
		b.mu.Lock()
		b.nextID++
		req.ID = b.nextID
		b.order = append(b.order, req.ID)
		b.byID[req.ID] = req
		b.mu.Unlock()
		cp := *req
		return &cp, nil
	}

	id, err := b.allocateID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate request id: %w", err)
	}
	req.ID = id

	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return nil, err
	}
	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: getTableName(),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store request: %w", err)
	}
	return req, nil
}

// List returns requests in submission order (ascending id). A non-empty
// status filters the result; resolved requests are retained and listed.
func (b *Broker) List(ctx context.Context, status model.RequestStatus) ([]model.ChangeRequest, error) {
	if b.client == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]model.ChangeRequest, 0, len(b.order))
		for _, id := range b.order {
			req := b.byID[id]
			if status != "" && req.Status != status {
				continue
			}
			out = append(out, *req)
		}
		return out, nil
	}

	var reqs []model.ChangeRequest
	var lastKey map[string]types.AttributeValue
	for {
		out, err := b.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         getTableName(),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		var page []model.ChangeRequest
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for _, req := range page {
			if req.ID == counterID {
				continue
			}
			if status != "" && req.Status != status {
				continue
			}
			reqs = append(reqs, req)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	if reqs == nil {
		reqs = []model.ChangeRequest{}
	}
	return reqs, nil
}

// Resolve moves the request out of pending exactly once and returns
// its updated record. A second resolution of the same id fails with
// ErrAlreadyResolved regardless of interleaving.
func (b *Broker) Resolve(ctx context.Context, id int64, approve bool) (*model.ChangeRequest, error) {
	newStatus := model.StatusRejected
	if approve {
		newStatus = model.StatusApproved
	}

	if b.client == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		req, ok := b.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: #%d", ErrNotFound, id)
		}
		if req.Status != model.StatusPending {
			return nil, fmt.Errorf("%w: #%d is %s", ErrAlreadyResolved, id, req.Status)
		}
		req.Status = newStatus
		cp := *req
		return &cp, nil
	}

	// Existence first so a missing id is NotFound, not AlreadyResolved.
	got, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: getTableName(),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, err
	}
	if got.Item == nil {
		return nil, fmt.Errorf("%w: #%d", ErrNotFound, id)
	}

	out, err := b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           getTableName(),
		Key:                 idKey(id),
		UpdateExpression:    aws.String("SET #s = :new"),
		ConditionExpression: aws.String("#s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":     &types.AttributeValueMemberS{Value: string(newStatus)},
			":pending": &types.AttributeValueMemberS{Value: string(model.StatusPending)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("%w: #%d", ErrAlreadyResolved, id)
		}
		return nil, err
	}

	var req model.ChangeRequest
	if err := attributevalue.UnmarshalMap(out.Attributes, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (b *Broker) allocateID(ctx context.Context) (int64, error) {
	out, err := b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        getTableName(),
		Key:              idKey(counterID),
		UpdateExpression: aws.String("ADD next_id :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	next, ok := out.Attributes["next_id"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("unexpected counter attribute %v", out.Attributes["next_id"])
	}
	return strconv.ParseInt(next.Value, 10, 64)
}

func idKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}
