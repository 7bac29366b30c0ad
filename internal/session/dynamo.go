package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"scribe/internal/model"
)

const (
	kindRecording     = "recording"
	kindTranscription = "transcription"
)

// DynamoStore persists sessions in a single DynamoDB table keyed by
// session_id, with a kind attribute separating the two session types and a
// TTL on expires_at. Reads are strongly consistent; Update is a conditional
// put so a vanished (finalized or expired) session surfaces ErrNotFound.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

type recordingItem struct {
	model.RecordingSession
	Kind string `dynamodbav:"kind"`
}

type transcriptionItem struct {
	model.TranscriptionSession
	Kind string `dynamodbav:"kind"`
}

func (s *DynamoStore) put(ctx context.Context, item any, mustExist bool) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}
	if mustExist {
		input.ConditionExpression = aws.String("attribute_exists(session_id)")
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

func (s *DynamoStore) get(ctx context.Context, id string, out any) error {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            sessionKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if len(resp.Item) == 0 {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return nil
}

func (s *DynamoStore) delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       sessionKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) PutRecording(ctx context.Context, sess *model.RecordingSession) error {
	return s.put(ctx, recordingItem{RecordingSession: *sess, Kind: kindRecording}, false)
}

func (s *DynamoStore) GetRecording(ctx context.Context, id string) (*model.RecordingSession, error) {
	var item recordingItem
	if err := s.get(ctx, id, &item); err != nil {
		return nil, err
	}
	if item.Kind != kindRecording {
		return nil, ErrNotFound
	}
	return &item.RecordingSession, nil
}

func (s *DynamoStore) UpdateRecording(ctx context.Context, sess *model.RecordingSession) error {
	return s.put(ctx, recordingItem{RecordingSession: *sess, Kind: kindRecording}, true)
}

func (s *DynamoStore) DeleteRecording(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *DynamoStore) PutTranscription(ctx context.Context, sess *model.TranscriptionSession) error {
	return s.put(ctx, transcriptionItem{TranscriptionSession: *sess, Kind: kindTranscription}, false)
}

func (s *DynamoStore) GetTranscription(ctx context.Context, id string) (*model.TranscriptionSession, error) {
	var item transcriptionItem
	if err := s.get(ctx, id, &item); err != nil {
		return nil, err
	}
	if item.Kind != kindTranscription {
		return nil, ErrNotFound
	}
	return &item.TranscriptionSession, nil
}

func (s *DynamoStore) UpdateTranscription(ctx context.Context, sess *model.TranscriptionSession) error {
	return s.put(ctx, transcriptionItem{TranscriptionSession: *sess, Kind: kindTranscription}, true)
}

func (s *DynamoStore) DeleteTranscription(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}
