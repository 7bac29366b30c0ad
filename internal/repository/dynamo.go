package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"scribe/internal/model"
)

// DynamoRepository persists transcript segments in a table keyed by
// (encounter_id, sort_key) and appends recording descriptors to a list
// attribute on the encounter item.
type DynamoRepository struct {
	client          *dynamodb.Client
	transcriptTable string
	encounterTable  string
}

func NewDynamoRepository(client *dynamodb.Client, transcriptTable, encounterTable string) *DynamoRepository {
	return &DynamoRepository{
		client:          client,
		transcriptTable: transcriptTable,
		encounterTable:  encounterTable,
	}
}

type segmentItem struct {
	model.TranscriptSegment
	SortKey string `dynamodbav:"sort_key"`
}

func (r *DynamoRepository) SaveSegment(ctx context.Context, seg *model.TranscriptSegment) error {
	item := segmentItem{
		TranscriptSegment: *seg,
		SortKey:           seg.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal segment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.transcriptTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save segment: %w", err)
	}
	return nil
}

func (r *DynamoRepository) ListByEncounter(ctx context.Context, encounterID string, limit, offset int) ([]model.TranscriptSegment, error) {
	// DynamoDB has no offset; read offset+limit in key order and skip
	// client side. Fine at the page sizes the read API allows.
	want := int32(offset + limit)
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.transcriptTable),
		KeyConditionExpression: aws.String("encounter_id = :eid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":eid": &types.AttributeValueMemberS{Value: encounterID},
		},
	}
	if want > 0 {
		input.Limit = aws.Int32(want)
	}
	resp, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}

	var items []segmentItem
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal segments: %w", err)
	}
	if offset >= len(items) {
		return nil, nil
	}
	out := make([]model.TranscriptSegment, 0, len(items)-offset)
	for _, item := range items[offset:] {
		out = append(out, item.TranscriptSegment)
	}
	return out, nil
}

func (r *DynamoRepository) CountByEncounter(ctx context.Context, encounterID string) (int, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.transcriptTable),
		KeyConditionExpression: aws.String("encounter_id = :eid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":eid": &types.AttributeValueMemberS{Value: encounterID},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return int(resp.Count), nil
}

func (r *DynamoRepository) AppendRecording(ctx context.Context, encounterID string, rec model.RecordingDescriptor) error {
	av, err := attributevalue.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording descriptor: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.encounterTable),
		Key: map[string]types.AttributeValue{
			"encounter_id": &types.AttributeValueMemberS{Value: encounterID},
		},
		UpdateExpression: aws.String("SET recordings = list_append(if_not_exists(recordings, :empty), :rec)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rec":   &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to append recording to encounter %s: %w", encounterID, err)
	}
	return nil
}

func (r *DynamoRepository) ListRecordings(ctx context.Context, encounterID string) ([]model.RecordingDescriptor, error) {
	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.encounterTable),
		Key: map[string]types.AttributeValue{
			"encounter_id": &types.AttributeValueMemberS{Value: encounterID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get encounter %s: %w", encounterID, err)
	}
	if len(resp.Item) == 0 {
		return nil, nil
	}
	var item struct {
		Recordings []model.RecordingDescriptor `dynamodbav:"recordings"`
	}
	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal encounter recordings: %w", err)
	}
	return item.Recordings, nil
}
