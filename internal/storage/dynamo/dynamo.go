// Package dynamo stores tables in a single Amazon DynamoDB table.
//
// Table records live in the "TABLE" partition keyed by table id. Every column,
// row and cell of a table shares the partition "table#<tableID>" with a sort key
// of "<kind>#<id>", so one Query with begins_with(sk) loads a kind at a time.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/leengari/dyntable/internal/storage"
)

const tablePartition = "TABLE"

// API is the part of *dynamodb.Client the gateway calls
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// item is the stored shape of a storage.Record
type item struct {
	PK          string    `dynamodbav:"pk"`
	SK          string    `dynamodbav:"sk"`
	Kind        string    `dynamodbav:"kind"`
	ID          string    `dynamodbav:"id"`
	TableID     string    `dynamodbav:"table_id,omitempty"`
	RowID       string    `dynamodbav:"row_id,omitempty"`
	ColumnID    string    `dynamodbav:"column_id,omitempty"`
	Name        string    `dynamodbav:"name,omitempty"`
	Description string    `dynamodbav:"description,omitempty"`
	DataType    string    `dynamodbav:"data_type,omitempty"`
	Seq         int64     `dynamodbav:"seq,omitempty"`
	Value       string    `dynamodbav:"value"`
	Null        bool      `dynamodbav:"null,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

// Gateway implements storage.Gateway on top of DynamoDB
type Gateway struct {
	client API
	config Config
	logger *slog.Logger
}

// New creates a gateway. A nil logger uses slog.Default().
func New(client API, config Config, logger *slog.Logger) *Gateway {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		client: client,
		config: config,
		logger: logger,
	}
}

// key computes the partition and sort key of a record
func key(kind storage.Kind, id, tableID string) (pk, sk string) {
	if kind == storage.KindTable {
		return tablePartition, id
	}
	return "table#" + tableID, string(kind) + "#" + id
}

func keyAttrs(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

func toItem(rec storage.Record) item {
	pk, sk := key(rec.Kind, rec.ID, rec.TableID)
	it := item{
		PK:          pk,
		SK:          sk,
		Kind:        string(rec.Kind),
		ID:          rec.ID,
		TableID:     rec.TableID,
		RowID:       rec.RowID,
		ColumnID:    rec.ColumnID,
		Name:        rec.Name,
		Description: rec.Description,
		DataType:    rec.DataType,
		Seq:         rec.Seq,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.Value != nil {
		it.Value = *rec.Value
	} else {
		it.Null = true
	}
	return it
}

func (it item) record() storage.Record {
	rec := storage.Record{
		Kind:        storage.Kind(it.Kind),
		ID:          it.ID,
		TableID:     it.TableID,
		RowID:       it.RowID,
		ColumnID:    it.ColumnID,
		Name:        it.Name,
		Description: it.Description,
		DataType:    it.DataType,
		Seq:         it.Seq,
		CreatedAt:   it.CreatedAt,
	}
	if !it.Null {
		rec.Value = storage.StringPtr(it.Value)
	}
	return rec
}

// Create puts a record that must not exist yet
func (g *Gateway) Create(ctx context.Context, rec storage.Record) error {
	return g.put(ctx, storage.OpCreate, rec, "attribute_not_exists(pk)", storage.ErrAlreadyExists)
}

// Update replaces a record that must already exist
func (g *Gateway) Update(ctx context.Context, rec storage.Record) error {
	return g.put(ctx, storage.OpUpdate, rec, "attribute_exists(pk)", storage.ErrNotFound)
}

func (g *Gateway) put(ctx context.Context, op string, rec storage.Record, cond string, condErr error) error {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return storage.NewError(op, rec.Kind, rec.ID, fmt.Errorf("marshal item: %w", err))
	}

	_, err = g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(g.config.Table),
		Item:                av,
		ConditionExpression: aws.String(cond),
	})
	if err != nil {
		return storage.NewError(op, rec.Kind, rec.ID, mapConditionError(err, condErr))
	}
	return nil
}

// Delete removes a record that must exist
func (g *Gateway) Delete(ctx context.Context, rec storage.Record) error {
	pk, sk := key(rec.Kind, rec.ID, rec.TableID)
	_, err := g.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(g.config.Table),
		Key:                 keyAttrs(pk, sk),
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	if err != nil {
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, mapConditionError(err, storage.ErrNotFound))
	}
	return nil
}

// Read fetches by id when a table id alone is asked for, and otherwise queries
// the partitions the filter can touch. Name and id filters are applied here.
func (g *Gateway) Read(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	out, err := g.read(ctx, filter)
	if err != nil {
		return nil, storage.NewError(storage.OpRead, filter.Kind, filter.ID, err)
	}
	return out, nil
}

func (g *Gateway) read(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	if filter.Kind == storage.KindTable && filter.ID != "" {
		rec, found, err := g.get(ctx, tablePartition, filter.ID)
		if err != nil || !found || !filter.Matches(rec) {
			return []storage.Record{}, err
		}
		return []storage.Record{rec}, nil
	}

	tables, err := g.query(ctx, tablePartition, "")
	if err != nil {
		return nil, err
	}

	out := []storage.Record{}
	if filter.Kind == storage.KindTable || filter.Kind == "" {
		for _, rec := range tables {
			if filter.Matches(rec) {
				out = append(out, rec)
			}
		}
		if filter.Kind == storage.KindTable {
			return out, nil
		}
	}

	var tableIDs []string
	if filter.TableID != "" {
		tableIDs = []string{filter.TableID}
	} else {
		for _, rec := range tables {
			tableIDs = append(tableIDs, rec.ID)
		}
	}

	prefix := ""
	if filter.Kind != "" {
		prefix = string(filter.Kind) + "#"
	}
	for _, id := range tableIDs {
		recs, err := g.query(ctx, "table#"+id, prefix)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if filter.Matches(rec) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (g *Gateway) get(ctx context.Context, pk, sk string) (storage.Record, bool, error) {
	result, err := g.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(g.config.Table),
		Key:       keyAttrs(pk, sk),
	})
	if err != nil {
		return storage.Record{}, false, err
	}
	if result.Item == nil {
		return storage.Record{}, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return storage.Record{}, false, fmt.Errorf("unmarshal item: %w", err)
	}
	return it.record(), true, nil
}

// query reads every item of a partition, optionally restricted to a sort key prefix
func (g *Gateway) query(ctx context.Context, pk, prefix string) ([]storage.Record, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(g.config.Table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	}
	if prefix != "" {
		input.KeyConditionExpression = aws.String("pk = :pk AND begins_with(sk, :prefix)")
		input.ExpressionAttributeValues[":prefix"] = &types.AttributeValueMemberS{Value: prefix}
	}
	if g.config.PageSize > 0 {
		input.Limit = aws.Int32(g.config.PageSize)
	}

	var recs []storage.Record
	pages := 0
	paginator := dynamodb.NewQueryPaginator(g.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		pages++

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, it := range items {
			recs = append(recs, it.record())
		}
	}

	g.logger.Debug("dynamodb query",
		slog.String("pk", pk),
		slog.String("prefix", prefix),
		slog.Int("pages", pages),
		slog.Int("items", len(recs)),
	)
	return recs, nil
}

// mapConditionError turns a failed condition into the matching storage sentinel
func mapConditionError(err, sentinel error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s", sentinel, condErr.ErrorMessage())
	}
	return err
}
