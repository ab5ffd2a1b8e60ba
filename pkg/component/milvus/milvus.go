// Package milvus wraps the Milvus v2 SDK with the collection layout used by
// the knowledge base: a VarChar primary key, one float vector field and a set
// of VarChar metadata fields.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/pawcare/pkg/options/milvus"
)

const (
	// FieldID is the primary key field.
	FieldID = "id"
	// FieldEmbedding is the vector field.
	FieldEmbedding = "embedding"

	idMaxLen = 128
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options

	// loaded 记录本进程已加载到内存的集合。
	loaded sync.Map
	loader func(ctx context.Context, name string) error
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	cli := &Client{client: c, opts: opts}
	cli.loader = cli.load
	return cli, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	MetaFields  []MetaField
}

// MetaField is a VarChar metadata field.
type MetaField struct {
	Name   string
	MaxLen int
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// CreateCollection creates the collection, a COSINE IVF_FLAT index, and
// loads it. An existing collection is only loaded.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.HasCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		return c.ensureLoaded(ctx, schema.Name)
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(idMaxLen).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)))

	for _, f := range schema.MetaFields {
		collSchema.WithField(entity.NewField().
			WithName(f.Name).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(f.MaxLen)))
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.ensureLoaded(ctx, schema.Name)
}

// ensureLoaded loads the collection the first time this client uses it.
func (c *Client) ensureLoaded(ctx context.Context, name string) error {
	if _, ok := c.loaded.Load(name); ok {
		return nil
	}
	if err := c.loader(ctx, name); err != nil {
		return err
	}
	c.loaded.Store(name, struct{}{})
	return nil
}

func (c *Client) load(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Rows is a column-oriented batch keyed by primary key.
type Rows struct {
	IDs        []string
	Embeddings [][]float32
	Metadata   map[string][]string
}

// Upsert writes the rows, replacing any existing rows with the same IDs, and
// flushes so they are searchable immediately.
func (c *Client) Upsert(ctx context.Context, collectionName string, rows *Rows) (int64, error) {
	if len(rows.IDs) == 0 {
		return 0, nil
	}
	if len(rows.Embeddings) != len(rows.IDs) {
		return 0, fmt.Errorf("upsert: %d ids but %d embeddings", len(rows.IDs), len(rows.Embeddings))
	}

	columns := make([]column.Column, 0, len(rows.Metadata)+2)
	columns = append(columns,
		column.NewColumnVarChar(FieldID, rows.IDs),
		column.NewColumnFloatVector(FieldEmbedding, len(rows.Embeddings[0]), rows.Embeddings),
	)
	for name, values := range rows.Metadata {
		if len(values) != len(rows.IDs) {
			return 0, fmt.Errorf("upsert: field %s has %d values, want %d", name, len(values), len(rows.IDs))
		}
		columns = append(columns, column.NewColumnVarChar(name, values))
	}

	result, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return 0, fmt.Errorf("failed to wait for flush: %w", err)
	}

	return result.UpsertCount, nil
}

// Hit is a single search hit.
type Hit struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Search performs a COSINE similarity search. Hits come back in the order
// Milvus returns them (descending similarity).
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]Hit, error) {
	if err := c.ensureLoaded(ctx, collectionName); err != nil {
		return nil, err
	}

	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []Hit{}, nil
	}
	rs := results[0]
	if rs.Err != nil {
		return nil, fmt.Errorf("failed to search: %w", rs.Err)
	}

	hits := make([]Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := Hit{
			Score:    rs.Scores[i],
			Metadata: make(map[string]string, len(outputFields)),
		}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			if col, ok := field.(*column.ColumnVarChar); ok {
				hit.Metadata[col.Name()] = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DropCollection drops a collection if it exists.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	exists, err := c.HasCollection(ctx, collectionName)
	if err != nil || !exists {
		return err
	}
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	c.loaded.Delete(collectionName)
	return nil
}

// RowCount returns the number of entities in a collection.
func (c *Client) RowCount(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
