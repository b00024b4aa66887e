package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/rag-loader/pkg/embedding"
	"github.com/andrew/rag-loader/pkg/models"
	"github.com/andrew/rag-loader/pkg/vector"
)

// recordingClient is an in-memory vector.Client that logs every call
type recordingClient struct {
	calls       []string
	batches     []vector.Batch
	collections map[string]int
	deleteErr   error
	upsertErr   error
	closeErr    error
}

func newRecordingClient(existing ...string) *recordingClient {
	c := &recordingClient{collections: map[string]int{}}
	for _, name := range existing {
		c.collections[name] = 3
	}
	return c
}

func (c *recordingClient) DeleteCollection(_ context.Context, name string) error {
	c.calls = append(c.calls, "delete")
	if c.deleteErr != nil {
		return c.deleteErr
	}
	if _, ok := c.collections[name]; !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	delete(c.collections, name)
	return nil
}

func (c *recordingClient) CreateCollection(_ context.Context, name string, size int, distance vector.Distance) error {
	c.calls = append(c.calls, "create")
	if _, ok := c.collections[name]; ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}
	if distance != vector.DistanceCosine {
		return errors.New("unexpected distance")
	}
	c.collections[name] = size
	return nil
}

func (c *recordingClient) Upsert(_ context.Context, _ string, batch vector.Batch) error {
	c.calls = append(c.calls, "upsert")
	if c.upsertErr != nil {
		return c.upsertErr
	}
	c.batches = append(c.batches, batch)
	return nil
}

func (c *recordingClient) Close() error {
	c.calls = append(c.calls, "close")
	return c.closeErr
}

func dialerFor(c *recordingClient, seen *vector.Config) vector.Dialer {
	return func(_ context.Context, cfg vector.Config) (vector.Client, error) {
		if seen != nil {
			*seen = cfg
		}
		c.calls = append(c.calls, "connect")
		return c, nil
	}
}

func makeTable(n, dim int) models.Table {
	table := make(models.Table, n)
	for i := range table {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i + j)
		}
		content := fmt.Sprintf("chunk %d", i+1)
		table[i] = models.Record{
			ID:          uint64(i + 1),
			PageContent: content,
			Payload:     models.NewPayload(content, nil),
			Embeddings:  vec,
		}
	}
	return table
}

func baseRequest() Request {
	return Request{
		URL:        "http://localhost:6334",
		Credential: "token",
		Collection: "docs",
		VectorSize: 4,
		BatchSize:  10,
	}
}

func TestCreateNewCollection_OnlyUpsert(t *testing.T) {
	client := newRecordingClient("docs")
	var cfg vector.Config
	var out bytes.Buffer

	result, err := CreateNewCollection(context.Background(), dialerFor(client, &cfg), baseRequest(), makeTable(3, 4), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"connect", "upsert", "close"}, client.calls)
	assert.Equal(t, vector.Config{URL: "http://localhost:6334", APIKey: "token"}, cfg)
	assert.Equal(t, Result{Upserted: 3, Batches: 1}, result)
	assert.Contains(t, out.String(), "Collection docs created and updated with the embeddings")
}

func TestCreateNewCollection_DeleteAndCreate(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.DeletePrev = true
	req.CreateFromScratch = true

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(2, 4), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"connect", "delete", "create", "upsert", "close"}, client.calls)
	assert.Equal(t, 4, client.collections["docs"])
}

func TestCreateNewCollection_DeleteMissingIsNoop(t *testing.T) {
	client := newRecordingClient()
	req := baseRequest()
	req.DeletePrev = true
	req.CreateFromScratch = true

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(1, 4), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"connect", "delete", "create", "upsert", "close"}, client.calls)
}

func TestCreateNewCollection_DeleteFailureStops(t *testing.T) {
	client := newRecordingClient("docs")
	client.deleteErr = fmt.Errorf("%w: refused", vector.ErrConnection)
	req := baseRequest()
	req.DeletePrev = true

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(1, 4), nil)
	assert.ErrorIs(t, err, vector.ErrConnection)
	assert.Equal(t, []string{"connect", "delete", "close"}, client.calls)
}

func TestCreateNewCollection_DeleteServerErrorStops(t *testing.T) {
	client := newRecordingClient("docs")
	client.deleteErr = errors.New("failed to delete collection docs: storage error: disk full")
	req := baseRequest()
	req.DeletePrev = true

	result, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(1, 4), nil)
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, result.Upserted)
	assert.Equal(t, []string{"connect", "delete", "close"}, client.calls)
}

func TestCreateNewCollection_CreateExisting(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.CreateFromScratch = true

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(1, 4), nil)
	assert.ErrorIs(t, err, vector.ErrCollectionExists)
	assert.Equal(t, []string{"connect", "create", "close"}, client.calls)
}

func TestCreateNewCollection_FirstBatchOnly(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.BatchSize = 4
	req.FirstBatchOnly = true
	table := makeTable(10, 4)

	result, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, table, nil)
	require.NoError(t, err)

	require.Len(t, client.batches, 1)
	batch := client.batches[0]
	assert.Equal(t, []uint64{1, 2, 3, 4}, batch.IDs)
	assert.Equal(t, table.Head(4).Payloads(), batch.Payloads)
	assert.Equal(t, table.Head(4).Vectors(), batch.Vectors)
	assert.Equal(t, Result{Upserted: 4, Batches: 1}, result)
}

func TestCreateNewCollection_FirstBatchOnly_SmallTable(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.FirstBatchOnly = true

	result, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(3, 4), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Upserted)
	assert.Len(t, client.batches, 1)
}

func TestCreateNewCollection_AllBatches(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.BatchSize = 4

	result, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(10, 4), nil)
	require.NoError(t, err)

	assert.Equal(t, Result{Upserted: 10, Batches: 3}, result)
	require.Len(t, client.batches, 3)
	assert.Equal(t, []uint64{1, 2, 3, 4}, client.batches[0].IDs)
	assert.Equal(t, []uint64{5, 6, 7, 8}, client.batches[1].IDs)
	assert.Equal(t, []uint64{9, 10}, client.batches[2].IDs)
}

func TestCreateNewCollection_DimensionMismatch(t *testing.T) {
	client := newRecordingClient("docs")
	req := baseRequest()
	req.VectorSize = 5

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), req, makeTable(2, 4), nil)
	assert.ErrorIs(t, err, vector.ErrUpsert)
	assert.Empty(t, client.calls)
}

func TestCreateNewCollection_UpsertFailureClosesConnection(t *testing.T) {
	client := newRecordingClient("docs")
	client.upsertErr = fmt.Errorf("%w: bad vector", vector.ErrUpsert)

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), baseRequest(), makeTable(2, 4), nil)
	assert.ErrorIs(t, err, vector.ErrUpsert)
	assert.Equal(t, []string{"connect", "upsert", "close"}, client.calls)
}

func TestCreateNewCollection_CloseError(t *testing.T) {
	client := newRecordingClient("docs")
	client.closeErr = errors.New("close failed")

	_, err := CreateNewCollection(context.Background(), dialerFor(client, nil), baseRequest(), makeTable(1, 4), nil)
	assert.ErrorContains(t, err, "close failed")
}

func TestCreateNewCollection_ConnectionError(t *testing.T) {
	dial := func(context.Context, vector.Config) (vector.Client, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := CreateNewCollection(context.Background(), dial, baseRequest(), makeTable(1, 4), nil)
	assert.ErrorIs(t, err, vector.ErrConnection)
}

func TestRequest_Validate(t *testing.T) {
	req := baseRequest()
	assert.NoError(t, req.Validate())

	req.Collection = ""
	assert.Error(t, req.Validate())

	req = baseRequest()
	req.BatchSize = 0
	assert.Error(t, req.Validate())

	req = baseRequest()
	req.VectorSize = 0
	req.CreateFromScratch = true
	assert.Error(t, req.Validate())
}

func TestEndToEnd_BuildAndLoad(t *testing.T) {
	docs := []models.Document{
		{PageContent: "a\nb", Metadata: map[string]any{"source": "x"}},
		{PageContent: "c", Metadata: map[string]any{"source": "y"}},
		{PageContent: "d\n\ne", Metadata: map[string]any{"source": "z"}},
	}
	model := embedding.EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text)), 1, 0, 0}, nil
	})

	table, err := embedding.BuildTable(context.Background(), docs, model, embedding.WithDimension(4))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, table.IDs())

	client := newRecordingClient("docs")
	req := baseRequest()
	req.FirstBatchOnly = true

	_, err = CreateNewCollection(context.Background(), dialerFor(client, nil), req, table, nil)
	require.NoError(t, err)

	require.Len(t, client.batches, 1)
	batch := client.batches[0]
	assert.Equal(t, []uint64{1, 2, 3}, batch.IDs)
	assert.Len(t, batch.Payloads, 3)
	assert.Len(t, batch.Vectors, 3)
	assert.Equal(t, "a b", batch.Payloads[0]["page_content"])
	assert.Equal(t, "d  e", batch.Payloads[2]["page_content"])
}
