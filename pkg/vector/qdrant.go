package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrew/rag-loader/pkg/logging"
	"github.com/andrew/rag-loader/pkg/models"
)

const (
	// Qdrant gRPC port; the Go client does not speak the REST API
	DefaultGRPCPort = 6334
	restPort        = 6333

	maxRecvMsgSize = 64 << 20
)

// qdrantAPI is the subset of *qdrantclient.Client used here
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrantclient.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrantclient.UpsertPoints) (*qdrantclient.UpdateResult, error)
	Query(ctx context.Context, request *qdrantclient.QueryPoints) ([]*qdrantclient.ScoredPoint, error)
	Close() error
}

// QdrantStore implements Client and Searcher on top of the Qdrant gRPC API
type QdrantStore struct {
	api qdrantAPI
}

var (
	_ Client   = (*QdrantStore)(nil)
	_ Searcher = (*QdrantStore)(nil)
)

// Endpoint is a parsed Qdrant URL
type Endpoint struct {
	Host   string
	Port   int
	UseTLS bool
}

// ParseEndpoint splits a database URL into host, gRPC port and TLS mode.
// The REST port 6333 is mapped to the gRPC port.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid Qdrant URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid Qdrant URL %q: missing host", raw)
	}

	ep := Endpoint{
		Host:   u.Hostname(),
		Port:   DefaultGRPCPort,
		UseTLS: u.Scheme == "https",
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid Qdrant port %q: %w", p, err)
		}
		ep.Port = port
	}
	if ep.Port == restPort {
		logging.Debugf("⚠️ Port %d is Qdrant's REST port, using gRPC port %d", restPort, DefaultGRPCPort)
		ep.Port = DefaultGRPCPort
	}
	return ep, nil
}

// DialQdrant connects to Qdrant and checks the server answers. It matches
// the Dialer signature.
func DialQdrant(ctx context.Context, cfg Config) (Client, error) {
	return DialQdrantStore(ctx, cfg)
}

// DialQdrantStore is DialQdrant returning the concrete store
func DialQdrantStore(ctx context.Context, cfg Config) (*QdrantStore, error) {
	ep, err := ParseEndpoint(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	client, err := qdrantclient.NewClient(&qdrantclient.Config{
		Host:                   ep.Host,
		Port:                   ep.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 ep.UseTLS,
		SkipCompatibilityCheck: true,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to Qdrant at %s:%d: %v", ErrConnection, ep.Host, ep.Port, err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: Qdrant at %s:%d is not healthy: %v", ErrConnection, ep.Host, ep.Port, err)
	}

	logging.Debugf("✅ Connected to Qdrant at %s:%d", ep.Host, ep.Port)
	return &QdrantStore{api: client}, nil
}

// DeleteCollection removes the named collection
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.api.CollectionExists(ctx, name)
	if err != nil {
		return classify(err, ErrConnection)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	logging.Debugf("🗑️ Deleting existing collection: %s", name)
	if err := s.api.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, classify(err, nil))
	}
	return nil
}

// CreateCollection creates a collection with the given vector size and metric
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, vectorSize int, distance Distance) error {
	if vectorSize <= 0 {
		return fmt.Errorf("invalid vector size %d for collection %s", vectorSize, name)
	}
	dist, err := toQdrantDistance(distance)
	if err != nil {
		return err
	}

	exists, err := s.api.CollectionExists(ctx, name)
	if err != nil {
		return classify(err, ErrConnection)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	logging.Debugf("🆕 Creating new collection: %s", name)
	err = s.api.CreateCollection(ctx, &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrantclient.NewVectorsConfig(&qdrantclient.VectorParams{
			Size:     uint64(vectorSize),
			Distance: dist,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, classify(err, nil))
	}

	logging.Debugf("✅ Collection '%s' created successfully", name)
	return nil
}

// Upsert writes the batch as one request and waits for it to be applied
func (s *QdrantStore) Upsert(ctx context.Context, collection string, batch Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	points := make([]*qdrantclient.PointStruct, batch.Len())
	for i, id := range batch.IDs {
		payload, err := toPayload(batch.Payloads[i])
		if err != nil {
			return fmt.Errorf("%w: payload for point %d: %v", ErrUpsert, id, err)
		}
		points[i] = &qdrantclient.PointStruct{
			Id:      qdrantclient.NewIDNum(id),
			Vectors: qdrantclient.NewVectors(batch.Vectors[i]...),
			Payload: payload,
		}
	}

	logging.Debugf("📤 Upserting batch of %d points", len(points))
	_, err := s.api.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           qdrantclient.PtrOf(true),
	})
	if err != nil {
		return classify(err, ErrUpsert)
	}
	return nil
}

// Search returns the limit points closest to vector
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchResult, error) {
	points, err := s.api.Query(ctx, &qdrantclient.QueryPoints{
		CollectionName: collection,
		Query:          qdrantclient.NewQuery(vector...),
		Limit:          qdrantclient.PtrOf(uint64(limit)),
		WithPayload:    qdrantclient.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search in Qdrant: %w", classify(err, ErrConnection))
	}

	logging.Debugf("🔍 Found %d relevant chunks in Qdrant", len(points))

	now := time.Now()
	results := make([]models.SearchResult, 0, len(points))
	for _, point := range points {
		result := models.SearchResult{
			ID:          point.GetId().GetNum(),
			Score:       point.GetScore(),
			RetrievedAt: now,
		}
		if v, ok := point.Payload[models.PayloadPageContent]; ok {
			result.PageContent = v.GetStringValue()
		}
		if v, ok := point.Payload[models.PayloadMetadata]; ok {
			if meta, ok := fromValue(v).(map[string]any); ok {
				result.Metadata = meta
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Close releases the gRPC connection
func (s *QdrantStore) Close() error {
	return s.api.Close()
}

func toQdrantDistance(d Distance) (qdrantclient.Distance, error) {
	switch d {
	case DistanceCosine, "":
		return qdrantclient.Distance_Cosine, nil
	case DistanceDot:
		return qdrantclient.Distance_Dot, nil
	case DistanceEuclid:
		return qdrantclient.Distance_Euclid, nil
	default:
		return qdrantclient.Distance_UnknownDistance, fmt.Errorf("unsupported distance %q", d)
	}
}

// classify maps gRPC status codes onto the boundary errors, falling back to
// fallback for anything it does not recognise. A nil fallback returns err as is.
func classify(err error, fallback error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied, codes.DeadlineExceeded:
			return fmt.Errorf("%w: %v", ErrConnection, err)
		case codes.NotFound:
			return fmt.Errorf("%w: %v", ErrCollectionNotFound, err)
		case codes.AlreadyExists:
			return fmt.Errorf("%w: %v", ErrCollectionExists, err)
		}
	}
	if fallback == nil {
		return err
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

// toPayload converts a record payload into Qdrant values
func toPayload(payload map[string]any) (map[string]*qdrantclient.Value, error) {
	m := make(map[string]*qdrantclient.Value, len(payload))
	for k, v := range payload {
		value, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		m[k] = value
	}
	return m, nil
}

// toValue converts a payload value. Typed slices and maps the client does not
// know about go through JSON first.
func toValue(v any) (*qdrantclient.Value, error) {
	switch val := v.(type) {
	case []string:
		values := make([]*qdrantclient.Value, len(val))
		for i, s := range val {
			values[i] = qdrantclient.NewValueString(s)
		}
		return qdrantclient.NewValueList(&qdrantclient.ListValue{Values: values}), nil
	case []any:
		values := make([]*qdrantclient.Value, len(val))
		for i, item := range val {
			value, err := toValue(item)
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return qdrantclient.NewValueList(&qdrantclient.ListValue{Values: values}), nil
	case map[string]any:
		fields, err := toPayload(val)
		if err != nil {
			return nil, err
		}
		return qdrantclient.NewValueStruct(&qdrantclient.Struct{Fields: fields}), nil
	}

	if value, err := qdrantclient.NewValue(v); err == nil {
		return value, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported payload value %T: %w", v, err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("unsupported payload value %T: %w", v, err)
	}
	return toValue(decoded)
}

// fromValue converts a payload value back to plain Go values
func fromValue(v *qdrantclient.Value) any {
	switch v.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return v.GetStringValue()
	case *qdrantclient.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrantclient.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrantclient.Value_BoolValue:
		return v.GetBoolValue()
	case *qdrantclient.Value_StructValue:
		fields := v.GetStructValue().GetFields()
		m := make(map[string]any, len(fields))
		for k, f := range fields {
			m[k] = fromValue(f)
		}
		return m
	case *qdrantclient.Value_ListValue:
		list := v.GetListValue().GetValues()
		result := make([]any, len(list))
		for i, item := range list {
			result[i] = fromValue(item)
		}
		return result
	default:
		return nil
	}
}
