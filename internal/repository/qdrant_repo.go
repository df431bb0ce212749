package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 3072

// pointNamespace derives stable point IDs from page URLs.
var pointNamespace = uuid.MustParse("6f1c3a52-52f4-4b7e-9a54-0c2f3e6d9b10")

// QdrantConnectionConfig holds configuration for the site index connection.
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool
	VectorDimension int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository is the site index: one point per page, keyed by URL.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository connects to a local Qdrant (insecure) or Qdrant Cloud (TLS + API key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and checks its vector size otherwise.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if size := vectors.GetParams().GetSize(); size > 0 {
		return size, true
	}
	for _, params := range vectors.GetParamsMap().GetMap() {
		if size := params.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

// ContentPayload is stored alongside each page vector.
type ContentPayload struct {
	URL         string
	Title       string
	ContentType string
	WordCount   int
}

// PointID returns the deterministic point ID of a page URL.
func PointID(url string) string {
	return uuid.NewSHA1(pointNamespace, []byte(url)).String()
}

// IndexedPage is one page to upsert into the site index.
type IndexedPage struct {
	Vector  []float32
	Payload ContentPayload
}

// Upsert inserts or replaces the points of pages. Re-indexing a URL overwrites its point.
func (r *QdrantRepository) Upsert(ctx context.Context, pages []IndexedPage) error {
	if len(pages) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, 0, len(pages))
	for _, page := range pages {
		if len(page.Vector) != r.vectorDimension {
			return fmt.Errorf("page %s has %d dimensions, index expects %d", page.Payload.URL, len(page.Vector), r.vectorDimension)
		}
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(page.Payload.URL)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: page.Vector},
				},
			},
			Payload: payloadToValues(page.Payload),
		})
	}

	wait := true
	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func payloadToValues(p ContentPayload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"url":          {Kind: &pb.Value_StringValue{StringValue: p.URL}},
		"title":        {Kind: &pb.Value_StringValue{StringValue: p.Title}},
		"content_type": {Kind: &pb.Value_StringValue{StringValue: p.ContentType}},
		"word_count":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.WordCount)}},
	}
}

func parsePayload(payload map[string]*pb.Value) ContentPayload {
	return ContentPayload{
		URL:         payload["url"].GetStringValue(),
		Title:       payload["title"].GetStringValue(),
		ContentType: payload["content_type"].GetStringValue(),
		WordCount:   int(payload["word_count"].GetIntegerValue()),
	}
}

// SearchResult represents a page returned by the site index.
type SearchResult struct {
	ID      string
	Score   float32
	Payload ContentPayload
}

// Search returns the topK pages closest to vector, optionally restricted to one content type.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, contentType string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if contentType != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   "content_type",
						Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: contentType}},
					},
				},
			}},
		}
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, scored := range resp.GetResult() {
		results[i] = SearchResult{
			ID:      scored.GetId().GetUuid(),
			Score:   scored.GetScore(),
			Payload: parsePayload(scored.GetPayload()),
		}
	}
	return results, nil
}

// Delete removes the point of a page URL.
func (r *QdrantRepository) Delete(ctx context.Context, url string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{
						{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(url)}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}
