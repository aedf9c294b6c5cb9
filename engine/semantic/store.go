package semantic

import (
	"context"
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// PayloadRecipeID is the payload field that carries the recipe id when the
// point id is not the recipe id itself.
const PayloadRecipeID = "recipe_id"

// PointSearcher is the subset of pb.PointsClient the index uses.
type PointSearcher interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// CollectionLister is the subset of pb.CollectionsClient the index uses.
type CollectionLister interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
}

// QdrantIndex searches a prebuilt Qdrant collection. It never writes.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      PointSearcher
	collections CollectionLister
	collection  string
}

// NewQdrant creates a QdrantIndex connected to Qdrant at the given gRPC address.
func NewQdrant(addr string, collection string) (*QdrantIndex, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewQdrantWithClients wires pre-built clients, without owning a connection.
func NewQdrantWithClients(points PointSearcher, collections CollectionLister, collection string) *QdrantIndex {
	return &QdrantIndex{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

// Check verifies the collection exists. The collection is prebuilt; a
// missing one is a startup failure.
func (q *QdrantIndex) Check(ctx context.Context) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCollectionNotFound, q.collection)
}

// Search performs k-NN similarity search and returns hits in Qdrant's order.
func (q *QdrantIndex) Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", q.collection, err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		id := recipeID(r)
		if id == "" {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: r.GetScore()})
	}
	return hits, nil
}

// recipeID prefers the recipe_id payload and falls back to the point id.
func recipeID(p *pb.ScoredPoint) string {
	if v, ok := p.GetPayload()[PayloadRecipeID]; ok {
		switch kind := v.GetKind().(type) {
		case *pb.Value_StringValue:
			return kind.StringValue
		case *pb.Value_IntegerValue:
			return strconv.FormatInt(kind.IntegerValue, 10)
		case *pb.Value_DoubleValue:
			return strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
		}
	}
	switch opt := p.GetId().GetPointIdOptions().(type) {
	case *pb.PointId_Num:
		return strconv.FormatUint(opt.Num, 10)
	case *pb.PointId_Uuid:
		return opt.Uuid
	}
	return ""
}
