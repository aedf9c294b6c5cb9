// Package semantic owns the similarity indexes the recommender searches: a
// prebuilt on-disk index loaded into memory and a prebuilt Qdrant
// collection. Both key every vector by recipe id.
package semantic

import "errors"

// Hit represents a single vector search hit.
type Hit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

var (
	// ErrDimensionMismatch is returned when a query vector does not match the
	// index dimension.
	ErrDimensionMismatch = errors.New("semantic: dimension mismatch")
	// ErrCollectionNotFound is returned when the configured Qdrant collection
	// does not exist.
	ErrCollectionNotFound = errors.New("semantic: collection not found")
)
