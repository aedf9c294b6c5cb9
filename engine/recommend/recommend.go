// Package recommend turns a free-text query into ranked recipe results. It
// embeds the query, searches the similarity index and resolves each hit in
// the recipe catalog by id, keeping the index's ranking.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/recipe-recommender/engine/domain"
	"github.com/WessleyAI/recipe-recommender/engine/semantic"
	"github.com/WessleyAI/recipe-recommender/pkg/fn"
	"github.com/WessleyAI/recipe-recommender/pkg/metrics"
)

// DefaultTopK is the number of results returned when the caller asks for
// none.
const DefaultTopK = 5

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

// Searcher abstracts the similarity index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.Hit, error)
}

// Catalog resolves recipe ids.
type Catalog interface {
	ByID(id string) (domain.Recipe, bool)
}

// Publisher receives an Event after every successful recommendation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Event describes one served recommendation.
type Event struct {
	Query     string          `json:"query"`
	TopK      int             `json:"top_k"`
	Results   []domain.Result `json:"results"`
	LatencyMS int64           `json:"latency_ms"`
	At        time.Time       `json:"at"`
}

// Options configures the service.
type Options struct {
	TopK      int
	Publisher Publisher
	Metrics   *metrics.Registry
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK}
}

// Service is the recommendation service. It holds no mutable state besides
// metrics, so concurrent calls with the same query return the same results.
type Service struct {
	embed   Embedder
	search  Searcher
	catalog Catalog
	opts    Options
	logger  *slog.Logger

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	unknownIDs prometheus.Counter
	results    prometheus.Observer
}

// New creates a Service.
func New(embed Embedder, search Searcher, catalog Catalog, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	m := opts.Metrics
	return &Service{
		embed:   embed,
		search:  search,
		catalog: catalog,
		opts:    opts,
		logger:  logger,

		requests: m.Counter("recommend_requests_total", "Recommendation calls by outcome", "outcome"),
		duration: m.Histogram("recommend_duration_seconds", "Recommendation latency by stage", nil, "stage"),
		unknownIDs: m.Counter("recommend_unknown_ids_total",
			"Index hits whose recipe id is not in the catalog").WithLabelValues(),
		results: m.Histogram("recommend_results", "Results returned per call",
			[]float64{0, 1, 2, 5, 10, 20, 50}).WithLabelValues(),
	}
}

// Recommend returns up to topK results for query, in the index's order.
// topK <= 0 uses the configured default. Embedding and search failures are
// returned wrapped; nothing is retried.
func (s *Service) Recommend(ctx context.Context, query string, topK int) ([]domain.Result, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	ctx, span := otel.Tracer("engine/recommend").Start(ctx, "recommend.Recommend")
	defer span.End()
	span.SetAttributes(attribute.Int("recommend.top_k", topK), attribute.Int("recommend.query_len", len(query)))

	start := time.Now()
	s.logger.Debug("recommend start", "query_len", len(query), "top_k", topK)

	// 1. Embed the query, unit length.
	raw, err := s.embed.Embed(ctx, query)
	s.duration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.fail(span, "embed_error", fmt.Errorf("recommend: embed query: %w", err))
	}
	vec := semantic.Normalize(raw)

	// 2. Search the index.
	searchStart := time.Now()
	hits, err := s.search.Search(ctx, vec, topK)
	s.duration.WithLabelValues("search").Observe(time.Since(searchStart).Seconds())
	if err != nil {
		return nil, s.fail(span, "search_error", fmt.Errorf("recommend: search: %w", err))
	}

	// 3. Resolve hits by id, keeping index order.
	results := fn.FilterMap(hits, func(h semantic.Hit) (domain.Result, bool) {
		r, ok := s.catalog.ByID(h.ID)
		if !ok {
			s.unknownIDs.Inc()
			s.logger.Warn("index hit not in catalog", "recipe_id", h.ID)
			return domain.Result{}, false
		}
		return domain.Result{ID: r.ID, Title: r.Name, Rating: r.Rating, Score: float64(h.Score)}, true
	})
	if len(results) > topK {
		results = results[:topK]
	}

	took := time.Since(start)
	s.duration.WithLabelValues("total").Observe(took.Seconds())
	s.requests.WithLabelValues("ok").Inc()
	s.results.Observe(float64(len(results)))
	span.SetAttributes(attribute.Int("recommend.results", len(results)))
	s.logger.Info("recommend done", "top_k", topK, "hits", len(hits), "results", len(results), "duration", took)

	s.publish(ctx, Event{Query: query, TopK: topK, Results: results, LatencyMS: took.Milliseconds(), At: start.UTC()})
	return results, nil
}

func (s *Service) fail(span trace.Span, outcome string, err error) error {
	s.requests.WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// publish hands ev to the configured publisher; failures are logged and
// never reach the caller.
func (s *Service) publish(ctx context.Context, ev Event) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("recommend: publish event failed", "err", err)
	}
}
