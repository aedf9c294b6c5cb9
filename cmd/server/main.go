// Command server runs the recipe recommender web front end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/recipe-recommender/engine/catalog"
	"github.com/WessleyAI/recipe-recommender/engine/recommend"
	"github.com/WessleyAI/recipe-recommender/engine/semantic"
	"github.com/WessleyAI/recipe-recommender/pkg/fn"
	"github.com/WessleyAI/recipe-recommender/pkg/metrics"
	"github.com/WessleyAI/recipe-recommender/pkg/natsutil"
	"github.com/WessleyAI/recipe-recommender/pkg/ollama"
	"github.com/WessleyAI/recipe-recommender/pkg/openaiembed"
	"github.com/WessleyAI/recipe-recommender/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	RecipesCSV      string
	InteractionsCSV string
	IndexBackend    string
	IndexPath       string
	QdrantURL       string
	Collection      string
	EmbedProvider   string
	OllamaURL       string
	EmbedModel      string
	OpenAIKey       string
	OpenAIBaseURL   string
	EmbedRate       float64
	NatsURL         string
	NatsSubject     string
	Debug           bool
}

// loadConfig reads the environment, then lets command line flags override
// the file paths and the debug switch.
func loadConfig(args []string) (Config, error) {
	cfg := Config{
		Port:            envOr("PORT", "8080"),
		RecipesCSV:      envOr("RECIPES_CSV", "RAW_recipes.csv"),
		InteractionsCSV: envOr("INTERACTIONS_CSV", "RAW_interactions.csv"),
		IndexBackend:    envOr("INDEX_BACKEND", "file"),
		IndexPath:       envOr("INDEX_PATH", "recipe_index.bin"),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		Collection:      envOr("QDRANT_COLLECTION", "recipes"),
		EmbedProvider:   envOr("EMBED_PROVIDER", "ollama"),
		OllamaURL:       envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:      envOr("EMBED_MODEL", "nomic-embed-text"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		NatsURL:         os.Getenv("NATS_URL"),
		NatsSubject:     envOr("NATS_SUBJECT", "recipes.recommendations"),
	}
	r, err := strconv.ParseFloat(envOr("EMBED_RATE", "0"), 64)
	if err != nil || r < 0 {
		return Config{}, fmt.Errorf("config: EMBED_RATE: invalid value %q", os.Getenv("EMBED_RATE"))
	}
	cfg.EmbedRate = r

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.RecipesCSV, "recipes", cfg.RecipesCSV, "recipes CSV file")
	fs.StringVar(&cfg.InteractionsCSV, "interactions", cfg.InteractionsCSV, "interactions CSV file")
	fs.StringVar(&cfg.IndexPath, "index", cfg.IndexPath, "similarity index file (file backend)")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.BoolVar(&cfg.Debug, "debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	switch cfg.IndexBackend {
	case "file", "qdrant":
	default:
		return Config{}, fmt.Errorf("config: INDEX_BACKEND: unknown backend %q", cfg.IndexBackend)
	}
	switch cfg.EmbedProvider {
	case "ollama", "openai":
	default:
		return Config{}, fmt.Errorf("config: EMBED_PROVIDER: unknown provider %q", cfg.EmbedProvider)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Load datasets ---
	cat, err := catalog.Load(cfg.RecipesCSV, cfg.InteractionsCSV, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	reg.Gauge("catalog_recipes", "Recipes loaded at startup").WithLabelValues().Set(float64(cat.Len()))

	// --- Open similarity index ---
	searcher, closeIndex, err := openIndex(ctx, cfg, cat, reg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	// --- Embedding provider ---
	embedder := newEmbedder(cfg, logger)

	// --- Optional query events ---
	opts := recommend.Options{TopK: recommend.DefaultTopK, Metrics: reg}
	if cfg.NatsURL != "" {
		pub, err := natsutil.Connect[recommend.Event](cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer pub.Close()
		opts.Publisher = pub
		logger.Info("publishing recommendation events", "subject", cfg.NatsSubject)
	}

	svc := recommend.New(embedder, searcher, cat, opts, logger)

	// --- Build HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(svc, cat.Len(), reg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("recommender starting", "port", cfg.Port, "index", cfg.IndexBackend, "embed", cfg.EmbedProvider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// openIndex opens the configured similarity index and returns it with its
// close function.
func openIndex(ctx context.Context, cfg Config, cat *catalog.Catalog, reg *metrics.Registry, logger *slog.Logger) (recommend.Searcher, func(), error) {
	if cfg.IndexBackend == "qdrant" {
		q, err := semantic.NewQdrant(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant connect: %w", err)
		}
		if err := q.Check(ctx); err != nil {
			q.Close()
			return nil, nil, fmt.Errorf("qdrant check: %w", err)
		}
		logger.Info("qdrant index ready", "addr", cfg.QdrantURL, "collection", cfg.Collection)
		return q, func() { q.Close() }, nil
	}

	idx, err := semantic.LoadFile(cfg.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load index: %w", err)
	}
	reg.Gauge("index_vectors", "Vectors in the similarity index").WithLabelValues().Set(float64(idx.Len()))
	missing := unknownIDs(idx.IDs(), cat)
	if len(missing) > 0 {
		logger.Warn("index ids missing from catalog", "count", len(missing), "sample", missing[0])
	}
	logger.Info("file index loaded", "path", cfg.IndexPath, "vectors", idx.Len(), "dim", idx.Dim())
	return idx, func() {}, nil
}

// unknownIDs returns the index ids the catalog cannot resolve.
func unknownIDs(ids []string, cat recommend.Catalog) []string {
	return fn.Filter(ids, func(id string) bool {
		_, ok := cat.ByID(id)
		return !ok
	})
}

// newEmbedder builds the configured embedding client behind a circuit
// breaker and rate limiter.
func newEmbedder(cfg Config, logger *slog.Logger) recommend.Embedder {
	var embed func(context.Context, string) ([]float32, error)
	switch cfg.EmbedProvider {
	case "openai":
		c := openaiembed.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbedModel)
		logger.Info("embedding via openai", "model", c.Model(), "base_url", cfg.OpenAIBaseURL)
		embed = c.Embed
	default:
		c := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
		logger.Info("embedding via ollama", "model", c.Model(), "url", cfg.OllamaURL)
		embed = c.Embed
	}
	guard := resilience.New(resilience.Opts{
		Name: "embed-" + cfg.EmbedProvider,
		Rate: cfg.EmbedRate,
	}, logger)
	return recommend.EmbedderFunc(resilience.Wrap(guard, embed))
}
