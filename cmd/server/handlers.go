package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/WessleyAI/recipe-recommender/engine/domain"
	"github.com/WessleyAI/recipe-recommender/engine/recommend"
	"github.com/WessleyAI/recipe-recommender/pkg/metrics"
	"github.com/WessleyAI/recipe-recommender/pkg/mid"
)

//go:embed page.html
var pageFS embed.FS

var page = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"float": formatFloat,
}).ParseFS(pageFS, "page.html"))

// Recommender is the part of recommend.Service the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int) ([]domain.Result, error)
}

type pageData struct {
	Results []domain.Result
}

// newHandler builds the route table and wraps it in the middleware chain.
func newHandler(rec Recommender, catalogSize int, reg *metrics.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleForm(logger))
	mux.HandleFunc("POST /{$}", handleQuery(rec, logger))
	mux.HandleFunc("GET /healthz", handleHealth(catalogSize))
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.OTel("recipe-recommender"),
	)
}

// --- Handlers ---

func handleForm(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, pageData{}, logger)
	}
}

func handleQuery(rec Recommender, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := queryField(r)
		if err != nil {
			logger.Debug("bad form", "err", err, "request_id", mid.RequestIDFrom(r.Context()))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		results, err := rec.Recommend(r.Context(), query, recommend.DefaultTopK)
		if err != nil {
			logger.Error("recommend failed", "err", err, "request_id", mid.RequestIDFrom(r.Context()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		render(w, pageData{Results: results}, logger)
	}
}

// queryField returns the form's query field. Only a missing field is an
// error; an empty value is passed on as is.
func queryField(r *http.Request) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", domain.NewValidationError("query", "", errors.Join(domain.ErrMissingQuery, err))
	}
	vals, ok := r.PostForm["query"]
	if !ok || len(vals) == 0 {
		return "", domain.NewValidationError("query", "", domain.ErrMissingQuery)
	}
	return vals[0], nil
}

func handleHealth(catalogSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "recipes": catalogSize})
	}
}

func render(w http.ResponseWriter, data pageData, logger *slog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		logger.Error("render page", "err", err)
	}
}

// formatFloat prints v in shortest form and always keeps a decimal point,
// so 4 renders as "4.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
