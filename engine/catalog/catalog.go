// Package catalog assembles the read-only recipe lookup tables the
// recommender serves from: recipe rows with tag strings and ratings, keyed
// by recipe id.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/WessleyAI/recipe-recommender/engine/dataset"
	"github.com/WessleyAI/recipe-recommender/engine/domain"
	"github.com/WessleyAI/recipe-recommender/engine/features"
	"github.com/WessleyAI/recipe-recommender/engine/ratings"
)

// Recipe table columns.
const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnIngredients = "ingredients"
	ColumnTags        = "tags"
)

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	recipes    []domain.Recipe
	byID       map[string]int
	globalMean float64
}

// Load reads both CSV files and builds the catalog.
func Load(recipesPath, interactionsPath string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt, err := dataset.Open(recipesPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	it, err := dataset.Open(interactionsPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c, err := Build(rt, it)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded",
		"recipes", c.Len(),
		"interactions", it.Len(),
		"interaction_key", ratings.InteractionKey(it.Header),
		"global_mean_rating", c.GlobalMean(),
	)
	return c, nil
}

// Build derives the catalog from already loaded tables.
func Build(recipesTable, interactionsTable *dataset.Table) (*Catalog, error) {
	recipes, err := Recipes(recipesTable)
	if err != nil {
		return nil, err
	}
	interactions, err := ratings.Interactions(interactionsTable)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	mean := ratings.Apply(recipes, ratings.Average(interactions))
	return New(recipes, mean), nil
}

// Recipes decodes the recipe table and computes each row's tag string.
// Every row is kept, including rows without an id. Missing or empty
// ingredient and tag cells contribute no tokens.
func Recipes(t *dataset.Table) ([]domain.Recipe, error) {
	if err := t.Require(ColumnID, ColumnName); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	out := make([]domain.Recipe, 0, t.Len())
	for i := range t.Rows {
		id, _ := t.Value(i, ColumnID)
		name, _ := t.Value(i, ColumnName)
		ing := features.ParseList(cell(t, i, ColumnIngredients))
		tags := features.ParseList(cell(t, i, ColumnTags))
		out = append(out, domain.Recipe{
			ID:          domain.CanonicalID(id),
			Name:        name,
			Ingredients: ing,
			Tags:        tags,
			TagString:   features.TagString(ing, tags),
		})
	}
	return out, nil
}

// cell returns nil for an absent value so the feature parser sees a missing
// field rather than the empty string.
func cell(t *dataset.Table, i int, col string) any {
	v, ok := t.Value(i, col)
	if !ok {
		return nil
	}
	return v
}

// New wraps prepared recipes. Rows without an id stay in the table but
// cannot be looked up. The first row wins when ids repeat.
func New(recipes []domain.Recipe, globalMean float64) *Catalog {
	byID := make(map[string]int, len(recipes))
	for i, r := range recipes {
		if r.ID == "" {
			continue
		}
		id := domain.CanonicalID(r.ID)
		if _, dup := byID[id]; !dup {
			byID[id] = i
		}
	}
	return &Catalog{recipes: recipes, byID: byID, globalMean: globalMean}
}

// Len returns the number of recipes.
func (c *Catalog) Len() int { return len(c.recipes) }

// GlobalMean returns the rating used for recipes without interactions.
func (c *Catalog) GlobalMean() float64 { return c.globalMean }

// ByID looks a recipe up by id. Numeric ids match in any spelling.
func (c *Catalog) ByID(id string) (domain.Recipe, bool) {
	i, ok := c.byID[domain.CanonicalID(id)]
	if !ok {
		return domain.Recipe{}, false
	}
	return c.recipes[i], true
}

// At returns the recipe at row i.
func (c *Catalog) At(i int) domain.Recipe { return c.recipes[i] }
