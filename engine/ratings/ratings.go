// Package ratings computes the mean user rating of every recipe and joins it
// onto the recipe table.
package ratings

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/WessleyAI/recipe-recommender/engine/dataset"
	"github.com/WessleyAI/recipe-recommender/engine/domain"
	"github.com/WessleyAI/recipe-recommender/pkg/fn"
)

// Column names of the interactions table.
const (
	KeyRecipeID  = "recipe_id"
	KeyID        = "id"
	ColumnRating = "rating"
)

// InteractionKey selects the recipe reference column: recipe_id when the
// table has it, id otherwise.
func InteractionKey(columns []string) string {
	if slices.Contains(columns, KeyRecipeID) {
		return KeyRecipeID
	}
	return KeyID
}

// Interactions decodes the interactions table. Rows with no key or a
// rating that is not a finite number are skipped, the same rows a mean over
// a numeric column would ignore.
func Interactions(t *dataset.Table) ([]domain.Interaction, error) {
	key := InteractionKey(t.Header)
	if err := t.Require(key, ColumnRating); err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}

	out := make([]domain.Interaction, 0, t.Len())
	for i := range t.Rows {
		id, ok := t.Value(i, key)
		if !ok {
			continue
		}
		raw, ok := t.Value(i, ColumnRating)
		if !ok {
			continue
		}
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, domain.Interaction{RecipeID: domain.CanonicalID(id), Rating: r})
	}
	return out, nil
}

// Average returns the arithmetic mean rating per recipe id.
func Average(interactions []domain.Interaction) map[string]float64 {
	groups := fn.GroupBy(interactions, func(in domain.Interaction) string { return in.RecipeID })
	avg := make(map[string]float64, len(groups))
	for id, g := range groups {
		sum := fn.Reduce(g, 0.0, func(acc float64, in domain.Interaction) float64 { return acc + in.Rating })
		avg[id] = sum / float64(len(g))
	}
	return avg
}

// Apply left-joins avg onto recipes by id and fills every recipe without a
// rating with the global mean of the joined ratings. The global mean is
// computed once, after the join, over recipes that received a rating; it is
// 0 when none did. Apply returns the fill value.
func Apply(recipes []domain.Recipe, avg map[string]float64) float64 {
	var sum float64
	var n int
	for i := range recipes {
		r, ok := avg[recipes[i].ID]
		recipes[i].Rating = r
		recipes[i].HasRating = ok
		if ok {
			sum += r
			n++
		}
	}

	var mean float64
	if n > 0 {
		mean = sum / float64(n)
	}
	for i := range recipes {
		if !recipes[i].HasRating {
			recipes[i].Rating = mean
			recipes[i].HasRating = true
		}
	}
	return mean
}
