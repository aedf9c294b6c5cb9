// Package domain holds the types shared by the recipe recommender engine.
package domain

// Recipe is one row of the recipes table after feature and rating
// enrichment.
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Tags        []string `json:"tags"`
	TagString   string   `json:"tag_string"`
	Rating      float64  `json:"rating"`
	// HasRating is false only between the ratings join and the global mean fill.
	HasRating bool `json:"-"`
}

// Interaction is one user rating of a recipe.
type Interaction struct {
	RecipeID string  `json:"recipe_id"`
	Rating   float64 `json:"rating"`
}

// Result is a single recommendation returned to the caller.
type Result struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
	Score  float64 `json:"score"`
}
