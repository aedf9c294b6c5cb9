package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/recipe-recommender/engine/dataset"
	"github.com/WessleyAI/recipe-recommender/engine/domain"
)

const (
	recipesCSV = `name,id,minutes,tags,ingredients
basil chicken,1,30,"spicy, easy","['chicken', 'basil']"
plain rice,2,20,,
lemon tart,3,60,"['dessert']","['lemon', 'butter']"
`
	interactionsCSV = `user_id,recipe_id,date,rating,review
10,1,2020-01-01,4,good
11,3,2020-01-02,5,great
`
)

func read(t *testing.T, name, body string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Read(name, strings.NewReader(body))
	require.NoError(t, err)
	return tbl
}

func TestBuild(t *testing.T) {
	c, err := Build(read(t, "recipes", recipesCSV), read(t, "interactions", interactionsCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.InDelta(t, 4.5, c.GlobalMean(), 1e-9)

	r, ok := c.ByID("1")
	require.True(t, ok)
	assert.Equal(t, "basil chicken", r.Name)
	assert.Equal(t, "chicken basil spicy easy", r.TagString)
	assert.InDelta(t, 4.0, r.Rating, 1e-9)

	r, ok = c.ByID("2")
	require.True(t, ok)
	assert.Equal(t, "", r.TagString)
	assert.Empty(t, r.Ingredients)
	assert.InDelta(t, 4.5, r.Rating, 1e-9)

	assert.Equal(t, "lemon butter dessert", c.At(2).TagString)

	_, ok = c.ByID("404")
	assert.False(t, ok)
}

func TestBuild_EveryRecipeRated(t *testing.T) {
	c, err := Build(read(t, "recipes", recipesCSV), read(t, "interactions", "recipe_id,rating\n"))
	require.NoError(t, err)
	for i := 0; i < c.Len(); i++ {
		assert.True(t, c.At(i).HasRating)
	}
}

func TestRecipes_MissingColumns(t *testing.T) {
	_, err := Recipes(read(t, "recipes", "id,ingredients\n1,x\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingColumn))
}

func TestRecipes_NoFeatureColumns(t *testing.T) {
	got, err := Recipes(read(t, "recipes", "id,name\n1,toast\n,no id\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[0].TagString)
	assert.Equal(t, "", got[1].ID)
}

func TestBuild_RowsWithoutIDKept(t *testing.T) {
	c, err := Build(
		read(t, "recipes", "id,name\n1,toast\n,no id\n2,soup\n"),
		read(t, "interactions", "recipe_id,rating\n1,4\n2,2\n"),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "no id", c.At(1).Name)
	assert.InDelta(t, 3.0, c.At(1).Rating, 1e-9)
	_, ok := c.ByID("")
	assert.False(t, ok)
}

func TestBuild_NumericIDsJoinAcrossSpellings(t *testing.T) {
	c, err := Build(
		read(t, "recipes", "id,name\n1,toast\n2,soup\n3,salad\n"),
		read(t, "interactions", "recipe_id,rating\n1.0,4\n2.0,3\n"),
	)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, c.GlobalMean(), 1e-9)

	r, ok := c.ByID("1")
	require.True(t, ok)
	assert.InDelta(t, 4.0, r.Rating, 1e-9)
	r, ok = c.ByID("2.0")
	require.True(t, ok)
	assert.Equal(t, "soup", r.Name)
	assert.InDelta(t, 3.0, r.Rating, 1e-9)
	r, ok = c.ByID("3")
	require.True(t, ok)
	assert.InDelta(t, 3.5, r.Rating, 1e-9)
}

func TestNew_DuplicateIDsFirstWins(t *testing.T) {
	c := New([]domain.Recipe{{ID: "1", Name: "a"}, {ID: "1", Name: "b"}}, 0)
	r, ok := c.ByID("1")
	require.True(t, ok)
	assert.Equal(t, "a", r.Name)
	assert.Equal(t, 2, c.Len())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	rp := filepath.Join(dir, "RAW_recipes.csv")
	ip := filepath.Join(dir, "RAW_interactions.csv")
	require.NoError(t, os.WriteFile(rp, []byte(recipesCSV), 0o600))
	require.NoError(t, os.WriteFile(ip, []byte(interactionsCSV), 0o600))

	c, err := Load(rp, ip, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv"), nil)
	require.Error(t, err)
}
