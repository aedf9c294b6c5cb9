package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/recipe-recommender/engine/domain"
)

const recipesCSV = `id,name,ingredients,tags
1,Basil Chicken,"['chicken', 'basil']","spicy, easy"
2,Plain Rice,,
3,Short Row
`

func TestRead(t *testing.T) {
	tbl, err := Read("recipes", strings.NewReader(recipesCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "ingredients", "tags"}, tbl.Header)
	assert.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.Has("tags"))
	assert.False(t, tbl.Has("rating"))

	v, ok := tbl.Value(0, "ingredients")
	assert.True(t, ok)
	assert.Equal(t, "['chicken', 'basil']", v)

	_, ok = tbl.Value(1, "ingredients")
	assert.False(t, ok, "empty cell reads as absent")

	_, ok = tbl.Value(2, "tags")
	assert.False(t, ok, "short row reads as absent")

	_, ok = tbl.Value(7, "id")
	assert.False(t, ok)
}

func TestRead_StripsBOM(t *testing.T) {
	tbl, err := Read("bom", strings.NewReader("\ufeffid,name\n1,x\n"))
	require.NoError(t, err)
	assert.True(t, tbl.Has("id"))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read("empty", strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyDataset))
}

func TestRequire(t *testing.T) {
	tbl, err := Read("recipes", strings.NewReader(recipesCSV))
	require.NoError(t, err)

	require.NoError(t, tbl.Require("id", "name"))

	err = tbl.Require("id", "minutes")
	var ce *domain.ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "minutes", ce.Column)
	assert.True(t, errors.Is(err, domain.ErrMissingColumn))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.csv")
	require.NoError(t, os.WriteFile(path, []byte(recipesCSV), 0o600))

	tbl, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, tbl.Name)
	assert.Equal(t, 3, tbl.Len())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
