package source

import (
	"context"
	"testing"

	"github.com/hupe1980/querygo/blobstore"
	"github.com/hupe1980/querygo/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putJSON(t *testing.T, store blobstore.BlobStore, name, doc string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), name, []byte(doc)))
}

func TestJSON_ArrayOfObjects(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "products.json", `[
		{"name": "widget", "price": 9.99, "stock": 120},
		{"name": "gadget", "price": 24, "stock": 3}
	]`)

	got, err := JSON(store, "products.json").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0]["name"].Equal(record.String("widget")))
	// UseNumber keeps integral JSON numbers as ints.
	assert.Equal(t, record.KindFloat, got[0]["price"].Kind)
	assert.Equal(t, record.KindInt, got[0]["stock"].Kind)
	assert.True(t, got[1]["price"].Equal(record.Int(24)))
}

func TestJSON_SingleObject(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "config.json", `{"env": "prod", "replicas": 3}`)

	got, err := JSON(store, "config.json").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0]["env"].Equal(record.String("prod")))
}

func TestJSON_NestedPath(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "response.json", `{
		"meta": {"total": 2},
		"results": {
			"items": [
				{"id": 1},
				{"id": 2}
			]
		}
	}`)

	got, err := JSON(store, "response.json", WithPath("results.items")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1]["id"].Equal(record.Int(2)))
}

func TestJSON_PathWithArrayIndex(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "pages.json", `{
		"pages": [
			{"rows": [{"id": 1}]},
			{"rows": [{"id": 2}, {"id": 3}]}
		]
	}`)

	got, err := JSON(store, "pages.json", WithPath("pages.1.rows")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0]["id"].Equal(record.Int(2)))
}

func TestJSON_ScalarElements(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "tags.json", `["web", "api", 3]`)

	got, err := JSON(store, "tags.json").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0]["value"].Equal(record.String("web")))
	assert.True(t, got[2]["value"].Equal(record.Int(3)))
}

func TestJSON_Errors(t *testing.T) {
	store := blobstore.NewMemoryStore()
	putJSON(t, store, "ok.json", `{"results": {"items": [{"id": 1}]}}`)
	putJSON(t, store, "broken.json", `{"results": [`)
	putJSON(t, store, "scalar.json", `42`)

	ctx := context.Background()

	t.Run("missing blob", func(t *testing.T) {
		_, err := JSON(store, "nope.json").Fetch(ctx)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := JSON(store, "broken.json").Fetch(ctx)
		assert.Error(t, err)
	})

	t.Run("missing path element", func(t *testing.T) {
		_, err := JSON(store, "ok.json", WithPath("results.missing")).Fetch(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("path through scalar", func(t *testing.T) {
		_, err := JSON(store, "ok.json", WithPath("results.items.0.id.deeper")).Fetch(ctx)
		assert.Error(t, err)
	})

	t.Run("bad array index", func(t *testing.T) {
		_, err := JSON(store, "ok.json", WithPath("results.items.9")).Fetch(ctx)
		assert.Error(t, err)
	})

	t.Run("scalar document", func(t *testing.T) {
		_, err := JSON(store, "scalar.json").Fetch(ctx)
		assert.Error(t, err)
	})
}
