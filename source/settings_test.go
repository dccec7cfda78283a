package source

import (
	"context"
	"testing"

	"github.com/hupe1980/querygo/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Map(t *testing.T) {
	f := Settings(map[string]any{
		"DEBUG":     true,
		"APP_NAME":  "querygo",
		"MAX_CONNS": 100,
	})

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Rows arrive sorted by key for deterministic ordering.
	assert.True(t, got[0]["key"].Equal(record.String("APP_NAME")))
	assert.True(t, got[0]["value"].Equal(record.String("querygo")))
	assert.True(t, got[1]["key"].Equal(record.String("DEBUG")))
	assert.True(t, got[1]["value"].Equal(record.Bool(true)))
	assert.True(t, got[2]["key"].Equal(record.String("MAX_CONNS")))
	assert.True(t, got[2]["value"].Equal(record.Int(100)))
}

func TestSettings_ListOfMaps(t *testing.T) {
	f := Settings([]map[string]any{
		{"host": "db1", "port": 5432},
		{"host": "db2", "port": 5433},
	})

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0]["host"].Equal(record.String("db1")))
	assert.True(t, got[1]["port"].Equal(record.Int(5433)))
}

func TestSettings_ListOfScalars(t *testing.T) {
	f := Settings([]string{"auth", "admin", "api"})

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0]["value"].Equal(record.String("auth")))
	assert.True(t, got[2]["value"].Equal(record.String("api")))
}

func TestSettings_MixedList(t *testing.T) {
	f := Settings([]any{
		map[string]any{"name": "web"},
		"worker",
		42,
	})

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0]["name"].Equal(record.String("web")))
	assert.True(t, got[1]["value"].Equal(record.String("worker")))
	assert.True(t, got[2]["value"].Equal(record.Int(42)))
}

func TestSettings_Scalar(t *testing.T) {
	f := Settings("single")

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0]["value"].Equal(record.String("single")))
}

func TestSettings_Nil(t *testing.T) {
	f := Settings(nil)

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettings_ConversionErrorSurfacesOnFetch(t *testing.T) {
	f := Settings(map[string]any{"bad": make(chan int)})

	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}
