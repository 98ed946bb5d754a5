package resolver

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

func TestExtractValues(t *testing.T) {
	t.Run("deduplicate and sort", func(t *testing.T) {
		tables := []models.Table{{
			Rows:      [][]string{{"host", "_value"}, {"h1", "c"}, {"h1", "a"}, {"h2", "c"}, {"h3", "b"}},
			DataTypes: map[string]string{"host": "string", "_value": "long"},
		}}

		values, err := ExtractValues(tables, pointer.ToString("c"), nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, values.Values)
		assert.Equal(t, models.ColumnLong, values.ValueType)
		assert.Equal(t, "c", *values.SelectedValue)
	})

	t.Run("only the first table is used", func(t *testing.T) {
		tables := []models.Table{
			{Rows: [][]string{{"_value"}, {"x"}}},
			{Rows: [][]string{{"_value"}, {"y"}}},
		}

		values, err := ExtractValues(tables, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, values.Values)
		assert.Equal(t, models.ColumnType(""), values.ValueType)
	})

	t.Run("no tables", func(t *testing.T) {
		_, err := ExtractValues(nil, nil, nil)
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})

	t.Run("header only", func(t *testing.T) {
		_, err := ExtractValues([]models.Table{{Rows: [][]string{{"_value"}}}}, nil, nil)
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})

	t.Run("missing value column", func(t *testing.T) {
		_, err := ExtractValues([]models.Table{{Rows: [][]string{{"value"}, {"a"}}}}, nil, nil)
		assert.True(t, errors.Is(err, ErrMissingValueColumn))
	})
}
