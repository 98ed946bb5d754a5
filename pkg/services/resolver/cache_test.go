package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

func TestMapCache(t *testing.T) {
	cache := NewMapCache()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	values := &models.VariableValues{Values: []string{"a"}}
	cache.Add("key", values)

	cached, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Same(t, values, cached)
	assert.Equal(t, []string{"key"}, cache.Keys())
	assert.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(2, 0)

	cache.Add("first", &models.VariableValues{Values: []string{"a"}})
	cache.Add("second", &models.VariableValues{Values: []string{"b"}})

	_, ok := cache.Get("first")
	assert.True(t, ok)

	cache.Add("third", &models.VariableValues{Values: []string{"c"}})

	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get("second")
	assert.False(t, ok, "the least recently used entry must be evicted")

	assert.ElementsMatch(t, []string{"first", "third"}, cache.Keys())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
