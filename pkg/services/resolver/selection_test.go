package resolver

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
)

func TestSelectValue(t *testing.T) {
	testCases := []struct {
		caseName         string
		values           []string
		prevSelection    *string
		defaultSelection *string
		expected         *string
	}{
		{
			caseName:         "no values",
			values:           []string{},
			prevSelection:    pointer.ToString("x"),
			defaultSelection: pointer.ToString("y"),
			expected:         nil,
		},
		{
			caseName:         "previous selection is available",
			values:           []string{"a", "b", "c"},
			prevSelection:    pointer.ToString("b"),
			defaultSelection: pointer.ToString("z"),
			expected:         pointer.ToString("b"),
		},
		{
			caseName:         "default selection is available",
			values:           []string{"a", "b", "c"},
			prevSelection:    pointer.ToString("q"),
			defaultSelection: pointer.ToString("b"),
			expected:         pointer.ToString("b"),
		},
		{
			caseName:         "fallback to the first value",
			values:           []string{"a", "b", "c"},
			prevSelection:    pointer.ToString("q"),
			defaultSelection: pointer.ToString("z"),
			expected:         pointer.ToString("a"),
		},
		{
			caseName: "no selections given",
			values:   []string{"a", "b"},
			expected: pointer.ToString("a"),
		},
		{
			caseName:         "previous selection wins over default",
			values:           []string{"a", "b", "c"},
			prevSelection:    pointer.ToString("c"),
			defaultSelection: pointer.ToString("b"),
			expected:         pointer.ToString("c"),
		},
		{
			caseName:      "empty string is a valid selection",
			values:        []string{"", "a"},
			prevSelection: pointer.ToString(""),
			expected:      pointer.ToString(""),
		},
	}

	for _, tc := range testCases {
		t.Log(tc.caseName)

		assert.Equal(t, tc.expected, SelectValue(tc.values, tc.prevSelection, tc.defaultSelection))
	}
}

func TestSelectValueDoesNotAlias(t *testing.T) {
	values := []string{"a", "b"}

	selected := SelectValue(values, nil, nil)
	*selected = "changed"

	assert.Equal(t, []string{"a", "b"}, values)
}
