package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCutText(t *testing.T) {
	testCases := []struct {
		caseName string
		text     string
		size     int
		expected string
		cut      bool
	}{
		{caseName: "short text", text: "select 1", size: 20, expected: "select 1", cut: false},
		{caseName: "exact size", text: "select 1", size: 8, expected: "select 1", cut: false},
		{caseName: "long text", text: "select * from pg_class", size: 10, expected: "select ...", cut: true},
		{caseName: "multibyte text", text: "хлеб бородинский", size: 7, expected: "хлеб...", cut: true},
		{caseName: "size less than separator", text: "select 1", size: 2, expected: "...", cut: true},
	}

	for _, tc := range testCases {
		t.Log(tc.caseName)

		result, cut := CutText(tc.text, tc.size, "...")

		assert.Equal(t, tc.expected, result)
		assert.Equal(t, tc.cut, cut)
	}
}
