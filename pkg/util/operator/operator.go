/*
2021 © Postgres.ai
*/

// Package operator contains query operator helpers.
package operator

import (
	"strings"
	"unicode"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/util"
)

var readOnlyWords = []string{"select", "with", "values", "table", "show"}

// IsReadOnly checks if the query starts with a statement that only reads data.
func IsReadOnly(query string) bool {
	return util.Contains(readOnlyWords, firstWord(query))
}

func firstWord(query string) string {
	query = strings.TrimLeftFunc(query, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })

	end := strings.IndexFunc(query, func(r rune) bool { return unicode.IsSpace(r) || r == '(' || r == ';' })
	if end == -1 {
		end = len(query)
	}

	return strings.ToLower(query[:end])
}
