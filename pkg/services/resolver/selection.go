/*
2021 © Postgres.ai
*/

package resolver

import (
	"gitlab.com/postgres-ai/database-lab/v2/pkg/util"
)

// SelectValue picks the selected value among the sorted available values.
// The previous selection wins over the default one, and the first value is the fallback.
func SelectValue(values []string, prevSelection, defaultSelection *string) *string {
	if len(values) == 0 {
		return nil
	}

	if prevSelection != nil && util.Contains(values, *prevSelection) {
		selected := *prevSelection
		return &selected
	}

	if defaultSelection != nil && util.Contains(values, *defaultSelection) {
		selected := *defaultSelection
		return &selected
	}

	selected := values[0]

	return &selected
}
