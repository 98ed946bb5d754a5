/*
2021 © Postgres.ai
*/

package resolver

import (
	"sort"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// ValueColumn defines the name of the column holding variable values.
const ValueColumn = "_value"

var (
	// ErrEmptyResponse is returned when a response has no tables or no data rows.
	ErrEmptyResponse = errors.New("empty variable response")

	// ErrMissingValueColumn is returned when a response table has no `_value` column.
	ErrMissingValueColumn = errors.New("variable response does not contain a '_value' column")
)

// ExtractValues collects the distinct sorted values of the `_value` column of the first table.
func ExtractValues(tables []models.Table, prevSelection, defaultSelection *string) (*models.VariableValues, error) {
	if len(tables) == 0 || len(tables[0].DataRows()) == 0 {
		return nil, ErrEmptyResponse
	}

	table := tables[0]
	valueIdx := -1

	for i, column := range table.Header() {
		if column == ValueColumn {
			valueIdx = i
			break
		}
	}

	if valueIdx == -1 {
		return nil, ErrMissingValueColumn
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)

	for _, row := range table.DataRows() {
		value := ""
		if valueIdx < len(row) {
			value = row[valueIdx]
		}

		if _, ok := seen[value]; ok {
			continue
		}

		seen[value] = struct{}{}
		values = append(values, value)
	}

	sort.Strings(values)

	return &models.VariableValues{
		Values:        values,
		ValueType:     models.ColumnType(table.DataTypes[ValueColumn]),
		SelectedValue: SelectValue(values, prevSelection, defaultSelection),
	}, nil
}
