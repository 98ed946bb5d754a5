/*
2021 © Postgres.ai
*/

// Package annotated parses annotated CSV query responses.
package annotated

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

const (
	annotationPrefix   = "#"
	datatypeAnnotation = "#datatype"
	tableColumn        = "table"
)

// ErrQueryFailed is reported when the response contains an error table.
var ErrQueryFailed = errors.New("query failed")

// QueryError describes an error returned within a response body.
type QueryError struct {
	Message   string
	Reference string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("%s: %s (reference: %s)", ErrQueryFailed, e.Message, e.Reference)
	}

	return fmt.Sprintf("%s: %s", ErrQueryFailed, e.Message)
}

// Is reports whether the target is ErrQueryFailed.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// ParseResponse parses a raw response into tables.
// Chunks are separated by blank lines, and rows of a chunk are split into tables by the `table` column.
func ParseResponse(raw string) ([]models.Table, error) {
	tables := []models.Table{}

	for _, chunk := range splitChunks(raw) {
		chunkTables, err := parseChunk(chunk)
		if err != nil {
			return nil, err
		}

		tables = append(tables, chunkTables...)
	}

	return tables, nil
}

func splitChunks(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	chunks := make([]string, 0)

	for _, chunk := range strings.Split(normalized, "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		chunks = append(chunks, strings.Trim(chunk, "\n"))
	}

	return chunks
}

func parseChunk(chunk string) ([]models.Table, error) {
	reader := csv.NewReader(strings.NewReader(chunk))
	reader.FieldsPerRecord = -1

	var (
		dataTypes   []string
		annotations bool
		header      []string
		rows        [][]string
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrap(err, "failed to read response chunk")
		}

		if header == nil && len(record) > 0 && strings.HasPrefix(record[0], annotationPrefix) {
			annotations = true

			if record[0] == datatypeAnnotation {
				dataTypes = record
			}

			continue
		}

		if header == nil {
			header = record
			continue
		}

		rows = append(rows, record)
	}

	if header == nil {
		return nil, nil
	}

	// The leading column is reserved for annotations.
	offset := 0
	if annotations || header[0] == "" {
		offset = 1
	}

	header = header[offset:]

	types := make(map[string]string, len(header))

	for i, name := range header {
		if i+offset < len(dataTypes) {
			types[name] = dataTypes[i+offset]
		}
	}

	data := make([][]string, 0, len(rows))

	for _, row := range rows {
		data = append(data, normalizeRow(row, offset, len(header)))
	}

	if isErrorHeader(header) {
		return nil, buildQueryError(data)
	}

	return splitTables(header, data, types), nil
}

func normalizeRow(row []string, offset, width int) []string {
	normalized := make([]string, width)

	if offset < len(row) {
		copy(normalized, row[offset:])
	}

	return normalized
}

func splitTables(header []string, rows [][]string, types map[string]string) []models.Table {
	tableIdx := -1

	for i, name := range header {
		if name == tableColumn {
			tableIdx = i
			break
		}
	}

	if tableIdx == -1 || len(rows) == 0 {
		return []models.Table{newTable(header, rows, types)}
	}

	order := []string{}
	groups := make(map[string][][]string)

	for _, row := range rows {
		id := row[tableIdx]

		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}

		groups[id] = append(groups[id], row)
	}

	tables := make([]models.Table, 0, len(order))

	for _, id := range order {
		tables = append(tables, newTable(header, groups[id], types))
	}

	return tables
}

func newTable(header []string, rows [][]string, types map[string]string) models.Table {
	tableRows := make([][]string, 0, len(rows)+1)
	tableRows = append(tableRows, header)
	tableRows = append(tableRows, rows...)

	return models.Table{Rows: tableRows, DataTypes: types}
}

func isErrorHeader(header []string) bool {
	return len(header) >= 1 && header[0] == "error" && (len(header) == 1 || header[1] == "reference")
}

func buildQueryError(rows [][]string) error {
	queryErr := &QueryError{Message: "unknown error"}

	if len(rows) == 0 {
		return queryErr
	}

	queryErr.Message = rows[0][0]

	if len(rows[0]) > 1 {
		queryErr.Reference = rows[0][1]
	}

	return queryErr
}
