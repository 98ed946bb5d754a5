/*
2021 © Postgres.ai
*/

// Package models provides domain entities.
package models

// Expression types supported by variable assignments.
const (
	StringLiteral   = "StringLiteral"
	IntegerLiteral  = "IntegerLiteral"
	FloatLiteral    = "FloatLiteral"
	BooleanLiteral  = "BooleanLiteral"
	DurationLiteral = "DurationLiteral"
	DateTimeLiteral = "DateTimeLiteral"
)

// ExecutionContext describes a single query execution.
type ExecutionContext struct {
	DataSourceURL  string               `json:"url"`
	OrganizationID string               `json:"orgID"`
	Query          string               `json:"query"`
	Variables      []VariableAssignment `json:"variables"`
}

// VariableAssignment binds a variable name to a value expression.
type VariableAssignment struct {
	Name string     `json:"name"`
	Init Expression `json:"init"`
}

// Expression is a literal value of a variable.
type Expression struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ColumnType is a column data type tag of a result table.
type ColumnType string

// Column types of annotated CSV responses.
const (
	ColumnBoolean      ColumnType = "boolean"
	ColumnUnsignedLong ColumnType = "unsignedLong"
	ColumnLong         ColumnType = "long"
	ColumnDouble       ColumnType = "double"
	ColumnString       ColumnType = "string"
	ColumnDateTime     ColumnType = "dateTime:RFC3339"
	ColumnDuration     ColumnType = "duration"
	ColumnBase64Binary ColumnType = "base64Binary"
)

// VariableValues contains the distinct values of a variable and the selected one.
type VariableValues struct {
	Values        []string   `json:"values"`
	ValueType     ColumnType `json:"valueType"`
	SelectedValue *string    `json:"selectedValue"`
}
