/*
2021 © Postgres.ai
*/

// Package flux builds the extern option file injected into query executions.
package flux

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// OptionName defines the name of the option holding variable values.
const OptionName = "v"

// ErrInvalidVariable is returned when a variable assignment cannot be declared in an extern.
var ErrInvalidVariable = errors.New("invalid variable")

// VariableError describes an invalid variable assignment.
type VariableError struct {
	Name string
	Err  error
}

// Error returns the error message.
func (e *VariableError) Error() string {
	return "invalid variable " + strconv.Quote(e.Name) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *VariableError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches ErrInvalidVariable.
func (e *VariableError) Is(target error) bool {
	return target == ErrInvalidVariable
}

// File is the root node of an extern file.
type File struct {
	Type    string      `json:"type"`
	Package interface{} `json:"package"`
	Imports interface{} `json:"imports"`
	Body    []Statement `json:"body"`
}

// Statement is an option statement.
type Statement struct {
	Type       string     `json:"type"`
	Assignment Assignment `json:"assignment"`
}

// Assignment assigns an object to an identifier.
type Assignment struct {
	Type string           `json:"type"`
	ID   Identifier       `json:"id"`
	Init ObjectExpression `json:"init"`
}

// Identifier names a node.
type Identifier struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ObjectExpression is a list of object properties.
type ObjectExpression struct {
	Type       string     `json:"type"`
	Properties []Property `json:"properties"`
}

// Property is a single key-value pair of an object.
type Property struct {
	Type  string     `json:"type"`
	Key   Identifier `json:"key"`
	Value Literal    `json:"value"`
}

// Literal holds a typed literal value.
type Literal struct {
	Type   string          `json:"type"`
	Value  interface{}     `json:"value"`
	Values []DurationValue `json:"values,omitempty"`
}

// DurationValue is a single magnitude-unit pair of a duration literal.
type DurationValue struct {
	Magnitude int64  `json:"magnitude"`
	Unit      string `json:"unit"`
}

// BuildExtern builds an extern file declaring the given variables in the `v` option.
func BuildExtern(variables []models.VariableAssignment) (*File, error) {
	if len(variables) == 0 {
		return nil, nil
	}

	properties := make([]Property, 0, len(variables))

	for _, variable := range variables {
		if !isIdentifier(variable.Name) {
			return nil, &VariableError{Name: variable.Name, Err: errors.New("name is not an identifier")}
		}

		value, err := buildLiteral(variable.Init)
		if err != nil {
			return nil, &VariableError{Name: variable.Name, Err: err}
		}

		properties = append(properties, Property{
			Type:  "Property",
			Key:   Identifier{Type: "Identifier", Name: variable.Name},
			Value: value,
		})
	}

	file := &File{
		Type: "File",
		Body: []Statement{{
			Type: "OptionStatement",
			Assignment: Assignment{
				Type: "VariableAssignment",
				ID:   Identifier{Type: "Identifier", Name: OptionName},
				Init: ObjectExpression{Type: "ObjectExpression", Properties: properties},
			},
		}},
	}

	return file, nil
}

// Properties returns the variable properties declared by the extern file.
func (f *File) Properties() []Property {
	if f == nil {
		return nil
	}

	for _, statement := range f.Body {
		if statement.Assignment.ID.Name == OptionName {
			return statement.Assignment.Init.Properties
		}
	}

	return nil
}

// String returns the literal value in its textual form.
func (l Literal) String() string {
	if l.Type == models.DurationLiteral {
		sb := strings.Builder{}

		for _, v := range l.Values {
			sb.WriteString(strconv.FormatInt(v.Magnitude, 10))
			sb.WriteString(v.Unit)
		}

		return sb.String()
	}

	switch value := l.Value.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	return ""
}

func buildLiteral(expr models.Expression) (Literal, error) {
	literal := Literal{Type: expr.Type}

	switch expr.Type {
	case models.StringLiteral:
		literal.Value = expr.Value

	case models.DateTimeLiteral:
		if _, err := time.Parse(time.RFC3339Nano, expr.Value); err != nil {
			return literal, errors.Wrap(err, "failed to parse date-time")
		}

		literal.Value = expr.Value

	case models.IntegerLiteral:
		if _, err := strconv.ParseInt(expr.Value, 10, 64); err != nil {
			return literal, errors.Wrap(err, "failed to parse integer")
		}

		literal.Value = expr.Value

	case models.FloatLiteral:
		f, err := strconv.ParseFloat(expr.Value, 64)
		if err != nil {
			return literal, errors.Wrap(err, "failed to parse float")
		}

		if math.IsNaN(f) || math.IsInf(f, 0) {
			return literal, errors.Errorf("float is not finite: %s", expr.Value)
		}

		literal.Value = f

	case models.BooleanLiteral:
		b, err := strconv.ParseBool(expr.Value)
		if err != nil {
			return literal, errors.Wrap(err, "failed to parse boolean")
		}

		literal.Value = b

	case models.DurationLiteral:
		values, err := parseDuration(expr.Value)
		if err != nil {
			return literal, err
		}

		literal.Values = values

	default:
		return literal, errors.Errorf("unsupported expression type %q", expr.Type)
	}

	return literal, nil
}

// isIdentifier checks that the name can be used as a property key of the option object.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}

		return false
	}

	return true
}

var durationUnits = []string{"mo", "ms", "us", "µs", "ns", "y", "w", "d", "h", "m", "s"}

// parseDuration splits a duration literal like "1h30m" into magnitude-unit pairs.
func parseDuration(s string) ([]DurationValue, error) {
	values := []DurationValue{}
	rest := s

	for rest != "" {
		digits := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits <= 0 {
			return nil, errors.Errorf("invalid duration %q", s)
		}

		magnitude, err := strconv.ParseInt(rest[:digits], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid duration %q", s)
		}

		rest = rest[digits:]
		unit := ""

		for _, u := range durationUnits {
			if strings.HasPrefix(rest, u) {
				unit = u
				break
			}
		}

		if unit == "" {
			return nil, errors.Errorf("invalid duration unit in %q", s)
		}

		rest = rest[len(unit):]
		values = append(values, DurationValue{Magnitude: magnitude, Unit: unit})
	}

	if len(values) == 0 {
		return nil, errors.Errorf("empty duration")
	}

	return values, nil
}
