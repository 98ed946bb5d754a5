package flux

import (
	"strconv"
	"strings"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// FormatVarsOption renders variable assignments as an option statement.
// The output is deterministic and preserves the assignment order.
func FormatVarsOption(variables []models.VariableAssignment) string {
	if len(variables) == 0 {
		return ""
	}

	sb := strings.Builder{}
	sb.WriteString("option " + OptionName + " = {\n")

	for _, variable := range variables {
		sb.WriteString("  ")
		sb.WriteString(variable.Name)
		sb.WriteString(": ")
		sb.WriteString(formatExpression(variable.Init))
		sb.WriteString(",\n")
	}

	sb.WriteString("}")

	return sb.String()
}

func formatExpression(expr models.Expression) string {
	switch expr.Type {
	case models.StringLiteral:
		return strconv.Quote(expr.Value)

	case models.DateTimeLiteral, models.IntegerLiteral, models.FloatLiteral,
		models.BooleanLiteral, models.DurationLiteral:
		return expr.Value

	default:
		// Unknown types are kept distinguishable from literals of known types.
		return expr.Type + "(" + strconv.Quote(expr.Value) + ")"
	}
}
