/*
2019 © Postgres.ai
*/

// Package querier provides executors of variable queries.
package querier

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"

	"gitlab.com/postgres-ai/varfetch/pkg/flux"
	"gitlab.com/postgres-ai/varfetch/pkg/models"
	"gitlab.com/postgres-ai/varfetch/pkg/util/db"
	"gitlab.com/postgres-ai/varfetch/pkg/util/operator"
)

const (
	// SyntaxPQErrorCode defines the pq syntax error code.
	SyntaxPQErrorCode = "42601"

	// UndefinedObjectPQErrorCode defines the pq error code of unknown configuration parameters.
	UndefinedObjectPQErrorCode = "42704"

	// VariablePrefix defines the prefix of configuration parameters holding variable values.
	VariablePrefix = "v."

	// OrgIDSetting defines the configuration parameter holding the organization ID.
	OrgIDSetting = "varfetch.org_id"

	datatypeAnnotation = "#datatype"
	setConfigQuery     = "select set_config($1, $2, true)"
)

// ErrNotReadOnly is returned when a variable query modifies data.
var ErrNotReadOnly = errors.New("variable queries must be read-only")

// PostgresExecutor runs variable queries in Postgres.
type PostgresExecutor struct {
	pool     *pgxpool.Pool
	connInfo *pgtype.ConnInfo
}

// InitPool connects to Postgres and checks the server version.
func InitPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to Postgres")
	}

	version, err := db.GetMajorVersion(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if version < db.MinSupportedVersion {
		pool.Close()
		return nil, errors.Errorf("unsupported Postgres version: %d, the minimal supported version is %d",
			version, db.MinSupportedVersion)
	}

	log.Msg(fmt.Sprintf("Connected to Postgres %d", version))

	return pool, nil
}

// NewPostgresExecutor creates a new Postgres executor.
func NewPostgresExecutor(pool *pgxpool.Pool) *PostgresExecutor {
	return &PostgresExecutor{
		pool:     pool,
		connInfo: pgtype.NewConnInfo(),
	}
}

// Execute runs the query in a read-only transaction and returns the result as annotated CSV.
// Variables are available in the query as `current_setting('v.<name>')`.
func (e *PostgresExecutor) Execute(ctx context.Context, orgID, query string, extern *flux.File) (string, error) {
	if !operator.IsReadOnly(query) {
		return "", ErrNotReadOnly
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return "", errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Err("failed to rollback transaction:", err)
		}
	}()

	if _, err := tx.Exec(ctx, setConfigQuery, OrgIDSetting, orgID); err != nil {
		return "", errors.Wrap(err, "failed to set organization")
	}

	for _, property := range extern.Properties() {
		if _, err := tx.Exec(ctx, setConfigQuery, VariablePrefix+property.Key.Name, property.Value.String()); err != nil {
			return "", errors.Wrapf(err, "failed to set variable %q", property.Key.Name)
		}
	}

	header, types, rows, err := e.runTableQuery(ctx, tx, query)
	if err != nil {
		return "", err
	}

	return renderAnnotatedCSV(header, types, rows)
}

// runTableQuery runs query and returns results in the table view along with column types.
func (e *PostgresExecutor) runTableQuery(ctx context.Context, tx pgx.Tx, query string) ([]string, []models.ColumnType, [][]string, error) {
	log.Dbg("DB table query:", query)

	rows, err := tx.Query(ctx, query, pgx.QueryResultFormats{pgx.TextFormatCode})
	if err != nil {
		log.Err("DB query:", err)
		return nil, nil, nil, clarifyQueryError([]byte(query), err)
	}
	defer rows.Close()

	var (
		header []string
		types  []models.ColumnType
	)

	resultRows := make([][]string, 0)

	for rows.Next() {
		if header == nil {
			header, types = e.describeFields(rows.FieldDescriptions())
		}

		rawValues := rows.RawValues()
		resultRow := make([]string, 0, len(rawValues))

		for i, rawValue := range rawValues {
			resultRow = append(resultRow, formatValue(types[i], rawValue))
		}

		resultRows = append(resultRows, resultRow)
	}

	if err := rows.Err(); err != nil {
		log.Err("DB query traversal:", err)
		return nil, nil, nil, clarifyQueryError([]byte(query), err)
	}

	if header == nil {
		header, types = e.describeFields(rows.FieldDescriptions())
	}

	return header, types, resultRows, nil
}

func (e *PostgresExecutor) describeFields(fields []pgproto3.FieldDescription) ([]string, []models.ColumnType) {
	header := make([]string, 0, len(fields))
	types := make([]models.ColumnType, 0, len(fields))

	for _, field := range fields {
		header = append(header, string(field.Name))

		typeName := ""
		if dataType, ok := e.connInfo.DataTypeForOID(field.DataTypeOID); ok {
			typeName = dataType.Name
		}

		types = append(types, columnType(typeName))
	}

	return header, types
}

// columnType maps a Postgres type name to a column type.
func columnType(typeName string) models.ColumnType {
	switch typeName {
	case "int2", "int4", "int8", "oid":
		return models.ColumnLong

	case "float4", "float8", "numeric":
		return models.ColumnDouble

	case "bool":
		return models.ColumnBoolean

	case "date", "timestamp", "timestamptz":
		return models.ColumnDateTime

	case "interval":
		return models.ColumnDuration

	case "bytea":
		return models.ColumnBase64Binary

	default:
		return models.ColumnString
	}
}

func formatValue(columnType models.ColumnType, raw []byte) string {
	if raw == nil {
		return ""
	}

	if columnType == models.ColumnBoolean {
		switch string(raw) {
		case "t":
			return "true"
		case "f":
			return "false"
		}
	}

	return string(raw)
}

// renderAnnotatedCSV renders a result table as annotated CSV with a datatype annotation.
func renderAnnotatedCSV(header []string, types []models.ColumnType, rows [][]string) (string, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	annotation := make([]string, 0, len(types)+1)
	annotation = append(annotation, datatypeAnnotation)

	for _, t := range types {
		annotation = append(annotation, string(t))
	}

	records := make([][]string, 0, len(rows)+2)
	records = append(records, annotation, append([]string{""}, header...))

	for _, row := range rows {
		records = append(records, append([]string{""}, row...))
	}

	if err := w.WriteAll(records); err != nil {
		return "", errors.Wrap(err, "failed to render response")
	}

	return buf.String(), nil
}

func clarifyQueryError(query []byte, err error) error {
	if err == nil {
		return err
	}

	var queryErr *pgconn.PgError
	if !errors.As(err, &queryErr) {
		return err
	}

	switch queryErr.Code {
	case SyntaxPQErrorCode:
		// Check &nbsp; - ASCII code 160
		if bytes.Contains(query, []byte{160}) {
			return errors.WithMessage(err,
				`There are "non-breaking spaces" in your input (ASCII code 160). Repeat your request using regular spaces instead (ASCII code 32).`)
		}

	case UndefinedObjectPQErrorCode:
		if strings.Contains(queryErr.Message, VariablePrefix) {
			return errors.WithMessage(err, fmt.Sprintf("variable is not defined; pass it in the %q option", flux.OptionName))
		}
	}

	return err
}
