// Package db contains database helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
)

const (
	dbVersionQuery = `select setting::integer/10000 from pg_settings where name = 'server_version_num'`

	// MinSupportedVersion defines the minimal supported major Postgres version.
	MinSupportedVersion = 10
)

// GetMajorVersion returns the major Postgres version.
func GetMajorVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var majorVersion int

	row := pool.QueryRow(ctx, dbVersionQuery)

	if err := row.Scan(&majorVersion); err != nil {
		return 0, errors.Wrap(err, "failed to perform query detecting major version")
	}

	return majorVersion, nil
}
