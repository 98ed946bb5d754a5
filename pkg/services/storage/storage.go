/*
2021 © Postgres.ai
*/

// Package storage provides ability to transfer cached variable values to/from memory/disk storage.
package storage

import (
	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// Snapshotter exports and imports cached values.
type Snapshotter interface {
	Snapshot() map[string]*models.VariableValues
	Restore(entries map[string]*models.VariableValues)
}

// PersistentCacheStorage allows to dump cached values from memory to some persistent storage.
type PersistentCacheStorage interface {
	Load() error
	Save() error
}
