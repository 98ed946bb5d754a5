package storage

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// JSONCacheStorage stores cached values in file in json format.
type JSONCacheStorage struct {
	source   Snapshotter
	filePath string
}

// NewJSONCacheStorage creates new storage.
func NewJSONCacheStorage(filePath string, source Snapshotter) *JSONCacheStorage {
	return &JSONCacheStorage{
		filePath: filePath,
		source:   source,
	}
}

// Load reads cached values from disk.
func (s *JSONCacheStorage) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// no cache data, ignore
			return nil
		}

		return errors.Wrap(err, "failed to read cache data")
	}

	entries := make(map[string]*models.VariableValues)

	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "failed to decode cache data")
	}

	s.source.Restore(entries)

	return nil
}

// Save writes cached values to disk.
func (s *JSONCacheStorage) Save() error {
	data, err := json.Marshal(s.source.Snapshot())
	if err != nil {
		return errors.Wrap(err, "failed to encode cache data")
	}

	return os.WriteFile(s.filePath, data, 0600)
}
