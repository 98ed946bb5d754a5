/*
2021 © Postgres.ai
*/

package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// CacheKey derives a cache key from the execution context.
// Fields are length-prefixed, so the key stays unambiguous whatever the fields contain.
func CacheKey(ec models.ExecutionContext) string {
	hasher := sha256.New()

	writeField(hasher, ec.Query)
	writeField(hasher, strconv.Itoa(len(ec.Variables)))

	for _, variable := range ec.Variables {
		writeField(hasher, variable.Name)
		writeField(hasher, variable.Init.Type)
		writeField(hasher, variable.Init.Value)
	}

	writeField(hasher, ec.OrganizationID)
	writeField(hasher, ec.DataSourceURL)

	return hex.EncodeToString(hasher.Sum(nil))
}

func writeField(h hash.Hash, field string) {
	h.Write([]byte(strconv.Itoa(len(field))))
	h.Write([]byte{':'})
	h.Write([]byte(field))
}
