package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/storage/marketfs"
)

const schemaVersionFile = "schema_version"

// checkSchemaVersion compares the version stored in the market store against
// common.SchemaVersion. On mismatch (or missing version) the cached bars are
// purged and the new version is stored. Returns true if a purge occurred.
func checkSchemaVersion(store *marketfs.Store, logger *common.Logger) bool {
	path := filepath.Join(store.DataPath(), schemaVersionFile)

	data, err := os.ReadFile(path)
	stored := strings.TrimSpace(string(data))
	if err == nil && stored == common.SchemaVersion {
		logger.Debug().
			Str("version", common.SchemaVersion).
			Msg("Schema version matches, cache kept")
		return false
	}

	if err != nil {
		logger.Debug().
			Str("current", common.SchemaVersion).
			Msg("Schema version not found, initializing")
	} else {
		logger.Warn().
			Str("stored", stored).
			Str("current", common.SchemaVersion).
			Msg("Schema version mismatch, purging market cache")
	}

	purged := store.Purge()
	if purged > 0 {
		logger.Info().Int("files", purged).Msg("Market cache purged")
	}

	if err := os.WriteFile(path, []byte(common.SchemaVersion+"\n"), 0o644); err != nil {
		logger.Error().Err(err).Msg("Failed to store schema version")
	}
	return purged > 0
}
