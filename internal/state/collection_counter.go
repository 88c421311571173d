/*

This file manages the persistent global fee-collection counter. The counter is
stored in the database to ensure continuity across restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentCollectionNumber retrieves the current collection number from the database
func GetCurrentCollectionNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_collection FROM collection_counter WHERE id = 1;`

	var current int
	row := DB.QueryRow(query)
	err := row.Scan(&current)

	if err != nil {
		if err == sql.ErrNoRows {
			// Should not happen: EnsureSchema inserts the row.
			log.Warn().Msg("No collection counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current collection number: %w", err)
	}

	log.Debug().Int("currentCollection", current).Msg("Retrieved current collection number")
	return current, nil
}

// IncrementCollectionNumber increments the collection counter and returns the new value
func IncrementCollectionNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE collection_counter
		SET current_collection = current_collection + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_collection;`

	var next int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&next)

	if err != nil {
		return 0, fmt.Errorf("failed to increment collection number: %w", err)
	}

	log.Info().Int("newCollection", next).Msg("Incremented collection counter")
	return next, nil
}
