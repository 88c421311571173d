package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// FeeCollectionRecord is one row of the fee-collection journal.
type FeeCollectionRecord struct {
	PoolName         string
	CollectionNumber int
	CollectedAt      time.Time
	SurplusMinted    sdkmath.Int
	GovSurplusMinted sdkmath.Int
	InterestMinted   sdkmath.Int
}

// SaveFeeCollection journals one fee/interest collection cycle.
func SaveFeeCollection(rec FeeCollectionRecord) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO fee_collections (
			pool_name, collection_number, collected_at,
			surplus_minted, gov_surplus_minted, interest_minted
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING collection_id;
	`

	var collectionID int64
	err := DB.QueryRow(
		query,
		rec.PoolName, rec.CollectionNumber, rec.CollectedAt,
		rec.SurplusMinted.String(), rec.GovSurplusMinted.String(), rec.InterestMinted.String(),
	).Scan(&collectionID)

	if err != nil {
		return 0, fmt.Errorf("failed to save fee collection: %w", err)
	}

	log.Info().
		Int64("collection_id", collectionID).
		Int("collection_number", rec.CollectionNumber).
		Str("interest_minted", rec.InterestMinted.String()).
		Msg("Fee collection saved")

	return collectionID, nil
}

// SaveConfigChange journals a governed parameter change.
func SaveConfigChange(poolName, field, oldValue, newValue string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO config_changes (pool_name, field, old_value, new_value)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := DB.Exec(query, poolName, field, oldValue, newValue); err != nil {
		return fmt.Errorf("failed to save config change: %w", err)
	}

	log.Info().
		Str("pool", poolName).
		Str("field", field).
		Str("new_value", newValue).
		Msg("Config change saved")
	return nil
}
