package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/basketfi/svp/internal/types"
)

// SavePoolSnapshot persists a complete pool snapshot to the database.
func SavePoolSnapshot(snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pool snapshot: %w", err)
	}

	query := `
		INSERT INTO pool_snapshots (
			pool_name, snapshot_timestamp, failed,
			total_supply, surplus, gov_surplus, snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.PoolName, snapshot.Timestamp, snapshot.Failed,
		snapshot.TotalSupply.String(), snapshot.Surplus.String(), snapshot.GovSurplus.String(),
		snapshotJSON,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("pool", snapshot.PoolName).
		Str("total_supply", snapshot.TotalSupply.String()).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// LoadLatestPoolSnapshot returns the most recent snapshot for the named pool,
// or nil if none has been saved yet.
func LoadLatestPoolSnapshot(poolName string) (*types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot FROM pool_snapshots
		WHERE pool_name = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	var raw []byte
	err := DB.QueryRow(query, poolName).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest pool snapshot: %w", err)
	}

	var snapshot types.PoolSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pool snapshot: %w", err)
	}

	log.Info().
		Str("pool", poolName).
		Time("timestamp", snapshot.Timestamp).
		Msg("Loaded latest pool snapshot")

	return &snapshot, nil
}
