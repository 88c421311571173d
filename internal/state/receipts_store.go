package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/basketfi/svp/internal/types"
)

// saveReceipt journals one settled operation as a JSONB payload.
func saveReceipt(poolName, opID, opType string, receipt any) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal %s receipt: %w", opType, err)
	}

	query := `
		INSERT INTO operation_receipts (op_id, op_type, pool_name, receipt)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := DB.Exec(query, opID, opType, poolName, receiptJSON); err != nil {
		return fmt.Errorf("failed to save %s receipt: %w", opType, err)
	}

	log.Debug().
		Str("op_id", opID).
		Str("op_type", opType).
		Msg("Operation receipt saved")
	return nil
}

// SaveMintReceipt journals a settled mint or mintMulti.
func SaveMintReceipt(poolName string, r types.MintResult) error {
	return saveReceipt(poolName, r.OpID, "mint", r)
}

// SaveSwapReceipt journals a settled swap.
func SaveSwapReceipt(poolName string, r types.SwapResult) error {
	return saveReceipt(poolName, r.OpID, "swap", r)
}

// SaveRedeemReceipt journals a settled redemption of any flavour.
func SaveRedeemReceipt(poolName string, r types.RedeemResult) error {
	return saveReceipt(poolName, r.OpID, "redeem", r)
}
