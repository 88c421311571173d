package web

import (
	"encoding/json"
	"net/http"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/state"
)

// Operation entry points. Each handler executes a mutating pool operation and
// journals the receipt; a journaling failure is logged but does not fail the
// request, since the operation itself has already settled.

type mintRequest struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset"`
	Qty       string `json:"qty"`
	MinOut    string `json:"min_out"`
	Recipient string `json:"recipient"`
}

type swapRequest struct {
	Caller    string `json:"caller"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Qty       string `json:"qty"`
	MinOut    string `json:"min_out"`
	Recipient string `json:"recipient"`
}

type redeemRequest struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset"`
	Qty       string `json:"qty"`
	MinOut    string `json:"min_out"`
	Recipient string `json:"recipient"`
}

type setFeesRequest struct {
	Caller        string `json:"caller"`
	SwapFee       string `json:"swap_fee"`
	RedemptionFee string `json:"redemption_fee"`
}

// handleMint executes a single-asset mint
func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	qty, ok := parseQty(req.Qty)
	if req.Caller == "" || req.Asset == "" || req.Recipient == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "caller, asset, recipient and positive integer qty are required")
		return
	}
	minOut, ok := parseOptionalQty(req.MinOut)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "min_out must be a non-negative integer")
		return
	}

	res, err := ws.pool.Mint(req.Caller, req.Asset, qty, minOut, req.Recipient)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := state.SaveMintReceipt(ws.poolName, res); err != nil {
		webLogger.Error().Err(err).Str("op_id", res.OpID).Msg("Failed to journal mint receipt")
	}
	ws.writeJSONResponse(w, http.StatusOK, res)
}

// handleSwap executes a swap
func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	qty, ok := parseQty(req.Qty)
	if req.Caller == "" || req.Input == "" || req.Output == "" || req.Recipient == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "caller, input, output, recipient and positive integer qty are required")
		return
	}
	minOut, ok := parseOptionalQty(req.MinOut)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "min_out must be a non-negative integer")
		return
	}

	res, err := ws.pool.Swap(req.Caller, req.Input, req.Output, qty, minOut, req.Recipient)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := state.SaveSwapReceipt(ws.poolName, res); err != nil {
		webLogger.Error().Err(err).Str("op_id", res.OpID).Msg("Failed to journal swap receipt")
	}
	ws.writeJSONResponse(w, http.StatusOK, res)
}

// handleRedeem executes a single-asset redemption
func (ws *WebServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	qty, ok := parseQty(req.Qty)
	if req.Caller == "" || req.Asset == "" || req.Recipient == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "caller, asset, recipient and positive integer qty are required")
		return
	}
	minOut, ok := parseOptionalQty(req.MinOut)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "min_out must be a non-negative integer")
		return
	}

	res, err := ws.pool.Redeem(req.Caller, req.Asset, qty, minOut, req.Recipient)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := state.SaveRedeemReceipt(ws.poolName, res); err != nil {
		webLogger.Error().Err(err).Str("op_id", res.OpID).Msg("Failed to journal redeem receipt")
	}
	ws.writeJSONResponse(w, http.StatusOK, res)
}

// handleSetFees updates the fee rates and journals the change
func (ws *WebServer) handleSetFees(w http.ResponseWriter, r *http.Request) {
	var req setFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	swapFee, err := sdkmath.LegacyNewDecFromStr(req.SwapFee)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "swap_fee must be a decimal fraction")
		return
	}
	redemptionFee, err := sdkmath.LegacyNewDecFromStr(req.RedemptionFee)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "redemption_fee must be a decimal fraction")
		return
	}

	old := ws.pool.GetConfig().Fees
	if err := ws.pool.SetFees(req.Caller, swapFee, redemptionFee); err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := state.SaveConfigChange(ws.poolName, "swap_fee", old.SwapFee.String(), swapFee.String()); err != nil {
		webLogger.Error().Err(err).Msg("Failed to journal config change")
	}
	if err := state.SaveConfigChange(ws.poolName, "redemption_fee", old.RedemptionFee.String(), redemptionFee.String()); err != nil {
		webLogger.Error().Err(err).Msg("Failed to journal config change")
	}
	ws.writeJSONResponse(w, http.StatusOK, ws.pool.GetConfig().Fees)
}

// parseOptionalQty treats an empty string as "no bound".
func parseOptionalQty(s string) (sdkmath.Int, bool) {
	if s == "" {
		return sdkmath.Int{}, true
	}
	qty, ok := sdkmath.NewIntFromString(s)
	if !ok || qty.IsNegative() {
		return sdkmath.Int{}, false
	}
	return qty, true
}
