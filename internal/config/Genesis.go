/*

Pool genesis. A fresh deployment is described by a JSON file naming the basket
assets, the starting amplification and the fee/weight parameters. The file is
only consulted when no snapshot exists in the database.

*/

package config

import (
	"encoding/json"
	"fmt"
	"os"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/invariant"
	"github.com/basketfi/svp/internal/types"
)

// GenesisAsset describes one basket asset in the genesis file.
type GenesisAsset struct {
	Address        string `json:"address"`
	Decimals       uint8  `json:"decimals"`
	Integrator     string `json:"integrator,omitempty"`
	HasTransferFee bool   `json:"has_transfer_fee,omitempty"`
}

// Genesis is the full genesis document.
type Genesis struct {
	Assets []GenesisAsset `json:"assets"`
	// InitialA is the starting amplification in whole A units.
	InitialA      uint64 `json:"initial_a"`
	SwapFee       string `json:"swap_fee"`
	RedemptionFee string `json:"redemption_fee"`
	GovFee        string `json:"gov_fee"`
	CacheSize     string `json:"cache_size"`
	MinWeight     string `json:"min_weight"`
	MaxWeight     string `json:"max_weight"`
}

// LoadGenesis parses and validates the genesis file at path.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file %s: %w", path, err)
	}
	var g Genesis
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file %s: %w", path, err)
	}
	if len(g.Assets) < 2 {
		return nil, fmt.Errorf("genesis must name at least two assets, got %d", len(g.Assets))
	}
	if g.InitialA == 0 {
		return nil, fmt.Errorf("genesis initial_a must be positive")
	}
	for _, a := range g.Assets {
		if a.Address == "" {
			return nil, fmt.Errorf("genesis asset with empty address")
		}
		if a.Decimals > 18 {
			return nil, fmt.Errorf("genesis asset %s: decimals above 18 unsupported", a.Address)
		}
	}
	return &g, nil
}

// Bassets converts the genesis asset list into fresh basket records.
func (g *Genesis) Bassets() ([]types.Basset, error) {
	bassets := make([]types.Basset, len(g.Assets))
	for i, a := range g.Assets {
		ratio, err := fixedpoint.RatioForDecimals(int(a.Decimals))
		if err != nil {
			return nil, fmt.Errorf("genesis asset %s: %w", a.Address, err)
		}
		bassets[i] = types.Basset{
			Personal: types.BassetPersonal{
				Address:        a.Address,
				Integrator:     a.Integrator,
				HasTransferFee: a.HasTransferFee,
				Status:         types.StatusNormal,
			},
			Data: types.BassetData{
				Ratio:        ratio,
				VaultBalance: sdkmath.ZeroInt(),
			},
		}
	}
	return bassets, nil
}

// AmpData converts the genesis amplification into a flat (non-ramping)
// schedule.
func (g *Genesis) AmpData() types.AmpData {
	a := sdkmath.NewIntFromUint64(g.InitialA).MulRaw(invariant.APrecision)
	return types.AmpData{
		InitialA:      a,
		TargetA:       a,
		RampStartTime: 0,
		RampEndTime:   0,
	}
}

// FeeConfig parses the genesis fee parameters.
func (g *Genesis) FeeConfig() (types.FeeConfig, error) {
	swap, err := parseDec("swap_fee", g.SwapFee)
	if err != nil {
		return types.FeeConfig{}, err
	}
	redemption, err := parseDec("redemption_fee", g.RedemptionFee)
	if err != nil {
		return types.FeeConfig{}, err
	}
	gov, err := parseDec("gov_fee", g.GovFee)
	if err != nil {
		return types.FeeConfig{}, err
	}
	cache, err := parseDec("cache_size", g.CacheSize)
	if err != nil {
		return types.FeeConfig{}, err
	}
	return types.FeeConfig{
		SwapFee:       swap,
		RedemptionFee: redemption,
		GovFee:        gov,
		CacheSize:     cache,
	}, nil
}

// WeightLimits parses the genesis weight limits.
func (g *Genesis) WeightLimits() (types.WeightLimits, error) {
	min, err := parseDec("min_weight", g.MinWeight)
	if err != nil {
		return types.WeightLimits{}, err
	}
	max, err := parseDec("max_weight", g.MaxWeight)
	if err != nil {
		return types.WeightLimits{}, err
	}
	return types.WeightLimits{Min: min, Max: max}, nil
}

func parseDec(field, value string) (sdkmath.LegacyDec, error) {
	if value == "" {
		return sdkmath.LegacyZeroDec(), nil
	}
	dec, err := sdkmath.LegacyNewDecFromStr(value)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("genesis %s %q: %w", field, value, err)
	}
	if dec.IsNegative() {
		return sdkmath.LegacyDec{}, fmt.Errorf("genesis %s %q: negative", field, value)
	}
	return dec, nil
}
