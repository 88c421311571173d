package basket

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/types"
)

func testBasset(addr string, decimals int) types.Basset {
	ratio, err := fixedpoint.RatioForDecimals(decimals)
	if err != nil {
		panic(err)
	}
	return types.Basset{
		Personal: types.BassetPersonal{
			Address: addr,
			Status:  types.StatusNormal,
		},
		Data: types.BassetData{
			Ratio:        ratio,
			VaultBalance: sdkmath.ZeroInt(),
		},
	}
}

func TestNewPreservesOrderAndIndexes(t *testing.T) {
	l, err := New([]types.Basset{
		testBasset("uusdc", 6),
		testBasset("udai", 18),
		testBasset("uusdt", 6),
	})
	require.NoError(t, err)
	require.Equal(t, 3, l.Len())

	i, err := l.Index("udai")
	require.NoError(t, err)
	require.Equal(t, 1, i)

	b, err := l.At(2)
	require.NoError(t, err)
	require.Equal(t, "uusdt", b.Personal.Address)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]types.Basset{
		testBasset("uusdc", 6),
		testBasset("uusdc", 6),
	})
	require.ErrorIs(t, err, ErrDuplicateAsset)
}

func TestNewRejectsEmptyAddressAndMissingRatio(t *testing.T) {
	_, err := New([]types.Basset{testBasset("", 6)})
	require.ErrorIs(t, err, ErrInvalidAsset)

	bad := testBasset("uusdc", 6)
	bad.Data.Ratio = sdkmath.ZeroInt()
	_, err = New([]types.Basset{bad})
	require.ErrorIs(t, err, ErrInvalidAsset)
}

func TestVaultBalanceAccounting(t *testing.T) {
	l, err := New([]types.Basset{testBasset("uusdc", 6)})
	require.NoError(t, err)

	require.NoError(t, l.IncreaseVaultBalance("uusdc", sdkmath.NewInt(1000)))
	require.NoError(t, l.DecreaseVaultBalance("uusdc", sdkmath.NewInt(400)))

	b, err := l.Basset("uusdc")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(600), b.Data.VaultBalance)

	err = l.DecreaseVaultBalance("uusdc", sdkmath.NewInt(601))
	require.ErrorIs(t, err, ErrInsufficientVaultBalance)

	_, err = l.Basset("unknown")
	require.ErrorIs(t, err, ErrInvalidAsset)
}

func TestBassetReturnsCopy(t *testing.T) {
	l, err := New([]types.Basset{testBasset("uusdc", 6)})
	require.NoError(t, err)

	b, err := l.Basset("uusdc")
	require.NoError(t, err)
	b.Data.VaultBalance = sdkmath.NewInt(999)

	fresh, err := l.Basset("uusdc")
	require.NoError(t, err)
	require.True(t, fresh.Data.VaultBalance.IsZero())
}

func TestSetStatusMaintainsRecollateralisationFlag(t *testing.T) {
	l, err := New([]types.Basset{
		testBasset("uusdc", 6),
		testBasset("udai", 18),
	})
	require.NoError(t, err)
	require.False(t, l.UndergoingRecollateralisation())

	require.NoError(t, l.SetStatus("uusdc", types.StatusBrokenBelowPeg))
	require.True(t, l.UndergoingRecollateralisation())

	require.NoError(t, l.SetStatus("udai", types.StatusBrokenAbovePeg))
	require.NoError(t, l.SetStatus("uusdc", types.StatusNormal))
	// One asset still broken keeps the flag raised.
	require.True(t, l.UndergoingRecollateralisation())

	require.NoError(t, l.SetStatus("udai", types.StatusNormal))
	require.False(t, l.UndergoingRecollateralisation())
}

func TestCheckHealthHonoursKillSwitch(t *testing.T) {
	l, err := New([]types.Basset{testBasset("uusdc", 6)})
	require.NoError(t, err)
	require.NoError(t, l.CheckHealth())

	l.SetFailed(true)
	require.ErrorIs(t, l.CheckHealth(), ErrBasketUnhealthy)
	require.True(t, l.Failed())
}

func TestScaledBalancesAndTotalValue(t *testing.T) {
	usdc := testBasset("uusdc", 6)
	dai := testBasset("udai", 18)
	l, err := New([]types.Basset{usdc, dai})
	require.NoError(t, err)

	// 5 USDC (6 decimals) and 3 DAI (18 decimals).
	require.NoError(t, l.IncreaseVaultBalance("uusdc", sdkmath.NewInt(5_000_000)))
	require.NoError(t, l.IncreaseVaultBalance("udai", sdkmath.NewIntWithDecimal(3, 18)))

	xp, err := l.ScaledBalances()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewIntWithDecimal(5, 18), xp[0])
	require.Equal(t, sdkmath.NewIntWithDecimal(3, 18), xp[1])

	total, err := l.TotalVaultValue()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewIntWithDecimal(8, 18), total)
}

func TestRestoreRoundTrip(t *testing.T) {
	l, err := New([]types.Basset{
		testBasset("uusdc", 6),
		testBasset("udai", 18),
	})
	require.NoError(t, err)
	require.NoError(t, l.IncreaseVaultBalance("uusdc", sdkmath.NewInt(123)))
	require.NoError(t, l.SetStatus("udai", types.StatusBrokenBelowPeg))
	require.NoError(t, l.SetIntegrator("uusdc", "lender-a"))

	snap := types.PoolSnapshot{
		PoolName:                      "test",
		Timestamp:                     time.Now().UTC(),
		Failed:                        l.Failed(),
		UndergoingRecollateralisation: l.UndergoingRecollateralisation(),
		Bassets:                       l.Bassets(),
	}

	restored, err := Restore(snap)
	require.NoError(t, err)
	require.Equal(t, l.Bassets(), restored.Bassets())
	require.True(t, restored.UndergoingRecollateralisation())

	b, err := restored.Basset("uusdc")
	require.NoError(t, err)
	require.Equal(t, "lender-a", b.Personal.Integrator)
	require.Equal(t, sdkmath.NewInt(123), b.Data.VaultBalance)
}
