package pool

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/fees"
	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/platform"
	"github.com/basketfi/svp/internal/token"
	"github.com/basketfi/svp/internal/types"
)

const (
	poolAddr     = "pool"
	governor     = "governor"
	collector    = "collector"
	feeRecipient = "fee-recipient"
	govRecipient = "gov-recipient"
	seedHolder   = "seed"
	alice        = "alice"
)

type fakeGovernance struct {
	governor  string
	collector string
	paused    bool
}

func (g *fakeGovernance) IsGovernor(caller string) bool     { return caller == g.governor }
func (g *fakeGovernance) IsUnpaused() bool                  { return !g.paused }
func (g *fakeGovernance) IsFeeCollector(caller string) bool { return caller == g.collector }

// fakeAdapter models a lending platform as a named holder inside each asset's
// book: deposits move funds from the pool's raw balance to the holder and back.
type fakeAdapter struct {
	holder string
	books  map[string]*token.Book
}

func (f *fakeAdapter) Deposit(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	book := f.books[asset]
	before, _ := book.BalanceOf(f.holder)
	if err := book.TransferHolder(poolAddr, f.holder, amount); err != nil {
		return sdkmath.Int{}, err
	}
	after, _ := book.BalanceOf(f.holder)
	return after.Sub(before), nil
}

func (f *fakeAdapter) Withdraw(asset string, amount sdkmath.Int, exact bool) error {
	return f.books[asset].TransferHolder(f.holder, poolAddr, amount)
}

func (f *fakeAdapter) CheckBalance(asset string) (sdkmath.Int, error) {
	return f.books[asset].BalanceOf(f.holder)
}

// failingAdapter simulates a platform outage on selected directions.
type failingAdapter struct {
	*fakeAdapter
	failDeposit  bool
	failWithdraw bool
}

func (f *failingAdapter) Deposit(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if f.failDeposit {
		return sdkmath.Int{}, errors.New("platform offline")
	}
	return f.fakeAdapter.Deposit(asset, amount)
}

func (f *failingAdapter) Withdraw(asset string, amount sdkmath.Int, exact bool) error {
	if f.failWithdraw {
		return errors.New("platform offline")
	}
	return f.fakeAdapter.Withdraw(asset, amount, exact)
}

// shortAdapter reports one unit less than it actually holds.
type shortAdapter struct {
	*fakeAdapter
}

func (s *shortAdapter) CheckBalance(asset string) (sdkmath.Int, error) {
	bal, err := s.fakeAdapter.CheckBalance(asset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return bal.Sub(sdkmath.OneInt()), nil
}

type assetSpec struct {
	addr        string
	decimals    int
	vault       int64 // whole units
	integrator  string
	transferFee bool
	bookFeeRate string // "" means the book charges nothing
}

type harness struct {
	p        *Pool
	ledger   *basket.Ledger
	fees     *fees.Controller
	poolTok  *token.Book
	books    map[string]*token.Book
	adapters map[string]*fakeAdapter
	gov      *fakeGovernance
	now      time.Time
}

func mustRatio(t *testing.T, decimals int) sdkmath.Int {
	t.Helper()
	ratio, err := fixedpoint.RatioForDecimals(decimals)
	require.NoError(t, err)
	return ratio
}

func units(n int64, decimals int) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(n, decimals)
}

func newHarness(t *testing.T, specs []assetSpec, cacheSize string) *harness {
	t.Helper()

	h := &harness{
		books:    make(map[string]*token.Book),
		adapters: make(map[string]*fakeAdapter),
		gov:      &fakeGovernance{governor: governor, collector: collector},
		now:      time.Unix(1_700_000_000, 0),
	}

	bassets := make([]types.Basset, len(specs))
	registry := platform.NewRegistry()
	for i, s := range specs {
		var book *token.Book
		if s.bookFeeRate != "" {
			book = token.NewBookWithFee(poolAddr, sdkmath.LegacyMustNewDecFromStr(s.bookFeeRate))
		} else {
			book = token.NewBook(poolAddr)
		}
		vault := units(s.vault, s.decimals)
		if vault.IsPositive() {
			require.NoError(t, book.Mint(poolAddr, vault))
		}
		require.NoError(t, book.Mint(alice, units(1_000_000, s.decimals)))
		h.books[s.addr] = book

		if s.integrator != "" {
			if _, ok := h.adapters[s.integrator]; !ok {
				adapter := &fakeAdapter{holder: s.integrator, books: h.books}
				h.adapters[s.integrator] = adapter
				registry.Register(s.integrator, adapter)
			}
		}

		bassets[i] = types.Basset{
			Personal: types.BassetPersonal{
				Address:        s.addr,
				Integrator:     s.integrator,
				HasTransferFee: s.transferFee,
				Status:         types.StatusNormal,
			},
			Data: types.BassetData{
				Ratio:        mustRatio(t, s.decimals),
				VaultBalance: vault,
			},
		}
	}

	ledger, err := basket.New(bassets)
	require.NoError(t, err)
	h.ledger = ledger

	controller, err := fees.NewController(types.FeeConfig{
		SwapFee:       sdkmath.LegacyMustNewDecFromStr("0.0006"),
		RedemptionFee: sdkmath.LegacyMustNewDecFromStr("0.0003"),
		GovFee:        sdkmath.LegacyMustNewDecFromStr("0.1"),
		CacheSize:     sdkmath.LegacyMustNewDecFromStr(cacheSize),
	})
	require.NoError(t, err)
	h.fees = controller

	h.poolTok = token.NewBook(poolAddr)
	supply, err := ledger.TotalVaultValue()
	require.NoError(t, err)
	if supply.IsPositive() {
		require.NoError(t, h.poolTok.Mint(seedHolder, supply))
	}

	assets := make(map[string]token.Token, len(h.books))
	for addr, book := range h.books {
		assets[addr] = book
	}

	a := sdkmath.NewInt(10000) // A = 100 at APrecision
	p, err := New(Config{
		Name:         "susd",
		Address:      poolAddr,
		FeeRecipient: feeRecipient,
		GovRecipient: govRecipient,
		Ledger:       ledger,
		Amp:          &types.AmpData{InitialA: a, TargetA: a},
		Fees:         controller,
		Limits: types.WeightLimits{
			Min: sdkmath.LegacyZeroDec(),
			Max: sdkmath.LegacyMustNewDecFromStr("0.6"),
		},
		Platforms:  registry,
		PoolToken:  h.poolTok,
		Assets:     assets,
		Governance: h.gov,
		Now:        func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.p = p
	return h
}

func defaultHarness(t *testing.T) *harness {
	t.Helper()
	return newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000},
		{addr: "usdy", decimals: 6, vault: 1000},
		{addr: "usdz", decimals: 18, vault: 1000},
	}, "0")
}

func TestMintMatchesQuoteAndCreditsVault(t *testing.T) {
	h := defaultHarness(t)
	qty := units(10, 18)

	quote, err := h.p.GetMintOutput("usdx", qty)
	require.NoError(t, err)

	res, err := h.p.Mint(alice, "usdx", qty, sdkmath.Int{}, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.Minted)
	require.Equal(t, qty, res.Quantity[0])

	// A single-sided deposit into a balanced pool never mints above its value.
	require.True(t, res.Minted.LTE(qty))
	require.True(t, res.Minted.IsPositive())

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1010, 18), b.Data.VaultBalance)

	bal, err := h.poolTok.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, res.Minted, bal)
}

func TestMintRejectsZeroQuantity(t *testing.T) {
	h := defaultHarness(t)
	_, err := h.p.Mint(alice, "usdx", sdkmath.ZeroInt(), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrZeroQuantity)

	_, err = h.p.Mint(alice, "usdx", sdkmath.Int{}, sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrZeroQuantity)
}

func TestMintRefundsWhenBelowMinimum(t *testing.T) {
	h := defaultHarness(t)
	qty := units(10, 18)
	before, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)

	quote, err := h.p.GetMintOutput("usdx", qty)
	require.NoError(t, err)

	_, err = h.p.Mint(alice, "usdx", qty, quote.AddRaw(1), alice)
	require.ErrorIs(t, err, ErrMintOutputBelowMinimum)

	after, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, before, after)

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), b.Data.VaultBalance)
}

func TestMintRejectsOverweightInput(t *testing.T) {
	h := defaultHarness(t)
	before, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)

	// (1000+2500)/(3000+2500) ~ 0.64, above the 0.6 ceiling.
	_, err = h.p.Mint(alice, "usdx", units(2500, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrExceedsWeightLimits)

	after, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestMintMultiMatchesQuote(t *testing.T) {
	h := defaultHarness(t)
	inputs := []string{"usdx", "usdy", "usdz"}
	qtys := []sdkmath.Int{units(10, 18), units(10, 6), units(10, 18)}

	quote, err := h.p.GetMintMultiOutput(inputs, qtys)
	require.NoError(t, err)

	res, err := h.p.MintMulti(alice, inputs, qtys, sdkmath.Int{}, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.Minted)

	// A perfectly proportional deposit mints its full value.
	require.Equal(t, units(30, 18), res.Minted)
}

func TestMintMultiRejectsDuplicateAsset(t *testing.T) {
	h := defaultHarness(t)
	_, err := h.p.MintMulti(alice,
		[]string{"usdx", "usdx"},
		[]sdkmath.Int{units(1, 18), units(1, 18)},
		sdkmath.Int{}, alice)
	require.ErrorIs(t, err, basket.ErrDuplicateAsset)
}

func TestMintMultiRefundsAllWhenPlatformDepositFails(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000, integrator: "lender2"},
		{addr: "usdz", decimals: 18, vault: 1000},
	}, "0.1")
	h.p.platforms.Register("lender2", &failingAdapter{
		fakeAdapter: h.adapters["lender2"],
		failDeposit: true,
	})

	_, err := h.p.MintMulti(alice,
		[]string{"usdx", "usdy"},
		[]sdkmath.Int{units(200, 18), units(100, 6)},
		sdkmath.Int{}, alice)
	require.Error(t, err)

	// The first leg had already been pushed to its platform; the refund must
	// still make both depositors whole.
	balX, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 18), balX)
	balY, err := h.books["usdy"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 6), balY)

	// No vault credit may survive the abort.
	bx, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), bx.Data.VaultBalance)
	by, err := h.p.GetBasset("usdy")
	require.NoError(t, err)
	require.Equal(t, units(1000, 6), by.Data.VaultBalance)

	minted, err := h.poolTok.BalanceOf(alice)
	require.NoError(t, err)
	require.True(t, minted.IsZero())
}

func TestMintRejectsDepositPricingToZero(t *testing.T) {
	h := defaultHarness(t)

	// Shrink the supply far below the invariant so a dust deposit's share
	// truncates to zero minted tokens.
	require.NoError(t, h.poolTok.Burn(seedHolder, units(2999, 18)))

	_, err := h.p.Mint(alice, "usdx", sdkmath.NewInt(1000), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrZeroMintOutput)

	bal, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 18), bal, "aborted dust deposit must be refunded")

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), b.Data.VaultBalance)
}

func TestSwapMatchesQuoteAndAccruesFee(t *testing.T) {
	h := defaultHarness(t)
	qty := units(10, 18)

	quote, err := h.p.GetSwapOutput("usdx", "usdz", qty)
	require.NoError(t, err)

	res, err := h.p.Swap(alice, "usdx", "usdz", qty, sdkmath.Int{}, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.OutputQty)
	require.True(t, res.OutputQty.IsPositive())
	require.True(t, res.OutputQty.LT(qty), "stable swap output must stay below input")
	require.True(t, res.ScaledFee.IsPositive())

	// The swap fee splits 90/10 between the pool surplus and governance.
	total := h.fees.Surplus().Add(h.fees.GovSurplus())
	require.Equal(t, res.ScaledFee, total)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("0.1").MulInt(res.ScaledFee).TruncateInt(), h.fees.GovSurplus())

	bal, err := h.books["usdz"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 18).Add(res.OutputQty), bal)
}

func TestSwapRejectsSameAsset(t *testing.T) {
	h := defaultHarness(t)
	_, err := h.p.Swap(alice, "usdx", "usdx", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, basket.ErrInvalidAsset)

	_, err = h.p.GetSwapOutput("usdx", "usdx", units(1, 18))
	require.ErrorIs(t, err, basket.ErrInvalidAsset)
}

func TestSwapRefundsWhenBelowMinimum(t *testing.T) {
	h := defaultHarness(t)
	qty := units(10, 18)
	before, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)

	_, err = h.p.Swap(alice, "usdx", "usdz", qty, qty, alice)
	require.ErrorIs(t, err, ErrSwapOutputBelowMinimum)

	after, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRedeemMatchesQuoteAndBurns(t *testing.T) {
	h := defaultHarness(t)
	qty := units(10, 18)

	quote, err := h.p.GetRedeemOutput("usdy", qty)
	require.NoError(t, err)

	res, err := h.p.Redeem(seedHolder, "usdy", qty, sdkmath.Int{}, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.Quantity[0])
	require.Equal(t, qty, res.Burned)

	// Output value cannot exceed the burned value: 10 pool tokens buy at most
	// 10 usdy (6 decimals).
	require.True(t, res.Quantity[0].LTE(units(10, 6)))
	require.True(t, res.Quantity[0].IsPositive())

	supply, err := h.poolTok.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, units(3000, 18).Sub(qty), supply)

	bal, err := h.books["usdy"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 6).Add(res.Quantity[0]), bal)
}

func TestRedeemProportionallyDistributesProRata(t *testing.T) {
	h := defaultHarness(t)
	qty := units(300, 18)

	quote, err := h.p.GetRedeemProportionalOutput(qty)
	require.NoError(t, err)

	res, err := h.p.RedeemProportionally(seedHolder, qty, nil, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.Quantity)
	require.Equal(t, []string{"usdx", "usdy", "usdz"}, res.Outputs)

	// Equal 1000-unit vaults redeem equal shares; the fee keeps each share
	// below a tenth of the vault.
	require.Equal(t, res.Quantity[0], res.Quantity[2])
	require.True(t, res.Quantity[0].LT(units(100, 18)))
	require.True(t, res.Quantity[1].LT(units(100, 6)))
	require.True(t, res.Quantity[0].IsPositive())
}

func TestRedeemExactHonoursMaxBurn(t *testing.T) {
	h := defaultHarness(t)
	outputs := []string{"usdx", "usdy"}
	qtys := []sdkmath.Int{units(5, 18), units(5, 6)}

	quote, err := h.p.GetRedeemExactOutput(outputs, qtys)
	require.NoError(t, err)
	// The burn covers the withdrawn value plus the redemption fee.
	require.True(t, quote.GT(units(10, 18)))

	_, err = h.p.RedeemExactBassets(seedHolder, outputs, qtys, quote.SubRaw(1), alice)
	require.ErrorIs(t, err, ErrRedeemBurnAboveMaximum)

	res, err := h.p.RedeemExactBassets(seedHolder, outputs, qtys, quote, alice)
	require.NoError(t, err)
	require.Equal(t, quote, res.Burned)
	require.Equal(t, qtys, res.Quantity)

	bx, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(995, 18), bx.Data.VaultBalance)
}

func TestRedeemRemintsWhenSettlementFails(t *testing.T) {
	h := defaultHarness(t)

	// Drain the pool's raw usdx so the outbound transfer cannot be served.
	require.NoError(t, h.books["usdx"].TransferHolder(poolAddr, "sink", units(999, 18)))

	before, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)

	_, err = h.p.Redeem(seedHolder, "usdx", units(100, 18), sdkmath.Int{}, alice)
	require.Error(t, err)

	after, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)
	require.Equal(t, before, after, "burn must be reverted when settlement fails")

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), b.Data.VaultBalance)
}

// platformPullHarness builds a pool whose usdz is mostly parked on a platform
// that fails every withdrawal, so any outflow needing a pull aborts.
func platformPullHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000},
		{addr: "usdy", decimals: 6, vault: 1000},
		{addr: "usdz", decimals: 18, vault: 1000, integrator: "lender"},
	}, "0")

	_, err := h.adapters["lender"].Deposit("usdz", units(999, 18))
	require.NoError(t, err)
	h.p.platforms.Register("lender", &failingAdapter{
		fakeAdapter:  h.adapters["lender"],
		failWithdraw: true,
	})
	return h
}

func TestRedeemProportionalDeliversNothingWhenPlatformPullFails(t *testing.T) {
	h := platformPullHarness(t)

	burnBefore, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)

	_, err = h.p.RedeemProportionally(seedHolder, units(300, 18), nil, alice)
	require.Error(t, err)

	// Nothing was delivered, nothing was debited, and the burn came back.
	for addr, decimals := range map[string]int{"usdx": 18, "usdy": 6, "usdz": 18} {
		bal, berr := h.books[addr].BalanceOf(alice)
		require.NoError(t, berr)
		require.Equal(t, units(1_000_000, decimals), bal, addr)
		b, gerr := h.p.GetBasset(addr)
		require.NoError(t, gerr)
		require.Equal(t, units(1000, decimals), b.Data.VaultBalance, addr)
	}
	burnAfter, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)
	require.Equal(t, burnBefore, burnAfter)
}

func TestRedeemExactDeliversNothingWhenPlatformPullFails(t *testing.T) {
	h := platformPullHarness(t)

	burnBefore, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)

	_, err = h.p.RedeemExactBassets(seedHolder,
		[]string{"usdx", "usdz"},
		[]sdkmath.Int{units(5, 18), units(50, 18)},
		sdkmath.Int{}, alice)
	require.Error(t, err)

	bal, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 18), bal)

	bx, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), bx.Data.VaultBalance)

	burnAfter, err := h.poolTok.BalanceOf(seedHolder)
	require.NoError(t, err)
	require.Equal(t, burnBefore, burnAfter)
}

func TestTransferFeeAssetMintsObservedAmount(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000},
		{addr: "feet", decimals: 18, vault: 1000, transferFee: true, bookFeeRate: "0.01"},
	}, "0")

	qty := units(100, 18)
	res, err := h.p.Mint(alice, "feet", qty, sdkmath.Int{}, alice)
	require.NoError(t, err)

	// The book burned 1% in flight; only the observed 99 are credited.
	require.Equal(t, units(99, 18), res.Quantity[0])
	require.True(t, res.Minted.LTE(units(99, 18)))

	b, err := h.p.GetBasset("feet")
	require.NoError(t, err)
	require.Equal(t, units(1099, 18), b.Data.VaultBalance)
}

func TestUnflaggedTransferShortfallAborts(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000},
		{addr: "feet", decimals: 18, vault: 1000, bookFeeRate: "0.01"},
	}, "0")

	_, err := h.p.Mint(alice, "feet", units(100, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrAssetNotFullyTransferred)
}

func TestPauseBlocksMutatingOperations(t *testing.T) {
	h := defaultHarness(t)
	h.gov.paused = true

	_, err := h.p.Mint(alice, "usdx", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrPaused)
	_, err = h.p.Swap(alice, "usdx", "usdz", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrPaused)
	_, err = h.p.Redeem(seedHolder, "usdx", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrPaused)
}

func TestFailedBasketBlocksMutatingOperations(t *testing.T) {
	h := defaultHarness(t)
	h.ledger.SetFailed(true)

	_, err := h.p.Mint(alice, "usdx", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, basket.ErrBasketUnhealthy)
}

func TestGovernedSettersRequireGovernor(t *testing.T) {
	h := defaultHarness(t)
	newFee := sdkmath.LegacyMustNewDecFromStr("0.001")

	err := h.p.SetFees(alice, newFee, newFee)
	require.ErrorIs(t, err, ErrNotGovernor)

	require.NoError(t, h.p.SetFees(governor, newFee, newFee))
	cfg := h.p.GetConfig()
	require.Equal(t, newFee, cfg.Fees.SwapFee)
	require.Equal(t, newFee, cfg.Fees.RedemptionFee)

	err = h.p.StartRampA(alice, sdkmath.NewInt(200), 0)
	require.ErrorIs(t, err, ErrNotGovernor)
	err = h.p.StopRampA(alice)
	require.ErrorIs(t, err, ErrNotGovernor)
}

func TestSetWeightLimitsValidates(t *testing.T) {
	h := defaultHarness(t)

	err := h.p.SetWeightLimits(governor, types.WeightLimits{
		Min: sdkmath.LegacyMustNewDecFromStr("0.8"),
		Max: sdkmath.LegacyMustNewDecFromStr("0.5"),
	})
	require.ErrorIs(t, err, ErrInvalidWeightLimits)

	limits := types.WeightLimits{
		Min: sdkmath.LegacyMustNewDecFromStr("0.1"),
		Max: sdkmath.LegacyMustNewDecFromStr("0.5"),
	}
	require.NoError(t, h.p.SetWeightLimits(governor, limits))
	require.Equal(t, limits, h.p.GetConfig().Limits)
}

func TestHandlePegLossIsolatesAndRestores(t *testing.T) {
	h := defaultHarness(t)

	require.NoError(t, h.p.HandlePegLoss(governor, "usdy", true))
	view := h.p.GetBasket()
	require.True(t, view.UndergoingRecollateralisation)

	_, err := h.p.Mint(alice, "usdy", units(1, 6), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrAssetNotAllowed)
	_, err = h.p.Swap(alice, "usdx", "usdy", units(1, 18), sdkmath.Int{}, alice)
	require.ErrorIs(t, err, ErrAssetNotAllowed)

	// Isolating again in the other direction is a no-op while broken.
	require.NoError(t, h.p.HandlePegLoss(governor, "usdy", false))
	b, err := h.p.GetBasset("usdy")
	require.NoError(t, err)
	require.Equal(t, types.StatusBrokenBelowPeg, b.Personal.Status)

	require.NoError(t, h.p.NegateIsolation(governor, "usdy"))
	require.False(t, h.p.GetBasket().UndergoingRecollateralisation)

	_, err = h.p.Mint(alice, "usdy", units(1, 6), sdkmath.Int{}, alice)
	require.NoError(t, err)
}

func TestCollectPendingFeesMintsClaims(t *testing.T) {
	h := defaultHarness(t)

	_, _, err := h.p.CollectPendingFees(alice)
	require.ErrorIs(t, err, ErrNotFeeCollector)
	_, _, err = h.p.CollectPendingFees(collector)
	require.ErrorIs(t, err, fees.ErrNothingToCollect)

	_, err = h.p.Swap(alice, "usdx", "usdz", units(100, 18), sdkmath.Int{}, alice)
	require.NoError(t, err)

	surplus, govSurplus, err := h.p.CollectPendingFees(collector)
	require.NoError(t, err)
	require.True(t, surplus.IsPositive())
	require.True(t, govSurplus.IsPositive())

	feeBal, err := h.poolTok.BalanceOf(feeRecipient)
	require.NoError(t, err)
	require.Equal(t, surplus, feeBal)
	govBal, err := h.poolTok.BalanceOf(govRecipient)
	require.NoError(t, err)
	require.Equal(t, govSurplus, govBal)

	_, _, err = h.p.CollectPendingFees(collector)
	require.ErrorIs(t, err, fees.ErrNothingToCollect)
}

func TestCollectPlatformInterest(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
	}, "0.1")

	_, err := h.p.CollectPlatformInterest(collector)
	require.ErrorIs(t, err, fees.ErrNothingToCollect)

	// Simulate 10 usdx of yield arriving on the platform.
	require.NoError(t, h.books["usdx"].Mint("lender", units(10, 18)))

	minted, err := h.p.CollectPlatformInterest(collector)
	require.NoError(t, err)
	require.Equal(t, units(10, 18), minted)

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1010, 18), b.Data.VaultBalance)

	bal, err := h.poolTok.BalanceOf(feeRecipient)
	require.NoError(t, err)
	require.Equal(t, minted, bal)
}

func TestCollectPlatformInterestSanityCap(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
	}, "0.1")

	// 50 usdx against a 2000 supply is 2.5%, above the 1% collection cap.
	require.NoError(t, h.books["usdx"].Mint("lender", units(50, 18)))

	_, err := h.p.CollectPlatformInterest(collector)
	require.ErrorIs(t, err, ErrInterestTooLarge)
}

func TestCachePolicyDrainsDepositsToPlatform(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
		{addr: "usdz", decimals: 18, vault: 1000},
	}, "0.1")

	// maxCache = 10% of the 3000 supply = 300 units; the raw balance already
	// breaches it, so the first inflow drains down to 150.
	_, err := h.p.Mint(alice, "usdx", units(10, 18), sdkmath.Int{}, alice)
	require.NoError(t, err)

	raw, err := h.books["usdx"].BalanceOf(poolAddr)
	require.NoError(t, err)
	require.Equal(t, units(150, 18), raw)

	held, err := h.adapters["lender"].CheckBalance("usdx")
	require.NoError(t, err)
	require.Equal(t, units(860, 18), held)

	// The vault still accounts for raw plus platform-held.
	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1010, 18), b.Data.VaultBalance)
}

func TestCachePolicyPullsForWithdrawals(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
		{addr: "usdz", decimals: 18, vault: 1000},
	}, "0.1")

	// Park most of the vault on the platform, leaving 10 raw.
	_, err := h.adapters["lender"].Deposit("usdx", units(990, 18))
	require.NoError(t, err)

	res, err := h.p.Redeem(seedHolder, "usdx", units(100, 18), sdkmath.Int{}, alice)
	require.NoError(t, err)

	bal, err := h.books["usdx"].BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, units(1_000_000, 18).Add(res.Quantity[0]), bal)

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18).Sub(res.Quantity[0]), b.Data.VaultBalance)
}

func TestMigrateBassetsMovesPlatformHoldings(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
	}, "0.1")
	next := &fakeAdapter{holder: "lender2", books: h.books}
	h.p.platforms.Register("lender2", next)

	_, err := h.adapters["lender"].Deposit("usdx", units(800, 18))
	require.NoError(t, err)

	err = h.p.MigrateBassets(alice, []string{"usdx"}, "lender2")
	require.ErrorIs(t, err, ErrNotGovernor)

	require.NoError(t, h.p.MigrateBassets(governor, []string{"usdx"}, "lender2"))

	old, err := h.adapters["lender"].CheckBalance("usdx")
	require.NoError(t, err)
	require.True(t, old.IsZero())

	landed, err := next.CheckBalance("usdx")
	require.NoError(t, err)
	require.Equal(t, units(1000, 18), landed)

	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, "lender2", b.Personal.Integrator)
	require.Equal(t, units(1000, 18), b.Data.VaultBalance)
}

func TestMigrateBassetsRejectsUnderReportedBalance(t *testing.T) {
	h := newHarness(t, []assetSpec{
		{addr: "usdx", decimals: 18, vault: 1000, integrator: "lender"},
		{addr: "usdy", decimals: 6, vault: 1000},
	}, "0.1")
	next := &shortAdapter{&fakeAdapter{holder: "shifty", books: h.books}}
	h.p.platforms.Register("shifty", next)

	_, err := h.adapters["lender"].Deposit("usdx", units(800, 18))
	require.NoError(t, err)

	err = h.p.MigrateBassets(governor, []string{"usdx"}, "shifty")
	require.ErrorIs(t, err, ErrIncompleteTransfer)

	// The integrator must not switch when the new platform cannot account
	// for the full amount.
	b, err := h.p.GetBasset("usdx")
	require.NoError(t, err)
	require.Equal(t, "lender", b.Personal.Integrator)
}

func TestSnapshotRoundTripRestoresPool(t *testing.T) {
	h := defaultHarness(t)
	_, err := h.p.Swap(alice, "usdx", "usdz", units(10, 18), sdkmath.Int{}, alice)
	require.NoError(t, err)

	snap := h.p.Snapshot()
	require.Equal(t, "susd", snap.PoolName)
	require.Len(t, snap.Bassets, 3)
	require.True(t, snap.Surplus.Add(snap.GovSurplus).IsPositive())

	ledger, err := basket.Restore(snap)
	require.NoError(t, err)
	restoredVault, err := ledger.TotalVaultValue()
	require.NoError(t, err)
	wantVault, err := h.ledger.TotalVaultValue()
	require.NoError(t, err)
	require.Equal(t, wantVault, restoredVault)
}

func TestEffectiveSupplyIncludesPendingFees(t *testing.T) {
	h := defaultHarness(t)
	qty := units(30, 18)

	before, err := h.p.GetRedeemProportionalOutput(qty)
	require.NoError(t, err)

	// Pending fee claims count toward the supply, so the same burn buys a
	// smaller share of the vault once fees accrue.
	h.fees.Restore(units(300, 18), sdkmath.ZeroInt())

	after, err := h.p.GetRedeemProportionalOutput(qty)
	require.NoError(t, err)
	for i := range after {
		require.True(t, after[i].LT(before[i]))
	}
}
