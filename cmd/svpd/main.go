package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/config"
	"github.com/basketfi/svp/internal/fees"
	"github.com/basketfi/svp/internal/logger"
	"github.com/basketfi/svp/internal/platform"
	"github.com/basketfi/svp/internal/pool"
	"github.com/basketfi/svp/internal/state"
	"github.com/basketfi/svp/internal/token"
	"github.com/basketfi/svp/internal/types"
	"github.com/basketfi/svp/internal/web"
)

// staticGovernance gates governed operations on the configured addresses.
type staticGovernance struct {
	governor     string
	feeCollector string
}

func (g staticGovernance) IsGovernor(caller string) bool     { return caller == g.governor }
func (g staticGovernance) IsUnpaused() bool                  { return true }
func (g staticGovernance) IsFeeCollector(caller string) bool { return caller == g.feeCollector }

// main is the entry point for the SVP daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("SVP Pool Engine Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Safety Switch ---
	if os.Getenv("SVP_MODE") != "live" {
		log.Fatal().Msg("SVP_MODE is not set to 'live'. Halting to prevent accidental execution. Set SVP_MODE=live to run.")
	}
	log.Warn().Msg("Initializing SVP in LIVE mode. Pool state will be mutated and persisted.")

	// --- 3. Restore or Bootstrap Pool State ---
	p, err := buildPool()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pool")
	}

	// --- Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	webServer := web.NewWebServer(webPort, config.PoolName, p)
	go func() {
		log.Info().Str("port", webPort).Msg("Starting pool status API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Collection Loop ---
	interval := time.Duration(config.CollectionIntervalMinutes) * time.Minute
	log.Info().Str("interval", interval.String()).Msg("Starting collection loop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runLoop(ctx, p, interval)
	log.Info().Msg("Shutdown complete")
}

// buildPool restores the pool from the latest snapshot when one exists and
// otherwise bootstraps from the genesis file.
func buildPool() (*pool.Pool, error) {
	snap, err := state.LoadLatestPoolSnapshot(config.PoolName)
	if err != nil {
		return nil, err
	}

	var (
		ledger  *basket.Ledger
		feeCtl  *fees.Controller
		ampData types.AmpData
		limits  types.WeightLimits
	)
	if snap != nil {
		log.Info().Time("snapshot", snap.Timestamp).Msg("Restoring pool from snapshot")
		ledger, err = basket.Restore(*snap)
		if err != nil {
			return nil, err
		}
		feeCtl, err = fees.NewController(snap.Fees)
		if err != nil {
			return nil, err
		}
		feeCtl.Restore(snap.Surplus, snap.GovSurplus)
		ampData = snap.Amp
		limits = snap.Limits
	} else {
		log.Info().Str("path", config.GenesisPath).Msg("No snapshot found, bootstrapping from genesis")
		genesis, err := config.LoadGenesis(config.GenesisPath)
		if err != nil {
			return nil, err
		}
		bassets, err := genesis.Bassets()
		if err != nil {
			return nil, err
		}
		ledger, err = basket.New(bassets)
		if err != nil {
			return nil, err
		}
		feeCfg, err := genesis.FeeConfig()
		if err != nil {
			return nil, err
		}
		feeCtl, err = fees.NewController(feeCfg)
		if err != nil {
			return nil, err
		}
		ampData = genesis.AmpData()
		limits, err = genesis.WeightLimits()
		if err != nil {
			return nil, err
		}
	}

	// Book-entry backends: running standalone, every asset and the pool token
	// are tracked as book entries owned by the pool address.
	assets := make(map[string]token.Token, ledger.Len())
	for _, b := range ledger.Bassets() {
		book := token.NewBook(config.PoolAddress)
		if b.Data.VaultBalance.IsPositive() {
			if err := book.Mint(config.PoolAddress, b.Data.VaultBalance); err != nil {
				return nil, err
			}
		}
		assets[b.Personal.Address] = book
	}
	poolToken := token.NewBook(config.PoolAddress)
	if snap != nil && snap.TotalSupply.IsPositive() {
		if err := poolToken.Mint(config.PoolAddress, snap.TotalSupply); err != nil {
			return nil, err
		}
	}

	return pool.New(pool.Config{
		Name:         config.PoolName,
		Address:      config.PoolAddress,
		FeeRecipient: config.FeeRecipient,
		GovRecipient: config.GovRecipient,
		Ledger:       ledger,
		Amp:          &ampData,
		Fees:         feeCtl,
		Limits:       limits,
		Platforms:    platform.NewRegistry(),
		PoolToken:    poolToken,
		Assets:       assets,
		Governance: staticGovernance{
			governor:     config.GovernorAddress,
			feeCollector: config.FeeCollectorAddress,
		},
	})
}

// runLoop collects platform interest and pending fees on a fixed interval and
// journals a snapshot after every cycle.
func runLoop(ctx context.Context, p *pool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runCycle(p)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runCycle(p *pool.Pool) {
	interest := sdkmath.ZeroInt()
	minted, err := p.CollectPlatformInterest(config.FeeCollectorAddress)
	switch {
	case err == nil:
		interest = minted
	case errors.Is(err, fees.ErrNothingToCollect):
		log.Debug().Msg("No platform interest to collect this cycle")
	default:
		log.Error().Err(err).Msg("Platform interest collection failed")
	}

	surplus, govSurplus := sdkmath.ZeroInt(), sdkmath.ZeroInt()
	s, g, err := p.CollectPendingFees(config.FeeCollectorAddress)
	switch {
	case err == nil:
		surplus, govSurplus = s, g
	case errors.Is(err, fees.ErrNothingToCollect):
		log.Debug().Msg("No pending fees to collect this cycle")
	default:
		log.Error().Err(err).Msg("Fee collection failed")
	}

	cycle, err := state.IncrementCollectionNumber()
	if err != nil {
		log.Error().Err(err).Msg("Failed to advance collection counter")
	}
	if _, err := state.SaveFeeCollection(state.FeeCollectionRecord{
		PoolName:         config.PoolName,
		CollectionNumber: cycle,
		CollectedAt:      time.Now().UTC(),
		SurplusMinted:    surplus,
		GovSurplusMinted: govSurplus,
		InterestMinted:   interest,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to journal fee collection")
	}
	if _, err := state.SavePoolSnapshot(p.Snapshot()); err != nil {
		log.Error().Err(err).Msg("Failed to persist pool snapshot")
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
