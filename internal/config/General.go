package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolName identifies the pool this daemon instance manages.
	PoolName string
	// PoolAddress is the pool's own holding address, used when observing
	// token balance deltas.
	PoolAddress string

	// GovernorAddress is the address authorized for governed operations.
	GovernorAddress string
	// FeeCollectorAddress is the address authorized to collect fees and
	// platform interest.
	FeeCollectorAddress string
	// FeeRecipient receives minted fee and interest claims.
	FeeRecipient string
	// GovRecipient receives the governance cut of collected fees.
	GovRecipient string

	// GenesisPath points at the pool genesis JSON used on first start.
	GenesisPath string

	// CollectionIntervalMinutes is the period of the interest-collection loop.
	CollectionIntervalMinutes uint64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolName, err = getEnv("SVP_POOL_NAME")
	if err != nil {
		return err
	}

	PoolAddress, err = getEnv("SVP_POOL_ADDRESS")
	if err != nil {
		return err
	}

	GovernorAddress, err = getEnv("SVP_GOVERNOR_ADDRESS")
	if err != nil {
		return err
	}

	FeeCollectorAddress, err = getEnv("SVP_FEE_COLLECTOR_ADDRESS")
	if err != nil {
		return err
	}

	FeeRecipient, err = getEnv("SVP_FEE_RECIPIENT")
	if err != nil {
		return err
	}

	GovRecipient, err = getEnv("SVP_GOV_RECIPIENT")
	if err != nil {
		return err
	}

	GenesisPath, err = getEnv("SVP_GENESIS_PATH")
	if err != nil {
		return err
	}

	CollectionIntervalMinutes, err = getEnvAsUint64("SVP_COLLECTION_INTERVAL_MINUTES")
	if err != nil {
		return err
	}

	log.Debug().
		Str("PoolName", PoolName).
		Str("PoolAddress", PoolAddress).
		Str("FeeRecipient", FeeRecipient).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
