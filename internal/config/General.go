package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AdminAddress is the single principal allowed to call management operations.
	AdminAddress string

	// AssetDenom is the deposit asset accepted by the vault (e.g. "uusdc").
	AssetDenom string
	// AssetDecimals is the precision of the deposit asset (USDC: 6).
	AssetDecimals int

	// MinDeposit and MaxDeposit bound a single deposit, in asset base units.
	MinDeposit sdkmath.Int
	MaxDeposit sdkmath.Int
	// MaxTotalDeposit caps the aggregate pool value, in asset base units.
	MaxTotalDeposit sdkmath.Int

	// CooldownBlocks is the minimum block distance between a principal's
	// deposits, and between their last deposit and a redemption.
	CooldownBlocks uint64

	// WithdrawFeeBps is the flat withdrawal fee in basis points.
	WithdrawFeeBps uint32
	// MaxSlippageBps is the tolerated shortfall between theoretical and
	// recovered withdrawal amounts, in basis points.
	MaxSlippageBps uint32
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AdminAddress, err = getEnv("VAULT_ADMIN_ADDRESS")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("VAULT_ASSET_DENOM")
	if err != nil {
		return err
	}

	AssetDecimals, err = getEnvAsInt("VAULT_ASSET_DECIMALS")
	if err != nil {
		return err
	}

	MinDeposit, err = getEnvAsInt256("VAULT_MIN_DEPOSIT")
	if err != nil {
		return err
	}

	MaxDeposit, err = getEnvAsInt256("VAULT_MAX_DEPOSIT")
	if err != nil {
		return err
	}

	MaxTotalDeposit, err = getEnvAsInt256("VAULT_MAX_TOTAL_DEPOSIT")
	if err != nil {
		return err
	}

	CooldownBlocks, err = getEnvAsUint64("VAULT_COOLDOWN_BLOCKS")
	if err != nil {
		return err
	}

	feeBps, err := getEnvAsUint64("VAULT_WITHDRAW_FEE_BPS")
	if err != nil {
		return err
	}
	WithdrawFeeBps = uint32(feeBps)

	slippageBps, err := getEnvAsUint64("VAULT_MAX_SLIPPAGE_BPS")
	if err != nil {
		return err
	}
	MaxSlippageBps = uint32(slippageBps)

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("AdminAddress", AdminAddress).
		Str("AssetDenom", AssetDenom).
		Uint64("CooldownBlocks", CooldownBlocks).
		Uint32("WithdrawFeeBps", WithdrawFeeBps).
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

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt256 retrieves an environment variable as an sdkmath.Int in base units.
func getEnvAsInt256(key string) (sdkmath.Int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok || value.IsNegative() {
		return sdkmath.ZeroInt(), errors.New("environment variable " + key + " must be a non-negative integer, got: " + valueStr)
	}
	return value, nil
}
