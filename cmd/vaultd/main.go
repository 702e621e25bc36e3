package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/onevault-finance/onevault/internal/chain"
	"github.com/onevault-finance/onevault/internal/config"
	"github.com/onevault-finance/onevault/internal/logger"
	"github.com/onevault-finance/onevault/internal/state"
	"github.com/onevault-finance/onevault/internal/vault"
	"github.com/onevault-finance/onevault/internal/web"
)

// main is the entry point for the vault daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Vault daemon starting...")

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

	// --- 2. Chain and Engine Wiring ---
	blocks, err := chain.NewRPCBlockSource(config.NodeRPC)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", config.NodeRPC).Msg("Failed to connect block source")
	}

	engine, err := vault.New(vault.ParamsFromConfig(), blocks, state.NewVaultStore())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault engine")
	}

	// Replay persisted strategy records. They come back inactive; activation
	// requires adapters wired for the target venues.
	records, err := state.LoadStrategies()
	if err != nil {
		log.Warn().Err(err).Msg("Could not load persisted strategies, starting with an empty table")
	} else if len(records) > 0 {
		if err := engine.RestoreStrategies(records); err != nil {
			log.Fatal().Err(err).Msg("Failed to restore strategy records")
		}
		log.Info().Int("count", len(records)).Msg("Strategy records restored")
	}

	if err := engine.EnableTokens(config.AdminAddress, true, config.AssetDenom); err != nil {
		log.Fatal().Err(err).Msg("Failed to enable the deposit asset")
	}

	// --- 3. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting vault query API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	log.Info().
		Str("assetDenom", config.AssetDenom).
		Str("admin", config.AdminAddress).
		Msg("Vault daemon running. Engine operations are driven through the admin API.")

	// --- 4. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down vault daemon")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
