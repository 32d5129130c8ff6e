package common

import (
	"context"
	"log"
	"strings"

	"inheritance-vault-go/internal/database"
	"inheritance-vault-go/internal/factory"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/vault"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService *database.Service
	Engine    *vault.Engine
	Registry  *registry.Registry
	Factory   *factory.Factory
	Protocol  models.ProtocolParams
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires database, engine, registry and factory together.
// The registry supplies the engine's fee rates and receives its execution
// callbacks; the wiring order exists because both sides need the other.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	protocol, err := LoadProtocolParams(cfg.ProtocolFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	clock := clockwork.NewRealClock()
	engine := vault.NewEngine(dbService, clock)

	reg, err := registry.New(ctx, dbService, engine, protocol, cfg.Factory.Account)
	if err != nil {
		dbService.Close()
		return nil, err
	}
	engine.Attach(reg, reg)

	fac := factory.New(dbService, reg, protocol, clock, cfg.Factory.Account)

	zap.L().Info("Services initialized",
		zap.String("database", cfg.Database.Path),
		zap.Int("tracked_vaults", reg.Len()),
		zap.Int64("distribution_fee_bps", protocol.DistributionFeeBps))

	return &Services{
		DbService: dbService,
		Engine:    engine,
		Registry:  reg,
		Factory:   fac,
		Protocol:  protocol,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
