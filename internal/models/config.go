package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Server    ServerConfig
	Factory   FactoryConfig

	// ProtocolFile points at the protocol.yaml holding fee parameters.
	ProtocolFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SchedulerConfig holds distribution scheduler settings
type SchedulerConfig struct {
	PollingInterval time.Duration
}

// ServerConfig holds the read-only HTTP API settings
type ServerConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// FactoryConfig identifies the factory account used for fee bookkeeping and
// registry authorization.
type FactoryConfig struct {
	Account common.Address
}

// ProtocolParams are the fee parameters loaded from protocol.yaml. Amounts are
// native base units; rates are basis points out of 10000.
type ProtocolParams struct {
	CreationFeeBps     int64
	DistributionFeeBps int64
	NFTFeePerItem      decimal.Decimal
	NFTFeeMinimum      decimal.Decimal
	FeeSink            common.Address
}
