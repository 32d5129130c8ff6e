package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Heir is one beneficiary of a vault with its fixed share in basis points.
type Heir struct {
	Address common.Address
	Bps     int64
}

// TokenBalance is one fungible-token position held by a vault. The slice on
// Vault preserves insertion order.
type TokenBalance struct {
	Contract common.Address
	Balance  decimal.Decimal
}

// NFTHolding is a single non-fungible item held by a vault.
type NFTHolding struct {
	Contract common.Address
	TokenId  string
}

// SemiFungibleBalance is a per-(collection, id) balance for semi-fungible assets.
type SemiFungibleBalance struct {
	Contract common.Address
	TokenId  string
	Balance  decimal.Decimal
}

// Vault is a single custody-and-inheritance policy instance. Balance holds
// native base units and excludes FeeDeposit, which is a segregated reserve
// that only covers protocol fees on non-fungible distribution.
type Vault struct {
	Id               string
	Owner            common.Address
	Heirs            []Heir
	InactivityPeriod time.Duration
	LastActiveAt     time.Time
	Executed         bool
	Balance          decimal.Decimal
	FeeDeposit       decimal.Decimal
	FeeRequired      decimal.Decimal
	HasNFTs          bool
	Tokens           []TokenBalance
	NFTs             []NFTHolding
	SemiFungibles    []SemiFungibleBalance
	CreatedAt        time.Time
}

// RegistryEntry mirrors a tracked vault's owner and active state.
type RegistryEntry struct {
	VaultId string
	Owner   common.Address
	Active  bool
}
