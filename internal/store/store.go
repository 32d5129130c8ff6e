package store

import (
	"context"
	"errors"
	"time"

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Sentinel errors shared across backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrVaultNotFound          = errors.New("vault not found")
	ErrVaultExists            = errors.New("vault already initialized")
)

// DepositParams describes one incoming asset transfer into a vault.
type DepositParams struct {
	VaultId      string
	From         common.Address
	Asset        assets.Asset
	Amount       decimal.Decimal
	ToFeeReserve bool
	ExternalTxId string
	At           time.Time

	// RefreshActivity is set when the depositor is the vault owner; the
	// deposit then counts as proof of life.
	RefreshActivity bool
}

// WithdrawalParams describes one owner-initiated asset transfer out of a vault.
type WithdrawalParams struct {
	VaultId        string
	To             common.Address
	Asset          assets.Asset
	Amount         decimal.Decimal
	FromFeeReserve bool
	ExternalTxId   string
	At             time.Time
}

// PlannedMovement is one asset transfer inside a distribution or emergency
// withdrawal. BestEffort movements that fail to book are skipped rather than
// aborting the whole plan ("fee collection is soft, heir payout is hard").
type PlannedMovement struct {
	To          string
	Asset       assets.Asset
	Amount      decimal.Decimal
	Kind        string
	BestEffort  bool
	FromReserve bool
	Reference   string
}

// DistributionPlan is the complete outcome of one distribute() or
// emergency-withdraw call. It is applied atomically: either every hard
// movement books together with the executed flag, or nothing persists.
type DistributionPlan struct {
	VaultId    string
	Movements  []PlannedMovement
	NFTFee     decimal.Decimal // paid from the fee reserve to the sink
	FeeSink    common.Address
	ExecutedAt time.Time
	Emergency  bool
}

// FundingParams describes the native value sent at vault creation and how it
// splits into creation fee, NFT fee reserve and stored net balance.
type FundingParams struct {
	From         common.Address
	Deposit      decimal.Decimal
	CreationFee  decimal.Decimal
	FeeReserve   decimal.Decimal
	FeeSink      common.Address
	ExternalTxId string
}

// VaultStore defines the persistence contract the engine, registry and
// factory rely on. All mutating methods are atomic at the call level.
type VaultStore interface {
	// --- Vaults ---
	CreateVault(ctx context.Context, v *models.Vault, funding FundingParams) error
	GetVault(ctx context.Context, id string) (*models.Vault, error)
	TouchVault(ctx context.Context, id string, at time.Time) error
	ReplaceHeirs(ctx context.Context, id string, heirs []models.Heir, at time.Time) error
	SetInactivityPeriod(ctx context.Context, id string, period time.Duration, at time.Time) error
	ApplyDeposit(ctx context.Context, p DepositParams) error
	ApplyWithdrawal(ctx context.Context, p WithdrawalParams) error
	ApplyDistribution(ctx context.Context, plan DistributionPlan) error

	// --- Registry ---
	LoadRegistry(ctx context.Context) ([]models.RegistryEntry, int, error)
	AppendRegistryEntry(ctx context.Context, e models.RegistryEntry) error
	SwapRemoveRegistryEntry(ctx context.Context, vaultId, lastVaultId string, position int) error
	SaveCursor(ctx context.Context, cursor int) error

	// --- Factory index (append-only) ---
	VaultsByOwner(ctx context.Context, owner common.Address) ([]string, error)
	VaultsByHeir(ctx context.Context, heir common.Address) ([]string, error)

	// --- Subledger ---
	AccountBalance(ctx context.Context, account, asset string) (decimal.Decimal, error)
	AccountBalances(ctx context.Context, account string) ([]models.AccountBalance, error)
	TransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.Transaction, error)

	// --- Lifecycle ---
	Close()
}
