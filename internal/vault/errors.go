package vault

import "errors"

// Error taxonomy for vault, registry and factory operations. Every error
// aborts its whole operation with no partial effect, except where the registry
// batch loop deliberately isolates per-vault failures.
var (
	ErrZeroAddress            = errors.New("zero address")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyExecuted        = errors.New("vault already executed")
	ErrStillActive            = errors.New("vault still active")
	ErrInvalidPeriod          = errors.New("invalid inactivity period")
	ErrInvalidHeirPercentages = errors.New("heir percentages must sum to 10000")
	ErrTooManyHeirs           = errors.New("too many heirs")
	ErrHeirAlreadyExists      = errors.New("duplicate heir")
	ErrInsufficientValue      = errors.New("insufficient value")
	ErrInsufficientFeeDeposit = errors.New("insufficient fee deposit")
	ErrInsufficientFeeBalance = errors.New("fee deposit cannot cover nft fee")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrNoAssets               = errors.New("no assets to distribute")
	ErrAlreadyInitialized     = errors.New("vault already initialized")
	ErrCannotWithdrawWithNFTs = errors.New("cannot withdraw fee reserve while nfts are held")
)
