package vault

import (
	"fmt"
	"time"

	"inheritance-vault-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxHeirs bounds the heir list length.
	MaxHeirs = 10

	// MinInactivityPeriod and MaxInactivityPeriod bound the timeout.
	MinInactivityPeriod = time.Hour
	MaxInactivityPeriod = 3650 * 24 * time.Hour
)

// ValidateHeirs enforces the heir configuration rules: 1-10 entries, no zero
// addresses, no duplicates, basis points summing to exactly 10000.
func ValidateHeirs(heirs []models.Heir) error {
	if len(heirs) == 0 {
		return fmt.Errorf("%w: no heirs configured", ErrInvalidHeirPercentages)
	}
	if len(heirs) > MaxHeirs {
		return fmt.Errorf("%w: %d heirs, maximum %d", ErrTooManyHeirs, len(heirs), MaxHeirs)
	}

	seen := make(map[common.Address]bool, len(heirs))
	var sum int64
	for _, h := range heirs {
		if h.Address == (common.Address{}) {
			return fmt.Errorf("%w: heir address", ErrZeroAddress)
		}
		if seen[h.Address] {
			return fmt.Errorf("%w: %s", ErrHeirAlreadyExists, h.Address.Hex())
		}
		seen[h.Address] = true
		if h.Bps <= 0 || h.Bps > bpsDenominator {
			return fmt.Errorf("%w: share %d out of range", ErrInvalidHeirPercentages, h.Bps)
		}
		sum += h.Bps
	}
	if sum != bpsDenominator {
		return fmt.Errorf("%w: got %d", ErrInvalidHeirPercentages, sum)
	}
	return nil
}

// ValidatePeriod enforces the inactivity period bounds.
func ValidatePeriod(period time.Duration) error {
	if period < MinInactivityPeriod || period > MaxInactivityPeriod {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidPeriod, period, MinInactivityPeriod, MaxInactivityPeriod)
	}
	return nil
}
