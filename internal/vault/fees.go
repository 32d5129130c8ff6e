package vault

import (
	"encoding/binary"
	"math/big"
	"time"

	"inheritance-vault-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// PercentOf computes amount * bps / 10000 with truncation toward zero,
// matching integer division in the on-chain accounting. The order matters to
// observers: fee first, then per-heir split, each truncated independently.
func PercentOf(amount decimal.Decimal, bps int64) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(bps)).QuoRem(decimal.NewFromInt(bpsDenominator), 0)
	return q
}

// nftFee is the one-time fee for distributing non-fungible items:
// max(minimum, count * perItem), paid only from the segregated fee reserve.
func nftFee(count int, perItem, minimum decimal.Decimal) decimal.Decimal {
	fee := perItem.Mul(decimal.NewFromInt(int64(count)))
	if fee.LessThan(minimum) {
		return minimum
	}
	return fee
}

// selectHeir picks the recipient of one indivisible item by hashing
// (collection, item id, timestamp), reducing mod 10000 and walking the heirs'
// cumulative basis-point ranges. Deterministic and proportional in
// expectation, but not a cryptographic fairness guarantee.
func selectHeir(heirs []models.Heir, contract common.Address, tokenId string, at time.Time) common.Address {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.Unix()))
	digest := crypto.Keccak256(contract.Bytes(), []byte(tokenId), ts[:])

	roll := new(big.Int).Mod(new(big.Int).SetBytes(digest), big.NewInt(bpsDenominator)).Int64()

	var cumulative int64
	for _, h := range heirs {
		cumulative += h.Bps
		if roll < cumulative {
			return h.Address
		}
	}
	return heirs[len(heirs)-1].Address
}
