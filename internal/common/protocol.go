package common

import (
	"fmt"
	"os"
	"path/filepath"

	"inheritance-vault-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Hard caps on the fee rates an operator can configure, in basis points.
const (
	MaxCreationFeeBps     = 200
	MaxDistributionFeeBps = 500
)

type protocolFile struct {
	CreationFeeBps     int64  `yaml:"creation_fee_bps"`
	DistributionFeeBps int64  `yaml:"distribution_fee_bps"`
	NFTFeePerItem      string `yaml:"nft_fee_per_item"`
	NFTFeeMinimum      string `yaml:"nft_fee_minimum"`
	FeeSink            string `yaml:"fee_sink"`
}

// LoadProtocolParams reads the fee schedule from a yaml file. Amounts are
// native base units as decimal strings.
func LoadProtocolParams(file string) (models.ProtocolParams, error) {
	var path string
	if filepath.IsAbs(file) {
		path = file
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return models.ProtocolParams{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, file)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.ProtocolParams{}, fmt.Errorf("unable to read %s: %w", file, err)
	}

	var pf protocolFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return models.ProtocolParams{}, fmt.Errorf("unable to parse %s: %w", file, err)
	}

	if pf.CreationFeeBps < 0 || pf.CreationFeeBps > MaxCreationFeeBps {
		return models.ProtocolParams{}, fmt.Errorf("creation_fee_bps %d outside [0, %d]", pf.CreationFeeBps, MaxCreationFeeBps)
	}
	if pf.DistributionFeeBps < 0 || pf.DistributionFeeBps > MaxDistributionFeeBps {
		return models.ProtocolParams{}, fmt.Errorf("distribution_fee_bps %d outside [0, %d]", pf.DistributionFeeBps, MaxDistributionFeeBps)
	}

	perItem := decimal.Zero
	if pf.NFTFeePerItem != "" {
		if perItem, err = decimal.NewFromString(pf.NFTFeePerItem); err != nil {
			return models.ProtocolParams{}, fmt.Errorf("invalid nft_fee_per_item %q: %w", pf.NFTFeePerItem, err)
		}
	}
	minimum := decimal.Zero
	if pf.NFTFeeMinimum != "" {
		if minimum, err = decimal.NewFromString(pf.NFTFeeMinimum); err != nil {
			return models.ProtocolParams{}, fmt.Errorf("invalid nft_fee_minimum %q: %w", pf.NFTFeeMinimum, err)
		}
	}
	if perItem.IsNegative() || minimum.IsNegative() {
		return models.ProtocolParams{}, fmt.Errorf("nft fee amounts must not be negative")
	}

	if pf.FeeSink != "" && !common.IsHexAddress(pf.FeeSink) {
		return models.ProtocolParams{}, fmt.Errorf("invalid fee_sink %q", pf.FeeSink)
	}

	return models.ProtocolParams{
		CreationFeeBps:     pf.CreationFeeBps,
		DistributionFeeBps: pf.DistributionFeeBps,
		NFTFeePerItem:      perItem,
		NFTFeeMinimum:      minimum,
		FeeSink:            common.HexToAddress(pf.FeeSink),
	}, nil
}
