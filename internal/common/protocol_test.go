package common

import (
	"os"
	"path/filepath"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProtocolFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadProtocolParams(t *testing.T) {
	path := writeProtocolFile(t, `
creation_fee_bps: 50
distribution_fee_bps: 20
nft_fee_per_item: "100"
nft_fee_minimum: "250"
fee_sink: "0xFFFF000000000000000000000000000000000001"
`)

	params, err := LoadProtocolParams(path)
	require.NoError(t, err)
	assert.Equal(t, int64(50), params.CreationFeeBps)
	assert.Equal(t, int64(20), params.DistributionFeeBps)
	assert.True(t, params.NFTFeePerItem.Equal(decimal.NewFromInt(100)))
	assert.True(t, params.NFTFeeMinimum.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, ethcommon.HexToAddress("0xffff000000000000000000000000000000000001"), params.FeeSink)
}

func TestLoadProtocolParams_Defaults(t *testing.T) {
	params, err := LoadProtocolParams(writeProtocolFile(t, "creation_fee_bps: 0\n"))
	require.NoError(t, err)
	assert.True(t, params.NFTFeePerItem.IsZero())
	assert.True(t, params.NFTFeeMinimum.IsZero())
}

func TestLoadProtocolParams_Caps(t *testing.T) {
	_, err := LoadProtocolParams(writeProtocolFile(t, "creation_fee_bps: 201\n"))
	assert.ErrorContains(t, err, "creation_fee_bps")

	_, err = LoadProtocolParams(writeProtocolFile(t, "distribution_fee_bps: 501\n"))
	assert.ErrorContains(t, err, "distribution_fee_bps")
}

func TestLoadProtocolParams_InvalidValues(t *testing.T) {
	_, err := LoadProtocolParams(writeProtocolFile(t, `nft_fee_per_item: "abc"`))
	assert.ErrorContains(t, err, "nft_fee_per_item")

	_, err = LoadProtocolParams(writeProtocolFile(t, `nft_fee_minimum: "-5"`))
	assert.ErrorContains(t, err, "must not be negative")

	_, err = LoadProtocolParams(writeProtocolFile(t, `fee_sink: "not-an-address"`))
	assert.ErrorContains(t, err, "fee_sink")
}

func TestLoadProtocolParams_MissingFile(t *testing.T) {
	_, err := LoadProtocolParams(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
