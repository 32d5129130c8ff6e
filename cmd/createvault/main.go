/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inheritance-vault-go/internal/common"
	"inheritance-vault-go/internal/config"
	"inheritance-vault-go/internal/factory"
	"inheritance-vault-go/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// parseHeirs reads "0xAddr:6000,0xAddr:4000" into heir entries.
func parseHeirs(raw string) ([]models.Heir, error) {
	if raw == "" {
		return nil, fmt.Errorf("no heirs given")
	}

	var heirs []models.Heir
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid heir %q, expected address:bps", part)
		}
		if !ethcommon.IsHexAddress(fields[0]) {
			return nil, fmt.Errorf("invalid heir address %q", fields[0])
		}
		bps, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid heir share %q: %w", fields[1], err)
		}
		heirs = append(heirs, models.Heir{Address: ethcommon.HexToAddress(fields[0]), Bps: bps})
	}
	return heirs, nil
}

func main() {
	owner := flag.String("owner", "", "Owner address (hex)")
	heirsRaw := flag.String("heirs", "", "Comma-separated heirs as address:bps, shares must sum to 10000")
	period := flag.Duration("period", 90*24*time.Hour, "Inactivity period before heirs can claim")
	depositRaw := flag.String("deposit", "", "Funding deposit in native base units")
	nftEstimate := flag.Int64("nft-estimate", 0, "Expected number of NFTs, sizes the fee reserve")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if !ethcommon.IsHexAddress(*owner) {
		zap.L().Fatal("Invalid or missing -owner address", zap.String("owner", *owner))
	}
	heirs, err := parseHeirs(*heirsRaw)
	if err != nil {
		zap.L().Fatal("Invalid -heirs", zap.Error(err))
	}
	deposit, err := decimal.NewFromString(*depositRaw)
	if err != nil {
		zap.L().Fatal("Invalid -deposit amount", zap.String("deposit", *depositRaw), zap.Error(err))
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	v, err := services.Factory.CreateVault(ctx, factory.CreateVaultParams{
		Owner:            ethcommon.HexToAddress(*owner),
		Heirs:            heirs,
		InactivityPeriod: *period,
		NFTEstimate:      *nftEstimate,
		Deposit:          deposit,
	})
	if err != nil {
		zap.L().Fatal("Failed to create vault", zap.Error(err))
	}

	common.PrintHeader("VAULT CREATED", common.DefaultWidth)
	fmt.Printf("Id:             %s\n", v.Id)
	fmt.Printf("Owner:          %s\n", v.Owner.Hex())
	fmt.Printf("Period:         %s\n", v.InactivityPeriod)
	fmt.Printf("Balance:        %s\n", v.Balance.String())
	fmt.Printf("Fee reserve:    %s\n", v.FeeDeposit.String())
	for i, h := range v.Heirs {
		fmt.Printf("%sHeir %s  %s\n", common.BoxPrefix(i == len(v.Heirs)-1), common.FormatBps(h.Bps), h.Address.Hex())
	}
	common.PrintFooter("Vault is registered for automatic distribution", common.DefaultWidth)
}
