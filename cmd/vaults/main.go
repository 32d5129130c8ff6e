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

	"inheritance-vault-go/internal/common"
	"inheritance-vault-go/internal/config"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func main() {
	owner := flag.String("owner", "", "Show vaults created by this owner address")
	heir := flag.String("heir", "", "Show vaults this address stands to inherit from")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var ids []string
	switch {
	case *owner != "":
		if !ethcommon.IsHexAddress(*owner) {
			zap.L().Fatal("Invalid -owner address", zap.String("owner", *owner))
		}
		ids, err = services.Factory.VaultsByOwner(ctx, ethcommon.HexToAddress(*owner))
	case *heir != "":
		if !ethcommon.IsHexAddress(*heir) {
			zap.L().Fatal("Invalid -heir address", zap.String("heir", *heir))
		}
		ids, err = services.Factory.VaultsByHeir(ctx, ethcommon.HexToAddress(*heir))
	default:
		ids = services.Registry.Vaults(0, 0)
	}
	if err != nil {
		zap.L().Fatal("Failed to list vaults", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("VAULT STATUS REPORT (%d vaults)", len(ids)), common.DefaultWidth)

	for i, id := range ids {
		last := i == len(ids)-1
		v, err := services.Engine.GetVault(ctx, id)
		if err != nil {
			fmt.Printf("%s%s  <unreadable: %v>\n", common.BoxPrefix(last), common.ShortId(id), err)
			continue
		}

		status := "active"
		if v.Executed {
			status = "executed"
		} else if remaining, err := services.Engine.TimeRemaining(ctx, id); err == nil {
			status = common.FormatCountdown(remaining)
		}

		fmt.Printf("%s%s  owner=%s  [%s]\n", common.BoxPrefix(last), common.ShortId(id), v.Owner.Hex(), status)
		fmt.Printf("%s   balance=%s  fee_reserve=%s  tokens=%d  nfts=%d  sfts=%d\n",
			common.BoxDetailPrefix(last), v.Balance.String(), v.FeeDeposit.String(),
			len(v.Tokens), len(v.NFTs), len(v.SemiFungibles))
		for _, h := range v.Heirs {
			fmt.Printf("%s   heir %s %s\n", common.BoxDetailPrefix(last), common.FormatBps(h.Bps), h.Address.Hex())
		}
	}

	common.PrintFooter(fmt.Sprintf("Registry: %d tracked, cursor at %d", services.Registry.Len(), services.Registry.Cursor()), common.DefaultWidth)
}
