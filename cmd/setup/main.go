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
	"time"

	"inheritance-vault-go/internal/common"
	"inheritance-vault-go/internal/config"
	"inheritance-vault-go/internal/factory"
	"inheritance-vault-go/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	demo := flag.Bool("demo", false, "Create a demo vault after initializing the schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	if !*demo {
		// Schema creation happens inside database.NewService.
		dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to initialize database", zap.Error(err))
		}
		defer dbService.Close()

		zap.L().Info("Database initialized", zap.String("path", cfg.Database.Path))
		return
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	owner := ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	v, err := services.Factory.CreateVault(ctx, factory.CreateVaultParams{
		Owner: owner,
		Heirs: []models.Heir{
			{Address: ethcommon.HexToAddress("0x2222222222222222222222222222222222222222"), Bps: 6000},
			{Address: ethcommon.HexToAddress("0x3333333333333333333333333333333333333333"), Bps: 4000},
		},
		InactivityPeriod: 90 * 24 * time.Hour,
		Deposit:          decimal.NewFromInt(1_000_000_000),
	})
	if err != nil {
		zap.L().Fatal("Failed to create demo vault", zap.Error(err))
	}

	zap.L().Info("Demo vault created",
		zap.String("vault_id", v.Id),
		zap.String("owner", owner.Hex()),
		zap.String("balance", v.Balance.String()))
}
