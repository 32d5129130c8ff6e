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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type heirResponse struct {
	Address string `json:"address"`
	Bps     int64  `json:"bps"`
}

type tokenResponse struct {
	Contract string `json:"contract"`
	Balance  string `json:"balance"`
}

type nftResponse struct {
	Contract string `json:"contract"`
	TokenId  string `json:"token_id"`
}

type sftResponse struct {
	Contract string `json:"contract"`
	TokenId  string `json:"token_id"`
	Balance  string `json:"balance"`
}

type vaultResponse struct {
	Id               string         `json:"id"`
	Owner            string         `json:"owner"`
	Heirs            []heirResponse `json:"heirs"`
	InactivitySecs   int64          `json:"inactivity_period_seconds"`
	LastActiveAt     time.Time      `json:"last_active_at"`
	TimeRemainingSec int64          `json:"time_remaining_seconds"`
	Executed         bool           `json:"executed"`
	Tracked          bool           `json:"tracked"`
	Balance          string         `json:"balance"`
	FeeDeposit       string         `json:"fee_deposit"`
	Tokens           []tokenResponse `json:"tokens,omitempty"`
	NFTs             []nftResponse   `json:"nfts,omitempty"`
	SemiFungibles    []sftResponse   `json:"semi_fungibles,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type transactionResponse struct {
	Id              string    `json:"id"`
	Account         string    `json:"account"`
	Asset           string    `json:"asset"`
	TransactionType string    `json:"transaction_type"`
	Amount          string    `json:"amount"`
	ExternalTxId    string    `json:"external_tx_id"`
	VaultId         string    `json:"vault_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type registryStatusResponse struct {
	TrackedVaults int `json:"tracked_vaults"`
	Cursor        int `json:"cursor"`
	BatchSize     int `json:"batch_size"`
}

type vaultListResponse struct {
	Vaults []string `json:"vaults"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	vaultId := chi.URLParam(r, "vaultId")

	v, err := s.engine.GetVault(r.Context(), vaultId)
	if err != nil {
		if errors.Is(err, store.ErrVaultNotFound) {
			writeError(w, http.StatusNotFound, "vault not found")
			return
		}
		zap.L().Error("Failed to load vault", zap.String("vault_id", vaultId), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	remaining, err := s.engine.TimeRemaining(r.Context(), vaultId)
	if err != nil {
		remaining = 0
	}

	writeJSON(w, http.StatusOK, toVaultResponse(v, remaining, s.registry.Tracked(vaultId)))
}

func toVaultResponse(v *models.Vault, remaining time.Duration, tracked bool) vaultResponse {
	resp := vaultResponse{
		Id:               v.Id,
		Owner:            v.Owner.Hex(),
		InactivitySecs:   int64(v.InactivityPeriod.Seconds()),
		LastActiveAt:     v.LastActiveAt,
		TimeRemainingSec: int64(remaining.Seconds()),
		Executed:         v.Executed,
		Tracked:          tracked,
		Balance:          v.Balance.String(),
		FeeDeposit:       v.FeeDeposit.String(),
		CreatedAt:        v.CreatedAt,
	}
	for _, h := range v.Heirs {
		resp.Heirs = append(resp.Heirs, heirResponse{Address: h.Address.Hex(), Bps: h.Bps})
	}
	for _, t := range v.Tokens {
		resp.Tokens = append(resp.Tokens, tokenResponse{Contract: t.Contract.Hex(), Balance: t.Balance.String()})
	}
	for _, n := range v.NFTs {
		resp.NFTs = append(resp.NFTs, nftResponse{Contract: n.Contract.Hex(), TokenId: n.TokenId})
	}
	for _, sf := range v.SemiFungibles {
		resp.SemiFungibles = append(resp.SemiFungibles, sftResponse{Contract: sf.Contract.Hex(), TokenId: sf.TokenId, Balance: sf.Balance.String()})
	}
	return resp
}

func (s *Server) handleGetVaultBalances(w http.ResponseWriter, r *http.Request) {
	vaultId := chi.URLParam(r, "vaultId")

	balances, err := s.store.AccountBalances(r.Context(), assets.VaultAccount(vaultId))
	if err != nil {
		zap.L().Error("Failed to load vault balances", zap.String("vault_id", vaultId), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	reserves, err := s.store.AccountBalances(r.Context(), assets.FeeReserveAccount(vaultId))
	if err != nil {
		zap.L().Error("Failed to load fee reserve balances", zap.String("vault_id", vaultId), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]balanceResponse, 0, len(balances)+len(reserves))
	for _, b := range append(balances, reserves...) {
		out = append(out, balanceResponse{Account: b.Account, Asset: b.Asset, Balance: b.Balance.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": out})
}

func (s *Server) handleGetVaultHistory(w http.ResponseWriter, r *http.Request) {
	vaultId := chi.URLParam(r, "vaultId")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	txns, err := s.store.TransactionHistory(r.Context(), assets.VaultAccount(vaultId), "", limit, offset)
	if err != nil {
		zap.L().Error("Failed to load vault history", zap.String("vault_id", vaultId), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionResponse{
			Id:              t.Id,
			Account:         t.Account,
			Asset:           t.Asset,
			TransactionType: t.TransactionType,
			Amount:          t.Amount.String(),
			ExternalTxId:    t.ExternalTransactionId,
			VaultId:         t.VaultId,
			CreatedAt:       t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleRegistryVaults(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)
	writeJSON(w, http.StatusOK, vaultListResponse{Vaults: s.registry.Vaults(offset, limit)})
}

func (s *Server) handleRegistryStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registryStatusResponse{
		TrackedVaults: s.registry.Len(),
		Cursor:        s.registry.Cursor(),
		BatchSize:     registry.BatchSize,
	})
}

func (s *Server) handleVaultsByOwner(w http.ResponseWriter, r *http.Request) {
	s.handleVaultsByRole(w, r, s.store.VaultsByOwner)
}

func (s *Server) handleVaultsByHeir(w http.ResponseWriter, r *http.Request) {
	s.handleVaultsByRole(w, r, s.store.VaultsByHeir)
}

func (s *Server) handleVaultsByRole(w http.ResponseWriter, r *http.Request, lookup func(ctx context.Context, addr common.Address) ([]string, error)) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	ids, err := lookup(r.Context(), common.HexToAddress(raw))
	if err != nil {
		zap.L().Error("Failed to query factory index", zap.String("address", raw), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, vaultListResponse{Vaults: ids})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}
