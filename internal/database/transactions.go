package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransactionParams contains the parameters for processing a transaction
type ProcessTransactionParams struct {
	Account         string
	Asset           string
	TransactionType string
	Amount          decimal.Decimal
	ExternalTxId    string
	VaultId         string
	Reference       string
}

// ProcessTransaction atomically updates balance and records transaction
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := s.processInTx(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return transaction, nil
}

// processInTx runs the balance update and audit record inside an existing
// database transaction so larger operations (deposits, distributions) can book
// several movements atomically.
func (s *SubledgerService) processInTx(ctx context.Context, tx *sql.Tx, params ProcessTransactionParams) (*models.Transaction, error) {
	// Check for duplicate external transaction Id
	if params.ExternalTxId != "" {
		var existingTxId string
		err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, params.ExternalTxId).Scan(&existingTxId)
		if err == nil {
			zap.L().Warn("Duplicate external transaction Id detected, skipping",
				zap.String("external_tx_id", params.ExternalTxId),
				zap.String("existing_internal_tx_id", existingTxId))
			return nil, fmt.Errorf("%w: external_transaction_id %s already exists", store.ErrDuplicateTransaction, params.ExternalTxId)
		} else if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
		}
	}

	// Get current balance
	var currentBalanceStr string
	var accountId string
	var version int64

	err := tx.QueryRowContext(ctx, queryGetAccountBalance, params.Account, params.Asset).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if err == sql.ErrNoRows {
		// Create new account balance record
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.Account, params.Asset, "0", 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(params.Amount)

	transactionId := uuid.New().String()
	now := time.Now()

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transactionId, params.Account, params.Asset, params.TransactionType,
		params.Amount.String(), currentBalance.String(), newBalance.String(),
		params.ExternalTxId, params.VaultId, params.Reference, "confirmed", now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), transactionId, params.Account, params.Asset, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return &models.Transaction{
		Id:                    transactionId,
		Account:               params.Account,
		Asset:                 params.Asset,
		TransactionType:       params.TransactionType,
		Amount:                params.Amount,
		BalanceBefore:         currentBalance,
		BalanceAfter:          newBalance,
		ExternalTransactionId: params.ExternalTxId,
		VaultId:               params.VaultId,
		Reference:             params.Reference,
		Status:                "confirmed",
		CreatedAt:             now,
		ProcessedAt:           now,
	}, nil
}

// bookMovementParams describes one double-entry move between two accounts.
type bookMovementParams struct {
	From            string
	To              string
	Asset           string
	Amount          decimal.Decimal
	TransactionType string
	ExternalTxId    string
	VaultId         string
	Reference       string
}

// bookMovementInTx debits the source account and credits the destination
// account as two subledger rows sharing a "-out"/"-in" external id pair.
func (s *SubledgerService) bookMovementInTx(ctx context.Context, tx *sql.Tx, p bookMovementParams) error {
	debitId := p.ExternalTxId
	creditId := p.ExternalTxId
	if p.ExternalTxId != "" {
		debitId = p.ExternalTxId + "-out"
		creditId = p.ExternalTxId + "-in"
	}

	if _, err := s.processInTx(ctx, tx, ProcessTransactionParams{
		Account:         p.From,
		Asset:           p.Asset,
		TransactionType: p.TransactionType,
		Amount:          p.Amount.Neg(),
		ExternalTxId:    debitId,
		VaultId:         p.VaultId,
		Reference:       p.Reference,
	}); err != nil {
		return fmt.Errorf("failed to debit %s: %w", p.From, err)
	}

	if _, err := s.processInTx(ctx, tx, ProcessTransactionParams{
		Account:         p.To,
		Asset:           p.Asset,
		TransactionType: p.TransactionType,
		Amount:          p.Amount,
		ExternalTxId:    creditId,
		VaultId:         p.VaultId,
		Reference:       p.Reference,
	}); err != nil {
		return fmt.Errorf("failed to credit %s: %w", p.To, err)
	}

	return nil
}

// GetTransactionHistory returns paginated transaction history for an account
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, account, asset, asset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amountStr, balanceBeforeStr, balanceAfterStr string
		var externalTxId, vaultId, reference sql.NullString
		err := rows.Scan(&tx.Id, &tx.Account, &tx.Asset, &tx.TransactionType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&externalTxId, &vaultId, &reference,
			&tx.Status, &tx.CreatedAt, &tx.ProcessedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.ExternalTransactionId = externalTxId.String
		tx.VaultId = vaultId.String
		tx.Reference = reference.String

		tx.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		tx.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}
		tx.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
