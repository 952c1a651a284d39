package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction expects the columns of selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var status string

	if err := s.Scan(
		&tx.ID, &tx.Amount, &tx.Memo, &status, &tx.BankID, &tx.CreatorID, &tx.ApproverID,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Status = transaction.Status(status)

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.amount, t.memo, t.status, t.bank_id, t.creator_id, t.approver_id, t.created_at, t.updated_at
`

const insertTransaction = `
	INSERT INTO transactions (amount, memo, status, bank_id, creator_id, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	RETURNING id, created_at
`

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insert(ctx context.Context, db execer, tx *transaction.Transaction) error {
	err := db.QueryRowContext(ctx, insertTransaction,
		tx.Amount,
		tx.Memo,
		tx.Status,
		tx.BankID,
		tx.CreatorID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return insert(ctx, s.db, tx)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE t.id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		JOIN banks b ON b.id = t.bank_id
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.CompanyID != nil {
		query += fmt.Sprintf(" AND b.company_id = $%d", argIdx)

		args = append(args, *filter.CompanyID)
		argIdx++
	}

	if filter.BankID != nil {
		query += fmt.Sprintf(" AND t.bank_id = $%d", argIdx)

		args = append(args, *filter.BankID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY t.created_at ASC, t.id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
		argIdx++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)

		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdatePending(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1, memo = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'PENDING'
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, tx.Amount, tx.Memo, tx.ID).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotPending
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (s *Store) Approve(ctx context.Context, id, approverID uuid.UUID) error {
	query := `
		UPDATE transactions
		SET status = 'APPROVED', approver_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'PENDING'
	`

	return s.execPending(ctx, "approving transaction", query, approverID, id)
}

func (s *Store) DeletePending(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM transactions WHERE id = $1 AND status = 'PENDING'`

	return s.execPending(ctx, "deleting transaction", query, id)
}

func (s *Store) execPending(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return transaction.ErrNotPending
	}

	return nil
}

func batchLockKey(bankID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("transactions-batch"))
	h.Write([]byte{0})
	h.Write(bankID[:])

	return int64(h.Sum64())
}

type batchTx struct {
	tx *sql.Tx
}

// BeginBatch opens a database transaction holding an advisory lock on the
// bank, so concurrent imports into one bank are serialized.
func (s *Store) BeginBatch(ctx context.Context, bankID uuid.UUID) (transaction.BatchTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", batchLockKey(bankID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring batch lock: %w", err)
	}

	return &batchTx{tx: dbTx}, nil
}

func (btx *batchTx) Commit() error   { return btx.tx.Commit() }
func (btx *batchTx) Rollback() error { return btx.tx.Rollback() }

func (btx *batchTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		if err := insert(ctx, btx.tx, tx); err != nil {
			return err
		}
	}

	return nil
}
