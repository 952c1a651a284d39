package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBank(s scanner) (*bank.Bank, error) {
	var b bank.Bank

	var status string

	if err := s.Scan(&b.ID, &b.Name, &status, &b.CompanyID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	b.Status = bank.Status(status)

	return &b, nil
}

const selectBankColumns = `id, name, status, company_id, created_at, updated_at`

func (s *Store) CreateBank(ctx context.Context, b *bank.Bank) error {
	query := `
		INSERT INTO banks (name, status, company_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, b.Name, b.Status, b.CompanyID).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating bank: %w", err)
	}

	return nil
}

func (s *Store) GetBank(ctx context.Context, id uuid.UUID) (*bank.Bank, error) {
	query := `SELECT ` + selectBankColumns + ` FROM banks WHERE id = $1`

	b, err := scanBank(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bank.ErrNotFound
		}

		return nil, fmt.Errorf("getting bank: %w", err)
	}

	return b, nil
}

// UpdateBank never touches company_id.
func (s *Store) UpdateBank(ctx context.Context, b *bank.Bank) error {
	query := `
		UPDATE banks
		SET name = $1, status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, b.Name, b.Status, b.ID).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bank.ErrNotFound
		}

		return fmt.Errorf("updating bank: %w", err)
	}

	return nil
}

func (s *Store) DeleteBank(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE bank_id = $1`, id); err != nil {
		return fmt.Errorf("deleting bank transactions: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM banks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting bank: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bank: %w", err)
	}

	if n == 0 {
		return bank.ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListBanks(ctx context.Context, companyID uuid.UUID) ([]*bank.Bank, error) {
	query := `SELECT ` + selectBankColumns + ` FROM banks WHERE company_id = $1 ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing banks: %w", err)
	}
	defer rows.Close()

	var banks []*bank.Bank

	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bank: %w", err)
		}

		banks = append(banks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bank rows: %w", err)
	}

	return banks, nil
}

func (s *Store) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE bank_id = $1 AND status = 'APPROVED'
	`

	var balance decimal.Decimal
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("summing balance: %w", err)
	}

	return balance, nil
}

func (s *Store) Balances(ctx context.Context, companyID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	query := `
		SELECT t.bank_id, SUM(t.amount)
		FROM transactions t
		JOIN banks b ON b.id = t.bank_id
		WHERE b.company_id = $1 AND t.status = 'APPROVED'
		GROUP BY t.bank_id
	`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("summing balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[uuid.UUID]decimal.Decimal)

	for rows.Next() {
		var id uuid.UUID

		var sum decimal.Decimal

		if err := rows.Scan(&id, &sum); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}

		balances[id] = sum
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating balance rows: %w", err)
	}

	return balances, nil
}
