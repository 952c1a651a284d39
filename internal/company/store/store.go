package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/company"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCompany inserts the company and promotes the founder inside one
// database transaction.
func (s *Store) CreateCompany(ctx context.Context, c *company.Company, governorID uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO companies (name, logo_id, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`
	if err := dbTx.QueryRowContext(ctx, query, c.Name, c.LogoID).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("creating company: %w", err)
	}

	if err := attach(ctx, dbTx, c.ID, governorID, rank.Governor); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	query := `SELECT id, name, logo_id, created_at, updated_at FROM companies WHERE id = $1`

	var c company.Company

	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.LogoID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, company.ErrNotFound
		}

		return nil, fmt.Errorf("getting company: %w", err)
	}

	return &c, nil
}

func (s *Store) UpdateCompany(ctx context.Context, c *company.Company) error {
	query := `
		UPDATE companies
		SET name = $1, logo_id = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Name, c.LogoID, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return company.ErrNotFound
		}

		return fmt.Errorf("updating company: %w", err)
	}

	return nil
}

// DeleteCompany cascades in dependency order: members are detached, then
// transactions, banks and finally the company row are removed.
func (s *Store) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	steps := []struct {
		name  string
		query string
	}{
		{"detaching members", `UPDATE users SET company_id = NULL, rank = NULL, updated_at = NOW() WHERE company_id = $1`},
		{"deleting transactions", `DELETE FROM transactions WHERE bank_id IN (SELECT id FROM banks WHERE company_id = $1)`},
		{"deleting banks", `DELETE FROM banks WHERE company_id = $1`},
	}

	for _, step := range steps {
		if _, err := dbTx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}

	if n == 0 {
		return company.ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) AddMember(ctx context.Context, companyID, userID uuid.UUID, r rank.Rank) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := attach(ctx, dbTx, companyID, userID, r); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// attach sets the company of a user that has none yet.
func attach(ctx context.Context, dbTx *sql.Tx, companyID, userID uuid.UUID, r rank.Rank) error {
	query := `
		UPDATE users
		SET company_id = $1, rank = $2, updated_at = NOW()
		WHERE id = $3 AND company_id IS NULL
	`

	res, err := dbTx.ExecContext(ctx, query, companyID, r, userID)
	if err != nil {
		return fmt.Errorf("attaching member: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attaching member: %w", err)
	}

	if n > 0 {
		return nil
	}

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("checking member: %w", err)
	}

	if !exists {
		return user.ErrNotFound
	}

	return company.ErrAlreadyMember
}
