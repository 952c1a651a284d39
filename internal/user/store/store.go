package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: see selectUserColumns.
func scanUser(s scanner) (*user.User, error) {
	var u user.User

	var discordID, discordName sql.NullString

	if err := s.Scan(
		&u.ID, &u.Username, &u.DisplayName, &discordID, &discordName, &u.HashedPassword,
		&u.IsActive, &u.IsSuperuser, &u.CompanyID, &u.Rank, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if discordID.Valid {
		u.DiscordID = &discordID.String
	}

	if discordName.Valid {
		u.DiscordName = &discordName.String
	}

	return &u, nil
}

const selectUserColumns = `
	id, username, display_name, discord_id, discord_name, hashed_password,
	is_active, is_superuser, company_id, rank, created_at, updated_at
`

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (username, display_name, hashed_password, is_active, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.Username,
		u.DisplayName,
		u.HashedPassword,
		u.IsActive,
		u.IsSuperuser,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}

		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user by username: %w", err)
	}

	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET username = $1, display_name = $2, hashed_password = $3, is_active = $4, is_superuser = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.Username,
		u.DisplayName,
		u.HashedPassword,
		u.IsActive,
		u.IsSuperuser,
		u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.ErrNotFound
		}

		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}

		return fmt.Errorf("updating user: %w", err)
	}

	return nil
}

func (s *Store) UpdateRank(ctx context.Context, id, companyID uuid.UUID, r rank.Rank) error {
	query := `
		UPDATE users
		SET rank = $1, updated_at = NOW()
		WHERE id = $2 AND company_id = $3 AND rank <> 'GOVERNOR'
	`

	res, err := s.db.ExecContext(ctx, query, r, id, companyID)
	if err != nil {
		return fmt.Errorf("updating rank: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating rank: %w", err)
	}

	if n == 0 {
		return user.ErrRankChanged
	}

	return nil
}

func (s *Store) LinkDiscord(ctx context.Context, id uuid.UUID, discordID, discordName string) error {
	query := `
		UPDATE users
		SET discord_id = $1, discord_name = $2, updated_at = NOW()
		WHERE id = $3
	`

	res, err := s.db.ExecContext(ctx, query, discordID, discordName, id)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDiscordTaken
		}

		return fmt.Errorf("linking discord account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("linking discord account: %w", err)
	}

	if n == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (s *Store) ListUsers(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users`

	var args []any

	argIdx := 1

	if filter.CompanyID != nil {
		query += fmt.Sprintf(" WHERE company_id = $%d", argIdx)

		args = append(args, *filter.CompanyID)
		argIdx++
	}

	query += " ORDER BY username ASC"

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
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*user.User

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
