package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
	"github.com/MrJamesThe3rd/treasury/internal/user/store"
)

func newMock(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return store.New(db), mock
}

func TestStore_CreateUser(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		s, mock := newMock(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("ana", "Ana", "hash", true, false).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), time.Now()))

		u := &user.User{Username: "ana", DisplayName: "Ana", HashedPassword: "hash", IsActive: true}
		require.NoError(t, s.CreateUser(context.Background(), u))
		assert.Equal(t, id, u.ID)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		s, mock := newMock(t)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		err := s.CreateUser(context.Background(), &user.User{Username: "ana"})
		assert.ErrorIs(t, err, user.ErrUsernameTaken)
	})
}

func TestStore_UpdateRank(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "Updated", affected: 1},
		{name: "LeftOrGovernor", affected: 0, wantErr: user.ErrRankChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			id, companyID := uuid.New(), uuid.New()

			mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND company_id = $3 AND rank <> 'GOVERNOR'")).
				WithArgs(rank.Consul, id, companyID).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.UpdateRank(context.Background(), id, companyID, rank.Consul)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestStore_LinkDiscord_Taken(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("SET discord_id = $1")).
		WithArgs("80351110224678912", "nelly", id).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.LinkDiscord(context.Background(), id, "80351110224678912", "nelly")
	assert.ErrorIs(t, err, user.ErrDiscordTaken)
}

func TestStore_GetUser(t *testing.T) {
	s, mock := newMock(t)
	id, companyID := uuid.New(), uuid.New()

	cols := []string{
		"id", "username", "display_name", "discord_id", "discord_name", "hashed_password",
		"is_active", "is_superuser", "company_id", "rank", "created_at", "updated_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			id.String(), "ana", "Ana", nil, nil, "hash", true, false, companyID.String(), "OFFICER", time.Now(), nil,
		))

	got, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, rank.Officer, got.Rank)
	assert.Equal(t, companyID, *got.CompanyID)
	assert.Nil(t, got.DiscordID)
}
