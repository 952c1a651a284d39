//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/bank"
	bankstore "github.com/MrJamesThe3rd/treasury/internal/bank/store"
	"github.com/MrJamesThe3rd/treasury/internal/company"
	companystore "github.com/MrJamesThe3rd/treasury/internal/company/store"
	"github.com/MrJamesThe3rd/treasury/internal/database"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
	transactionstore "github.com/MrJamesThe3rd/treasury/internal/transaction/store"
	"github.com/MrJamesThe3rd/treasury/internal/user"
	userstore "github.com/MrJamesThe3rd/treasury/internal/user/store"
)

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("treasury"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, connStr, database.Pool{MaxOpenConns: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	// A second run is a no-op.
	require.NoError(t, database.Migrate(db))

	return db
}

type services struct {
	users        *user.Service
	companies    *company.Service
	banks        *bank.Service
	transactions *transaction.Service
	userStore    *userstore.Store
}

func newServices(db *sql.DB) services {
	users := userstore.New(db)
	banks := bankstore.New(db)

	return services{
		users:        user.NewService(users),
		companies:    company.NewService(companystore.New(db), users),
		banks:        bank.NewService(banks),
		transactions: transaction.NewService(transactionstore.New(db), banks),
		userStore:    users,
	}
}

func (s services) actor(t *testing.T, u *user.User) func() *user.User {
	return func() *user.User {
		fresh, err := s.userStore.GetUser(context.Background(), u.ID)
		require.NoError(t, err)

		return fresh
	}
}

func TestIntegration_Ledger(t *testing.T) {
	db := setupDatabase(t)
	svc := newServices(db)
	ctx := context.Background()

	root, created, err := svc.users.Bootstrap(ctx, "root", "changethis")
	require.NoError(t, err)
	require.True(t, created)

	gov, err := svc.users.Create(ctx, root.Actor(), user.CreateParams{Username: "gov", Password: "pw", IsActive: true})
	require.NoError(t, err)

	settler, err := svc.users.Create(ctx, root.Actor(), user.CreateParams{Username: "settler", Password: "pw", IsActive: true})
	require.NoError(t, err)

	_, err = svc.users.Create(ctx, root.Actor(), user.CreateParams{Username: "gov", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	govNow := svc.actor(t, gov)
	settlerNow := svc.actor(t, settler)

	c, err := svc.companies.Create(ctx, govNow().Actor(), company.CreateParams{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, rank.Governor, govNow().Rank)

	_, err = svc.companies.AddMember(ctx, govNow().Actor(), c.ID, settler.ID, rank.Settler)
	require.NoError(t, err)

	b, err := svc.banks.Create(ctx, govNow().Actor(), bank.CreateParams{Name: "Vault"})
	require.NoError(t, err)

	tx, err := svc.transactions.Create(ctx, settlerNow().Actor(), b.ID, transaction.CreateParams{
		Amount: decimal.RequireFromString("100.25"),
		Memo:   "first",
	})
	require.NoError(t, err)

	balance, err := svc.banks.Balance(ctx, govNow().Actor(), b.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	approved, err := svc.transactions.Approve(ctx, govNow().Actor(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, gov.ID, *approved.ApproverID)

	balance, err = svc.banks.Balance(ctx, govNow().Actor(), b.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.25").Equal(balance))

	err = svc.transactions.Delete(ctx, settlerNow().Actor(), tx.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.users.PromoteRank(ctx, govNow().Actor(), settler.ID, rank.Governor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.users.PromoteRank(ctx, govNow().Actor(), settler.ID, rank.Consul)
	require.NoError(t, err)

	require.NoError(t, svc.companies.Delete(ctx, govNow().Actor(), c.ID))
	assert.Nil(t, settlerNow().CompanyID)
	assert.Equal(t, rank.None, settlerNow().Rank)

	_, err = svc.transactions.Get(ctx, root.Actor(), tx.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIntegration_ConcurrentApproveHasOneWinner(t *testing.T) {
	db := setupDatabase(t)
	svc := newServices(db)
	ctx := context.Background()

	root, _, err := svc.users.Bootstrap(ctx, "root", "changethis")
	require.NoError(t, err)

	gov, err := svc.users.Create(ctx, root.Actor(), user.CreateParams{Username: "gov", Password: "pw", IsActive: true})
	require.NoError(t, err)

	_, err = svc.companies.Create(ctx, gov.Actor(), company.CreateParams{Name: "Acme"})
	require.NoError(t, err)

	govNow := svc.actor(t, gov)

	b, err := svc.banks.Create(ctx, govNow().Actor(), bank.CreateParams{Name: "Vault"})
	require.NoError(t, err)

	tx, err := svc.transactions.Create(ctx, govNow().Actor(), b.ID, transaction.CreateParams{Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	const racers = 8

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)

	actor := govNow().Actor()

	for range racers {
		wg.Go(func() {
			_, err := svc.transactions.Approve(ctx, actor, tx.ID)

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				wins++
			} else if apperr.KindOf(err) == apperr.KindInvalidState {
				losses++
			}
		})
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)

	balance, err := svc.banks.Balance(ctx, actor, b.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(balance))
}

func TestIntegration_ImportIsAllOrNothing(t *testing.T) {
	db := setupDatabase(t)
	svc := newServices(db)
	ctx := context.Background()

	root, _, err := svc.users.Bootstrap(ctx, "root", "changethis")
	require.NoError(t, err)

	gov, err := svc.users.Create(ctx, root.Actor(), user.CreateParams{Username: "gov", Password: "pw", IsActive: true})
	require.NoError(t, err)

	_, err = svc.companies.Create(ctx, gov.Actor(), company.CreateParams{Name: "Acme"})
	require.NoError(t, err)

	govNow := svc.actor(t, gov)

	b, err := svc.banks.Create(ctx, govNow().Actor(), bank.CreateParams{Name: "Vault"})
	require.NoError(t, err)

	got, err := svc.transactions.CreateBatch(ctx, govNow().Actor(), b.ID, []transaction.CreateParams{
		{Amount: decimal.NewFromInt(1), Memo: "a"},
		{Amount: decimal.NewFromInt(2), Memo: "b"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	list, err := svc.transactions.ListBank(ctx, govNow().Actor(), b.ID, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	for _, tx := range list {
		assert.Equal(t, transaction.StatusPending, tx.Status)
	}
}
