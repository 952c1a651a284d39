// Package app wires repositories and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
	bankStore "github.com/MrJamesThe3rd/treasury/internal/bank/store"
	"github.com/MrJamesThe3rd/treasury/internal/company"
	companyStore "github.com/MrJamesThe3rd/treasury/internal/company/store"
	"github.com/MrJamesThe3rd/treasury/internal/config"
	"github.com/MrJamesThe3rd/treasury/internal/database"
	"github.com/MrJamesThe3rd/treasury/internal/importer"
	"github.com/MrJamesThe3rd/treasury/internal/memstore"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
	txStore "github.com/MrJamesThe3rd/treasury/internal/transaction/store"
	"github.com/MrJamesThe3rd/treasury/internal/user"
	userStore "github.com/MrJamesThe3rd/treasury/internal/user/store"
)

type Repositories struct {
	Users        user.Repository
	Companies    company.Repository
	Banks        bank.Repository
	Transactions transaction.Repository

	close func() error
}

// Close releases the backing storage.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}

	return r.close()
}

// Open connects the storage selected by cfg.DB.Driver, migrating the
// database first when cfg.Migrations.Auto is set.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if cfg.DB.Driver == "memory" {
		slog.Warn("using in-memory storage, nothing survives a restart")
		return Memory(memstore.New()), nil
	}

	db, err := database.New(ctx, cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Migrations.Auto {
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return SQL(db), nil
}

func SQL(db *sql.DB) *Repositories {
	return &Repositories{
		Users:        userStore.New(db),
		Companies:    companyStore.New(db),
		Banks:        bankStore.New(db),
		Transactions: txStore.New(db),
		close:        db.Close,
	}
}

func Memory(store *memstore.Store) *Repositories {
	return &Repositories{
		Users:        store,
		Companies:    store,
		Banks:        store,
		Transactions: store,
	}
}

type Services struct {
	Users        *user.Service
	Companies    *company.Service
	Banks        *bank.Service
	Transactions *transaction.Service
	Parser       *importer.Parser
}

func NewServices(repos *Repositories) *Services {
	return &Services{
		Users:        user.NewService(repos.Users),
		Companies:    company.NewService(repos.Companies, repos.Users),
		Banks:        bank.NewService(repos.Banks),
		Transactions: transaction.NewService(repos.Transactions, repos.Banks),
		Parser:       importer.NewParser(),
	}
}
