// Package memstore keeps every entity in process memory. It implements the
// same repository contracts as the Postgres stores, including the conditional
// writes, and backs ephemeral deployments and tests.
package memstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
	"github.com/MrJamesThe3rd/treasury/internal/company"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]user.User
	companies    map[uuid.UUID]company.Company
	banks        map[uuid.UUID]bank.Bank
	transactions map[uuid.UUID]transaction.Transaction

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]user.User),
		companies:    make(map[uuid.UUID]company.Company),
		banks:        make(map[uuid.UUID]bank.Bank),
		transactions: make(map[uuid.UUID]transaction.Transaction),
		now:          time.Now,
	}
}

// Users

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(u.Username, uuid.Nil) {
		return user.ErrUsernameTaken
	}

	u.ID = uuid.New()
	u.CreatedAt = s.now()
	s.users[u.ID] = *u

	return nil
}

func (s *Store) usernameTaken(username string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && u.Username == username {
			return true
		}
	}

	return false
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}

	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}

	return nil, user.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}

	if s.usernameTaken(u.Username, u.ID) {
		return user.ErrUsernameTaken
	}

	cur.Username = u.Username
	cur.DisplayName = u.DisplayName
	cur.HashedPassword = u.HashedPassword
	cur.IsActive = u.IsActive
	cur.IsSuperuser = u.IsSuperuser
	cur.UpdatedAt = new(s.now())
	s.users[u.ID] = cur
	u.UpdatedAt = cur.UpdatedAt

	return nil
}

func (s *Store) UpdateRank(_ context.Context, id, companyID uuid.UUID, r rank.Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[id]
	if !ok || cur.CompanyID == nil || *cur.CompanyID != companyID || cur.Rank == rank.Governor {
		return user.ErrRankChanged
	}

	cur.Rank = r
	cur.UpdatedAt = new(s.now())
	s.users[id] = cur

	return nil
}

func (s *Store) LinkDiscord(_ context.Context, id uuid.UUID, discordID, discordName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}

	for other, u := range s.users {
		if other != id && u.DiscordID != nil && *u.DiscordID == discordID {
			return user.ErrDiscordTaken
		}
	}

	cur.DiscordID = &discordID
	cur.DiscordName = &discordName
	cur.UpdatedAt = new(s.now())
	s.users[id] = cur

	return nil
}

func (s *Store) ListUsers(_ context.Context, filter user.ListFilter) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*user.User

	for _, u := range s.users {
		if filter.CompanyID != nil && (u.CompanyID == nil || *u.CompanyID != *filter.CompanyID) {
			continue
		}

		out = append(out, &u)
	}

	slices.SortFunc(out, func(a, b *user.User) int {
		return strings.Compare(a.Username, b.Username)
	})

	return page(out, filter.Limit, filter.Offset), nil
}

// Companies

func (s *Store) CreateCompany(_ context.Context, c *company.Company, governorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	founder, ok := s.users[governorID]
	if !ok {
		return user.ErrNotFound
	}

	if founder.CompanyID != nil {
		return company.ErrAlreadyMember
	}

	c.ID = uuid.New()
	c.CreatedAt = s.now()
	s.companies[c.ID] = *c

	founder.CompanyID = new(c.ID)
	founder.Rank = rank.Governor
	s.users[governorID] = founder

	return nil
}

func (s *Store) GetCompany(_ context.Context, id uuid.UUID) (*company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, company.ErrNotFound
	}

	return &c, nil
}

func (s *Store) UpdateCompany(_ context.Context, c *company.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.companies[c.ID]
	if !ok {
		return company.ErrNotFound
	}

	cur.Name = c.Name
	cur.LogoID = c.LogoID
	cur.UpdatedAt = new(s.now())
	s.companies[c.ID] = cur
	c.UpdatedAt = cur.UpdatedAt

	return nil
}

func (s *Store) DeleteCompany(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[id]; !ok {
		return company.ErrNotFound
	}

	for uid, u := range s.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			u.CompanyID = nil
			u.Rank = rank.None
			s.users[uid] = u
		}
	}

	for bid, b := range s.banks {
		if b.CompanyID == id {
			s.deleteBankLocked(bid)
		}
	}

	delete(s.companies, id)

	return nil
}

func (s *Store) AddMember(_ context.Context, companyID, userID uuid.UUID, r rank.Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}

	if u.CompanyID != nil {
		return company.ErrAlreadyMember
	}

	u.CompanyID = &companyID
	u.Rank = r
	s.users[userID] = u

	return nil
}

// Banks

func (s *Store) CreateBank(_ context.Context, b *bank.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.New()
	b.CreatedAt = s.now()
	s.banks[b.ID] = *b

	return nil
}

func (s *Store) GetBank(_ context.Context, id uuid.UUID) (*bank.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.banks[id]
	if !ok {
		return nil, bank.ErrNotFound
	}

	return &b, nil
}

func (s *Store) UpdateBank(_ context.Context, b *bank.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.banks[b.ID]
	if !ok {
		return bank.ErrNotFound
	}

	cur.Name = b.Name
	cur.Status = b.Status
	cur.UpdatedAt = new(s.now())
	s.banks[b.ID] = cur
	b.UpdatedAt = cur.UpdatedAt

	return nil
}

func (s *Store) DeleteBank(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[id]; !ok {
		return bank.ErrNotFound
	}

	s.deleteBankLocked(id)

	return nil
}

func (s *Store) deleteBankLocked(id uuid.UUID) {
	for tid, tx := range s.transactions {
		if tx.BankID == id {
			delete(s.transactions, tid)
		}
	}

	delete(s.banks, id)
}

func (s *Store) ListBanks(_ context.Context, companyID uuid.UUID) ([]*bank.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*bank.Bank

	for _, b := range s.banks {
		if b.CompanyID == companyID {
			out = append(out, &b)
		}
	}

	slices.SortFunc(out, func(a, b *bank.Bank) int {
		return strings.Compare(a.Name, b.Name)
	})

	return out, nil
}

func (s *Store) Balance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []*transaction.Transaction

	for _, tx := range s.transactions {
		if tx.BankID == id {
			txs = append(txs, &tx)
		}
	}

	return transaction.Balance(txs), nil
}

func (s *Store) Balances(_ context.Context, companyID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byBank := make(map[uuid.UUID][]*transaction.Transaction)

	for _, tx := range s.transactions {
		if b, ok := s.banks[tx.BankID]; ok && b.CompanyID == companyID {
			byBank[tx.BankID] = append(byBank[tx.BankID], &tx)
		}
	}

	out := make(map[uuid.UUID]decimal.Decimal, len(byBank))
	for id, txs := range byBank {
		out[id] = transaction.Balance(txs)
	}

	return out, nil
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(tx)
}

func (s *Store) insertLocked(tx *transaction.Transaction) error {
	if _, ok := s.banks[tx.BankID]; !ok {
		return bank.ErrNotFound
	}

	tx.ID = uuid.New()
	tx.CreatedAt = s.now()
	s.transactions[tx.ID] = *tx

	return nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return &tx, nil
}

func (s *Store) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction

	for _, tx := range s.transactions {
		if filter.BankID != nil && tx.BankID != *filter.BankID {
			continue
		}

		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}

		if filter.CompanyID != nil {
			b, ok := s.banks[tx.BankID]
			if !ok || b.CompanyID != *filter.CompanyID {
				continue
			}
		}

		out = append(out, &tx)
	}

	slices.SortFunc(out, func(a, b *transaction.Transaction) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Store) UpdatePending(_ context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[tx.ID]
	if !ok || cur.Status != transaction.StatusPending {
		return transaction.ErrNotPending
	}

	cur.Amount = tx.Amount
	cur.Memo = tx.Memo
	cur.UpdatedAt = new(s.now())
	s.transactions[tx.ID] = cur
	tx.UpdatedAt = cur.UpdatedAt

	return nil
}

func (s *Store) Approve(_ context.Context, id, approverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[id]
	if !ok || cur.Status != transaction.StatusPending {
		return transaction.ErrNotPending
	}

	cur.Status = transaction.StatusApproved
	cur.ApproverID = &approverID
	cur.UpdatedAt = new(s.now())
	s.transactions[id] = cur

	return nil
}

func (s *Store) DeletePending(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[id]
	if !ok || cur.Status != transaction.StatusPending {
		return transaction.ErrNotPending
	}

	delete(s.transactions, id)

	return nil
}

type batchTx struct {
	store *Store
	txs   []*transaction.Transaction
	done  bool
}

// BeginBatch buffers inserts until Commit, which applies them all at once.
func (s *Store) BeginBatch(_ context.Context, _ uuid.UUID) (transaction.BatchTx, error) {
	return &batchTx{store: s}, nil
}

func (b *batchTx) CreateTransactions(_ context.Context, txs []*transaction.Transaction) error {
	b.txs = append(b.txs, txs...)
	return nil
}

var errBatchDone = errors.New("batch already committed or rolled back")

func (b *batchTx) Commit() error {
	if b.done {
		return errBatchDone
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	inserted := make([]uuid.UUID, 0, len(b.txs))
	for _, tx := range b.txs {
		if err := b.store.insertLocked(tx); err != nil {
			for _, id := range inserted {
				delete(b.store.transactions, id)
			}

			return err
		}

		inserted = append(inserted, tx.ID)
	}

	b.done = true

	return nil
}

func (b *batchTx) Rollback() error {
	if b.done {
		return errBatchDone
	}

	b.done = true
	b.txs = nil

	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}

	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
