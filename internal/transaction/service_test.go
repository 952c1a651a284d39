package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/bank"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

type fixture struct {
	companyID uuid.UUID
	bank      *bank.Bank
}

func newFixture() fixture {
	companyID := uuid.New()

	return fixture{
		companyID: companyID,
		bank:      &bank.Bank{ID: uuid.New(), Name: "Main", Status: bank.StatusActive, CompanyID: companyID},
	}
}

func (f fixture) actor(r rank.Rank) policy.Actor {
	return policy.Actor{ID: uuid.New(), CompanyID: new(f.companyID), Rank: r, Active: true}
}

func (f fixture) pending(creator uuid.UUID) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        uuid.New(),
		Amount:    decimal.NewFromInt(100),
		Status:    transaction.StatusPending,
		BankID:    f.bank.ID,
		CreatorID: creator,
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture()

	type testCase struct {
		name      string
		actor     policy.Actor
		bank      *bank.Bank
		setupMock func(m *transaction.MockRepository)
		wantKind  apperr.Kind
		wantErr   bool
	}

	closed := *f.bank
	closed.Status = bank.StatusClosed

	tests := []testCase{
		{
			name:  "SettlerCreatesPending",
			actor: f.actor(rank.Settler),
			bank:  f.bank,
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()
						return nil
					})
			},
		},
		{
			name:     "OutsiderIsNotFound",
			actor:    policy.Actor{ID: uuid.New(), CompanyID: new(uuid.New()), Rank: rank.Governor, Active: true},
			bank:     f.bank,
			wantKind: apperr.KindNotFound,
		},
		{
			name:     "ClosedBankIsInvalidState",
			actor:    f.actor(rank.Governor),
			bank:     &closed,
			wantKind: apperr.KindInvalidState,
		},
		{
			name:  "RepoError",
			actor: f.actor(rank.Consul),
			bank:  f.bank,
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			banks := transaction.NewMockBankFinder(ctrl)
			banks.EXPECT().GetBank(gomock.Any(), tt.bank.ID).Return(tt.bank, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo, banks)
			got, err := svc.Create(context.Background(), tt.actor, tt.bank.ID, transaction.CreateParams{
				Amount: decimal.NewFromInt(100),
				Memo:   "ore shipment",
			})

			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.Nil(t, got)

				return
			}

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, transaction.StatusPending, got.Status)
			assert.Equal(t, tt.actor.ID, got.CreatorID)
			assert.Equal(t, tt.bank.ID, got.BankID)
		})
	}
}

func TestService_Approve(t *testing.T) {
	f := newFixture()
	consul := f.actor(rank.Consul)

	type testCase struct {
		name      string
		actor     policy.Actor
		tx        *transaction.Transaction
		setupMock func(m *transaction.MockRepository, tx *transaction.Transaction)
		wantKind  apperr.Kind
	}

	approved := f.pending(consul.ID)
	approved.Status = transaction.StatusApproved

	tests := []testCase{
		{
			name:  "ConsulApproves",
			actor: consul,
			tx:    f.pending(uuid.New()),
			setupMock: func(m *transaction.MockRepository, tx *transaction.Transaction) {
				m.EXPECT().Approve(gomock.Any(), tx.ID, consul.ID).Return(nil)
			},
		},
		{
			name:     "OfficerForbidden",
			actor:    f.actor(rank.Officer),
			tx:       f.pending(uuid.New()),
			wantKind: apperr.KindForbidden,
		},
		{
			name:     "ReapproveIsInvalidState",
			actor:    consul,
			tx:       approved,
			wantKind: apperr.KindInvalidState,
		},
		{
			name:  "LostRaceIsInvalidState",
			actor: consul,
			tx:    f.pending(uuid.New()),
			setupMock: func(m *transaction.MockRepository, tx *transaction.Transaction) {
				won := *tx
				won.Status = transaction.StatusApproved

				m.EXPECT().Approve(gomock.Any(), tx.ID, consul.ID).Return(transaction.ErrNotPending)
				m.EXPECT().GetTransaction(gomock.Any(), tx.ID).Return(&won, nil)
			},
			wantKind: apperr.KindInvalidState,
		},
		{
			name:  "DeletedDuringApproveIsNotFound",
			actor: consul,
			tx:    f.pending(uuid.New()),
			setupMock: func(m *transaction.MockRepository, tx *transaction.Transaction) {
				m.EXPECT().Approve(gomock.Any(), tx.ID, consul.ID).Return(transaction.ErrNotPending)
				m.EXPECT().GetTransaction(gomock.Any(), tx.ID).Return(nil, transaction.ErrNotFound)
			},
			wantKind: apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			banks := transaction.NewMockBankFinder(ctrl)

			repo.EXPECT().GetTransaction(gomock.Any(), tt.tx.ID).Return(new(*tt.tx), nil)
			banks.EXPECT().GetBank(gomock.Any(), f.bank.ID).Return(f.bank, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo, tt.tx)
			}

			svc := transaction.NewService(repo, banks)
			got, err := svc.Approve(context.Background(), tt.actor, tt.tx.ID)

			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, transaction.StatusApproved, got.Status)
			require.NotNil(t, got.ApproverID)
			assert.Equal(t, tt.actor.ID, *got.ApproverID)
		})
	}
}

func TestService_Edit(t *testing.T) {
	f := newFixture()
	creator := f.actor(rank.Consul)

	type testCase struct {
		name      string
		actor     policy.Actor
		tx        *transaction.Transaction
		setupMock func(m *transaction.MockRepository)
		wantKind  apperr.Kind
	}

	approved := f.pending(creator.ID)
	approved.Status = transaction.StatusApproved

	tests := []testCase{
		{
			name:  "CreatorConsulEdits",
			actor: creator,
			tx:    f.pending(creator.ID),
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().UpdatePending(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:  "GovernorEditsOthers",
			actor: f.actor(rank.Governor),
			tx:    f.pending(creator.ID),
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().UpdatePending(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:     "OtherConsulForbidden",
			actor:    f.actor(rank.Consul),
			tx:       f.pending(creator.ID),
			wantKind: apperr.KindForbidden,
		},
		{
			name:     "CreatorSettlerForbidden",
			actor:    policy.Actor{ID: creator.ID, CompanyID: new(f.companyID), Rank: rank.Settler, Active: true},
			tx:       f.pending(creator.ID),
			wantKind: apperr.KindForbidden,
		},
		{
			name:     "ApprovedIsInvalidState",
			actor:    creator,
			tx:       approved,
			wantKind: apperr.KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			banks := transaction.NewMockBankFinder(ctrl)

			repo.EXPECT().GetTransaction(gomock.Any(), tt.tx.ID).Return(new(*tt.tx), nil)
			banks.EXPECT().GetBank(gomock.Any(), f.bank.ID).Return(f.bank, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo, banks)
			got, err := svc.Edit(context.Background(), tt.actor, tt.tx.ID, transaction.EditParams{
				Amount: new(decimal.NewFromInt(75)),
				Memo:   new("corrected"),
				Status: new(transaction.StatusApproved),
			})

			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(75).Equal(got.Amount))
			assert.Equal(t, "corrected", got.Memo)
			assert.Equal(t, transaction.StatusPending, got.Status, "caller supplied status must be ignored")
		})
	}
}

func TestService_Delete(t *testing.T) {
	f := newFixture()
	settler := f.actor(rank.Settler)

	approved := f.pending(settler.ID)
	approved.Status = transaction.StatusApproved

	tests := []struct {
		name      string
		actor     policy.Actor
		tx        *transaction.Transaction
		setupMock func(m *transaction.MockRepository, tx *transaction.Transaction)
		wantKind  apperr.Kind
	}{
		{
			name:  "GovernorDeletesPending",
			actor: f.actor(rank.Governor),
			tx:    f.pending(settler.ID),
			setupMock: func(m *transaction.MockRepository, tx *transaction.Transaction) {
				m.EXPECT().DeletePending(gomock.Any(), tx.ID).Return(nil)
			},
		},
		{
			name:     "ApprovedIsInvalidStateForSettler",
			actor:    settler,
			tx:       approved,
			wantKind: apperr.KindInvalidState,
		},
		{
			name:     "ApprovedIsInvalidStateForGovernor",
			actor:    f.actor(rank.Governor),
			tx:       approved,
			wantKind: apperr.KindInvalidState,
		},
		{
			name:     "SettlerCannotDeletePending",
			actor:    settler,
			tx:       f.pending(settler.ID),
			wantKind: apperr.KindForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			banks := transaction.NewMockBankFinder(ctrl)

			repo.EXPECT().GetTransaction(gomock.Any(), tt.tx.ID).Return(new(*tt.tx), nil)
			banks.EXPECT().GetBank(gomock.Any(), f.bank.ID).Return(f.bank, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo, tt.tx)
			}

			svc := transaction.NewService(repo, banks)
			err := svc.Delete(context.Background(), tt.actor, tt.tx.ID)

			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_ListCompany_DefaultsToApproved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture()
	actor := f.actor(rank.Settler)

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		ListTransactions(gomock.Any(), transaction.ListFilter{
			CompanyID: actor.CompanyID,
			Status:    new(transaction.StatusApproved),
			Limit:     50,
		}).
		Return([]*transaction.Transaction{{ID: uuid.New()}}, nil)

	svc := transaction.NewService(repo, transaction.NewMockBankFinder(ctrl))
	got, err := svc.ListCompany(context.Background(), actor, nil, 50, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture()
	actor := f.actor(rank.Officer)

	repo := transaction.NewMockRepository(ctrl)
	banks := transaction.NewMockBankFinder(ctrl)
	btx := transaction.NewMockBatchTx(ctrl)
	svc := transaction.NewService(repo, banks)

	params := []transaction.CreateParams{
		{Amount: decimal.NewFromInt(10), Memo: "a"},
		{Amount: decimal.NewFromInt(-4), Memo: "b"},
	}

	banks.EXPECT().GetBank(gomock.Any(), f.bank.ID).Return(f.bank, nil)
	repo.EXPECT().BeginBatch(gomock.Any(), f.bank.ID).Return(btx, nil)
	btx.EXPECT().
		CreateTransactions(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
			for _, tx := range txs {
				assert.Equal(t, transaction.StatusPending, tx.Status)
				assert.Equal(t, actor.ID, tx.CreatorID)
				tx.ID = uuid.New()
			}

			return nil
		})
	btx.EXPECT().Commit().Return(nil)
	btx.EXPECT().Rollback().Return(nil)

	txs, err := svc.CreateBatch(context.Background(), actor, f.bank.ID, params)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestService_CreateBatch_RollsBackOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture()

	repo := transaction.NewMockRepository(ctrl)
	banks := transaction.NewMockBankFinder(ctrl)
	btx := transaction.NewMockBatchTx(ctrl)
	svc := transaction.NewService(repo, banks)

	banks.EXPECT().GetBank(gomock.Any(), f.bank.ID).Return(f.bank, nil)
	repo.EXPECT().BeginBatch(gomock.Any(), f.bank.ID).Return(btx, nil)
	btx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
	btx.EXPECT().Rollback().Return(nil)

	_, err := svc.CreateBatch(context.Background(), f.actor(rank.Settler), f.bank.ID, []transaction.CreateParams{
		{Amount: decimal.NewFromInt(1)},
	})
	assert.Error(t, err)
}
