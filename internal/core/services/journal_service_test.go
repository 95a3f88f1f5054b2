package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/core/services"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// --- Mock JournalRepository ---
type MockJournalRepository struct {
	mock.Mock
}

// Ensure MockJournalRepository implements portsrepo.JournalRepositoryFacade
var _ portsrepo.JournalRepositoryFacade = (*MockJournalRepository)(nil)

func (m *MockJournalRepository) FindEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, companyID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string, includeReversals bool) ([]domain.JournalEntry, *string, error) {
	args := m.Called(ctx, companyID, limit, nextToken, includeReversals)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.JournalEntry), returnedNextToken, args.Error(2)
}

func (m *MockJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalLine), args.Error(1)
}

func (m *MockJournalRepository) FindLinesByEntryIDs(ctx context.Context, entryIDs []string) (map[string][]domain.JournalLine, error) {
	args := m.Called(ctx, entryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domain.JournalLine), args.Error(1)
}

func (m *MockJournalRepository) ListLinesByAccountID(ctx context.Context, companyID string, accountID string, limit int, nextToken *string) ([]domain.JournalLine, *string, error) {
	args := m.Called(ctx, companyID, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.JournalLine), returnedNextToken, args.Error(2)
}

func (m *MockJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error {
	args := m.Called(ctx, entry, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error {
	args := m.Called(ctx, entry, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) UpdateEntryWorkflow(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus) error {
	args := m.Called(ctx, entry, expectedStatus)
	return args.Error(0)
}

func (m *MockJournalRepository) PostEntry(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, entry, balanceChanges)
	return args.Error(0)
}

func (m *MockJournalRepository) VoidEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, entry, expectedStatus, balanceChanges)
	return args.Error(0)
}

func (m *MockJournalRepository) SaveReversal(ctx context.Context, reversal domain.JournalEntry, lines []domain.JournalLine, originalEntryID string, balanceChanges map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, reversal, lines, originalEntryID, balanceChanges, updatedBy, updatedAt)
	return args.Error(0)
}

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

// Ensure MockAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, companyID string, code string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, companyID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, companyID, accountID, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, companyID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateAccountBalancesInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, balanceChanges, userID, now)
	return args.Error(0)
}

// --- Test Suite Setup ---
type JournalServiceTestSuite struct {
	suite.Suite
	mockJournalRepo *MockJournalRepository
	mockAccountRepo *MockAccountRepository
	service         portssvc.JournalSvcFacade
	cashAccount     domain.Account
	revenueAccount  domain.Account
	companyID       string
	userID          string
}

func (suite *JournalServiceTestSuite) SetupTest() {
	suite.mockJournalRepo = new(MockJournalRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewJournalService(suite.mockJournalRepo, suite.mockAccountRepo)

	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()

	suite.cashAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Asset,
		NormalSide:   domain.DebitNormal,
		CurrencyCode: "USD",
		IsActive:     true,
	}
	suite.revenueAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Revenue,
		NormalSide:   domain.CreditNormal,
		CurrencyCode: "USD",
		IsActive:     true,
	}
}

func (suite *JournalServiceTestSuite) accountsMap() map[string]domain.Account {
	return map[string]domain.Account{
		suite.cashAccount.AccountID:    suite.cashAccount,
		suite.revenueAccount.AccountID: suite.revenueAccount,
	}
}

func (suite *JournalServiceTestSuite) balancedLines(entryID string, amount decimal.Decimal) []domain.JournalLine {
	return []domain.JournalLine{
		{LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: amount},
		{LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.revenueAccount.AccountID, Side: domain.Credit, Amount: amount},
	}
}

// --- Test Cases ---

func (suite *JournalServiceTestSuite) TestCreateEntry_Success() {
	ctx := context.Background()
	req := dto.CreateJournalEntryRequest{
		Description:  "Invoice INV-100 issued",
		EntryDate:    time.Now().UTC(),
		EntryType:    domain.EntrySales,
		CurrencyCode: "USD",
		Lines: []dto.CreateJournalLineRequest{
			{AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(100)},
			{AccountID: suite.revenueAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(100)},
		},
	}

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	suite.mockJournalRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.JournalEntry"), mock.AnythingOfType("[]domain.JournalLine")).Return(nil).Once()

	entry, err := suite.service.CreateEntry(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(entry)
	suite.NotEmpty(entry.EntryID)
	suite.Equal(suite.companyID, entry.CompanyID)
	suite.Equal(domain.EntryDraft, entry.Status)
	suite.Equal(suite.userID, entry.CreatedBy)
	suite.Len(entry.Lines, 2)

	suite.mockAccountRepo.AssertExpectations(suite.T())
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *JournalServiceTestSuite) TestCreateEntry_Unbalanced() {
	ctx := context.Background()
	req := dto.CreateJournalEntryRequest{
		Description:  "Unbalanced",
		EntryDate:    time.Now().UTC(),
		EntryType:    domain.EntrySales,
		CurrencyCode: "USD",
		Lines: []dto.CreateJournalLineRequest{
			{AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(100)},
			{AccountID: suite.revenueAccount.AccountID, Side: domain.Credit, Amount: decimal.RequireFromString("99.99")},
		},
	}

	_, err := suite.service.CreateEntry(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrUnbalanced)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "SaveEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestCreateEntry_CurrencyMismatch() {
	ctx := context.Background()
	eurAccount := suite.revenueAccount
	eurAccount.CurrencyCode = "EUR"
	accounts := map[string]domain.Account{
		suite.cashAccount.AccountID: suite.cashAccount,
		eurAccount.AccountID:        eurAccount,
	}

	req := dto.CreateJournalEntryRequest{
		Description:  "Currency mismatch",
		EntryDate:    time.Now().UTC(),
		EntryType:    domain.EntrySales,
		CurrencyCode: "USD",
		Lines: []dto.CreateJournalLineRequest{
			{AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(100)},
			{AccountID: eurAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(100)},
		},
	}

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(accounts, nil).Once()

	_, err := suite.service.CreateEntry(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrCurrencyMismatch)
}

func (suite *JournalServiceTestSuite) TestSubmitEntry_Success() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryDraft}
	lines := suite.balancedLines(entryID, decimal.NewFromInt(100))

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("FindLinesByEntryID", ctx, entryID).Return(lines, nil).Once()
	suite.mockJournalRepo.On("UpdateEntryWorkflow", ctx, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Status == domain.EntrySubmitted && e.SubmittedAt != nil
	}), domain.EntryDraft).Return(nil).Once()

	updated, err := suite.service.SubmitEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.EntrySubmitted, updated.Status)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *JournalServiceTestSuite) TestSubmitEntry_Unbalanced() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryDraft}

	// The stored lines drifted out of balance; submit recomputes the sums
	// instead of trusting the draft.
	lines := []domain.JournalLine{
		{LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(100)},
		{LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.revenueAccount.AccountID, Side: domain.Credit, Amount: decimal.RequireFromString("99.99")},
	}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("FindLinesByEntryID", ctx, entryID).Return(lines, nil).Once()

	_, err := suite.service.SubmitEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrUnbalanced)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "UpdateEntryWorkflow", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestSubmitEntry_InvalidTransition() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryPosted}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.SubmitEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "UpdateEntryWorkflow", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestApproveEntry_Success() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntrySubmitted}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("UpdateEntryWorkflow", ctx, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Status == domain.EntryApproved && e.ApprovedBy == suite.userID
	}), domain.EntrySubmitted).Return(nil).Once()

	updated, err := suite.service.ApproveEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.EntryApproved, updated.Status)
}

func (suite *JournalServiceTestSuite) TestPostEntry_AppliesBalanceChanges() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryApproved, CurrencyCode: "USD"}
	lines := suite.balancedLines(entryID, decimal.NewFromInt(250))

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("FindLinesByEntryID", ctx, entryID).Return(lines, nil).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()

	// Debit to debit-normal cash and credit to credit-normal revenue both
	// increase their balances by 250.
	suite.mockJournalRepo.On("PostEntry", ctx, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Status == domain.EntryPosted && e.PostedAt != nil && e.PostedBy == suite.userID
	}), mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
		return changes[suite.cashAccount.AccountID].Equal(decimal.NewFromInt(250)) &&
			changes[suite.revenueAccount.AccountID].Equal(decimal.NewFromInt(250))
	})).Return(nil).Once()

	posted, err := suite.service.PostEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.EntryPosted, posted.Status)
	suite.mockJournalRepo.AssertExpectations(suite.T())
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *JournalServiceTestSuite) TestPostEntry_FromDraftFails() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryDraft}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.PostEntry(ctx, suite.companyID, entryID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "PostEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestVoidEntry_PostedRestoresBalances() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryPosted, CurrencyCode: "USD"}
	lines := suite.balancedLines(entryID, decimal.NewFromInt(250))

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("FindLinesByEntryID", ctx, entryID).Return(lines, nil).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()

	// Voiding a posted entry applies the exact negation of its posting.
	suite.mockJournalRepo.On("VoidEntry", ctx, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Status == domain.EntryVoided && e.VoidReason == "entered twice" && e.VoidedAt != nil
	}), domain.EntryPosted, mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
		return changes[suite.cashAccount.AccountID].Equal(decimal.NewFromInt(-250)) &&
			changes[suite.revenueAccount.AccountID].Equal(decimal.NewFromInt(-250))
	})).Return(nil).Once()

	voided, err := suite.service.VoidEntry(ctx, suite.companyID, entryID, dto.VoidJournalEntryRequest{Reason: "entered twice"}, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.EntryVoided, voided.Status)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *JournalServiceTestSuite) TestVoidEntry_DraftNoBalanceChanges() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryDraft}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("VoidEntry", ctx, mock.AnythingOfType("domain.JournalEntry"), domain.EntryDraft, mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
		return changes == nil
	})).Return(nil).Once()

	voided, err := suite.service.VoidEntry(ctx, suite.companyID, entryID, dto.VoidJournalEntryRequest{Reason: "abandoned"}, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.EntryVoided, voided.Status)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "FindAccountsByIDs", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestVoidEntry_MissingReason() {
	ctx := context.Background()

	_, err := suite.service.VoidEntry(ctx, suite.companyID, uuid.NewString(), dto.VoidJournalEntryRequest{}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrVoidReasonMissing)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "FindEntryByID", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestVoidEntry_AlreadyVoided() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryVoided}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.VoidEntry(ctx, suite.companyID, entryID, dto.VoidJournalEntryRequest{Reason: "again"}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *JournalServiceTestSuite) TestReverseEntry_Success() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    suite.companyID,
		Description:  "Rent for March",
		Status:       domain.EntryPosted,
		EntryType:    domain.EntryPurchase,
		Reference:    "INV-42",
		CurrencyCode: "USD",
	}
	lines := suite.balancedLines(entryID, decimal.NewFromInt(250))

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()
	suite.mockJournalRepo.On("FindLinesByEntryID", ctx, entryID).Return(lines, nil).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()

	suite.mockJournalRepo.On("SaveReversal", ctx,
		mock.MatchedBy(func(e domain.JournalEntry) bool {
			return e.Status == domain.EntryPosted &&
				e.ReversalOfEntryID != nil && *e.ReversalOfEntryID == entryID &&
				e.Description == "Reversal of: Rent for March" &&
				e.Reference == "REV-INV-42"
		}),
		mock.MatchedBy(func(mirrored []domain.JournalLine) bool {
			// Every line swaps side, keeps account and amount
			if len(mirrored) != len(lines) {
				return false
			}
			for i := range mirrored {
				if mirrored[i].Side != lines[i].Side.Opposite() ||
					mirrored[i].AccountID != lines[i].AccountID ||
					!mirrored[i].Amount.Equal(lines[i].Amount) {
					return false
				}
			}
			return true
		}),
		entryID,
		mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
			return changes[suite.cashAccount.AccountID].Equal(decimal.NewFromInt(-250)) &&
				changes[suite.revenueAccount.AccountID].Equal(decimal.NewFromInt(-250))
		}),
		suite.userID, mock.AnythingOfType("time.Time"),
	).Return(nil).Once()

	reversal, err := suite.service.ReverseEntry(ctx, suite.companyID, entryID, dto.ReverseJournalEntryRequest{}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(reversal)
	suite.NotEqual(entryID, reversal.EntryID)
	suite.Equal(domain.EntryPosted, reversal.Status)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *JournalServiceTestSuite) TestReverseEntry_Duplicate() {
	ctx := context.Background()
	entryID := uuid.NewString()
	existingReversalID := uuid.NewString()
	entry := &domain.JournalEntry{
		EntryID:           entryID,
		CompanyID:         suite.companyID,
		Status:            domain.EntryPosted,
		ReversedByEntryID: &existingReversalID,
	}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.ReverseEntry(ctx, suite.companyID, entryID, dto.ReverseJournalEntryRequest{}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicateReversal)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "SaveReversal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *JournalServiceTestSuite) TestReverseEntry_NotPosted() {
	ctx := context.Background()
	entryID := uuid.NewString()
	entry := &domain.JournalEntry{EntryID: entryID, CompanyID: suite.companyID, Status: domain.EntryDraft}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.ReverseEntry(ctx, suite.companyID, entryID, dto.ReverseJournalEntryRequest{}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *JournalServiceTestSuite) TestReverseEntry_OfReversalRejected() {
	ctx := context.Background()
	entryID := uuid.NewString()
	originalID := uuid.NewString()
	entry := &domain.JournalEntry{
		EntryID:           entryID,
		CompanyID:         suite.companyID,
		Status:            domain.EntryPosted,
		ReversalOfEntryID: &originalID,
	}

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(entry, nil).Once()

	_, err := suite.service.ReverseEntry(ctx, suite.companyID, entryID, dto.ReverseJournalEntryRequest{}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *JournalServiceTestSuite) TestGetEntryByID_NotFound() {
	ctx := context.Background()
	entryID := uuid.NewString()

	suite.mockJournalRepo.On("FindEntryByID", ctx, suite.companyID, entryID).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetEntryByID(ctx, suite.companyID, entryID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestJournalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JournalServiceTestSuite))
}
