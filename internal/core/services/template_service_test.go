package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
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

// --- Mock TemplateRepository ---
type MockTemplateRepository struct {
	mock.Mock
}

// Ensure MockTemplateRepository implements portsrepo.TemplateRepositoryFacade
var _ portsrepo.TemplateRepositoryFacade = (*MockTemplateRepository)(nil)

func (m *MockTemplateRepository) FindTemplateByID(ctx context.Context, companyID string, templateID string) (*domain.RecurringJournalTemplate, error) {
	args := m.Called(ctx, companyID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringJournalTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplatesByCompany(ctx context.Context, companyID string, activeOnly bool, limit int, offset int) ([]domain.RecurringJournalTemplate, error) {
	args := m.Called(ctx, companyID, activeOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringJournalTemplate), args.Error(1)
}

func (m *MockTemplateRepository) FindDueTemplates(ctx context.Context, companyID string, asOf time.Time, limit int) ([]domain.RecurringJournalTemplate, error) {
	args := m.Called(ctx, companyID, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringJournalTemplate), args.Error(1)
}

func (m *MockTemplateRepository) SaveTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) UpdateTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) DeactivateTemplate(ctx context.Context, companyID string, templateID string, reason string, userID string, now time.Time) error {
	args := m.Called(ctx, companyID, templateID, reason, userID, now)
	return args.Error(0)
}

func (m *MockTemplateRepository) DeactivateAllTemplates(ctx context.Context, companyID string, reason string, userID string, now time.Time) (int, error) {
	args := m.Called(ctx, companyID, reason, userID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockTemplateRepository) SaveGeneratedEntry(ctx context.Context, template domain.RecurringJournalTemplate, entry domain.JournalEntry, lines []domain.JournalLine, previousNextDate time.Time) error {
	args := m.Called(ctx, template, entry, lines, previousNextDate)
	return args.Error(0)
}

// --- Test Suite Setup ---
type TemplateServiceTestSuite struct {
	suite.Suite
	mockTemplateRepo *MockTemplateRepository
	mockAccountRepo  *MockAccountRepository
	service          portssvc.TemplateSvcFacade
	expenseAccount   domain.Account
	cashAccount      domain.Account
	companyID        string
	userID           string
}

func (suite *TemplateServiceTestSuite) SetupTest() {
	suite.mockTemplateRepo = new(MockTemplateRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewTemplateService(suite.mockTemplateRepo, suite.mockAccountRepo)

	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()

	suite.expenseAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Expense,
		NormalSide:   domain.DebitNormal,
		CurrencyCode: "USD",
		IsActive:     true,
	}
	suite.cashAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Asset,
		NormalSide:   domain.DebitNormal,
		CurrencyCode: "USD",
		IsActive:     true,
	}
}

func (suite *TemplateServiceTestSuite) accountsMap() map[string]domain.Account {
	return map[string]domain.Account{
		suite.expenseAccount.AccountID: suite.expenseAccount,
		suite.cashAccount.AccountID:    suite.cashAccount,
	}
}

func (suite *TemplateServiceTestSuite) monthlyTemplate(nextDate time.Time) *domain.RecurringJournalTemplate {
	templateID := uuid.NewString()
	return &domain.RecurringJournalTemplate{
		TemplateID:         templateID,
		CompanyID:          suite.companyID,
		Name:               "Office rent",
		Frequency:          domain.Monthly,
		Interval:           1,
		StartDate:          nextDate.AddDate(0, -6, 0),
		NextGenerationDate: nextDate,
		IsActive:           true,
		CurrencyCode:       "USD",
		EntryType:          domain.EntryPurchase,
		Lines: []domain.TemplateLine{
			{LineID: uuid.NewString(), TemplateID: templateID, AccountID: suite.expenseAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(1500)},
			{LineID: uuid.NewString(), TemplateID: templateID, AccountID: suite.cashAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(1500)},
		},
	}
}

// --- Test Cases ---

func (suite *TemplateServiceTestSuite) TestCreateTemplate_Success() {
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	req := dto.CreateTemplateRequest{
		Name:         "Office rent",
		Frequency:    domain.Monthly,
		StartDate:    start,
		CurrencyCode: "USD",
		EntryType:    domain.EntryPurchase,
		Lines: []dto.CreateTemplateLineRequest{
			{AccountID: suite.expenseAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(1500)},
			{AccountID: suite.cashAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(1500)},
		},
	}

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, suite.companyID, mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	suite.mockTemplateRepo.On("SaveTemplate", ctx, mock.MatchedBy(func(t domain.RecurringJournalTemplate) bool {
		return t.IsActive && t.Interval == 1 && t.NextGenerationDate.Equal(start)
	})).Return(nil).Once()

	template, err := suite.service.CreateTemplate(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.True(template.NextGenerationDate.Equal(start))
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_UnbalancedLines() {
	ctx := context.Background()
	req := dto.CreateTemplateRequest{
		Name:         "Broken",
		Frequency:    domain.Monthly,
		StartDate:    time.Now().UTC(),
		CurrencyCode: "USD",
		EntryType:    domain.EntryAdjustment,
		Lines: []dto.CreateTemplateLineRequest{
			{AccountID: suite.expenseAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(1500)},
			{AccountID: suite.cashAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(1400)},
		},
	}

	_, err := suite.service.CreateTemplate(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrUnbalanced)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "SaveTemplate", mock.Anything, mock.Anything)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_EndBeforeStart() {
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	req := dto.CreateTemplateRequest{
		Name:         "Backwards",
		Frequency:    domain.Weekly,
		StartDate:    start,
		EndDate:      &end,
		CurrencyCode: "USD",
		EntryType:    domain.EntryAdjustment,
		Lines: []dto.CreateTemplateLineRequest{
			{AccountID: suite.expenseAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(10)},
			{AccountID: suite.cashAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(10)},
		},
	}

	_, err := suite.service.CreateTemplate(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TemplateServiceTestSuite) TestGenerateFromTemplate_NotDueNoOp() {
	ctx := context.Background()
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	template := suite.monthlyTemplate(asOf.AddDate(0, 1, 0)) // due next month

	suite.mockTemplateRepo.On("FindTemplateByID", ctx, suite.companyID, template.TemplateID).Return(template, nil).Once()

	resp, err := suite.service.GenerateFromTemplate(ctx, suite.companyID, template.TemplateID, dto.GenerateEntriesRequest{AsOf: &asOf}, suite.userID)

	suite.Require().NoError(err)
	suite.Empty(resp.Generated)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "SaveGeneratedEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TemplateServiceTestSuite) TestGenerateFromTemplate_DueGeneratesDraft() {
	ctx := context.Background()
	nextDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	asOf := nextDate.AddDate(0, 0, 3)
	template := suite.monthlyTemplate(nextDate)
	templateID := template.TemplateID

	suite.mockTemplateRepo.On("FindTemplateByID", ctx, suite.companyID, templateID).Return(template, nil).Once()
	suite.mockTemplateRepo.On("SaveGeneratedEntry", ctx,
		mock.MatchedBy(func(t domain.RecurringJournalTemplate) bool {
			// advanced exactly one monthly step
			return t.NextGenerationDate.Equal(nextDate.AddDate(0, 1, 0))
		}),
		mock.MatchedBy(func(e domain.JournalEntry) bool {
			return e.Status == domain.EntryDraft &&
				e.EntryDate.Equal(nextDate) &&
				e.Description == "Auto-generated: Office rent (2026-08-01)" &&
				e.Reference == fmt.Sprintf("REC-%s-2026-08-01", templateID)
		}),
		mock.MatchedBy(func(lines []domain.JournalLine) bool {
			return len(lines) == 2
		}),
		nextDate,
	).Return(nil).Once()

	resp, err := suite.service.GenerateFromTemplate(ctx, suite.companyID, templateID, dto.GenerateEntriesRequest{AsOf: &asOf}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().Len(resp.Generated, 1)
	suite.True(resp.Generated[0].GeneratedForDate.Equal(nextDate))
	suite.True(resp.Generated[0].NextGenerationDate.Equal(nextDate.AddDate(0, 1, 0)))
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *TemplateServiceTestSuite) TestGenerateFromTemplate_ForceBeforeDue() {
	ctx := context.Background()
	nextDate := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	asOf := nextDate.AddDate(0, 0, -10) // not yet due
	template := suite.monthlyTemplate(nextDate)

	suite.mockTemplateRepo.On("FindTemplateByID", ctx, suite.companyID, template.TemplateID).Return(template, nil).Once()
	suite.mockTemplateRepo.On("SaveGeneratedEntry", ctx,
		mock.AnythingOfType("domain.RecurringJournalTemplate"),
		mock.AnythingOfType("domain.JournalEntry"),
		mock.AnythingOfType("[]domain.JournalLine"),
		nextDate,
	).Return(nil).Once()

	resp, err := suite.service.GenerateFromTemplate(ctx, suite.companyID, template.TemplateID, dto.GenerateEntriesRequest{AsOf: &asOf, Force: true}, suite.userID)

	suite.Require().NoError(err)
	suite.Len(resp.Generated, 1)
}

func (suite *TemplateServiceTestSuite) TestGenerateFromTemplate_ForceInactiveRejected() {
	ctx := context.Background()
	template := suite.monthlyTemplate(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	template.IsActive = false

	suite.mockTemplateRepo.On("FindTemplateByID", ctx, suite.companyID, template.TemplateID).Return(template, nil).Once()

	_, err := suite.service.GenerateFromTemplate(ctx, suite.companyID, template.TemplateID, dto.GenerateEntriesRequest{Force: true}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrScheduleNotDue)
}

func (suite *TemplateServiceTestSuite) TestGenerateDueEntries_SkipsConcurrentlyAdvanced() {
	ctx := context.Background()
	asOf := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	raced := suite.monthlyTemplate(asOf.AddDate(0, 0, -14))
	healthy := suite.monthlyTemplate(asOf.AddDate(0, 0, -7))

	suite.mockTemplateRepo.On("FindDueTemplates", ctx, suite.companyID, asOf, mock.AnythingOfType("int")).
		Return([]domain.RecurringJournalTemplate{*raced, *healthy}, nil).Once()

	suite.mockTemplateRepo.On("SaveGeneratedEntry", ctx,
		mock.MatchedBy(func(t domain.RecurringJournalTemplate) bool { return t.TemplateID == raced.TemplateID }),
		mock.Anything, mock.Anything, mock.Anything,
	).Return(apperrors.ErrConflict).Once()
	suite.mockTemplateRepo.On("SaveGeneratedEntry", ctx,
		mock.MatchedBy(func(t domain.RecurringJournalTemplate) bool { return t.TemplateID == healthy.TemplateID }),
		mock.Anything, mock.Anything, mock.Anything,
	).Return(nil).Once()

	resp, err := suite.service.GenerateDueEntries(ctx, suite.companyID, dto.GenerateEntriesRequest{AsOf: &asOf}, suite.userID)

	suite.Require().NoError(err)
	suite.Require().Len(resp.Generated, 1)
	suite.Equal(healthy.TemplateID, resp.Generated[0].TemplateID)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *TemplateServiceTestSuite) TestGenerateDueEntries_SkipsEndedSchedules() {
	ctx := context.Background()
	asOf := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	ended := suite.monthlyTemplate(asOf.AddDate(0, 0, -1))
	endDate := asOf.AddDate(0, -1, 0)
	ended.EndDate = &endDate

	suite.mockTemplateRepo.On("FindDueTemplates", ctx, suite.companyID, asOf, mock.AnythingOfType("int")).
		Return([]domain.RecurringJournalTemplate{*ended}, nil).Once()

	resp, err := suite.service.GenerateDueEntries(ctx, suite.companyID, dto.GenerateEntriesRequest{AsOf: &asOf}, suite.userID)

	suite.Require().NoError(err)
	suite.Empty(resp.Generated)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "SaveGeneratedEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TemplateServiceTestSuite) TestDeactivateAllTemplates_ReturnsCount() {
	ctx := context.Background()

	suite.mockTemplateRepo.On("DeactivateAllTemplates", ctx, suite.companyID, "fiscal year closed", suite.userID, mock.AnythingOfType("time.Time")).
		Return(7, nil).Once()

	resp, err := suite.service.DeactivateAllTemplates(ctx, suite.companyID, dto.DeactivateAllTemplatesRequest{Reason: "fiscal year closed"}, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(7, resp.DeactivatedCount)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *TemplateServiceTestSuite) TestDeactivateTemplate_NotFound() {
	ctx := context.Background()
	templateID := uuid.NewString()

	suite.mockTemplateRepo.On("FindTemplateByID", ctx, suite.companyID, templateID).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.DeactivateTemplate(ctx, suite.companyID, templateID, dto.DeactivateTemplateRequest{Reason: "unused"}, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "DeactivateTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTemplateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TemplateServiceTestSuite))
}
