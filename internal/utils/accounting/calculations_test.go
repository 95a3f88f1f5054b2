package accounting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestSignedAmount(t *testing.T) {
	amount := dec("100")

	assert.True(t, SignedAmount(domain.Debit, amount, domain.DebitNormal).Equal(dec("100")))
	assert.True(t, SignedAmount(domain.Credit, amount, domain.DebitNormal).Equal(dec("-100")))
	assert.True(t, SignedAmount(domain.Credit, amount, domain.CreditNormal).Equal(dec("100")))
	assert.True(t, SignedAmount(domain.Debit, amount, domain.CreditNormal).Equal(dec("-100")))
}

func TestValidateBalanced(t *testing.T) {
	balanced := []domain.JournalLine{
		{AccountID: "a", Side: domain.Debit, Amount: dec("60")},
		{AccountID: "b", Side: domain.Debit, Amount: dec("40")},
		{AccountID: "c", Side: domain.Credit, Amount: dec("100")},
	}
	assert.NoError(t, ValidateBalanced(balanced))

	unbalanced := []domain.JournalLine{
		{AccountID: "a", Side: domain.Debit, Amount: dec("100")},
		{AccountID: "b", Side: domain.Credit, Amount: dec("99.99")},
	}
	assert.ErrorIs(t, ValidateBalanced(unbalanced), apperrors.ErrUnbalanced)

	single := []domain.JournalLine{
		{AccountID: "a", Side: domain.Debit, Amount: dec("100")},
	}
	assert.ErrorIs(t, ValidateBalanced(single), apperrors.ErrUnbalanced)

	nonPositive := []domain.JournalLine{
		{AccountID: "a", Side: domain.Debit, Amount: dec("0")},
		{AccountID: "b", Side: domain.Credit, Amount: dec("0")},
	}
	assert.ErrorIs(t, ValidateBalanced(nonPositive), apperrors.ErrValidation)
}

func TestBalanceChanges(t *testing.T) {
	lines := []domain.JournalLine{
		{AccountID: "cash", Side: domain.Debit, Amount: dec("100")},
		{AccountID: "cash", Side: domain.Credit, Amount: dec("30")},
		{AccountID: "revenue", Side: domain.Credit, Amount: dec("70")},
	}
	normals := map[string]domain.NormalBalance{
		"cash":    domain.DebitNormal,
		"revenue": domain.CreditNormal,
	}

	changes, err := BalanceChanges(lines, normals)
	require.NoError(t, err)
	assert.True(t, changes["cash"].Equal(dec("70")))
	assert.True(t, changes["revenue"].Equal(dec("70")))

	_, err = BalanceChanges(lines, map[string]domain.NormalBalance{"cash": domain.DebitNormal})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNegateChangesUndoesApply(t *testing.T) {
	changes := map[string]decimal.Decimal{"a": dec("70"), "b": dec("-70")}
	negated := NegateChanges(changes)
	for accountID, delta := range changes {
		assert.True(t, delta.Add(negated[accountID]).IsZero())
	}
}

func TestMirrorLines(t *testing.T) {
	now := time.Now().UTC()
	original := []domain.JournalLine{
		{LineID: "l1", EntryID: "e1", AccountID: "cash", Side: domain.Debit, Amount: dec("250.50"), Description: "cash in"},
		{LineID: "l2", EntryID: "e1", AccountID: "revenue", Side: domain.Credit, Amount: dec("250.50")},
	}

	mirrored := MirrorLines(original, "e2", "user-1", now)
	require.Len(t, mirrored, 2)

	assert.Equal(t, domain.Credit, mirrored[0].Side)
	assert.Equal(t, domain.Debit, mirrored[1].Side)
	for i := range mirrored {
		assert.Equal(t, "e2", mirrored[i].EntryID)
		assert.Equal(t, original[i].AccountID, mirrored[i].AccountID)
		assert.True(t, original[i].Amount.Equal(mirrored[i].Amount))
		assert.NotEqual(t, original[i].LineID, mirrored[i].LineID)
	}

	// Mirror of a balanced set is still balanced
	assert.NoError(t, ValidateBalanced(mirrored))
}

func TestEntryAmount(t *testing.T) {
	lines := []domain.JournalLine{
		{Side: domain.Debit, Amount: dec("60")},
		{Side: domain.Debit, Amount: dec("40")},
		{Side: domain.Credit, Amount: dec("100")},
	}
	assert.True(t, EntryAmount(lines).Equal(dec("100")))
}
