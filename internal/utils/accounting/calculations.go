package accounting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// SignedAmount returns the balance delta a single line applies to an account.
// A line on the account's normal side increases the balance, the opposite
// side decreases it:
//
//	DEBIT  to a debit-normal account  -> +amount
//	CREDIT to a debit-normal account  -> -amount
//	CREDIT to a credit-normal account -> +amount
//	DEBIT  to a credit-normal account -> -amount
func SignedAmount(side domain.LineSide, amount decimal.Decimal, normal domain.NormalBalance) decimal.Decimal {
	if (side == domain.Debit) == (normal == domain.DebitNormal) {
		return amount
	}
	return amount.Neg()
}

// ValidateBalanced checks the double-entry invariant over a line set: at
// least two lines, every amount strictly positive, and the debit sum equal
// to the credit sum. Comparison is exact decimal equality, never floats.
func ValidateBalanced(lines []domain.JournalLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: entry must have at least two lines", apperrors.ErrUnbalanced)
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range lines {
		if !line.Amount.IsPositive() {
			return fmt.Errorf("%w: line amount must be positive for account %s", apperrors.ErrValidation, line.AccountID)
		}
		if line.Side == domain.Debit {
			debits = debits.Add(line.Amount)
		} else {
			credits = credits.Add(line.Amount)
		}
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits sum to %s, credits sum to %s",
			apperrors.ErrUnbalanced, debits.String(), credits.String())
	}
	return nil
}

// BalanceChanges folds an entry's lines into one net balance delta per
// account, given each account's normal balance side.
func BalanceChanges(lines []domain.JournalLine, normalSides map[string]domain.NormalBalance) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal, len(normalSides))
	for _, line := range lines {
		normal, ok := normalSides[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, line.AccountID)
		}
		changes[line.AccountID] = changes[line.AccountID].Add(SignedAmount(line.Side, line.Amount, normal))
	}
	return changes, nil
}

// NegateChanges returns the exact negation of a balance-change map, used to
// unwind a posting when voiding.
func NegateChanges(changes map[string]decimal.Decimal) map[string]decimal.Decimal {
	negated := make(map[string]decimal.Decimal, len(changes))
	for accountID, delta := range changes {
		negated[accountID] = delta.Neg()
	}
	return negated
}

// MirrorLines builds the line set of a reversal entry: every line keeps its
// account and amount but swaps debit for credit.
func MirrorLines(original []domain.JournalLine, reversalEntryID, userID string, now time.Time) []domain.JournalLine {
	mirrored := make([]domain.JournalLine, len(original))
	for i, line := range original {
		mirrored[i] = domain.JournalLine{
			LineID:      uuid.NewString(),
			EntryID:     reversalEntryID,
			AccountID:   line.AccountID,
			Side:        line.Side.Opposite(),
			Amount:      line.Amount,
			Description: line.Description,
			AuditFields: domain.NewAuditFields(userID, now),
		}
	}
	return mirrored
}

// EntryAmount is the economic value of a balanced entry: the sum of its
// debit side.
func EntryAmount(lines []domain.JournalLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Side == domain.Debit {
			total = total.Add(line.Amount)
		}
	}
	return total
}
