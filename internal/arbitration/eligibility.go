package arbitration

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"bridge-reconcile-go/internal/models"
)

// State of a single challenge attempt
type State string

const (
	StateIneligible State = "ineligible"
	StateEligible   State = "eligible"
	StateSubmitted  State = "challenge-submitted"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

var (
	ErrMissingField      = errors.New("arbitration transaction missing required field")
	ErrChallengeReverted = errors.New("challenge transaction reverted")
)

// Eligible reports whether tx sits inside the chain's challenge window and has no
// recorded reply. Both window bounds are inclusive.
func Eligible(tx *models.ArbitrationTransaction, chain *models.ChainInfo, now time.Time) bool {
	if tx == nil || chain == nil {
		return false
	}
	if tx.ToHash != "" || tx.FromTimestamp.IsZero() {
		return false
	}

	start := tx.FromTimestamp.Add(time.Duration(chain.MinVerifyChallengeSourceTxSecond) * time.Second)
	end := tx.FromTimestamp.Add(time.Duration(chain.MaxVerifyChallengeSourceTxSecond) * time.Second)

	return !now.Before(start) && !now.After(end)
}

// validate checks every field the challenge calldata is built from
func validate(tx *models.ArbitrationTransaction) error {
	switch {
	case tx.FromHash == "":
		return fmt.Errorf("%w: fromHash", ErrMissingField)
	case tx.FromChainId == "":
		return fmt.Errorf("%w: fromChainId", ErrMissingField)
	case tx.FromTimestamp.IsZero():
		return fmt.Errorf("%w: fromTimestamp", ErrMissingField)
	case tx.SourceToken == "":
		return fmt.Errorf("%w: sourceToken", ErrMissingField)
	case tx.SourceDecimal <= 0:
		return fmt.Errorf("%w: sourceDecimal", ErrMissingField)
	case tx.FromAmount == "":
		return fmt.Errorf("%w: fromAmount", ErrMissingField)
	}

	if _, err := strconv.ParseUint(tx.FromChainId, 10, 64); err != nil {
		return fmt.Errorf("%w: fromChainId %q is not numeric", ErrMissingField, tx.FromChainId)
	}
	return nil
}
