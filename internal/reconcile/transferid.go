package reconcile

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// TransferId derives the join key shared by a source leg and its maker reply.
// Fields are lowercased and joined with "_" before hashing, so the result only
// depends on field values.
func TransferId(chainId, replySender, replyAccount, nonceOrMemo, symbol, value string) string {
	joined := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(chainId),
		strings.TrimSpace(replySender),
		strings.TrimSpace(replyAccount),
		strings.TrimSpace(nonceOrMemo),
		strings.TrimSpace(symbol),
		strings.TrimSpace(value),
	}, "_"))
	return crypto.Keccak256Hash([]byte(joined)).Hex()
}

// ExpectValue scales a human amount to integer base units, truncating dust.
func ExpectValue(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidAmount, amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w %q: negative", ErrInvalidAmount, amount)
	}
	return d.Shift(decimals).Truncate(0).String(), nil
}

// DecodeMemo reads the first argument word of swap calldata as an unsigned integer.
// Returns "" when the payload is absent or too short.
func DecodeMemo(calldata string) string {
	data := common.FromHex(strings.TrimSpace(calldata))
	if len(data) < 4+32 {
		return ""
	}
	return new(big.Int).SetBytes(data[4:36]).String()
}
