package arbitration

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"bridge-reconcile-go/internal/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const challengeABI = `[{
	"type": "function",
	"name": "challenge",
	"stateMutability": "payable",
	"inputs": [
		{"name": "sourceChainId", "type": "uint64"},
		{"name": "sourceTxHash", "type": "bytes32"},
		{"name": "sourceTxTime", "type": "uint64"},
		{"name": "freezeToken", "type": "address"},
		{"name": "freezeAmount1", "type": "uint256"}
	],
	"outputs": []
}]`

var parsedChallengeABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(challengeABI))
	if err != nil {
		panic(fmt.Sprintf("invalid challenge abi: %v", err))
	}
	parsedChallengeABI = parsed
}

// Challenge is the encoded contract call plus the amount frozen by it
type Challenge struct {
	Data         []byte
	FreezeToken  common.Address
	FreezeAmount *big.Int
}

// IsNative reports whether the frozen token is the chain's native currency
func (c *Challenge) IsNative() bool {
	return c.FreezeToken == (common.Address{})
}

// Value is what the transaction must carry: the freeze amount for native tokens, zero otherwise
func (c *Challenge) Value() *big.Int {
	if c.IsNative() {
		return new(big.Int).Set(c.FreezeAmount)
	}
	return big.NewInt(0)
}

// FreezeAmount converts a human amount into base units, truncating any dust
func FreezeAmount(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// BuildChallenge encodes challenge(uint64,bytes32,uint64,address,uint256) for tx
func BuildChallenge(tx *models.ArbitrationTransaction) (*Challenge, error) {
	if err := validate(tx); err != nil {
		return nil, err
	}

	chainId, _ := strconv.ParseUint(tx.FromChainId, 10, 64)

	amount, err := FreezeAmount(tx.FromAmount, tx.SourceDecimal)
	if err != nil {
		return nil, err
	}

	token := common.HexToAddress(tx.SourceToken)

	data, err := parsedChallengeABI.Pack("challenge",
		chainId,
		common.HexToHash(tx.FromHash),
		uint64(tx.FromTimestamp.Unix()),
		token,
		amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack challenge: %w", err)
	}

	return &Challenge{
		Data:         data,
		FreezeToken:  token,
		FreezeAmount: amount,
	}, nil
}
