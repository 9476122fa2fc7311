package arbitration

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"bridge-reconcile-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

func TestFreezeAmount(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int32
		expected string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.95", 18, "950000000000000000"},
		{"1.5", 6, "1500000"},
		{"0.0000001", 6, "0"},
	}

	for _, tt := range tests {
		got, err := FreezeAmount(tt.amount, tt.decimals)
		if err != nil {
			t.Fatalf("FreezeAmount(%s, %d) failed: %v", tt.amount, tt.decimals, err)
		}
		if got.String() != tt.expected {
			t.Errorf("Expected %s for %s with %d decimals, got %s", tt.expected, tt.amount, tt.decimals, got.String())
		}
	}

	if _, err := FreezeAmount("-1", 18); err == nil {
		t.Error("Expected error for negative amount")
	}
	if _, err := FreezeAmount("abc", 18); err == nil {
		t.Error("Expected error for invalid amount")
	}
}

func TestBuildChallenge_EncodesArguments(t *testing.T) {
	sent := time.Unix(1700000000, 0)
	tx := &models.ArbitrationTransaction{
		FromHash:      "0x" + word(0xabc),
		FromChainId:   "42161",
		FromTimestamp: sent,
		SourceToken:   "0x0000000000000000000000000000000000000000",
		SourceDecimal: 18,
		FromAmount:    "1.25",
	}

	challenge, err := BuildChallenge(tx)
	if err != nil {
		t.Fatalf("BuildChallenge failed: %v", err)
	}

	method := parsedChallengeABI.Methods["challenge"]
	if !bytes.Equal(challenge.Data[:4], method.ID) {
		t.Errorf("Expected selector %x, got %x", method.ID, challenge.Data[:4])
	}

	args, err := method.Inputs.Unpack(challenge.Data[4:])
	if err != nil {
		t.Fatalf("Failed to unpack calldata: %v", err)
	}
	if len(args) != 5 {
		t.Fatalf("Expected 5 arguments, got %d", len(args))
	}

	if args[0].(uint64) != 42161 {
		t.Errorf("Expected sourceChainId 42161, got %v", args[0])
	}
	if common.Hash(args[1].([32]byte)) != common.HexToHash(tx.FromHash) {
		t.Errorf("Expected sourceTxHash %s, got %x", tx.FromHash, args[1])
	}
	if args[2].(uint64) != uint64(sent.Unix()) {
		t.Errorf("Expected sourceTxTime %d, got %v", sent.Unix(), args[2])
	}
	if args[3].(common.Address) != (common.Address{}) {
		t.Errorf("Expected zero freeze token, got %v", args[3])
	}
	expected, _ := new(big.Int).SetString("1250000000000000000", 10)
	if args[4].(*big.Int).Cmp(expected) != 0 {
		t.Errorf("Expected freezeAmount %s, got %v", expected, args[4])
	}
}

func TestChallenge_ValueOnlyForNativeToken(t *testing.T) {
	native := &models.ArbitrationTransaction{
		FromHash:      "0xabc",
		FromChainId:   "1",
		FromTimestamp: time.Unix(1700000000, 0),
		SourceToken:   "0x0000000000000000000000000000000000000000",
		SourceDecimal: 18,
		FromAmount:    "2",
	}
	erc20 := *native
	erc20.SourceToken = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	erc20.SourceDecimal = 6

	c, err := BuildChallenge(native)
	if err != nil {
		t.Fatalf("BuildChallenge failed: %v", err)
	}
	if c.Value().Cmp(c.FreezeAmount) != 0 {
		t.Errorf("Expected native value %s, got %s", c.FreezeAmount, c.Value())
	}

	c, err = BuildChallenge(&erc20)
	if err != nil {
		t.Fatalf("BuildChallenge failed: %v", err)
	}
	if c.Value().Sign() != 0 {
		t.Errorf("Expected zero value for token challenge, got %s", c.Value())
	}
	if c.FreezeAmount.String() != "2000000" {
		t.Errorf("Expected freeze amount 2000000, got %s", c.FreezeAmount)
	}
}
