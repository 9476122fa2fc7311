package models

import "time"

// ArbitrationTransaction is the disputed transfer a challenge is built from
type ArbitrationTransaction struct {
	FromHash      string     `json:"fromHash"`
	FromChainId   string     `json:"fromChainId"`
	ToChainId     string     `json:"toChainId"`
	FromTimestamp time.Time  `json:"fromTimestamp"`
	ToTimestamp   *time.Time `json:"toTimestamp,omitempty"`
	ToHash        string     `json:"toHash,omitempty"`
	SourceToken   string     `json:"sourceToken"`
	SourceDecimal int32      `json:"sourceDecimal"`
	FromAmount    string     `json:"fromAmount"`
	SourceMaker   string     `json:"sourceMaker"`
	Status        int        `json:"status"`
}

// ChallengeRequest asks the arbitration service to evaluate and possibly challenge a transfer
type ChallengeRequest struct {
	Transaction ArbitrationTransaction
	ReceivedAt  time.Time
}
