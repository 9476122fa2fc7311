/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

// Transfer versions
const (
	VersionBridge = "1-0"
	VersionReply  = "1-1"
)

// Transfer operation status codes
const (
	OpStatusPending            = 0
	OpStatusValid              = 1
	OpStatusChainOrTokenAbsent = 2
	OpStatusRuleNotFound       = 3
	OpStatusAmountTooSmall     = 4
	OpStatusNonceExceeded      = 5
	OpStatusAmountTooLarge     = 6
	OpStatusRefund             = 80
	OpStatusMatched            = 99
)

// Sync status codes
const (
	SyncStatusNone = 0
	SyncStatusDone = 9
)

// IsAnomalous reports whether an operation status marks a transfer the makers will not honour.
func IsAnomalous(opStatus int) bool {
	return opStatus >= OpStatusChainOrTokenAbsent && opStatus <= OpStatusAmountTooLarge
}

// Transfer is an observed on-chain transfer from the source ledger
type Transfer struct {
	Id         int64     `json:"id"`
	ChainId    string    `json:"chainId"`
	Hash       string    `json:"hash"`
	Sender     string    `json:"sender"`
	Receiver   string    `json:"receiver"`
	Value      string    `json:"value"`
	Token      string    `json:"token"`
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status"`
	OpStatus   int       `json:"opStatus"`
	Nonce      string    `json:"nonce"`
	Version    string    `json:"version"`
	SyncStatus int       `json:"syncStatus"`
	Calldata   string    `json:"calldata,omitempty"`
}

// BridgeTransaction links a source transfer to its maker reply on the target chain
type BridgeTransaction struct {
	Id            int64     `json:"id"`
	SourceId      string    `json:"sourceId"`
	TargetId      string    `json:"targetId"`
	SourceChain   string    `json:"sourceChain"`
	TargetChain   string    `json:"targetChain"`
	SourceAmount  string    `json:"sourceAmount"`
	TargetAmount  string    `json:"targetAmount"`
	SourceMaker   string    `json:"sourceMaker"`
	TargetMaker   string    `json:"targetMaker"`
	SourceSymbol  string    `json:"sourceSymbol"`
	TargetSymbol  string    `json:"targetSymbol"`
	TargetToken   string    `json:"targetToken"`
	TargetAddress string    `json:"targetAddress"`
	Status        int       `json:"status"`
	TargetFee     string    `json:"targetFee"`
	ResponseMaker []string  `json:"responseMaker"`
	SourceTime    time.Time `json:"sourceTime"`
}
