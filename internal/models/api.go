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

// SyncResult represents the outcome of mirroring one transfer into the legacy ledger
type SyncResult struct {
	Hash       string `json:"hash"`
	LegacyId   int64  `json:"legacy_id"`
	Status     int    `json:"status"`
	TransferId string `json:"transfer_id"`
}

// PairResult represents the outcome of pairing a bridge transfer
type PairResult struct {
	Hash    string `json:"hash"`
	InId    int64  `json:"in_id,omitempty"`
	OutId   int64  `json:"out_id,omitempty"`
	Settled bool   `json:"settled"`
	Skipped string `json:"skipped,omitempty"` // reason when nothing was written
}

// BatchResult summarises one primary sync run
type BatchResult struct {
	RunId    string `json:"run_id"`
	Selected int    `json:"selected"`
	Synced   int    `json:"synced"`
	Failed   int    `json:"failed"`
	Skipped  bool   `json:"skipped"`
}

// ErrorResponse is the body returned on failed operator requests
type ErrorResponse struct {
	Error string `json:"error"`
}
