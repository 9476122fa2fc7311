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

package database

// Placeholders are numbered ($1, $2, ...) so the same text runs on sqlite3 and pgx.
const (
	// Source ledger: transfers
	transferColumns = `id, chain_id, hash, sender, receiver, value, token, symbol, timestamp,
		status, op_status, nonce, version, sync_status, calldata`

	queryFindUnsyncedTransfers = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE op_status != $1 AND sync_status != $2 AND timestamp >= $3 AND timestamp <= $4
		ORDER BY id ASC
		LIMIT $5`

	queryFindTransferByHash = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE hash = $1`

	queryUpdateSyncStatus = `
		UPDATE transfers SET sync_status = $1 WHERE hash = $2`

	queryInsertTransfer = `
		INSERT INTO transfers (chain_id, hash, sender, receiver, value, token, symbol, timestamp,
			status, op_status, nonce, version, sync_status, calldata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	queryFindChallengeCandidates = `
		SELECT ` + transferColumns + `
		FROM transfers t
		WHERE t.version = $1 AND t.op_status = $2 AND t.timestamp >= $3 AND t.timestamp <= $4
			AND NOT EXISTS (
				SELECT 1 FROM bridge_transactions b
				WHERE b.source_id = t.hash AND b.target_id != ''
			)
		ORDER BY t.id ASC
		LIMIT $5`

	// Source ledger: bridge transactions
	bridgeColumns = `id, source_id, target_id, source_chain, target_chain, source_amount, target_amount,
		source_maker, target_maker, source_symbol, target_symbol, target_token, target_address,
		status, target_fee, response_maker, source_time`

	queryFindBridgeBySource = `
		SELECT ` + bridgeColumns + `
		FROM bridge_transactions
		WHERE source_id = $1`

	queryInsertBridgeTransaction = `
		INSERT INTO bridge_transactions (source_id, target_id, source_chain, target_chain, source_amount,
			target_amount, source_maker, target_maker, source_symbol, target_symbol, target_token,
			target_address, status, target_fee, response_maker, source_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (source_id) DO UPDATE SET target_id = excluded.target_id, status = excluded.status
		RETURNING id`

	// Legacy ledger: transactions
	legacyColumns = `id, hash, nonce, from_addr, to_addr, value, symbol, status, chain_id, side, memo,
		transfer_id, expect_value, reply_account, reply_sender, source, extra, timestamp`

	queryFindLegacyByHash = `
		SELECT ` + legacyColumns + `
		FROM transactions
		WHERE hash = $1`

	queryFindLegacyById = `
		SELECT ` + legacyColumns + `
		FROM transactions
		WHERE id = $1`

	queryInsertLegacy = `
		INSERT INTO transactions (hash, nonce, from_addr, to_addr, value, symbol, status, chain_id, side,
			memo, transfer_id, expect_value, reply_account, reply_sender, source, extra, timestamp,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		ON CONFLICT (hash) DO UPDATE SET
			status = excluded.status,
			memo = excluded.memo,
			transfer_id = excluded.transfer_id,
			expect_value = excluded.expect_value,
			reply_account = excluded.reply_account,
			reply_sender = excluded.reply_sender,
			source = excluded.source,
			extra = excluded.extra,
			updated_at = excluded.updated_at
		RETURNING id`

	queryUpdateLegacyById = `
		UPDATE transactions SET
			nonce = $1, from_addr = $2, to_addr = $3, value = $4, symbol = $5, status = $6,
			chain_id = $7, side = $8, memo = $9, transfer_id = $10, expect_value = $11,
			reply_account = $12, reply_sender = $13, source = $14, extra = $15, timestamp = $16,
			updated_at = $17
		WHERE id = $18`

	// Legacy ledger: maker pairings
	makerColumns = `id, transcation_id, in_id, out_id, from_chain, to_chain, to_amount,
		reply_sender, reply_account, created_at`

	queryFindMakerPairing = `
		SELECT ` + makerColumns + `
		FROM maker_transactions
		WHERE in_id = $1`

	queryFindUnpairedMakerTransactions = `
		SELECT ` + makerColumns + `
		FROM maker_transactions
		WHERE out_id IS NULL AND created_at >= $1
		ORDER BY id ASC
		LIMIT $2`

	queryUpsertMakerPairing = `
		INSERT INTO maker_transactions (transcation_id, in_id, out_id, from_chain, to_chain, to_amount,
			reply_sender, reply_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (in_id) DO UPDATE SET
			transcation_id = excluded.transcation_id,
			out_id = COALESCE(excluded.out_id, maker_transactions.out_id),
			from_chain = excluded.from_chain,
			to_chain = excluded.to_chain,
			to_amount = excluded.to_amount,
			reply_sender = excluded.reply_sender,
			reply_account = excluded.reply_account,
			updated_at = excluded.updated_at
		RETURNING id`

	// settle legs: the id list is appended at call time
	querySettleLegsPrefix = `
		UPDATE transactions SET status = $1, updated_at = $2
		WHERE status != $1 AND id IN (`
)
