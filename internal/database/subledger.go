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

import (
	"context"
	"database/sql"
	"fmt"
)

// Schemas are sqlite dialect; postgres deployments manage their tables out of band.
const sourceSchema = `
	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chain_id TEXT NOT NULL,
		hash TEXT NOT NULL UNIQUE,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		value TEXT NOT NULL,
		token TEXT NOT NULL DEFAULT '',
		symbol TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		op_status INTEGER NOT NULL DEFAULT 0,
		nonce TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL,
		sync_status INTEGER NOT NULL DEFAULT 0,
		calldata TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_sync ON transfers(sync_status, op_status, timestamp);

	CREATE TABLE IF NOT EXISTS bridge_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL UNIQUE,
		target_id TEXT NOT NULL DEFAULT '',
		source_chain TEXT NOT NULL,
		target_chain TEXT NOT NULL,
		source_amount TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		source_maker TEXT NOT NULL DEFAULT '',
		target_maker TEXT NOT NULL DEFAULT '',
		source_symbol TEXT NOT NULL,
		target_symbol TEXT NOT NULL,
		target_token TEXT NOT NULL DEFAULT '',
		target_address TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		target_fee TEXT NOT NULL DEFAULT '0',
		response_maker TEXT NOT NULL DEFAULT '',
		source_time INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bridge_target ON bridge_transactions(target_id);
`

const legacySchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL UNIQUE,
		nonce TEXT NOT NULL DEFAULT '',
		from_addr TEXT NOT NULL,
		to_addr TEXT NOT NULL,
		value TEXT NOT NULL,
		symbol TEXT NOT NULL,
		status INTEGER NOT NULL,
		chain_id TEXT NOT NULL,
		side INTEGER NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		transfer_id TEXT NOT NULL DEFAULT '',
		expect_value TEXT NOT NULL DEFAULT '',
		reply_account TEXT NOT NULL DEFAULT '',
		reply_sender TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		extra TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_transfer_id ON transactions(transfer_id);

	CREATE TABLE IF NOT EXISTS maker_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transcation_id TEXT NOT NULL,
		in_id INTEGER NOT NULL UNIQUE REFERENCES transactions(id),
		out_id INTEGER REFERENCES transactions(id),
		from_chain TEXT NOT NULL,
		to_chain TEXT NOT NULL,
		to_amount TEXT NOT NULL DEFAULT '',
		reply_sender TEXT NOT NULL DEFAULT '',
		reply_account TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maker_unpaired ON maker_transactions(out_id, created_at);
`

func initSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
