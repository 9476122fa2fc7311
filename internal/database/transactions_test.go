package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDb(t *testing.T) (*SourceService, *LegacyService, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)

	if err := InitSchemas(context.Background(), db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return NewSourceServiceFromDB(db), NewLegacyServiceFromDB(db), cleanup
}

func legacyFixture(hash string, status int) *models.LegacyTransaction {
	return &models.LegacyTransaction{
		Hash:      hash,
		From:      "0xSender",
		To:        "0xMaker",
		Value:     "1000000000000000000",
		Symbol:    "ETH",
		Status:    status,
		ChainId:   "1",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
}

func TestUpsertLegacy_InsertThenUpdateById(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	tx := legacyFixture("0xABC", models.LegacyStatusPending)

	id, err := legacy.UpsertLegacy(ctx, tx)
	if err != nil {
		t.Fatalf("UpsertLegacy insert failed: %v", err)
	}
	if id == 0 {
		t.Fatalf("Expected non-zero id")
	}

	found, err := legacy.FindLegacyByHash(ctx, "0xabc")
	if err != nil {
		t.Fatalf("FindLegacyByHash failed: %v", err)
	}
	if found == nil {
		t.Fatalf("Expected legacy row for 0xabc, got nil")
	}
	if found.Hash != "0xabc" {
		t.Errorf("Expected lowercased hash 0xabc, got %s", found.Hash)
	}
	if found.From != "0xsender" {
		t.Errorf("Expected lowercased from 0xsender, got %s", found.From)
	}

	found.Status = models.LegacyStatusFailed
	updatedId, err := legacy.UpsertLegacy(ctx, found)
	if err != nil {
		t.Fatalf("UpsertLegacy update failed: %v", err)
	}
	if updatedId != id {
		t.Errorf("Expected id %d, got %d", id, updatedId)
	}

	reloaded, err := legacy.FindLegacyById(ctx, id)
	if err != nil {
		t.Fatalf("FindLegacyById failed: %v", err)
	}
	if reloaded.Status != models.LegacyStatusFailed {
		t.Errorf("Expected status %d, got %d", models.LegacyStatusFailed, reloaded.Status)
	}
}

func TestUpsertLegacy_InsertSameHashKeepsOneRow(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	first, err := legacy.UpsertLegacy(ctx, legacyFixture("0xdup", models.LegacyStatusPending))
	if err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	again := legacyFixture("0xDUP", models.LegacyStatusMatched)
	second, err := legacy.UpsertLegacy(ctx, again)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same id %d, got %d", first, second)
	}

	found, _ := legacy.FindLegacyByHash(ctx, "0xdup")
	if found.Status != models.LegacyStatusMatched {
		t.Errorf("Expected status %d, got %d", models.LegacyStatusMatched, found.Status)
	}
}

func TestUpsertLegacy_UnknownIdIsNotFound(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	tx := legacyFixture("0xmissing", models.LegacyStatusPending)
	tx.Id = 42
	_, err := legacy.UpsertLegacy(context.Background(), tx)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindLegacy_MissReturnsNil(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	found, err := legacy.FindLegacyByHash(context.Background(), "0xnone")
	if err != nil {
		t.Fatalf("Expected nil error on miss, got %v", err)
	}
	if found != nil {
		t.Errorf("Expected nil on miss, got %+v", found)
	}
}

func TestFindUnsynced_WindowAndOrder(t *testing.T) {
	source, _, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Unix(1700010000, 0).UTC()

	fixtures := []models.Transfer{
		{Hash: "0x01", Timestamp: now.Add(-10 * time.Minute), OpStatus: models.OpStatusValid},
		// too recent, too old, undecided
		{Hash: "0x02", Timestamp: now.Add(-30 * time.Second), OpStatus: models.OpStatusValid},
		{Hash: "0x03", Timestamp: now.Add(-3 * time.Hour), OpStatus: models.OpStatusValid},
		{Hash: "0x04", Timestamp: now.Add(-5 * time.Minute), OpStatus: models.OpStatusPending},
		{Hash: "0x05", Timestamp: now.Add(-5 * time.Minute), OpStatus: models.OpStatusMatched, SyncStatus: models.SyncStatusDone},
		{Hash: "0x06", Timestamp: now.Add(-20 * time.Minute), OpStatus: models.OpStatusMatched},
	}
	for i := range fixtures {
		fixtures[i].ChainId = "1"
		fixtures[i].Sender = "0xa"
		fixtures[i].Receiver = "0xb"
		fixtures[i].Value = "1"
		fixtures[i].Symbol = "ETH"
		fixtures[i].Version = models.VersionBridge
		if _, err := source.RecordTransfer(ctx, &fixtures[i]); err != nil {
			t.Fatalf("RecordTransfer failed: %v", err)
		}
	}

	transfers, err := source.FindUnsynced(ctx, store.UnsyncedFilter{
		From:  now.Add(-120 * time.Minute),
		To:    now.Add(-1 * time.Minute),
		Limit: 500,
	})
	if err != nil {
		t.Fatalf("FindUnsynced failed: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(transfers))
	}
	if transfers[0].Hash != "0x01" || transfers[1].Hash != "0x06" {
		t.Errorf("Expected ascending id order [0x01 0x06], got [%s %s]", transfers[0].Hash, transfers[1].Hash)
	}

	if err := source.UpdateSyncStatus(ctx, "0x01", models.SyncStatusDone); err != nil {
		t.Fatalf("UpdateSyncStatus failed: %v", err)
	}
	transfers, _ = source.FindUnsynced(ctx, store.UnsyncedFilter{From: now.Add(-120 * time.Minute), To: now.Add(-time.Minute), Limit: 500})
	if len(transfers) != 1 {
		t.Errorf("Expected 1 transfer after sync, got %d", len(transfers))
	}
}

func TestUpdateSyncStatus_UnknownHash(t *testing.T) {
	source, _, cleanup := setupTestDb(t)
	defer cleanup()

	err := source.UpdateSyncStatus(context.Background(), "0xnope", models.SyncStatusDone)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
