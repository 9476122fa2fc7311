package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"
)

func TestWithTransaction_SettlesBothLegs(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	inId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xin", models.LegacyStatusPending))
	outId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xout", models.LegacyStatusPending))

	err := legacy.WithTransaction(ctx, func(w store.PairingWriter) error {
		if _, err := w.CreateOrUpdateMakerPairing(ctx, &models.MakerTransaction{
			TranscationId: "tid",
			InId:          inId,
			OutId:         &outId,
			FromChain:     "1",
			ToChain:       "2",
			ToAmount:      "0.95",
		}); err != nil {
			return err
		}
		affected, err := w.SettleLegs(ctx, inId, outId)
		if err != nil {
			return err
		}
		if affected != 2 {
			return store.ErrPartialSettlement
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}

	pairing, err := legacy.FindMakerPairing(ctx, inId)
	if err != nil {
		t.Fatalf("FindMakerPairing failed: %v", err)
	}
	if !pairing.Paired() {
		t.Fatalf("Expected paired maker transaction, got %+v", pairing)
	}
	if *pairing.OutId != outId {
		t.Errorf("Expected out id %d, got %d", outId, *pairing.OutId)
	}

	for _, id := range []int64{inId, outId} {
		tx, _ := legacy.FindLegacyById(ctx, id)
		if tx.Status != models.LegacyStatusMatched {
			t.Errorf("Expected leg %d status %d, got %d", id, models.LegacyStatusMatched, tx.Status)
		}
	}
}

func TestWithTransaction_PartialSettlementRollsBack(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	inId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xin", models.LegacyStatusPending))
	// out leg already matched elsewhere: the guarded flip only touches one row
	outId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xout", models.LegacyStatusMatched))

	err := legacy.WithTransaction(ctx, func(w store.PairingWriter) error {
		if _, err := w.CreateOrUpdateMakerPairing(ctx, &models.MakerTransaction{
			TranscationId: "tid",
			InId:          inId,
			OutId:         &outId,
			FromChain:     "1",
			ToChain:       "2",
		}); err != nil {
			return err
		}
		affected, err := w.SettleLegs(ctx, inId, outId)
		if err != nil {
			return err
		}
		if affected != 2 {
			return store.ErrPartialSettlement
		}
		return nil
	})
	if !errors.Is(err, store.ErrPartialSettlement) {
		t.Fatalf("Expected ErrPartialSettlement, got %v", err)
	}

	pairing, err := legacy.FindMakerPairing(ctx, inId)
	if err != nil {
		t.Fatalf("FindMakerPairing failed: %v", err)
	}
	if pairing != nil {
		t.Errorf("Expected pairing to be rolled back, got %+v", pairing)
	}

	in, _ := legacy.FindLegacyById(ctx, inId)
	if in.Status != models.LegacyStatusPending {
		t.Errorf("Expected in leg status %d after rollback, got %d", models.LegacyStatusPending, in.Status)
	}
}

func TestCreateOrUpdateMakerPairing_NilOutKeepsLink(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	inId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xin", models.LegacyStatusPending))
	outId, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xout", models.LegacyStatusPending))

	first, err := legacy.CreateOrUpdateMakerPairing(ctx, &models.MakerTransaction{TranscationId: "tid", InId: inId, OutId: &outId, FromChain: "1", ToChain: "2"})
	if err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	second, err := legacy.CreateOrUpdateMakerPairing(ctx, &models.MakerTransaction{TranscationId: "tid", InId: inId, FromChain: "1", ToChain: "2"})
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same pairing id %d, got %d", first, second)
	}

	pairing, _ := legacy.FindMakerPairing(ctx, inId)
	if pairing.OutId == nil || *pairing.OutId != outId {
		t.Errorf("Expected out id %d to survive, got %v", outId, pairing.OutId)
	}
}

func TestFindUnpairedMakerTransactions(t *testing.T) {
	_, legacy, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	pairedIn, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xa", models.LegacyStatusPending))
	pairedOut, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xb", models.LegacyStatusPending))
	openIn, _ := legacy.UpsertLegacy(ctx, legacyFixture("0xc", models.LegacyStatusPending))

	tests := []struct {
		name  string
		input models.MakerTransaction
	}{
		{"paired", models.MakerTransaction{TranscationId: "t1", InId: pairedIn, OutId: &pairedOut, FromChain: "1", ToChain: "2"}},
		{"open", models.MakerTransaction{TranscationId: "t2", InId: openIn, FromChain: "1", ToChain: "2"}},
	}
	for _, tt := range tests {
		if _, err := legacy.CreateOrUpdateMakerPairing(ctx, &tt.input); err != nil {
			t.Fatalf("%s: upsert failed: %v", tt.name, err)
		}
	}

	unpaired, err := legacy.FindUnpairedMakerTransactions(ctx, time.Now().Add(-20*time.Minute), 100)
	if err != nil {
		t.Fatalf("FindUnpairedMakerTransactions failed: %v", err)
	}
	if len(unpaired) != 1 {
		t.Fatalf("Expected 1 unpaired row, got %d", len(unpaired))
	}
	if unpaired[0].InId != openIn {
		t.Errorf("Expected in id %d, got %d", openIn, unpaired[0].InId)
	}

	future, _ := legacy.FindUnpairedMakerTransactions(ctx, time.Now().Add(time.Hour), 100)
	if len(future) != 0 {
		t.Errorf("Expected no rows created after the window start, got %d", len(future))
	}
}

func TestFindChallengeCandidates(t *testing.T) {
	source, _, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Unix(1700010000, 0).UTC()

	transfers := []models.Transfer{
		{Hash: "0xopen", OpStatus: models.OpStatusValid},
		{Hash: "0xanswered", OpStatus: models.OpStatusValid},
		{Hash: "0xnobridge", OpStatus: models.OpStatusValid},
		{Hash: "0xrefund", OpStatus: models.OpStatusRefund},
	}
	for i := range transfers {
		transfers[i].ChainId = "1"
		transfers[i].Sender = "0xuser"
		transfers[i].Receiver = "0xmaker"
		transfers[i].Value = "1000"
		transfers[i].Symbol = "ETH"
		transfers[i].Version = models.VersionBridge
		transfers[i].Timestamp = now.Add(-5 * time.Minute)
		if _, err := source.RecordTransfer(ctx, &transfers[i]); err != nil {
			t.Fatalf("RecordTransfer failed: %v", err)
		}
	}

	bridges := []models.BridgeTransaction{
		{SourceId: "0xopen"},
		{SourceId: "0xanswered", TargetId: "0xreply"},
	}
	for i := range bridges {
		bridges[i].SourceChain = "1"
		bridges[i].TargetChain = "2"
		bridges[i].SourceAmount = "1"
		bridges[i].TargetAmount = "0.9"
		bridges[i].SourceSymbol = "ETH"
		bridges[i].TargetSymbol = "ETH"
		bridges[i].SourceTime = now
		if _, err := source.RecordBridgeTransaction(ctx, &bridges[i]); err != nil {
			t.Fatalf("RecordBridgeTransaction failed: %v", err)
		}
	}

	candidates, err := source.FindChallengeCandidates(ctx, store.ChallengeCandidateFilter{
		From:  now.Add(-time.Hour),
		To:    now,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("FindChallengeCandidates failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Transfer.Hash != "0xopen" || candidates[0].Bridge == nil {
		t.Errorf("Expected 0xopen with bridge record, got %+v", candidates[0])
	}
	if candidates[1].Transfer.Hash != "0xnobridge" || candidates[1].Bridge != nil {
		t.Errorf("Expected 0xnobridge without bridge record, got %+v", candidates[1])
	}
}
