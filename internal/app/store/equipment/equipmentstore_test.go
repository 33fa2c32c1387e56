package equipmentstore_test

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	equipmentstore "taskhub/internal/app/store/equipment"
	"taskhub/internal/app/system/indexes"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
	"taskhub/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Equipment{
		Name:         "  Dell   XPS ",
		Type:         "laptop",
		SerialNumber: " sn-001a ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.Name != "Dell XPS" {
		t.Errorf("expected normalized name, got %q", created.Name)
	}
	if created.SerialNumber != "SN-001A" {
		t.Errorf("expected upper-cased serial, got %q", created.SerialNumber)
	}
	if created.Status != models.EquipmentStatusAvailable {
		t.Errorf("default status: got %q", created.Status)
	}
}

func TestStore_Create_DuplicateSerial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := store.Create(ctx, models.Equipment{Name: "A", SerialNumber: "SN-1"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.Equipment{Name: "B", SerialNumber: "sn-1"})
	if !errors.Is(err, equipmentstore.ErrDuplicateSerial) {
		t.Fatalf("expected ErrDuplicateSerial, got %v", err)
	}
}

func TestStore_AssignLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Equipment{Name: "Monitor", SerialNumber: "MON-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	userID := primitive.NewObjectID()

	if err := store.Assign(ctx, created.ID, userID); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	got, _ := store.GetByID(ctx, created.ID)
	if got.Status != models.EquipmentStatusAssigned {
		t.Errorf("status after assign: got %q", got.Status)
	}
	if got.AssignedTo == nil || *got.AssignedTo != userID {
		t.Error("expected assignee to be set")
	}

	// Already assigned, a second assign must not win.
	err = store.Assign(ctx, created.ID, primitive.NewObjectID())
	if !errors.Is(err, equipmentstore.ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}

	if err := store.Assign(ctx, primitive.NewObjectID(), userID); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments for missing item, got %v", err)
	}

	if err := store.Unassign(ctx, created.ID); err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}
	got, _ = store.GetByID(ctx, created.ID)
	if got.Status != models.EquipmentStatusAvailable || got.AssignedTo != nil {
		t.Errorf("expected item back in the pool, got %+v", got)
	}
}

func TestStore_ClearAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()

	mk := func(name, serial string, assignee primitive.ObjectID) primitive.ObjectID {
		t.Helper()
		created, err := store.Create(ctx, models.Equipment{Name: name, SerialNumber: serial})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if err := store.Assign(ctx, created.ID, assignee); err != nil {
			t.Fatalf("assign %s: %v", name, err)
		}
		return created.ID
	}

	mk("Laptop", "L-1", userID)
	mk("Phone", "P-1", userID)
	keep := mk("Tablet", "T-1", otherID)

	n, err := store.ClearAssignee(ctx, userID)
	if err != nil {
		t.Fatalf("ClearAssignee failed: %v", err)
	}
	if n != 2 {
		t.Errorf("released %d items, want 2", n)
	}

	got, _ := store.GetByID(ctx, keep)
	if got.AssignedTo == nil || *got.AssignedTo != otherID {
		t.Error("other users' equipment must survive")
	}
}

func TestStore_DetachTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Equipment{Name: "Printer", SerialNumber: "PR-1", TeamID: &teamID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.DetachTeam(ctx, teamID)
	if err != nil {
		t.Fatalf("DetachTeam failed: %v", err)
	}
	if n != 1 {
		t.Errorf("detached %d items, want 1", n)
	}

	got, _ := store.GetByID(ctx, created.ID)
	if got.TeamID != nil {
		t.Error("expected team link cleared")
	}
	if _, err := store.GetByID(ctx, created.ID); err != nil {
		t.Errorf("item must survive its team: %v", err)
	}
}

func TestStore_List_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := equipmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	a, _ := store.Create(ctx, models.Equipment{Name: "Alpha", Type: "laptop", SerialNumber: "A-1", TeamID: &teamID})
	store.Create(ctx, models.Equipment{Name: "Beta", Type: "monitor", SerialNumber: "B-1"})
	store.Create(ctx, models.Equipment{Name: "Gamma", Type: "laptop", SerialNumber: "G-1"})
	store.Assign(ctx, a.ID, userID)

	page := paging.Page{Number: 1, Size: 20}

	items, total, err := store.List(ctx, equipmentstore.ListFilter{}, page)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("unfiltered: got %d, want 3", total)
	}
	if items[0].Name != "Alpha" {
		t.Errorf("expected name sort, got %q first", items[0].Name)
	}

	_, total, _ = store.List(ctx, equipmentstore.ListFilter{Type: "laptop"}, page)
	if total != 2 {
		t.Errorf("type filter: got %d, want 2", total)
	}

	_, total, _ = store.List(ctx, equipmentstore.ListFilter{Status: models.EquipmentStatusAssigned}, page)
	if total != 1 {
		t.Errorf("status filter: got %d, want 1", total)
	}

	_, total, _ = store.List(ctx, equipmentstore.ListFilter{AssignedTo: &userID}, page)
	if total != 1 {
		t.Errorf("assignee filter: got %d, want 1", total)
	}

	_, total, _ = store.List(ctx, equipmentstore.ListFilter{TeamID: &teamID}, page)
	if total != 1 {
		t.Errorf("team filter: got %d, want 1", total)
	}
}
