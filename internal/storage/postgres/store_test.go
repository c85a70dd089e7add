package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

func TestBuildWhere(t *testing.T) {
	where, args, err := buildWhere("u1", []models.FieldFilter{
		models.Prefix(models.FieldDescription, "50%_off"),
		models.Eq(models.FieldAmount, decimal.RequireFromString("12.50")),
		models.Eq(models.FieldType, models.TypeExpense),
		models.Eq(models.FieldInstallmentGroupID, nil),
	})
	if err != nil {
		t.Fatalf("buildWhere: %v", err)
	}

	wantWhere := `user_id = $1 AND description LIKE $2 || '%' ESCAPE '\' AND amount = $3 AND type = $4 AND installment_group_id IS NULL`
	if where != wantWhere {
		t.Errorf("where mismatch:\n got: %s\nwant: %s", where, wantWhere)
	}
	if len(args) != 4 {
		t.Fatalf("got %d args, want 4", len(args))
	}
	if args[1] != `50\%\_off` {
		t.Errorf("prefix arg = %v, want escaped", args[1])
	}
	if args[3] != "expense" {
		t.Errorf("type arg = %#v, want plain string", args[3])
	}
}

func TestBuildWhere_Errors(t *testing.T) {
	tests := []struct {
		name   string
		filter models.FieldFilter
	}{
		{name: "unknown field", filter: models.Eq("drop table", 1)},
		{name: "prefix on non-string", filter: models.FieldFilter{Field: models.FieldInstallments, Value: 3, Match: models.MatchPrefix}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := buildWhere("u1", []models.FieldFilter{tt.filter}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildOrderBy(t *testing.T) {
	tests := []struct {
		order models.OrderBy
		want  string
	}{
		{order: models.OrderBy{}, want: "date ASC, installment_no ASC NULLS FIRST, id"},
		{order: models.OrderBy{Field: models.FieldAmount, Desc: true}, want: "amount DESC, installment_no DESC NULLS FIRST, id"},
	}
	for _, tt := range tests {
		got, err := buildOrderBy(tt.order)
		if err != nil {
			t.Fatalf("buildOrderBy: %v", err)
		}
		if got != tt.want {
			t.Errorf("buildOrderBy(%+v) = %q, want %q", tt.order, got, tt.want)
		}
	}
	if _, err := buildOrderBy(models.OrderBy{Field: "1; --"}); err == nil {
		t.Error("expected error for unknown order field")
	}
}

// TestStore_Integration runs against a real database when TEST_DATABASE_URL is set.
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewPostgresTransactionStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	userID := "it-" + time.Now().Format("20060102150405.000000")
	groupID := "grp-" + userID
	var batch []models.Transaction
	for i := 1; i <= 3; i++ {
		batch = append(batch, models.Transaction{
			UserID:             userID,
			Type:               models.TypeExpense,
			Amount:             decimal.RequireFromString("33.33"),
			Description:        "Phone",
			Date:               time.Date(2025, time.Month(i), 15, 0, 0, 0, 0, time.UTC),
			AccountID:          "acc",
			CategoryID:         "cat",
			Installments:       models.Ptr(3),
			InstallmentNo:      models.Ptr(i),
			InstallmentGroupID: models.Ptr(groupID),
		})
	}

	inserted, err := store.InsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	got, err := store.FindByGroupID(ctx, userID, groupID)
	if err != nil {
		t.Fatalf("FindByGroupID: %v", err)
	}
	var gotIDs, wantIDs []string
	for i := range got {
		gotIDs = append(gotIDs, got[i].ID)
		wantIDs = append(wantIDs, inserted[i].ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("group ids mismatch (-want +got):\n%s", diff)
	}

	if err := store.DeleteByID(ctx, inserted[0].ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := store.FindByID(ctx, userID, inserted[0].ID); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("FindByID after delete: err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteByGroupID(ctx, groupID); err != nil {
		t.Fatalf("DeleteByGroupID: %v", err)
	}
	if got, _ := store.FindByGroupID(ctx, userID, groupID); len(got) != 0 {
		t.Errorf("group still has %d records", len(got))
	}
}
