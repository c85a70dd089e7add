package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

func record(user, desc string, amount string, day int) models.Transaction {
	return models.Transaction{
		UserID:      user,
		Type:        models.TypeExpense,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Date:        time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
		AccountID:   "acc-1",
		CategoryID:  "cat-1",
	}
}

func TestInsertMany_AssignsIDsAndRounds(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()

	in := []models.Transaction{record("u1", "a", "10.005", 1), record("u1", "b", "3", 2)}
	out, err := s.InsertMany(ctx, in)
	if err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].ID == "" || out[0].ID == out[1].ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", out[0].ID, out[1].ID)
	}
	if !out[0].Amount.Equal(decimal.RequireFromString("10.01")) {
		t.Errorf("amount = %s, want 10.01", out[0].Amount)
	}
	if in[0].ID != "" {
		t.Error("InsertMany must not mutate its input")
	}
}

func TestInsertMany_AllOrNothing(t *testing.T) {
	s := NewTransactionStore()

	_, err := s.InsertMany(context.Background(), []models.Transaction{record("u1", "a", "1", 1), record("", "b", "1", 2)})
	if err == nil {
		t.Fatal("expected error for record without user id")
	}
	if s.Len() != 0 {
		t.Errorf("store has %d records after failed batch, want 0", s.Len())
	}
}

func TestInsertMany_CancelledContext(t *testing.T) {
	s := NewTransactionStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.InsertMany(ctx, []models.Transaction{record("u1", "a", "1", 1)}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFindByID_ScopedByUser(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	out, _ := s.InsertMany(ctx, []models.Transaction{record("u1", "a", "1", 1)})

	if _, err := s.FindByID(ctx, "u1", out[0].ID); err != nil {
		t.Errorf("FindByID owner: %v", err)
	}
	if _, err := s.FindByID(ctx, "u2", out[0].ID); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("FindByID other user: err = %v, want ErrNotFound", err)
	}
}

func TestFindByFields(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()

	withPM := record("u1", "Laptop (Installment 1/2)", "50", 10)
	withPM.PaymentMethod = models.Ptr("card")
	withPM.Installments = models.Ptr(2)
	later := record("u1", "Laptop (Installment 2/2)", "50", 20)
	later.PaymentMethod = models.Ptr("card")
	later.Installments = models.Ptr(2)
	noPM := record("u1", "Laptop bag", "50", 5)
	otherUser := record("u2", "Laptop (Installment 1/2)", "50", 1)
	otherUser.PaymentMethod = models.Ptr("card")

	if _, err := s.InsertMany(ctx, []models.Transaction{later, noPM, withPM, otherUser}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	tests := []struct {
		name    string
		filters []models.FieldFilter
		order   models.OrderBy
		want    []string
	}{
		{
			name:    "prefix on description ordered by date",
			filters: []models.FieldFilter{models.Prefix(models.FieldDescription, "Laptop")},
			want:    []string{"Laptop bag", "Laptop (Installment 1/2)", "Laptop (Installment 2/2)"},
		},
		{
			name: "exact optional field",
			filters: []models.FieldFilter{
				models.Eq(models.FieldPaymentMethod, "card"),
				models.Eq(models.FieldInstallments, 2),
			},
			order: models.OrderBy{Field: models.FieldDate, Desc: true},
			want:  []string{"Laptop (Installment 2/2)", "Laptop (Installment 1/2)"},
		},
		{
			name:    "nil matches absent",
			filters: []models.FieldFilter{models.Eq(models.FieldPaymentMethod, nil)},
			want:    []string{"Laptop bag"},
		},
		{
			name:    "decimal equality ignores scale",
			filters: []models.FieldFilter{models.Eq(models.FieldAmount, decimal.RequireFromString("50.00"))},
			want:    []string{"Laptop bag", "Laptop (Installment 1/2)", "Laptop (Installment 2/2)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindByFields(ctx, "u1", tt.filters, tt.order)
			if err != nil {
				t.Fatalf("FindByFields: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Description != tt.want[i] {
					t.Errorf("record %d = %q, want %q", i, r.Description, tt.want[i])
				}
			}
		})
	}
}

func TestFindByFields_UnknownField(t *testing.T) {
	s := NewTransactionStore()
	_, err := s.FindByFields(context.Background(), "u1", []models.FieldFilter{models.Eq("nope", 1)}, models.OrderBy{})
	if err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDeleteByGroupID(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()

	a := record("u1", "a", "1", 1)
	a.InstallmentGroupID = models.Ptr("g1")
	b := record("u1", "b", "1", 2)
	b.InstallmentGroupID = models.Ptr("g1")
	c := record("u1", "c", "1", 3)
	c.InstallmentGroupID = models.Ptr("g2")
	if _, err := s.InsertMany(ctx, []models.Transaction{a, b, c}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}

	if err := s.DeleteByGroupID(ctx, "g1"); err != nil {
		t.Fatalf("DeleteByGroupID: %v", err)
	}
	if got, _ := s.FindByGroupID(ctx, "u1", "g1"); len(got) != 0 {
		t.Errorf("g1 still has %d records", len(got))
	}
	if got, _ := s.FindByGroupID(ctx, "u1", "g2"); len(got) != 1 {
		t.Errorf("g2 has %d records, want 1", len(got))
	}
}

func TestDeleteByID_Missing(t *testing.T) {
	s := NewTransactionStore()
	if err := s.DeleteByID(context.Background(), "missing"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	r := record("u1", "a", "1", 1)
	r.InstallmentGroupID = models.Ptr("g1")
	out, _ := s.InsertMany(ctx, []models.Transaction{r})

	*out[0].InstallmentGroupID = "changed"
	got, _ := s.FindByID(ctx, "u1", out[0].ID)
	if got.GroupID() != "g1" {
		t.Errorf("stored group id changed to %q", got.GroupID())
	}
}
