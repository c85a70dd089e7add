package installments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/sheikh-saqib/installments-ledger/internal/storage/memory"
	"github.com/shopspring/decimal"
)

// faultyStore wraps the memory store with injectable failures and a call counter
type faultyStore struct {
	*memory.TransactionStore
	insertErr      error
	deleteErrs     map[string]error
	groupDeleteErr error
	calls          int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{TransactionStore: memory.NewTransactionStore(), deleteErrs: map[string]error{}}
}

func (f *faultyStore) InsertMany(ctx context.Context, records []models.Transaction) ([]models.Transaction, error) {
	f.calls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.TransactionStore.InsertMany(ctx, records)
}

func (f *faultyStore) FindByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	f.calls++
	return f.TransactionStore.FindByID(ctx, userID, id)
}

func (f *faultyStore) FindByFields(ctx context.Context, userID string, filters []models.FieldFilter, order models.OrderBy) ([]models.Transaction, error) {
	f.calls++
	return f.TransactionStore.FindByFields(ctx, userID, filters, order)
}

func (f *faultyStore) FindByGroupID(ctx context.Context, userID, groupID string) ([]models.Transaction, error) {
	f.calls++
	return f.TransactionStore.FindByGroupID(ctx, userID, groupID)
}

func (f *faultyStore) DeleteByID(ctx context.Context, id string) error {
	f.calls++
	if err := f.deleteErrs[id]; err != nil {
		return err
	}
	return f.TransactionStore.DeleteByID(ctx, id)
}

func (f *faultyStore) DeleteByGroupID(ctx context.Context, groupID string) error {
	f.calls++
	if f.groupDeleteErr != nil {
		return f.groupDeleteErr
	}
	return f.TransactionStore.DeleteByGroupID(ctx, groupID)
}

type recordingPublisher struct {
	types  []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, event any) error {
	p.types = append(p.types, eventType)
	p.events = append(p.events, event)
	return p.err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("group-%d", n)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseTx(total string, start time.Time) models.Transaction {
	return models.Transaction{
		UserID:        "user-1",
		Type:          models.TypeExpense,
		Amount:        dec(total),
		Description:   "Television",
		Date:          start,
		PaymentMethod: models.Ptr("credit_card"),
		Vendor:        models.Ptr("Electro Store"),
		CategoryID:    "cat-electronics",
		AccountID:     "acc-visa",
	}
}

// seedLegacy inserts n legacy records (no group id) as old clients wrote them
func seedLegacy(t *testing.T, store *faultyStore, desc, amount string, n, written int) []models.Transaction {
	t.Helper()
	var recs []models.Transaction
	for i := 1; i <= written; i++ {
		recs = append(recs, models.Transaction{
			UserID:        "user-1",
			Type:          models.TypeExpense,
			Amount:        dec(amount),
			Description:   fmt.Sprintf("%s (Installment %d/%d)", desc, i, n),
			Date:          day(2024, time.Month(i), 10),
			PaymentMethod: models.Ptr("credit_card"),
			CategoryID:    "cat-home",
			AccountID:     "acc-visa",
			Installments:  models.Ptr(n),
		})
	}
	out, err := store.TransactionStore.InsertMany(context.Background(), recs)
	if err != nil {
		t.Fatalf("seed legacy records: %v", err)
	}
	return out
}

func ids(records []models.Transaction) map[string]bool {
	m := make(map[string]bool, len(records))
	for _, r := range records {
		m[r.ID] = true
	}
	return m
}
