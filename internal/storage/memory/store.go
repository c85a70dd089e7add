package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// TransactionStore is an in-memory implementation of interfaces.TransactionStore.
// Records are copied on the way in and out so callers cannot mutate stored state.
type TransactionStore struct {
	mu      sync.RWMutex
	records map[string]models.Transaction
	newID   func() string
}

// NewTransactionStore creates an empty store that mints uuid record ids
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		records: make(map[string]models.Transaction),
		newID:   uuid.NewString,
	}
}

// InsertMany stores all records or none of them
func (s *TransactionStore) InsertMany(ctx context.Context, records []models.Transaction) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// validate and stamp every record before touching the map
	inserted := make([]models.Transaction, len(records))
	for i, r := range records {
		if r.UserID == "" {
			return nil, fmt.Errorf("insert record %d: user id is required", i)
		}
		c := r.Clone()
		c.ID = s.newID()
		c.Amount = c.Amount.Round(2)
		inserted[i] = c
	}
	for _, r := range inserted {
		s.records[r.ID] = r
	}

	// hand back copies so the caller cannot reach stored pointers
	out := make([]models.Transaction, len(inserted))
	for i, r := range inserted {
		out[i] = r.Clone()
	}
	return out, nil
}

// FindByID returns the record with id. Records of other users are reported
// as not found.
func (s *TransactionStore) FindByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok || r.UserID != userID {
		return models.Transaction{}, fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
	}
	return r.Clone(), nil
}

// FindByFields returns the user's records matching every filter, sorted by order
func (s *TransactionStore) FindByFields(ctx context.Context, userID string, filters []models.FieldFilter, order models.OrderBy) ([]models.Transaction, error) {
	// reject unknown fields up front, same as the postgres column whitelist
	for _, f := range filters {
		if _, ok := fieldValue(models.Transaction{}, f.Field); !ok {
			return nil, fmt.Errorf("unknown filter field %q", f.Field)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Transaction
	for _, r := range s.records {
		if r.UserID != userID || !matchesAll(r, filters) {
			continue
		}
		result = append(result, r.Clone())
	}
	sortRecords(result, order)
	return result, nil
}

// FindByGroupID returns group members ordered by date, then installment number
func (s *TransactionStore) FindByGroupID(ctx context.Context, userID, groupID string) ([]models.Transaction, error) {
	return s.FindByFields(ctx, userID, []models.FieldFilter{models.Eq(models.FieldInstallmentGroupID, groupID)},
		models.OrderBy{Field: models.FieldDate})
}

// DeleteByID removes one record, ErrNotFound when it does not exist
func (s *TransactionStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// DeleteByGroupID removes every record carrying groupID. An unknown group is not an error.
func (s *TransactionStore) DeleteByGroupID(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.records {
		if r.GroupID() == groupID {
			delete(s.records, id)
		}
	}
	return nil
}

// Len returns the number of stored records
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesAll(r models.Transaction, filters []models.FieldFilter) bool {
	for _, f := range filters {
		v, _ := fieldValue(r, f.Field)
		if !matches(v, f) {
			return false
		}
	}
	return true
}

func matches(v any, f models.FieldFilter) bool {
	// nil filter value means "field is absent"
	if f.Value == nil {
		return v == nil
	}
	if v == nil {
		return false
	}
	if f.Match == models.MatchPrefix {
		s, ok := v.(string)
		p, _ := f.Value.(string)
		return ok && strings.HasPrefix(s, p)
	}
	switch want := f.Value.(type) {
	case decimal.Decimal:
		got, ok := v.(decimal.Decimal)
		return ok && got.Equal(want)
	case models.TransactionType:
		return v == want
	default:
		return fmt.Sprint(v) == fmt.Sprint(want)
	}
}

// fieldValue returns the value of field on r, nil when an optional field is absent
func fieldValue(r models.Transaction, field models.Field) (any, bool) {
	switch field {
	case models.FieldID:
		return r.ID, true
	case models.FieldType:
		return r.Type, true
	case models.FieldAmount:
		return r.Amount, true
	case models.FieldDescription:
		return r.Description, true
	case models.FieldDate:
		return r.Date, true
	case models.FieldPaymentMethod:
		return deref(r.PaymentMethod), true
	case models.FieldVendor:
		return deref(r.Vendor), true
	case models.FieldCategoryID:
		return r.CategoryID, true
	case models.FieldAccountID:
		return r.AccountID, true
	case models.FieldInstallments:
		return deref(r.Installments), true
	case models.FieldInstallmentNo:
		return deref(r.InstallmentNo), true
	case models.FieldInstallmentGroupID:
		return deref(r.InstallmentGroupID), true
	}
	return nil, false
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func sortRecords(records []models.Transaction, order models.OrderBy) {
	field := order.Field
	if field == "" {
		field = models.FieldDate
	}
	less := func(a, b models.Transaction) bool {
		switch field {
		case models.FieldAmount:
			return a.Amount.LessThan(b.Amount)
		case models.FieldDescription:
			return a.Description < b.Description
		case models.FieldInstallmentNo:
			return intOrZero(a.InstallmentNo) < intOrZero(b.InstallmentNo)
		default:
			return a.Date.Before(b.Date)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if order.Desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return tieBreak(a, b)
	})
}

// tieBreak orders equal keys by installment number, then id, so results are deterministic
func tieBreak(a, b models.Transaction) bool {
	if an, bn := intOrZero(a.InstallmentNo), intOrZero(b.InstallmentNo); an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

var _ interfaces.TransactionStore = (*TransactionStore)(nil)
