package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/installments-ledger/internal/models"
)

// ErrNotFound is returned by stores when a record id does not exist
var ErrNotFound = errors.New("record not found")

// TransactionStore is the record store the installment engine persists through.
// InsertMany must be all-or-nothing: either every record is stored or none is.
type TransactionStore interface {
	InsertMany(ctx context.Context, records []models.Transaction) ([]models.Transaction, error)
	FindByID(ctx context.Context, userID, id string) (models.Transaction, error)
	FindByFields(ctx context.Context, userID string, filters []models.FieldFilter, order models.OrderBy) ([]models.Transaction, error)
	FindByGroupID(ctx context.Context, userID, groupID string) ([]models.Transaction, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByGroupID(ctx context.Context, groupID string) error
}
