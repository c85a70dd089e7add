package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a record
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction is a single persisted transaction record.
// Installment records additionally carry Installments, InstallmentNo and
// InstallmentGroupID. Legacy installment records have Installments set but no group id.
type Transaction struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Type               TransactionType `json:"type"`
	Amount             decimal.Decimal `json:"amount"` // rounded to 2 places
	Description        string          `json:"description"`
	Date               time.Time       `json:"date"`
	PaymentMethod      *string         `json:"payment_method,omitempty"`
	Vendor             *string         `json:"vendor,omitempty"`
	CategoryID         string          `json:"category_id"`
	AccountID          string          `json:"account_id"`
	Installments       *int            `json:"installments,omitempty"`
	InstallmentNo      *int            `json:"installment_no,omitempty"`
	InstallmentGroupID *string         `json:"installment_group_id,omitempty"`
}

// GroupID returns the installment group id or "" when the record has none
func (t Transaction) GroupID() string {
	if t.InstallmentGroupID == nil {
		return ""
	}
	return *t.InstallmentGroupID
}

// InstallmentCount returns the declared plan size, 0 when absent
func (t Transaction) InstallmentCount() int {
	if t.Installments == nil {
		return 0
	}
	return *t.Installments
}

// Clone returns a copy that shares no pointers with t
func (t Transaction) Clone() Transaction {
	c := t
	c.PaymentMethod = clonePtr(t.PaymentMethod)
	c.Vendor = clonePtr(t.Vendor)
	c.Installments = clonePtr(t.Installments)
	c.InstallmentNo = clonePtr(t.InstallmentNo)
	c.InstallmentGroupID = clonePtr(t.InstallmentGroupID)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr is a small helper for filling optional fields
func Ptr[T any](v T) *T {
	return &v
}
