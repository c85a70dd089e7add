package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/sheikh-saqib/installments-ledger/internal/installments"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// planRequest is the body of create, update and preview calls. Amount is the plan total.
type planRequest struct {
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Description   string                 `json:"description"`
	Date          string                 `json:"date"`
	PaymentMethod *string                `json:"payment_method,omitempty"`
	Vendor        *string                `json:"vendor,omitempty"`
	CategoryID    string                 `json:"category_id"`
	AccountID     string                 `json:"account_id"`
	Installments  *int                   `json:"installments,omitempty"`
}

func (p planRequest) startDate() (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(p.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// count defaults to a single installment only when the field is absent.
// An explicit value, zero included, goes to the planner as is.
func (p planRequest) count() int {
	if p.Installments == nil {
		return 1
	}
	return *p.Installments
}

func (p planRequest) base(userID string) (models.Transaction, error) {
	start, err := p.startDate()
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		UserID:        userID,
		Type:          p.Type,
		Amount:        p.Amount,
		Description:   p.Description,
		Date:          start,
		PaymentMethod: p.PaymentMethod,
		Vendor:        p.Vendor,
		CategoryID:    p.CategoryID,
		AccountID:     p.AccountID,
	}, nil
}

type transactionResponse struct {
	ID                 string                 `json:"id"`
	Type               models.TransactionType `json:"type"`
	Amount             string                 `json:"amount"`
	Description        string                 `json:"description"`
	Date               string                 `json:"date"`
	PaymentMethod      *string                `json:"payment_method,omitempty"`
	Vendor             *string                `json:"vendor,omitempty"`
	CategoryID         string                 `json:"category_id"`
	AccountID          string                 `json:"account_id"`
	Installments       *int                   `json:"installments,omitempty"`
	InstallmentNo      *int                   `json:"installment_no,omitempty"`
	InstallmentGroupID *string                `json:"installment_group_id,omitempty"`
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:                 t.ID,
		Type:               t.Type,
		Amount:             t.Amount.StringFixed(2),
		Description:        t.Description,
		Date:               t.Date.Format(dateLayout),
		PaymentMethod:      t.PaymentMethod,
		Vendor:             t.Vendor,
		CategoryID:         t.CategoryID,
		AccountID:          t.AccountID,
		Installments:       t.Installments,
		InstallmentNo:      t.InstallmentNo,
		InstallmentGroupID: t.InstallmentGroupID,
	}
}

type groupResponse struct {
	Scheme    installments.Scheme   `json:"scheme"`
	GroupID   string                `json:"group_id,omitempty"`
	State     models.PlanState      `json:"state"`
	Ambiguous bool                  `json:"ambiguous"`
	Members   []transactionResponse `json:"members"`
}

func toGroupResponse(res installments.Resolution, ambiguous bool) groupResponse {
	members := make([]transactionResponse, len(res.Members))
	for i, m := range res.Members {
		members[i] = toTransactionResponse(m)
	}
	return groupResponse{
		Scheme:    res.Scheme,
		GroupID:   res.GroupID,
		State:     res.State,
		Ambiguous: ambiguous,
		Members:   members,
	}
}

type plannedResponse struct {
	InstallmentNo int    `json:"installment_no"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
}

func toPlannedResponse(plan []models.PlannedInstallment) []plannedResponse {
	out := make([]plannedResponse, len(plan))
	for i, p := range plan {
		out[i] = plannedResponse{InstallmentNo: p.Sequence, Amount: p.Amount.StringFixed(2), Date: p.Date.Format(dateLayout)}
	}
	return out
}
