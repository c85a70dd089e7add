package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlannedInstallment is one computed entry of an installment schedule
type PlannedInstallment struct {
	Sequence int             `json:"installment_no"`
	Amount   decimal.Decimal `json:"amount"`
	Date     time.Time       `json:"date"`
}

// PlanState describes what remains of an installment plan in storage
type PlanState string

const (
	PlanUnplanned        PlanState = "unplanned"
	PlanCreated          PlanState = "created"
	PlanPartiallyDeleted PlanState = "partially_deleted"
	PlanDeleted          PlanState = "deleted"
)
