package installments

import (
	"fmt"
	"time"

	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// RoundingPolicy decides how the total is split across installments
type RoundingPolicy string

const (
	// RoundEqual gives every installment round(total/n, 2). The sum may drift
	// from the total by up to n*0.005, matching records created so far.
	RoundEqual RoundingPolicy = "equal"
	// RoundRemainderLast puts the rounding residual on the last installment
	// so the shares sum to the total exactly.
	RoundRemainderLast RoundingPolicy = "remainder_last"
)

// ParseRoundingPolicy maps a config value to a policy; "" means RoundEqual
func ParseRoundingPolicy(s string) (RoundingPolicy, error) {
	switch RoundingPolicy(s) {
	case "", RoundEqual:
		return RoundEqual, nil
	case RoundRemainderLast:
		return RoundRemainderLast, nil
	}
	return "", fmt.Errorf("unknown rounding policy %q", s)
}

// Planner computes installment schedules. It does no I/O.
// MaxInstallments caps a plan at fifty years of monthly payments.
const MaxInstallments = 600

// Planner computes installment schedules. The zero value uses RoundEqual.
type Planner struct {
	Policy RoundingPolicy
}

// Plan splits total into count monthly installments starting at start.
func (p Planner) Plan(total decimal.Decimal, count int, start time.Time) ([]models.PlannedInstallment, error) {
	if count < 1 {
		return nil, &InvalidPlanError{Total: total, Installments: count, Reason: "installment count must be at least 1"}
	}
	if count > MaxInstallments {
		return nil, &InvalidPlanError{Total: total, Installments: count, Reason: fmt.Sprintf("installment count must be at most %d", MaxInstallments)}
	}
	if !total.IsPositive() {
		return nil, &InvalidPlanError{Total: total, Installments: count, Reason: "total amount must be positive"}
	}

	n := decimal.NewFromInt(int64(count))
	share := total.Div(n).Round(2)
	if !share.IsPositive() {
		return nil, &InvalidPlanError{Total: total, Installments: count, Reason: "installment amount rounds to zero"}
	}

	plan := make([]models.PlannedInstallment, count)
	for i := range plan {
		plan[i] = models.PlannedInstallment{
			Sequence: i + 1,
			Amount:   share,
			Date:     AddMonths(start, i),
		}
	}

	if p.Policy == RoundRemainderLast && count > 1 {
		last := total.Round(2).Sub(share.Mul(decimal.NewFromInt(int64(count - 1))))
		if !last.IsPositive() {
			return nil, &InvalidPlanError{Total: total, Installments: count, Reason: "last installment absorbs the whole remainder"}
		}
		plan[count-1].Amount = last
	}
	return plan, nil
}

// AddMonths moves t by months calendar months. When the day does not exist in
// the target month it is clamped to that month's last day (Jan 31 + 1 = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
