package installments

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPlan              = errors.New("invalid installment plan")
	ErrInvalidTransaction       = errors.New("invalid base transaction")
	ErrGroupCreateFailed        = errors.New("installment group create failed")
	ErrGroupNotFound            = errors.New("installment group not found")
	ErrRecordNotFound           = errors.New("transaction record not found")
	ErrAmbiguousLegacyGroup     = errors.New("ambiguous legacy installment group")
	ErrStore                    = errors.New("record store error")
	ErrGroupDeletedNotRecreated = errors.New("installment group deleted but not recreated")
)

// InvalidPlanError is returned before any store call when a plan cannot be built
type InvalidPlanError struct {
	Total        decimal.Decimal
	Installments int
	Reason       string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid installment plan (total=%s, installments=%d): %s",
		e.Total.StringFixed(2), e.Installments, e.Reason)
}

func (e *InvalidPlanError) Is(target error) bool {
	return target == ErrInvalidPlan
}

// OpError carries the operation and group a failure happened in.
// errors.Is matches both Kind and anything Err wraps.
type OpError struct {
	Op      string
	GroupID string
	Kind    error
	Err     error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString("installments: ")
	b.WriteString(e.Op)
	if e.GroupID != "" {
		b.WriteString(" group ")
		b.WriteString(e.GroupID)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AmbiguousLegacyGroupError is a warning: the field match found rows, but not
// as many as the seed record declares.
type AmbiguousLegacyGroupError struct {
	SeedID   string
	Declared int
	Matched  int
}

func (e *AmbiguousLegacyGroupError) Error() string {
	return fmt.Sprintf("ambiguous legacy installment group for record %s: declares %d installments, matched %d records",
		e.SeedID, e.Declared, e.Matched)
}

func (e *AmbiguousLegacyGroupError) Is(target error) bool {
	return target == ErrAmbiguousLegacyGroup
}

// PartialDeleteError reports which member deletes failed so only those are retried
type PartialDeleteError struct {
	GroupID string
	Deleted []string
	Failed  map[string]error
}

func (e *PartialDeleteError) Error() string {
	target := "records"
	if e.GroupID != "" {
		target = "group " + e.GroupID
	}
	return fmt.Sprintf("installments: delete %s: %d of %d records failed: %v",
		target, len(e.Failed), len(e.Failed)+len(e.Deleted), errors.Join(e.Unwrap()...))
}

// FailedIDs returns the ids whose delete failed, sorted
func (e *PartialDeleteError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *PartialDeleteError) Is(target error) bool {
	return target == ErrStore
}

func (e *PartialDeleteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.FailedIDs() {
		errs = append(errs, fmt.Errorf("record %s: %w", id, e.Failed[id]))
	}
	return errs
}
