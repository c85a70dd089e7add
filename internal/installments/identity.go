package installments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
)

// NewGroupID mints an opaque, globally unique installment group id
func NewGroupID() string {
	return uuid.NewString()
}

// Scheme tells how a Resolution's members were found
type Scheme string

const (
	SchemeExplicit Scheme = "explicit" // shared installment_group_id
	SchemeLegacy   Scheme = "legacy"   // inferred by field matching
	SchemeSingle   Scheme = "single"   // treated as a plain record
)

// Resolution is the set of records that make up one logical installment plan
type Resolution struct {
	Scheme  Scheme               `json:"scheme"`
	GroupID string               `json:"group_id,omitempty"`
	Members []models.Transaction `json:"members"`
	State   models.PlanState     `json:"state"`
}

// IsGroup reports whether the resolution should be handled group-wide
func (r Resolution) IsGroup() bool {
	return r.Scheme != SchemeSingle
}

// RecordIDs returns member ids in resolution order
func (r Resolution) RecordIDs() []string {
	ids := make([]string, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.ID
	}
	return ids
}

func singleResolution(seed models.Transaction) Resolution {
	return Resolution{
		Scheme:  SchemeSingle,
		Members: []models.Transaction{seed},
		State:   ClassifyGroup([]models.Transaction{seed}),
	}
}

// GroupResolver finds every record belonging to the same plan as seed.
type GroupResolver interface {
	Resolve(ctx context.Context, userID string, seed models.Transaction) (Resolution, error)
}

// ByExplicitID resolves through the seed's installment_group_id
type ByExplicitID struct {
	Store interfaces.TransactionStore
}

// Resolve loads every record sharing seed's group id. A seed without one is
// ErrGroupNotFound.
func (r ByExplicitID) Resolve(ctx context.Context, userID string, seed models.Transaction) (Resolution, error) {
	groupID := seed.GroupID()
	if groupID == "" {
		return Resolution{}, &OpError{Op: "resolve", Kind: ErrGroupNotFound, Err: errors.New("record " + seed.ID + " has no group id")}
	}
	return findGroup(ctx, r.Store, "resolve", userID, groupID)
}

func findGroup(ctx context.Context, store interfaces.TransactionStore, op, userID, groupID string) (Resolution, error) {
	members, err := store.FindByGroupID(ctx, userID, groupID)
	if err != nil {
		return Resolution{}, &OpError{Op: op, GroupID: groupID, Kind: ErrStore, Err: err}
	}
	if len(members) == 0 {
		return Resolution{}, &OpError{Op: op, GroupID: groupID, Kind: ErrGroupNotFound}
	}
	return Resolution{
		Scheme:  SchemeExplicit,
		GroupID: groupID,
		Members: members,
		State:   ClassifyGroup(members),
	}, nil
}

// ByFieldHeuristic infers a legacy group from records sharing the seed's
// description (without tag), amount, payment method, account, category and
// declared installment count. It can over- or under-match; a count that
// disagrees with the seed is reported as *AmbiguousLegacyGroupError.
type ByFieldHeuristic struct {
	Store interfaces.TransactionStore
}

// Resolve infers seed's group from its shared fields. Zero or one match
// degrades to a single-record resolution.
func (r ByFieldHeuristic) Resolve(ctx context.Context, userID string, seed models.Transaction) (Resolution, error) {
	base := StripSuffix(seed.Description)
	candidates, err := r.Store.FindByFields(ctx, userID, LegacyFilters(seed), models.OrderBy{Field: models.FieldDate})
	if err != nil {
		return Resolution{}, &OpError{Op: "resolve legacy", Kind: ErrStore, Err: err}
	}

	// the store only narrows by prefix; require the untagged descriptions to be equal
	members := make([]models.Transaction, 0, len(candidates))
	seedFound := false
	for _, c := range candidates {
		if StripSuffix(c.Description) != base {
			continue
		}
		if c.ID == seed.ID {
			seedFound = true
		}
		members = append(members, c)
	}

	if len(members) <= 1 {
		return singleResolution(seed), nil
	}

	res := Resolution{
		Scheme:  SchemeLegacy,
		Members: members,
		State:   ClassifyGroup(members),
	}
	if !seedFound || len(members) != seed.InstallmentCount() {
		return res, &AmbiguousLegacyGroupError{SeedID: seed.ID, Declared: seed.InstallmentCount(), Matched: len(members)}
	}
	return res, nil
}

// LegacyFilters are the field filters used to find legacy group candidates
func LegacyFilters(seed models.Transaction) []models.FieldFilter {
	var paymentMethod any
	if seed.PaymentMethod != nil {
		paymentMethod = *seed.PaymentMethod
	}
	return []models.FieldFilter{
		models.Prefix(models.FieldDescription, StripSuffix(seed.Description)),
		models.Eq(models.FieldAmount, seed.Amount),
		models.Eq(models.FieldPaymentMethod, paymentMethod),
		models.Eq(models.FieldAccountID, seed.AccountID),
		models.Eq(models.FieldCategoryID, seed.CategoryID),
		models.Eq(models.FieldInstallments, seed.InstallmentCount()),
		models.Eq(models.FieldInstallmentGroupID, nil),
	}
}

// SchemeResolver picks the explicit or legacy strategy from the seed record.
// Records that are not installment members resolve to themselves without I/O.
type SchemeResolver struct {
	Explicit GroupResolver
	Legacy   GroupResolver
}

// NewSchemeResolver wires both strategies to the same store
func NewSchemeResolver(store interfaces.TransactionStore) SchemeResolver {
	return SchemeResolver{
		Explicit: ByExplicitID{Store: store},
		Legacy:   ByFieldHeuristic{Store: store},
	}
}

// Resolve picks the strategy from the seed itself
func (r SchemeResolver) Resolve(ctx context.Context, userID string, seed models.Transaction) (Resolution, error) {
	if !IsInstallmentMember(seed) {
		return singleResolution(seed), nil
	}
	if seed.GroupID() != "" {
		return r.Explicit.Resolve(ctx, userID, seed)
	}
	return r.Legacy.Resolve(ctx, userID, seed)
}
