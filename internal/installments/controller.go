package installments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/logger"
	"github.com/sheikh-saqib/installments-ledger/internal/models"
	"github.com/sheikh-saqib/installments-ledger/internal/models/events"
	"github.com/shopspring/decimal"
)

// Controller creates, replaces and deletes installment groups as single logical
// entities on top of a TransactionStore. It keeps no state between calls.
type Controller struct {
	store     interfaces.TransactionStore
	resolver  GroupResolver
	publisher interfaces.EventPublisher
	planner   Planner
	newID     func() string
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithPublisher sends lifecycle events to p after each successful write.
// Without it the controller publishes nothing.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithLogger sets the fallback logger, used when the request context carries none.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithRoundingPolicy picks how a total is split across installments.
// The default is RoundEqual.
func WithRoundingPolicy(policy RoundingPolicy) Option {
	return func(c *Controller) { c.planner.Policy = policy }
}

// WithGroupIDMinter replaces uuid minting, mostly for tests. fn must return a
// value that no existing group uses.
func WithGroupIDMinter(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithResolver overrides how a record's group is found. The default dispatches
// between the explicit id and the legacy field match.
func WithResolver(r GroupResolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithClock sets the time source stamped on events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController builds a Controller over store. It never mutates package state,
// so several controllers can share one store.
func NewController(store interfaces.TransactionStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		resolver: NewSchemeResolver(store),
		planner:  Planner{Policy: RoundEqual},
		newID:    NewGroupID,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preview returns the schedule Create would write, without touching the store
func (c *Controller) Preview(total decimal.Decimal, count int, start time.Time) ([]models.PlannedInstallment, error) {
	return c.planner.Plan(total, count, start)
}

// Create writes base as count monthly installments and returns the new group id.
// base.Amount is the plan total and base.Date the first due date. With count == 1
// a single plain record is written and the returned id is empty.
func (c *Controller) Create(ctx context.Context, base models.Transaction, count int) (string, error) {
	records, groupID, err := c.buildGroup(base, count)
	if err != nil {
		return "", err
	}
	if err := c.insert(ctx, "create", groupID, records); err != nil {
		return "", err
	}

	c.logger(ctx).Info().
		Str("user_id", base.UserID).
		Str("group_id", groupID).
		Int("count", count).
		Msg("installment group created")

	if groupID != "" {
		c.publish(ctx, events.TypeGroupCreated, events.GroupCreated{
			UserID:       base.UserID,
			GroupID:      groupID,
			Installments: count,
			Total:        base.Amount.Round(2),
			FirstDate:    records[0].Date,
			OccurredAt:   c.now(),
		})
	}
	return groupID, nil
}

// Update replaces the whole group with a freshly planned one. Old rows are
// deleted and new rows get new ids and a new group id.
func (c *Controller) Update(ctx context.Context, userID, groupID string, newBase models.Transaction, count int) (string, error) {
	newBase.UserID = userID
	records, newGroupID, err := c.buildGroup(newBase, count)
	if err != nil {
		return "", err
	}
	res, err := findGroup(ctx, c.store, "update", userID, groupID)
	if err != nil {
		return "", err
	}
	return c.replace(ctx, res, records, newGroupID)
}

// UpdateResolved replaces the records of a resolution, legacy or explicit
func (c *Controller) UpdateResolved(ctx context.Context, userID string, res Resolution, newBase models.Transaction, count int) (string, error) {
	if len(res.Members) == 0 {
		return "", &OpError{Op: "update", GroupID: res.GroupID, Kind: ErrGroupNotFound}
	}
	newBase.UserID = userID
	records, newGroupID, err := c.buildGroup(newBase, count)
	if err != nil {
		return "", err
	}
	return c.replace(ctx, res, records, newGroupID)
}

func (c *Controller) replace(ctx context.Context, res Resolution, records []models.Transaction, newGroupID string) (string, error) {
	log := c.logger(ctx)

	// explicit groups are removed in one call, inferred ones row by row
	if res.Scheme == SchemeExplicit {
		if err := c.store.DeleteByGroupID(ctx, res.GroupID); err != nil {
			log.Error().Err(err).Str("group_id", res.GroupID).Msg("failed to delete group for update")
			return "", &OpError{Op: "update", GroupID: res.GroupID, Kind: ErrStore, Err: err}
		}
	} else if perr := c.deleteMembers(ctx, res.GroupID, res.Members); perr != nil {
		log.Error().Err(perr).Strs("failed_ids", perr.FailedIDs()).Msg("failed to delete legacy records for update")
		return "", &OpError{Op: "update", Kind: ErrStore, Err: perr}
	}

	// old rows are gone at this point, so a failed insert leaves nothing behind
	if err := c.insert(ctx, "update", newGroupID, records); err != nil {
		log.Error().Err(err).Str("group_id", res.GroupID).Msg("group deleted but replacement was not created")
		return "", &OpError{Op: "update", GroupID: res.GroupID, Kind: ErrGroupDeletedNotRecreated, Err: err}
	}

	log.Info().
		Str("user_id", records[0].UserID).
		Str("old_group_id", res.GroupID).
		Str("group_id", newGroupID).
		Int("count", len(records)).
		Msg("installment group replaced")

	c.publish(ctx, events.TypeGroupReplaced, events.GroupReplaced{
		UserID:       records[0].UserID,
		OldGroupID:   res.GroupID,
		NewGroupID:   newGroupID,
		Installments: len(records),
		Total:        sumAmounts(records),
		OccurredAt:   c.now(),
	})
	return newGroupID, nil
}

// GetGroup returns the stored members of groupID ordered by date
func (c *Controller) GetGroup(ctx context.Context, userID, groupID string) (Resolution, error) {
	return findGroup(ctx, c.store, "get", userID, groupID)
}

// ResolveGroup finds the plan recordID belongs to. An ambiguous legacy match
// returns both the resolution and an *AmbiguousLegacyGroupError.
func (c *Controller) ResolveGroup(ctx context.Context, userID, recordID string) (Resolution, error) {
	seed, err := c.findRecord(ctx, "resolve", userID, recordID)
	if err != nil {
		return Resolution{}, err
	}
	res, err := c.resolver.Resolve(ctx, userID, seed)
	if errors.Is(err, ErrAmbiguousLegacyGroup) {
		c.logger(ctx).Warn().Err(err).Str("record_id", recordID).Msg("legacy group match is ambiguous")
	}
	return res, err
}

// DeleteGroup deletes every record of groupID one by one. Failed deletes are
// reported in a *PartialDeleteError; the rest stay deleted.
func (c *Controller) DeleteGroup(ctx context.Context, userID, groupID string) error {
	res, err := findGroup(ctx, c.store, "delete", userID, groupID)
	if err != nil {
		return err
	}
	return c.DeleteResolved(ctx, userID, res)
}

// DeleteResolved deletes all members of a resolution
func (c *Controller) DeleteResolved(ctx context.Context, userID string, res Resolution) error {
	if len(res.Members) == 0 {
		return &OpError{Op: "delete", GroupID: res.GroupID, Kind: ErrGroupNotFound}
	}
	if perr := c.deleteMembers(ctx, res.GroupID, res.Members); perr != nil {
		c.logger(ctx).Error().Err(perr).Strs("failed_ids", perr.FailedIDs()).Msg("group delete incomplete")
		return perr
	}

	if !res.IsGroup() {
		rec := res.Members[0]
		c.logger(ctx).Info().Str("user_id", userID).Str("record_id", rec.ID).Msg("plain record deleted")
		c.publish(ctx, events.TypeMemberDeleted, events.MemberDeleted{
			UserID:     userID,
			GroupID:    rec.GroupID(),
			RecordID:   rec.ID,
			OccurredAt: c.now(),
		})
		return nil
	}

	c.logger(ctx).Info().
		Str("user_id", userID).
		Str("group_id", res.GroupID).
		Int("count", len(res.Members)).
		Msg("installment group deleted")

	c.publish(ctx, events.TypeGroupDeleted, events.GroupDeleted{
		UserID:     userID,
		GroupID:    res.GroupID,
		RecordIDs:  res.RecordIDs(),
		OccurredAt: c.now(),
	})
	return nil
}

// DeleteMember removes exactly one record and leaves the rest of its group
// untouched. Remaining members keep their declared installment count.
func (c *Controller) DeleteMember(ctx context.Context, userID, recordID string) error {
	rec, err := c.findRecord(ctx, "delete member", userID, recordID)
	if err != nil {
		return err
	}
	if err := c.store.DeleteByID(ctx, rec.ID); err != nil {
		return &OpError{Op: "delete member", GroupID: rec.GroupID(), Kind: ErrStore, Err: err}
	}

	c.logger(ctx).Info().
		Str("user_id", userID).
		Str("group_id", rec.GroupID()).
		Str("record_id", rec.ID).
		Msg("installment member deleted")

	c.publish(ctx, events.TypeMemberDeleted, events.MemberDeleted{
		UserID:     userID,
		GroupID:    rec.GroupID(),
		RecordID:   rec.ID,
		OccurredAt: c.now(),
	})
	return nil
}

// buildGroup validates and plans a group without any I/O
func (c *Controller) buildGroup(base models.Transaction, count int) ([]models.Transaction, string, error) {
	if err := validateBase(base); err != nil {
		return nil, "", err
	}
	plan, err := c.planner.Plan(base.Amount, count, base.Date)
	if err != nil {
		return nil, "", err
	}

	groupID := ""
	if count > 1 {
		groupID = c.newID()
	}

	description := StripSuffix(base.Description)
	records := make([]models.Transaction, len(plan))
	for i, p := range plan {
		r := base.Clone()
		r.ID = ""
		r.Amount = p.Amount
		r.Date = p.Date
		r.Description = description
		r.Installments, r.InstallmentNo, r.InstallmentGroupID = nil, nil, nil
		if groupID != "" {
			r.Description = FormatDescription(description, p.Sequence, count)
			r.Installments = models.Ptr(count)
			r.InstallmentNo = models.Ptr(p.Sequence)
			r.InstallmentGroupID = models.Ptr(groupID)
		}
		records[i] = r
	}
	return records, groupID, nil
}

func (c *Controller) insert(ctx context.Context, op, groupID string, records []models.Transaction) error {
	inserted, err := c.store.InsertMany(ctx, records)
	if err != nil {
		c.logger(ctx).Error().Err(err).Str("group_id", groupID).Int("count", len(records)).Msg("batch insert failed")
		return &OpError{Op: op, GroupID: groupID, Kind: ErrGroupCreateFailed, Err: err}
	}
	if len(inserted) != len(records) {
		return &OpError{Op: op, GroupID: groupID, Kind: ErrGroupCreateFailed,
			Err: fmt.Errorf("store inserted %d of %d records", len(inserted), len(records))}
	}
	return nil
}

func (c *Controller) deleteMembers(ctx context.Context, groupID string, members []models.Transaction) *PartialDeleteError {
	deleted := make([]string, 0, len(members))
	failed := make(map[string]error)
	for _, m := range members {
		if err := c.store.DeleteByID(ctx, m.ID); err != nil {
			failed[m.ID] = err
			continue
		}
		deleted = append(deleted, m.ID)
	}
	if len(failed) == 0 {
		return nil
	}
	return &PartialDeleteError{GroupID: groupID, Deleted: deleted, Failed: failed}
}

func (c *Controller) findRecord(ctx context.Context, op, userID, recordID string) (models.Transaction, error) {
	rec, err := c.store.FindByID(ctx, userID, recordID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.Transaction{}, &OpError{Op: op, Kind: ErrRecordNotFound, Err: err}
	}
	if err != nil {
		return models.Transaction{}, &OpError{Op: op, Kind: ErrStore, Err: err}
	}
	return rec, nil
}

func (c *Controller) publish(ctx context.Context, eventType string, event any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, eventType, event); err != nil {
		c.logger(ctx).Warn().Err(err).Str("event", eventType).Msg("failed to publish installment event")
	}
}

func (c *Controller) logger(ctx context.Context) *zerolog.Logger {
	log := logger.FromContext(ctx, c.log)
	return &log
}

func validateBase(base models.Transaction) error {
	switch {
	case base.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidTransaction)
	case !base.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, base.Type)
	case base.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	return nil
}

func sumAmounts(records []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
