package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types, sent as the "event-type" message header.
const (
	TypeGroupCreated  = "installment_group.created"
	TypeGroupReplaced = "installment_group.replaced"
	TypeGroupDeleted  = "installment_group.deleted"
	TypeMemberDeleted = "installment_member.deleted"
)

// GroupCreated is emitted once a whole new installment group has been written.
// Total is the plan total, FirstDate the due date of installment 1.
type GroupCreated struct {
	UserID       string          `json:"user_id"`
	GroupID      string          `json:"group_id"`
	Installments int             `json:"installments"`
	Total        decimal.Decimal `json:"total"`
	FirstDate    time.Time       `json:"first_date"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// GroupReplaced is emitted when an update has deleted the old rows and written
// the new group. Total is the sum of the new rows.
type GroupReplaced struct {
	UserID       string          `json:"user_id"`
	OldGroupID   string          `json:"old_group_id,omitempty"` // empty for legacy groups
	NewGroupID   string          `json:"new_group_id"`
	Installments int             `json:"installments"`
	Total        decimal.Decimal `json:"total"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// GroupDeleted is emitted after every member of a group was removed.
// GroupID is empty when the group was inferred from legacy fields.
type GroupDeleted struct {
	UserID     string    `json:"user_id"`
	GroupID    string    `json:"group_id,omitempty"`
	RecordIDs  []string  `json:"record_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MemberDeleted is emitted when a single record is removed and the rest of its
// group, if any, is left as is.
type MemberDeleted struct {
	UserID     string    `json:"user_id"`
	GroupID    string    `json:"group_id,omitempty"`
	RecordID   string    `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
