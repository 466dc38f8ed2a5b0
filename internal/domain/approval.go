package domain

import (
	"context"
	"time"
)

// Approval is a reviewing group's pending or resolved sign-off on an
// event. At most one approval exists per (event, group) pair.
//
// GroupID and UserID are nullable on purpose: deleting a group or a user
// must never cascade into event data loss, so the references go null
// instead (the approval row survives).
type Approval struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	GroupID       *string    `json:"group_id,omitempty"`
	GroupName     string     `json:"group_name,omitempty"`
	UserID        *string    `json:"user_id,omitempty"`
	Approved      bool       `json:"approved"`
	Processed     bool       `json:"processed"`
	ProcessedTime *time.Time `json:"processed_time,omitempty"`
	Comment       string     `json:"comment,omitempty"`
}

// NewApproval returns a pending approval for the given event and group.
func NewApproval(eventID, groupID string) *Approval {
	return &Approval{
		EventID:   eventID,
		GroupID:   &groupID,
		Approved:  false,
		Processed: false,
	}
}

// ApprovalRepository defines the interface for approval storage.
type ApprovalRepository interface {
	GetByID(ctx context.Context, id string) (*Approval, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Approval, error)
	// Reconcile applies an approval diff in a single transaction:
	// pending approvals are inserted for addGroupIDs and the rows in
	// removeIDs are deleted. Either everything commits or nothing does.
	Reconcile(ctx context.Context, eventID string, addGroupIDs, removeIDs []string) (added []*Approval, removed []*Approval, err error)
	// MarkProcessed records a reviewer decision on the approval.
	MarkProcessed(ctx context.Context, id string, approved bool, userID, comment string, processedTime time.Time) (*Approval, error)
	ListPendingByGroupIDs(ctx context.Context, groupIDs []string) ([]*Approval, error)
	ListProcessedByGroupIDs(ctx context.Context, groupIDs []string, limit int) ([]*Approval, error)
}

// ApprovalService reconciles an event's reviewing groups and records
// reviewer decisions.
type ApprovalService interface {
	// Reconcile diffs the desired group-name set against the event's
	// current approvals: missing approvals are created (and every member
	// of the added group is notified), obsolete ones are deleted, and
	// the intersection is left untouched. After it returns, the set of
	// groups with live approvals equals exactly the desired set.
	Reconcile(ctx context.Context, event *Event, desiredGroups []string) error
	// RecordDecision sets approved/processed/processed_time/user on the
	// approval. The reviewer must be a member of the approval's group;
	// otherwise ErrForbidden is returned and the record is untouched.
	RecordDecision(ctx context.Context, reviewer *User, approvalID string, approved bool, comment string) (*Approval, error)
	PendingForReviewer(ctx context.Context, reviewer *User) ([]*Approval, error)
	RecentForReviewer(ctx context.Context, reviewer *User) ([]*Approval, error)
}
