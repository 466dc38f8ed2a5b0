package domain

import (
	"context"
	"time"
)

// EventStatus is the scheduling status of an event.
type EventStatus string

// Event statuses.
const (
	StatusInitiated EventStatus = "initiated"
	StatusScheduled EventStatus = "scheduled"
	StatusRemoved   EventStatus = "removed"
)

// LifecycleBucket is the read-only classification of an event used by
// list views. Every event falls into exactly one bucket at any instant.
type LifecycleBucket string

// Lifecycle buckets.
const (
	BucketInitiated LifecycleBucket = "initiated"
	BucketUpcoming  LifecycleBucket = "upcoming"
	BucketLive      LifecycleBucket = "live"
	BucketArchiving LifecycleBucket = "archiving"
	BucketArchived  LifecycleBucket = "archived"
)

// Event holds the essential data and metadata for publishing a live or
// recorded event. StartTime and ArchiveTime are always UTC instants;
// wall-clock input is normalized before it reaches this struct.
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description,omitempty"`
	Status           EventStatus `json:"status"`
	StartTime        time.Time   `json:"start_time"`
	ArchiveTime      *time.Time  `json:"archive_time,omitempty"`
	Public           bool        `json:"public"`
	Featured         bool        `json:"featured"`
	CallInfo         string      `json:"call_info,omitempty"`
	AdditionalLinks  string      `json:"additional_links,omitempty"`

	LocationID *string `json:"location_id,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	TemplateID *string `json:"template_id,omitempty"`

	CreatorID      *string `json:"creator_id,omitempty"`
	ModifiedUserID *string `json:"modified_user_id,omitempty"`

	// ParticipantIDs and Tags are the many-to-many links, loaded and
	// stored through their own repositories.
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Classify buckets the event from its status and time fields at the given
// instant. liveMargin is the window before StartTime during which an event
// already counts as live; the same boundary separates upcoming from live so
// the buckets partition with no overlap and no gap.
func (e *Event) Classify(now time.Time, liveMargin time.Duration) LifecycleBucket {
	if e.Status == StatusRemoved {
		return BucketArchived
	}
	if e.Status == StatusInitiated {
		return BucketInitiated
	}
	liveTime := now.Add(liveMargin)
	if e.StartTime.After(liveTime) {
		return BucketUpcoming
	}
	if e.ArchiveTime == nil {
		return BucketLive
	}
	if e.ArchiveTime.After(now) {
		return BucketArchiving
	}
	return BucketArchived
}

// IsUpcoming reports whether the event has no archive boundary yet and
// starts after now plus the live margin.
func (e *Event) IsUpcoming(now time.Time, liveMargin time.Duration) bool {
	return e.ArchiveTime == nil && e.StartTime.After(now.Add(liveMargin))
}

// IsRemoved reports whether the event has been taken down.
func (e *Event) IsRemoved() bool {
	return e.Status == StatusRemoved
}

// EventFilter restricts event list queries.
type EventFilter struct {
	PublicOnly    bool
	FeaturedOnly  bool
	TitleContains string
	CreatorID     *string
}

// SlugChecker reports whether a slug is already taken in one collection.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugCheckerFunc adapts a function to the SlugChecker interface.
type SlugCheckerFunc func(ctx context.Context, slug string) (bool, error)

// SlugExists calls f.
func (f SlugCheckerFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// EventRepository defines the interface for event storage.
// Create and Update return ErrSlugExists when the slug unique constraint
// fires at commit time.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Search(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Old-slug history, used to redirect stale links after a slug change.
	CreateOldSlug(ctx context.Context, eventID, slug string) error
	GetIDByOldSlug(ctx context.Context, slug string) (string, error)
	OldSlugExists(ctx context.Context, slug string) (bool, error)
}

// EventRequest is the caller-supplied input for creating or editing an
// event. StartTime is a naive wall-clock value interpreted in Timezone.
type EventRequest struct {
	Title            string
	Slug             string // optional; generated from Title when empty
	Description      string
	ShortDescription string
	Status           EventStatus
	StartTime        time.Time
	Timezone         string
	ArchiveMinutes   *int // archive_time = start_time + minutes
	Public           bool
	Featured         bool
	CallInfo         string
	AdditionalLinks  string
	LocationID       *string
	CategoryID       *string
	TemplateID       *string
	ParticipantIDs   []string
	Tags             []string
	ApprovalGroups   []string // desired reviewing group names
}

// EventBuckets groups events by lifecycle bucket for the management
// dashboard.
type EventBuckets struct {
	Initiated []*Event `json:"initiated"`
	Upcoming  []*Event `json:"upcoming"`
	Live      []*Event `json:"live"`
	Archiving []*Event `json:"archiving"`
	Archived  []*Event `json:"archived"`
}

// CalendarService renders event data as an iCalendar feed.
type CalendarService interface {
	BuildFeed(ctx context.Context, publicOnly bool) (string, error)
}

// EventService defines the business logic for requesting, editing, and
// browsing events.
type EventService interface {
	RequestEvent(ctx context.Context, actor *User, req *EventRequest) (*Event, error)
	EditEvent(ctx context.Context, actor *User, eventID string, req *EventRequest) (*Event, error)
	ArchiveEvent(ctx context.Context, actor *User, eventID string, minutes int) (*Event, error)
	DeleteEvent(ctx context.Context, actor *User, eventID string) error
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	// GetEventBySlug resolves current slugs first, then old slugs.
	// redirected is true when the slug was historical and the caller
	// should redirect to the event's current slug.
	GetEventBySlug(ctx context.Context, slug string) (event *Event, redirected bool, err error)
	ListBuckets(ctx context.Context, actor *User) (*EventBuckets, error)
	SearchEvents(ctx context.Context, actor *User, title string, params PaginationParams) ([]*Event, int, error)
	ListFeatured(ctx context.Context, publicOnly bool) ([]*Event, error)
	ListUpcoming(ctx context.Context, publicOnly bool, limit int) ([]*Event, error)
}
