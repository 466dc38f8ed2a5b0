package domain

import "context"

// ClearedStatus is a participant's publication clearance.
type ClearedStatus string

// Clearance states.
const (
	ClearedYes     ClearedStatus = "yes"
	ClearedNo      ClearedStatus = "no"
	ClearedPending ClearedStatus = "pending"
)

// Participant roles.
const (
	RoleEventCoordinator   = "event-coordinator"
	RolePrincipalPresenter = "principal-presenter"
	RolePresenter          = "presenter"
)

// Participant is a speaker or presenter profile. Participants have a
// lifecycle independent from events: deleting an event never deletes its
// participants, only the link rows.
type Participant struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Slug       string        `json:"slug"`
	Email      string        `json:"email,omitempty"`
	Department string        `json:"department,omitempty"`
	Team       string        `json:"team,omitempty"`
	TopicURL   string        `json:"topic_url,omitempty"`
	Role       string        `json:"role"`
	Cleared    ClearedStatus `json:"cleared"`
	// ClearToken is an opaque string granting self-service access to the
	// clearance confirmation page without full authentication.
	ClearToken string  `json:"-"`
	CreatorID  *string `json:"creator_id,omitempty"`
}

// IsClear reports whether the participant has confirmed clearance.
func (p *Participant) IsClear() bool {
	return p.Cleared == ClearedYes
}

// ParticipantRepository defines the interface for participant storage.
// Create and Update return ErrSlugExists on a slug unique violation.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	GetBySlug(ctx context.Context, slug string) (*Participant, error)
	GetByClearToken(ctx context.Context, token string) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, nameContains string, params PaginationParams) ([]*Participant, int, error)
	ListByCleared(ctx context.Context, cleared ClearedStatus) ([]*Participant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Event links (many-to-many; link rows only).
	SetEventParticipants(ctx context.Context, eventID string, participantIDs []string) error
	ListByEventID(ctx context.Context, eventID string) ([]*Participant, error)
	ListEventIDsByParticipant(ctx context.Context, participantID string) ([]string, error)
}

// ParticipantService defines the business logic for speaker profiles and
// their self-service clearance flow.
type ParticipantService interface {
	CreateParticipant(ctx context.Context, actor *User, p *Participant) error
	UpdateParticipant(ctx context.Context, actor *User, p *Participant) error
	DeleteParticipant(ctx context.Context, actor *User, id string) error
	GetParticipantByID(ctx context.Context, id string) (*Participant, error)
	GetParticipantBySlug(ctx context.Context, slug string) (*Participant, error)
	SearchParticipants(ctx context.Context, nameContains string, params PaginationParams) ([]*Participant, int, error)
	ListNotCleared(ctx context.Context) ([]*Participant, error)
	// Autocomplete returns up to limit participant names with a word
	// starting with the query.
	Autocomplete(ctx context.Context, query string, limit int) ([]string, error)
	// SendProfileEmail mails the participant a link containing their
	// clear token, issuing a token first if they have none. The message
	// carries the acting user as reply-to and, when known, the creator
	// of the participant's latest event as cc.
	SendProfileEmail(ctx context.Context, actor *User, participantID string) error
	// ClearByToken resolves the participant owning the token and records
	// the clearance decision. No authentication involved.
	ClearByToken(ctx context.Context, token string, cleared ClearedStatus) (*Participant, error)
}
