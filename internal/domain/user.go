package domain

import (
	"context"
	"time"
)

// User represents a staff account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	Roles       []string  `json:"roles"`
	GroupIDs    []string  `json:"group_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Role codes.
const (
	RoleAdmin    = "admin"
	RoleProducer = "producer"
	RoleStaff    = "staff"
)

// Capability enumerates the operations gated by authorization. Each
// operation checks a named capability instead of dispatching on
// permission strings.
type Capability int

// Capabilities.
const (
	CapRequestEvents Capability = iota
	CapScheduleEvents
	CapEditEventOthers
	CapArchiveEvents
	CapManageParticipants
	CapEditParticipantOthers
	CapManageReferences
	CapReviewApprovals
	CapManageUsers
)

// roleCapabilities maps each role code to the capabilities it grants.
var roleCapabilities = map[string]map[Capability]bool{
	RoleStaff: {
		CapRequestEvents:      true,
		CapManageParticipants: true,
	},
	RoleProducer: {
		CapRequestEvents:         true,
		CapScheduleEvents:        true,
		CapEditEventOthers:       true,
		CapArchiveEvents:         true,
		CapManageParticipants:    true,
		CapEditParticipantOthers: true,
		CapManageReferences:      true,
	},
}

// Can reports whether the user holds the capability. Superusers and
// admins hold every capability; CapReviewApprovals additionally follows
// from membership in any reviewing group.
func (u *User) Can(c Capability) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, role := range u.Roles {
		if role == RoleAdmin {
			return true
		}
		if roleCapabilities[role][c] {
			return true
		}
	}
	if c == CapReviewApprovals && len(u.GroupIDs) > 0 {
		return true
	}
	return false
}

// InGroup reports whether the user belongs to the group with the given id.
func (u *User) InGroup(groupID string) bool {
	if u == nil {
		return false
	}
	for _, id := range u.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// Group is a reviewing group whose sign-off can be required before an
// event is published.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User, passwordHash, salt string) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetCredentials(ctx context.Context, email string) (userID, hash, salt string, err error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, params PaginationParams) ([]*User, int, error)
}

// GroupRepository defines the interface for reviewing-group storage.
// Deleting a group nulls its approval references; it never deletes
// approvals or events.
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	GetByID(ctx context.Context, id string) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	List(ctx context.Context) ([]*Group, error)
	Update(ctx context.Context, group *Group) error
	Delete(ctx context.Context, id string) error
	ListMembers(ctx context.Context, groupID string) ([]*User, error)
	ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error)
	SetUserGroups(ctx context.Context, userID string, groupIDs []string) error
}

// UserService defines authentication and user administration.
type UserService interface {
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	// GetActor loads the full user (roles and group memberships) for the
	// authenticated user id carried by the request.
	GetActor(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context, actor *User, params PaginationParams) ([]*User, int, error)
	UpdateUser(ctx context.Context, actor *User, user *User) error
	CreateGroup(ctx context.Context, actor *User, group *Group) error
	UpdateGroup(ctx context.Context, actor *User, group *Group) error
	DeleteGroup(ctx context.Context, actor *User, groupID string) error
	ListGroups(ctx context.Context) ([]*Group, error)
}
