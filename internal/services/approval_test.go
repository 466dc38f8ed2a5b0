package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"airstream/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeApprovalRepo is an in-memory ApprovalRepository for tests.
type fakeApprovalRepo struct {
	byID   map[string]*domain.Approval
	nextID int
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{byID: make(map[string]*domain.Approval), nextID: 1}
}

func (f *fakeApprovalRepo) GetByID(ctx context.Context, id string) (*domain.Approval, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApprovalRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Approval, error) {
	var out []*domain.Approval
	for _, a := range f.byID {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeApprovalRepo) Reconcile(ctx context.Context, eventID string, addGroupIDs, removeIDs []string) ([]*domain.Approval, []*domain.Approval, error) {
	var removed []*domain.Approval
	for _, id := range removeIDs {
		if a, ok := f.byID[id]; ok {
			removed = append(removed, a)
			delete(f.byID, id)
		}
	}
	var added []*domain.Approval
	for _, groupID := range addGroupIDs {
		a := domain.NewApproval(eventID, groupID)
		a.ID = fmt.Sprintf("ap-%d", f.nextID)
		f.nextID++
		f.byID[a.ID] = a
		added = append(added, a)
	}
	return added, removed, nil
}

func (f *fakeApprovalRepo) MarkProcessed(ctx context.Context, id string, approved bool, userID, comment string, processedTime time.Time) (*domain.Approval, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.Approved = approved
	a.Processed = true
	a.UserID = &userID
	a.Comment = comment
	a.ProcessedTime = &processedTime
	return a, nil
}

func (f *fakeApprovalRepo) ListPendingByGroupIDs(ctx context.Context, groupIDs []string) ([]*domain.Approval, error) {
	return f.listByGroupIDs(groupIDs, false, 0), nil
}

func (f *fakeApprovalRepo) ListProcessedByGroupIDs(ctx context.Context, groupIDs []string, limit int) ([]*domain.Approval, error) {
	return f.listByGroupIDs(groupIDs, true, limit), nil
}

func (f *fakeApprovalRepo) listByGroupIDs(groupIDs []string, processed bool, limit int) []*domain.Approval {
	in := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		in[id] = true
	}
	var out []*domain.Approval
	for _, a := range f.byID {
		if a.Processed != processed || a.GroupID == nil || !in[*a.GroupID] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fakeGroupRepo is an in-memory GroupRepository for tests.
type fakeGroupRepo struct {
	byID         map[string]*domain.Group
	members      map[string][]*domain.User // groupID -> members
	userGroups   map[string][]string       // userID -> groupIDs
	nextID       int
	setCallCount int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		byID:       make(map[string]*domain.Group),
		members:    make(map[string][]*domain.User),
		userGroups: make(map[string][]string),
		nextID:     1,
	}
}

func (f *fakeGroupRepo) addGroup(name string, members ...*domain.User) *domain.Group {
	g := &domain.Group{ID: fmt.Sprintf("g-%d", f.nextID), Name: name}
	f.nextID++
	f.byID[g.ID] = g
	f.members[g.ID] = members
	return g
}

func (f *fakeGroupRepo) Create(ctx context.Context, g *domain.Group) error {
	g.ID = fmt.Sprintf("g-%d", f.nextID)
	f.nextID++
	f.byID[g.ID] = g
	return nil
}

func (f *fakeGroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	if g, ok := f.byID[id]; ok {
		return g, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	for _, g := range f.byID {
		if g.Name == name {
			return g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroupRepo) List(ctx context.Context) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, g := range f.byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGroupRepo) Update(ctx context.Context, g *domain.Group) error {
	if _, ok := f.byID[g.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[g.ID] = g
	return nil
}

func (f *fakeGroupRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeGroupRepo) ListMembers(ctx context.Context, groupID string) ([]*domain.User, error) {
	return f.members[groupID], nil
}

func (f *fakeGroupRepo) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return f.userGroups[userID], nil
}

func (f *fakeGroupRepo) SetUserGroups(ctx context.Context, userID string, groupIDs []string) error {
	f.setCallCount++
	f.userGroups[userID] = groupIDs
	return nil
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID  map[string]*domain.User
	creds map[string][3]string // email -> userID, hash, salt
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User), creds: make(map[string][3]string)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User, passwordHash, salt string) error {
	f.byID[u.ID] = u
	f.creds[u.Email] = [3]string{u.ID, passwordHash, salt}
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetCredentials(ctx context.Context, email string) (string, string, string, error) {
	if c, ok := f.creds[email]; ok {
		return c[0], c[1], c[2], nil
	}
	return "", "", "", domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	var out []*domain.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// fakeEmailService records outgoing messages instead of sending them.
type fakeEmailService struct {
	approvalRequests []*domain.ApprovalRequestEmailData
	profileEmails    []*domain.ParticipantProfileEmailData
	err              error
}

func (f *fakeEmailService) SendApprovalRequest(ctx context.Context, data *domain.ApprovalRequestEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.approvalRequests = append(f.approvalRequests, data)
	return nil
}

func (f *fakeEmailService) SendParticipantProfile(ctx context.Context, data *domain.ParticipantProfileEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.profileEmails = append(f.profileEmails, data)
	return nil
}

func newTestApprovalService(approvals *fakeApprovalRepo, groups *fakeGroupRepo, users *fakeUserRepo, emails *fakeEmailService) domain.ApprovalService {
	return NewApprovalService(approvals, groups, users, emails,
		"https://air.example.com", slog.New(slog.DiscardHandler), time.Second)
}

func TestReconcile_AddsRemovesAndLeavesUntouched(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	users := newFakeUserRepo()
	emails := &fakeEmailService{}

	creator := &domain.User{ID: "u-1", Email: "creator@example.com", IsActive: true}
	users.byID[creator.ID] = creator

	groupA := groups.addGroup("PR", &domain.User{ID: "u-2", Email: "pr@example.com"})
	groupB := groups.addGroup("Legal",
		&domain.User{ID: "u-3", Email: "legal1@example.com"},
		&domain.User{ID: "u-4", Email: "legal2@example.com"})
	groups.addGroup("Security", &domain.User{ID: "u-5", Email: "sec@example.com"})

	event := &domain.Event{ID: "ev-1", Title: "All Hands", CreatorID: &creator.ID,
		StartTime: time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)}

	svc := newTestApprovalService(approvals, groups, users, emails)

	// Current set {PR, Security}; desired set {PR, Legal}.
	require.NoError(t, svc.Reconcile(context.Background(), event, []string{"PR", "Security"}))
	before, err := approvals.ListByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)
	var prApproval *domain.Approval
	for _, a := range before {
		if *a.GroupID == groupA.ID {
			prApproval = a
		}
	}
	require.NotNil(t, prApproval)
	emails.approvalRequests = nil

	require.NoError(t, svc.Reconcile(context.Background(), event, []string{"PR", "Legal"}))

	after, err := approvals.ListByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	groupIDs := map[string]bool{}
	for _, a := range after {
		groupIDs[*a.GroupID] = true
	}
	assert.True(t, groupIDs[groupA.ID])
	assert.True(t, groupIDs[groupB.ID])

	// The untouched approval keeps its identity.
	kept, err := approvals.GetByID(context.Background(), prApproval.ID)
	require.NoError(t, err)
	assert.Equal(t, groupA.ID, *kept.GroupID)

	// One notification batch, only to the added group's members.
	require.Len(t, emails.approvalRequests, 1)
	sent := emails.approvalRequests[0]
	assert.ElementsMatch(t, []string{"legal1@example.com", "legal2@example.com"}, sent.Recipients)
	assert.Equal(t, "Legal", sent.GroupName)
	assert.Equal(t, "All Hands", sent.EventTitle)
	assert.Equal(t, "creator@example.com", sent.CreatorEmail)
}

func TestReconcile_NoChangesIsNoop(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	emails := &fakeEmailService{}
	groups.addGroup("PR", &domain.User{ID: "u-2", Email: "pr@example.com"})

	event := &domain.Event{ID: "ev-1", Title: "Brown Bag"}
	svc := newTestApprovalService(approvals, groups, newFakeUserRepo(), emails)

	require.NoError(t, svc.Reconcile(context.Background(), event, []string{"PR"}))
	emails.approvalRequests = nil
	require.NoError(t, svc.Reconcile(context.Background(), event, []string{"PR"}))

	assert.Empty(t, emails.approvalRequests)
	got, err := approvals.ListByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReconcile_UnknownGroupRejected(t *testing.T) {
	svc := newTestApprovalService(newFakeApprovalRepo(), newFakeGroupRepo(), newFakeUserRepo(), &fakeEmailService{})

	err := svc.Reconcile(context.Background(), &domain.Event{ID: "ev-1"}, []string{"Nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReconcile_EmptyGroupStillGetsApproval(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	emails := &fakeEmailService{}
	groups.addGroup("Ghosts") // no members

	svc := newTestApprovalService(approvals, groups, newFakeUserRepo(), emails)
	require.NoError(t, svc.Reconcile(context.Background(), &domain.Event{ID: "ev-1"}, []string{"Ghosts"}))

	got, err := approvals.ListByEventID(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, emails.approvalRequests)
}

func TestReconcile_NotificationFailureDoesNotRollBack(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	emails := &fakeEmailService{err: fmt.Errorf("ses unavailable")}
	groups.addGroup("PR", &domain.User{ID: "u-2", Email: "pr@example.com"})

	svc := newTestApprovalService(approvals, groups, newFakeUserRepo(), emails)
	require.NoError(t, svc.Reconcile(context.Background(), &domain.Event{ID: "ev-1"}, []string{"PR"}))

	got, err := approvals.ListByEventID(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordDecision(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	group := groups.addGroup("PR")

	pending := domain.NewApproval("ev-1", group.ID)
	pending.ID = "ap-1"
	approvals.byID[pending.ID] = pending

	svc := newTestApprovalService(approvals, groups, newFakeUserRepo(), &fakeEmailService{})

	t.Run("member records decision", func(t *testing.T) {
		reviewer := &domain.User{ID: "u-9", IsActive: true, GroupIDs: []string{group.ID}}
		got, err := svc.RecordDecision(context.Background(), reviewer, pending.ID, true, "looks fine")
		require.NoError(t, err)
		assert.True(t, got.Processed)
		assert.True(t, got.Approved)
		assert.Equal(t, "looks fine", got.Comment)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "u-9", *got.UserID)
		require.NotNil(t, got.ProcessedTime)
	})

	t.Run("non-member forbidden", func(t *testing.T) {
		other := domain.NewApproval("ev-1", group.ID)
		other.ID = "ap-2"
		approvals.byID[other.ID] = other

		outsider := &domain.User{ID: "u-10", IsActive: true}
		_, err := svc.RecordDecision(context.Background(), outsider, other.ID, true, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.False(t, other.Processed)
	})

	t.Run("orphaned approval forbidden", func(t *testing.T) {
		orphan := &domain.Approval{ID: "ap-3", EventID: "ev-1"}
		approvals.byID[orphan.ID] = orphan

		reviewer := &domain.User{ID: "u-9", IsActive: true, GroupIDs: []string{group.ID}}
		_, err := svc.RecordDecision(context.Background(), reviewer, orphan.ID, false, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing approval", func(t *testing.T) {
		reviewer := &domain.User{ID: "u-9", IsActive: true, GroupIDs: []string{group.ID}}
		_, err := svc.RecordDecision(context.Background(), reviewer, "ap-404", true, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPendingAndRecentForReviewer(t *testing.T) {
	approvals := newFakeApprovalRepo()
	groups := newFakeGroupRepo()
	group := groups.addGroup("PR")

	pending := domain.NewApproval("ev-1", group.ID)
	pending.ID = "ap-1"
	approvals.byID[pending.ID] = pending

	done := domain.NewApproval("ev-2", group.ID)
	done.ID = "ap-2"
	done.Processed = true
	done.Approved = true
	approvals.byID[done.ID] = done

	svc := newTestApprovalService(approvals, groups, newFakeUserRepo(), &fakeEmailService{})
	reviewer := &domain.User{ID: "u-9", IsActive: true, GroupIDs: []string{group.ID}}

	got, err := svc.PendingForReviewer(context.Background(), reviewer)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ap-1", got[0].ID)

	recent, err := svc.RecentForReviewer(context.Background(), reviewer)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ap-2", recent[0].ID)

	nobody := &domain.User{ID: "u-11", IsActive: true}
	got, err = svc.PendingForReviewer(context.Background(), nobody)
	require.NoError(t, err)
	assert.Empty(t, got)
}
