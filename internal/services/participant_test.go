package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"airstream/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeParticipantRepo is an in-memory ParticipantRepository for tests.
type fakeParticipantRepo struct {
	byID       map[string]*domain.Participant
	eventLinks map[string][]string // eventID -> participantIDs
	nextID     int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{
		byID:       make(map[string]*domain.Participant),
		eventLinks: make(map[string][]string),
		nextID:     1,
	}
}

func (f *fakeParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	taken, _ := f.SlugExists(ctx, p.Slug)
	if taken {
		return domain.ErrSlugExists
	}
	p.ID = fmt.Sprintf("p-%d", f.nextID)
	f.nextID++
	f.byID[p.ID] = p
	return nil
}

func (f *fakeParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Participant, error) {
	for _, p := range f.byID {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) GetByClearToken(ctx context.Context, token string) (*domain.Participant, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	for _, p := range f.byID {
		if p.ClearToken == token {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) Update(ctx context.Context, p *domain.Participant) error {
	if _, ok := f.byID[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakeParticipantRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeParticipantRepo) Search(ctx context.Context, nameContains string, params domain.PaginationParams) ([]*domain.Participant, int, error) {
	var out []*domain.Participant
	for _, p := range f.byID {
		if nameContains == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(nameContains)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeParticipantRepo) ListByCleared(ctx context.Context, cleared domain.ClearedStatus) ([]*domain.Participant, error) {
	var out []*domain.Participant
	for _, p := range f.byID {
		if p.Cleared == cleared {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeParticipantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, p := range f.byID {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeParticipantRepo) SetEventParticipants(ctx context.Context, eventID string, participantIDs []string) error {
	f.eventLinks[eventID] = participantIDs
	return nil
}

func (f *fakeParticipantRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	var out []*domain.Participant
	for _, id := range f.eventLinks[eventID] {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantRepo) ListEventIDsByParticipant(ctx context.Context, participantID string) ([]string, error) {
	var out []string
	for eventID, ids := range f.eventLinks {
		for _, id := range ids {
			if id == participantID {
				out = append(out, eventID)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

type participantServiceFixture struct {
	svc          domain.ParticipantService
	participants *fakeParticipantRepo
	events       *fakeEventRepo
	users        *fakeUserRepo
	emails       *fakeEmailService
}

func newParticipantServiceFixture() *participantServiceFixture {
	f := &participantServiceFixture{
		participants: newFakeParticipantRepo(),
		events:       newFakeEventRepo(),
		users:        newFakeUserRepo(),
		emails:       &fakeEmailService{},
	}
	f.svc = NewParticipantService(f.participants, f.events, f.users, f.emails,
		"https://air.example.com", time.Second)
	return f
}

func TestCreateParticipant(t *testing.T) {
	f := newParticipantServiceFixture()
	actor := staff("u-1")

	p := &domain.Participant{Name: "Jane Doe", Email: "jane@example.com", Role: domain.RolePresenter}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, p))
	assert.Equal(t, "jane-doe", p.Slug)
	assert.Equal(t, domain.ClearedNo, p.Cleared)
	require.NotNil(t, p.CreatorID)
	assert.Equal(t, "u-1", *p.CreatorID)

	// Same name gets a counter suffix.
	dup := &domain.Participant{Name: "Jane Doe", Role: domain.RolePresenter}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, dup))
	assert.Equal(t, "jane-doe-1", dup.Slug)

	err := f.svc.CreateParticipant(context.Background(), actor, &domain.Participant{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	nobody := &domain.User{ID: "u-2", IsActive: true}
	err = f.svc.CreateParticipant(context.Background(), nobody, &domain.Participant{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateParticipant_PreservesProtectedFields(t *testing.T) {
	f := newParticipantServiceFixture()
	actor := staff("u-1")

	p := &domain.Participant{Name: "Jane Doe"}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, p))
	p.ClearToken = "tok-1"
	require.NoError(t, f.participants.Update(context.Background(), p))

	update := &domain.Participant{
		ID: p.ID, Name: "Jane A. Doe", Slug: "hacked", ClearToken: "hacked", Cleared: domain.ClearedNo,
	}
	require.NoError(t, f.svc.UpdateParticipant(context.Background(), actor, update))

	got, err := f.participants.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", got.Name)
	assert.Equal(t, "jane-doe", got.Slug)
	assert.Equal(t, "tok-1", got.ClearToken)

	// Another staffer did not create this profile and cannot edit it.
	err = f.svc.UpdateParticipant(context.Background(), staff("u-9"), update)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSendProfileEmail(t *testing.T) {
	f := newParticipantServiceFixture()
	actor := staff("u-1")
	f.users.byID[actor.ID] = actor

	creatorID := "u-2"
	creator := &domain.User{ID: creatorID, Email: "producer@example.com", IsActive: true}
	f.users.byID[creatorID] = creator

	p := &domain.Participant{Name: "Jane Doe", Email: "jane@example.com"}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, p))

	event := &domain.Event{Title: "Talk", Slug: "talk", Status: domain.StatusScheduled,
		StartTime: time.Now(), CreatorID: &creatorID}
	require.NoError(t, f.events.Create(context.Background(), event))
	require.NoError(t, f.participants.SetEventParticipants(context.Background(), event.ID, []string{p.ID}))

	require.NoError(t, f.svc.SendProfileEmail(context.Background(), actor, p.ID))

	// A token was issued and stored.
	stored, err := f.participants.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ClearToken)

	require.Len(t, f.emails.profileEmails, 1)
	sent := f.emails.profileEmails[0]
	assert.Equal(t, "jane@example.com", sent.Email)
	assert.Equal(t, "https://air.example.com/participants/clear/"+stored.ClearToken, sent.TokenURL)
	assert.Equal(t, actor.Email, sent.ReplyTo)
	assert.Equal(t, []string{"producer@example.com"}, sent.CC)

	// A second send reuses the issued token.
	require.NoError(t, f.svc.SendProfileEmail(context.Background(), actor, p.ID))
	again, err := f.participants.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ClearToken, again.ClearToken)

	noEmail := &domain.Participant{Name: "No Mail"}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, noEmail))
	err = f.svc.SendProfileEmail(context.Background(), actor, noEmail.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClearByToken(t *testing.T) {
	f := newParticipantServiceFixture()
	actor := staff("u-1")

	p := &domain.Participant{Name: "Jane Doe", Email: "jane@example.com"}
	require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, p))
	p.ClearToken = "tok-1"
	require.NoError(t, f.participants.Update(context.Background(), p))

	got, err := f.svc.ClearByToken(context.Background(), "tok-1", domain.ClearedYes)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearedYes, got.Cleared)
	assert.True(t, got.IsClear())

	// The token is single-use.
	_, err = f.svc.ClearByToken(context.Background(), "tok-1", domain.ClearedYes)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ClearByToken(context.Background(), "tok-x", domain.ClearedNo)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ClearByToken(context.Background(), "tok-1", domain.ClearedPending)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParticipantAutocomplete(t *testing.T) {
	f := newParticipantServiceFixture()
	actor := staff("u-1")
	for _, name := range []string{"Peter Parker", "Mary Jane Watson", "Jane Peterson", "Otto Octavius"} {
		require.NoError(t, f.svc.CreateParticipant(context.Background(), actor, &domain.Participant{Name: name}))
	}

	names, err := f.svc.Autocomplete(context.Background(), "peter", 5)
	require.NoError(t, err)
	// "Peterson" matches at a word start; "Parker" does not contain it.
	assert.ElementsMatch(t, []string{"Peter Parker", "Jane Peterson"}, names)

	names, err = f.svc.Autocomplete(context.Background(), "jane", 1)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	names, err = f.svc.Autocomplete(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, names)
}
