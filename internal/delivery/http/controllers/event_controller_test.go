package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airstream/internal/delivery/http/middleware"
	"airstream/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserService resolves every actor lookup to a fixed user.
type fakeUserService struct {
	actor *domain.User
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return "", nil, domain.ErrUserNotFound
}

func (f *fakeUserService) GetActor(ctx context.Context, userID string) (*domain.User, error) {
	if f.actor == nil || f.actor.ID != userID {
		return nil, domain.ErrUserNotFound
	}
	return f.actor, nil
}

func (f *fakeUserService) ListUsers(ctx context.Context, actor *domain.User, params domain.PaginationParams) ([]*domain.User, int, error) {
	return nil, 0, nil
}
func (f *fakeUserService) UpdateUser(ctx context.Context, actor *domain.User, user *domain.User) error {
	return nil
}
func (f *fakeUserService) CreateGroup(ctx context.Context, actor *domain.User, group *domain.Group) error {
	return nil
}
func (f *fakeUserService) UpdateGroup(ctx context.Context, actor *domain.User, group *domain.Group) error {
	return nil
}
func (f *fakeUserService) DeleteGroup(ctx context.Context, actor *domain.User, groupID string) error {
	return nil
}
func (f *fakeUserService) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return nil, nil
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	requestErr  error
	lastRequest *domain.EventRequest
	bySlug      *domain.Event
	redirected  bool
	bySlugErr   error
}

func (f *fakeEventService) RequestEvent(ctx context.Context, actor *domain.User, req *domain.EventRequest) (*domain.Event, error) {
	f.lastRequest = req
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &domain.Event{
		ID:        "ev-created",
		Title:     req.Title,
		Slug:      "generated-slug",
		Status:    domain.StatusInitiated,
		StartTime: req.StartTime,
	}, nil
}

func (f *fakeEventService) EditEvent(ctx context.Context, actor *domain.User, eventID string, req *domain.EventRequest) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeEventService) ArchiveEvent(ctx context.Context, actor *domain.User, eventID string, minutes int) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeEventService) DeleteEvent(ctx context.Context, actor *domain.User, eventID string) error {
	return nil
}
func (f *fakeEventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeEventService) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, bool, error) {
	if f.bySlugErr != nil {
		return nil, false, f.bySlugErr
	}
	return f.bySlug, f.redirected, nil
}
func (f *fakeEventService) ListBuckets(ctx context.Context, actor *domain.User) (*domain.EventBuckets, error) {
	return &domain.EventBuckets{}, nil
}
func (f *fakeEventService) SearchEvents(ctx context.Context, actor *domain.User, title string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	return nil, 0, nil
}
func (f *fakeEventService) ListFeatured(ctx context.Context, publicOnly bool) ([]*domain.Event, error) {
	return nil, nil
}
func (f *fakeEventService) ListUpcoming(ctx context.Context, publicOnly bool, limit int) ([]*domain.Event, error) {
	return nil, nil
}

// fakeTagRepo implements domain.TagRepository.
type fakeTagRepo struct {
	byEvent map[string][]*domain.Tag
}

func (f *fakeTagRepo) EnsureByName(ctx context.Context, name string) (*domain.Tag, error) {
	return &domain.Tag{ID: name, Name: name}, nil
}
func (f *fakeTagRepo) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]*domain.Tag, error) {
	return nil, nil
}
func (f *fakeTagRepo) SetEventTags(ctx context.Context, eventID string, tagIDs []string) error {
	return nil
}
func (f *fakeTagRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Tag, error) {
	return f.byEvent[eventID], nil
}

// fakeParticipantRepo implements domain.ParticipantRepository.
type fakeParticipantRepo struct {
	byEvent map[string][]*domain.Participant
}

func (f *fakeParticipantRepo) Create(ctx context.Context, p *domain.Participant) error { return nil }
func (f *fakeParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeParticipantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Participant, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeParticipantRepo) GetByClearToken(ctx context.Context, token string) (*domain.Participant, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeParticipantRepo) Update(ctx context.Context, p *domain.Participant) error { return nil }
func (f *fakeParticipantRepo) Delete(ctx context.Context, id string) error             { return nil }
func (f *fakeParticipantRepo) Search(ctx context.Context, nameContains string, params domain.PaginationParams) ([]*domain.Participant, int, error) {
	return nil, 0, nil
}
func (f *fakeParticipantRepo) ListByCleared(ctx context.Context, cleared domain.ClearedStatus) ([]*domain.Participant, error) {
	return nil, nil
}
func (f *fakeParticipantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return false, nil
}
func (f *fakeParticipantRepo) SetEventParticipants(ctx context.Context, eventID string, participantIDs []string) error {
	return nil
}
func (f *fakeParticipantRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	return f.byEvent[eventID], nil
}
func (f *fakeParticipantRepo) ListEventIDsByParticipant(ctx context.Context, participantID string) ([]string, error) {
	return nil, nil
}

func newEventController(events *fakeEventService, users *fakeUserService, tags *fakeTagRepo, participants *fakeParticipantRepo) *EventController {
	if tags == nil {
		tags = &fakeTagRepo{}
	}
	if participants == nil {
		participants = &fakeParticipantRepo{}
	}
	return NewEventController(slog.New(slog.DiscardHandler), events, users, tags, participants)
}

func authenticated(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), userID))
}

func TestEventController_RequestEvent(t *testing.T) {
	producer := &domain.User{ID: "u-1", Email: "prod@example.com", IsActive: true, Roles: []string{domain.RoleProducer}}

	tests := []struct {
		name           string
		body           string
		userID         string
		serviceErr     error
		wantStatus     int
		wantBodySubstr string
	}{
		{
			name:       "success",
			body:       `{"title":"Town Hall","start_time":"2026-09-01T12:00:00","timezone":"US/Eastern"}`,
			userID:     "u-1",
			wantStatus: http.StatusCreated,
		},
		{
			name:           "missing title",
			body:           `{"start_time":"2026-09-01T12:00:00","timezone":"US/Eastern"}`,
			userID:         "u-1",
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "title is required",
		},
		{
			name:           "malformed start time",
			body:           `{"title":"Town Hall","start_time":"tomorrow","timezone":"US/Eastern"}`,
			userID:         "u-1",
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "start_time",
		},
		{
			name:           "unauthenticated",
			body:           `{"title":"Town Hall","start_time":"2026-09-01T12:00:00","timezone":"US/Eastern"}`,
			userID:         "",
			wantStatus:     http.StatusUnauthorized,
			wantBodySubstr: "unauthorized",
		},
		{
			name:           "forbidden by service",
			body:           `{"title":"Town Hall","start_time":"2026-09-01T12:00:00","timezone":"US/Eastern"}`,
			userID:         "u-1",
			serviceErr:     domain.ErrForbidden,
			wantStatus:     http.StatusForbidden,
			wantBodySubstr: "forbidden",
		},
		{
			name:           "invalid timezone from service",
			body:           `{"title":"Town Hall","start_time":"2026-09-01T12:00:00","timezone":"Mars/Olympus"}`,
			userID:         "u-1",
			serviceErr:     domain.ErrInvalidTimezone,
			wantStatus:     http.StatusBadRequest,
			wantBodySubstr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEventService{requestErr: tt.serviceErr}
			ctrl := newEventController(events, &fakeUserService{actor: producer}, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/manage/events", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.userID != "" {
				req = authenticated(req, tt.userID)
			}
			rr := httptest.NewRecorder()

			ctrl.RequestEvent(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			if tt.wantBodySubstr != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBodySubstr, "response body")
			}
			if tt.wantStatus == http.StatusCreated {
				var resp struct {
					Data domain.Event `json:"data"`
				}
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "ev-created", resp.Data.ID)
				assert.Equal(t, "Town Hall", resp.Data.Title)
				require.NotNil(t, events.lastRequest)
				assert.Equal(t, "US/Eastern", events.lastRequest.Timezone)
				assert.Equal(t, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), events.lastRequest.StartTime)
			}
		})
	}
}

func TestEventController_GetBySlug(t *testing.T) {
	event := &domain.Event{ID: "ev-1", Title: "Town Hall", Slug: "town-hall"}
	tags := &fakeTagRepo{byEvent: map[string][]*domain.Tag{
		"ev-1": {{ID: "t-1", Name: "allhands"}},
	}}
	participants := &fakeParticipantRepo{byEvent: map[string][]*domain.Participant{
		"ev-1": {{ID: "p-1", Name: "Jane Doe", Slug: "jane-doe"}},
	}}

	t.Run("current slug", func(t *testing.T) {
		ctrl := newEventController(&fakeEventService{bySlug: event}, &fakeUserService{}, tags, participants)
		req := httptest.NewRequest(http.MethodGet, "/events/town-hall", nil)
		req.SetPathValue("slug", "town-hall")
		rr := httptest.NewRecorder()

		ctrl.GetBySlug(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data EventBySlugResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.False(t, resp.Data.Redirected)
		assert.Equal(t, "town-hall", resp.Data.Event.Slug)
		require.Len(t, resp.Data.Tags, 1)
		assert.Equal(t, "allhands", resp.Data.Tags[0].Name)
		require.Len(t, resp.Data.Participants, 1)
		assert.Equal(t, "Jane Doe", resp.Data.Participants[0].Name)
	})

	t.Run("retired slug redirects", func(t *testing.T) {
		ctrl := newEventController(&fakeEventService{bySlug: event, redirected: true}, &fakeUserService{}, tags, participants)
		req := httptest.NewRequest(http.MethodGet, "/events/old-town-hall", nil)
		req.SetPathValue("slug", "old-town-hall")
		rr := httptest.NewRecorder()

		ctrl.GetBySlug(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data EventBySlugResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.True(t, resp.Data.Redirected)
		assert.Equal(t, "town-hall", resp.Data.Event.Slug)
	})

	t.Run("unknown slug", func(t *testing.T) {
		ctrl := newEventController(&fakeEventService{bySlugErr: domain.ErrNotFound}, &fakeUserService{}, tags, participants)
		req := httptest.NewRequest(http.MethodGet, "/events/nope", nil)
		req.SetPathValue("slug", "nope")
		rr := httptest.NewRecorder()

		ctrl.GetBySlug(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "not_found")
	})
}
