package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

const defaultUpcomingLimit = 10

type EventController struct {
	Logger       *slog.Logger
	Events       domain.EventService
	Users        domain.UserService
	Tags         domain.TagRepository
	Participants domain.ParticipantRepository
}

func NewEventController(logger *slog.Logger, events domain.EventService, users domain.UserService,
	tags domain.TagRepository, participants domain.ParticipantRepository) *EventController {
	return &EventController{
		Logger:       logger,
		Events:       events,
		Users:        users,
		Tags:         tags,
		Participants: participants,
	}
}

// EventRequestBody is the request body for creating or editing an event.
// StartTime is a wall-clock value interpreted in Timezone.
type EventRequestBody struct {
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Status           string   `json:"status"`
	StartTime        string   `json:"start_time"` // "2006-01-02T15:04:05"
	Timezone         string   `json:"timezone"`
	ArchiveMinutes   *int     `json:"archive_minutes"`
	Public           bool     `json:"public"`
	Featured         bool     `json:"featured"`
	CallInfo         string   `json:"call_info"`
	AdditionalLinks  string   `json:"additional_links"`
	LocationID       *string  `json:"location_id"`
	CategoryID       *string  `json:"category_id"`
	TemplateID       *string  `json:"template_id"`
	ParticipantIDs   []string `json:"participant_ids"`
	Tags             []string `json:"tags"`
	ApprovalGroups   []string `json:"approval_groups"`
}

// startTimeLayout accepts a naive timestamp with no zone designator; the
// zone comes from the separate timezone field.
const startTimeLayout = "2006-01-02T15:04:05"

// Validate implements Validator.
func (b EventRequestBody) Validate() []string {
	var errs []string
	if b.Title == "" {
		errs = append(errs, "title is required")
	}
	if b.StartTime == "" {
		errs = append(errs, "start_time is required")
	} else if _, err := time.Parse(startTimeLayout, b.StartTime); err != nil {
		errs = append(errs, "start_time must match "+startTimeLayout)
	}
	if b.Timezone == "" {
		errs = append(errs, "timezone is required")
	}
	switch b.Status {
	case "", string(domain.StatusInitiated), string(domain.StatusScheduled), string(domain.StatusRemoved):
	default:
		errs = append(errs, "status must be initiated, scheduled, or removed")
	}
	return errs
}

func (b EventRequestBody) toDomain() *domain.EventRequest {
	start, _ := time.Parse(startTimeLayout, b.StartTime)
	return &domain.EventRequest{
		Title:            b.Title,
		Slug:             b.Slug,
		Description:      b.Description,
		ShortDescription: b.ShortDescription,
		Status:           domain.EventStatus(b.Status),
		StartTime:        start,
		Timezone:         b.Timezone,
		ArchiveMinutes:   b.ArchiveMinutes,
		Public:           b.Public,
		Featured:         b.Featured,
		CallInfo:         b.CallInfo,
		AdditionalLinks:  b.AdditionalLinks,
		LocationID:       b.LocationID,
		CategoryID:       b.CategoryID,
		TemplateID:       b.TemplateID,
		ParticipantIDs:   b.ParticipantIDs,
		Tags:             b.Tags,
		ApprovalGroups:   b.ApprovalGroups,
	}
}

func (c *EventController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidTimezone) {
		helpers.WriteDomainError(w, err)
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteDomainError(w, err)
}

// RequestEvent godoc
// @Summary Request a new event
// @Description Creates an event from the request form. The start time is a wall-clock value normalized with the given IANA timezone. Reviewing groups named in approval_groups get a pending approval and their members are notified.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body EventRequestBody true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /manage/events [post]
func (c *EventController) RequestEvent(w http.ResponseWriter, r *http.Request) {
	var body EventRequestBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	event, err := c.Events.RequestEvent(r.Context(), actor, body.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// EditEvent godoc
// @Summary Edit an event
// @Description Updates an event. Changing the slug retires the previous one so stale links keep resolving. The approval group set is reconciled against approval_groups.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param event body EventRequestBody true "Event data"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/events/{eventID} [put]
func (c *EventController) EditEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var body EventRequestBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	event, err := c.Events.EditEvent(r.Context(), actor, eventID, body.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ArchiveEventRequest is the request body for archiving an event.
type ArchiveEventRequest struct {
	Minutes int `json:"minutes"`
}

// Validate implements Validator.
func (a ArchiveEventRequest) Validate() []string {
	if a.Minutes < 0 {
		return []string{"minutes must not be negative"}
	}
	return nil
}

// ArchiveEvent godoc
// @Summary Archive an event
// @Description Sets the archive boundary to start time plus the given minutes.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body ArchiveEventRequest true "Minutes after start"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Router /manage/events/{eventID}/archive [post]
func (c *EventController) ArchiveEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var body ArchiveEventRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	event, err := c.Events.ArchiveEvent(r.Context(), actor, eventID, body.Minutes)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event. Approvals and link rows go with it; participants, tags, and reference entities survive.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	if err := c.Events.DeleteEvent(r.Context(), actor, eventID); err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": eventID})
}

// ListBuckets godoc
// @Summary List events grouped by lifecycle bucket
// @Description Returns the management dashboard view: initiated, upcoming, live, archiving, and archived events. Users who cannot edit others' events only see their own.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the five buckets"
// @Router /manage/events [get]
func (c *EventController) ListBuckets(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	buckets, err := c.Events.ListBuckets(r.Context(), actor)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, buckets)
}

// EventListResponse is a paginated event list.
type EventListResponse struct {
	Events     []*domain.Event        `json:"events"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// SearchEvents godoc
// @Summary Search events by title
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param q query string false "Title substring"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains events and pagination"
// @Router /manage/events/search [get]
func (c *EventController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Events.SearchEvents(r.Context(), actor, r.URL.Query().Get("q"), params)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// EventBySlugResponse wraps an event with redirect information for
// retired slugs.
type EventBySlugResponse struct {
	Event *domain.Event `json:"event"`
	// Redirected is true when the requested slug was historical; the
	// canonical slug is on the event.
	Redirected   bool                  `json:"redirected"`
	Tags         []*domain.Tag         `json:"tags"`
	Participants []*domain.Participant `json:"participants"`
}

// GetBySlug godoc
// @Summary Get an event by slug
// @Description Resolves current slugs first, then retired ones. A retired slug returns the event with redirected=true so the client can update its URL.
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} helpers.APIResponse "data contains event, tags, participants, redirected"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{slug} [get]
func (c *EventController) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slug")
		return
	}
	event, redirected, err := c.Events.GetEventBySlug(r.Context(), slug)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	tags, err := c.Tags.ListByEventID(r.Context(), event.ID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	participants, err := c.Participants.ListByEventID(r.Context(), event.ID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventBySlugResponse{
		Event:        event,
		Redirected:   redirected,
		Tags:         tags,
		Participants: participants,
	})
}

// ListUpcoming godoc
// @Summary List public upcoming events
// @Tags events
// @Produce json
// @Param limit query int false "Maximum number of events (default 10)"
// @Success 200 {object} helpers.APIResponse "data contains events ordered by start time"
// @Router /events [get]
func (c *EventController) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpcomingLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := parsePositiveInt(s); err == nil {
			limit = v
		}
	}
	events, err := c.Events.ListUpcoming(r.Context(), true, limit)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListFeatured godoc
// @Summary List public featured events
// @Tags events
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains featured events"
// @Router /events/featured [get]
func (c *EventController) ListFeatured(w http.ResponseWriter, r *http.Request) {
	events, err := c.Events.ListFeatured(r.Context(), true)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}
