package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"airstream/internal/domain"
	"airstream/pkg/tz"
)

// maxSlugCommitRetries caps recovery from commit-time slug collisions
// (two requests generating the same base slug concurrently).
const maxSlugCommitRetries = 5

type eventService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	tagRepo         domain.TagRepository
	approvalSvc     domain.ApprovalService
	liveMargin      time.Duration
	contextTimeout  time.Duration
	now             func() time.Time
}

func NewEventService(eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	tagRepo domain.TagRepository,
	approvalSvc domain.ApprovalService,
	liveMargin time.Duration,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		tagRepo:         tagRepo,
		approvalSvc:     approvalSvc,
		liveMargin:      liveMargin,
		contextTimeout:  timeout,
		now:             time.Now,
	}
}

// slugCheckers returns the collections an event slug must be unique
// across: current event slugs and retired ones.
func (s *eventService) slugCheckers() []domain.SlugChecker {
	return []domain.SlugChecker{
		domain.SlugCheckerFunc(s.eventRepo.SlugExists),
		domain.SlugCheckerFunc(s.eventRepo.OldSlugExists),
	}
}

// applyTimes normalizes the request's wall-clock start time to UTC and
// derives the archive boundary from the minute duration. An archive
// boundary that would precede the start time is dropped.
func applyTimes(event *domain.Event, req *domain.EventRequest) error {
	start, err := tz.NormalizeToUTC(req.StartTime, req.Timezone)
	if err != nil {
		return err
	}
	event.StartTime = start
	event.ArchiveTime = nil
	if req.ArchiveMinutes != nil {
		if *req.ArchiveMinutes < 0 {
			return fmt.Errorf("%w: negative archive duration", domain.ErrInvalidInput)
		}
		at := start.Add(time.Duration(*req.ArchiveMinutes) * time.Minute)
		if !at.Before(start) {
			event.ArchiveTime = &at
		}
	}
	return nil
}

func (s *eventService) RequestEvent(ctx context.Context, actor *domain.User, req *domain.EventRequest) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapRequestEvents) {
		return nil, domain.ErrForbidden
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	status := req.Status
	if status == "" {
		status = domain.StatusInitiated
	}
	// Only experienced requesters may create events already scheduled.
	if status == domain.StatusScheduled && !actor.Can(domain.CapScheduleEvents) {
		status = domain.StatusInitiated
	}

	now := s.now().UTC()
	event := &domain.Event{
		Title:            req.Title,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Status:           status,
		Public:           req.Public,
		Featured:         req.Featured,
		CallInfo:         req.CallInfo,
		AdditionalLinks:  req.AdditionalLinks,
		LocationID:       req.LocationID,
		CategoryID:       req.CategoryID,
		TemplateID:       req.TemplateID,
		CreatorID:        &actor.ID,
		ModifiedUserID:   &actor.ID,
		Created:          now,
		Modified:         now,
	}
	if err := applyTimes(event, req); err != nil {
		return nil, err
	}

	if err := s.createWithSlug(ctx, event, req.Slug); err != nil {
		return nil, err
	}

	if err := s.saveLinks(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.approvalSvc.Reconcile(ctx, event, req.ApprovalGroups); err != nil {
		return nil, fmt.Errorf("reconcile approvals: %w", err)
	}
	return event, nil
}

// createWithSlug assigns a slug and inserts the event. The uniqueness
// loop is an optimistic pre-check; when the insert still hits the unique
// constraint a fresh slug is generated against the now-committed state.
func (s *eventService) createWithSlug(ctx context.Context, event *domain.Event, requestedSlug string) error {
	if requestedSlug != "" {
		slug := Slugify(requestedSlug)
		taken, err := slugTaken(ctx, slug, s.slugCheckers())
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: slug %q already in use", domain.ErrInvalidInput, slug)
		}
		event.Slug = slug
		if err := s.eventRepo.Create(ctx, event); err != nil {
			if errors.Is(err, domain.ErrSlugExists) {
				return fmt.Errorf("%w: slug %q already in use", domain.ErrInvalidInput, slug)
			}
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	}

	duplicateKey := event.StartTime.Format("20060102")
	for attempt := 0; attempt < maxSlugCommitRetries; attempt++ {
		slug, err := UniqueSlug(ctx, event.Title, s.slugCheckers(), duplicateKey)
		if err != nil {
			return err
		}
		event.Slug = slug
		err = s.eventRepo.Create(ctx, event)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSlugExists) {
			return fmt.Errorf("create event: %w", err)
		}
		// Lost the race; the colliding row is committed now and the
		// next pass sees it.
	}
	return fmt.Errorf("create event: %w after %d attempts", domain.ErrSlugExists, maxSlugCommitRetries)
}

func (s *eventService) saveLinks(ctx context.Context, event *domain.Event, req *domain.EventRequest) error {
	tagIDs := make([]string, 0, len(req.Tags))
	seen := make(map[string]struct{})
	for _, name := range req.Tags {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tag, err := s.tagRepo.EnsureByName(ctx, name)
		if err != nil {
			return fmt.Errorf("ensure tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := s.tagRepo.SetEventTags(ctx, event.ID, tagIDs); err != nil {
		return fmt.Errorf("set event tags: %w", err)
	}
	if err := s.participantRepo.SetEventParticipants(ctx, event.ID, req.ParticipantIDs); err != nil {
		return fmt.Errorf("set event participants: %w", err)
	}
	event.Tags = req.Tags
	event.ParticipantIDs = req.ParticipantIDs
	return nil
}

func (s *eventService) canEdit(actor *domain.User, event *domain.Event) bool {
	if actor.Can(domain.CapEditEventOthers) {
		return true
	}
	return event.CreatorID != nil && *event.CreatorID == actor.ID && actor.Can(domain.CapRequestEvents)
}

func (s *eventService) EditEvent(ctx context.Context, actor *domain.User, eventID string, req *domain.EventRequest) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !s.canEdit(actor, event) {
		return nil, domain.ErrForbidden
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	oldSlug := event.Slug
	if req.Slug != "" {
		slug := Slugify(req.Slug)
		if slug != event.Slug {
			taken, err := slugTaken(ctx, slug, s.slugCheckers())
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("%w: slug %q already in use", domain.ErrInvalidInput, slug)
			}
			event.Slug = slug
		}
	}

	event.Title = req.Title
	event.Description = req.Description
	event.ShortDescription = req.ShortDescription
	if req.Status != "" {
		if req.Status == domain.StatusScheduled && !actor.Can(domain.CapScheduleEvents) {
			return nil, domain.ErrForbidden
		}
		event.Status = req.Status
	}
	event.Public = req.Public
	event.Featured = req.Featured
	event.CallInfo = req.CallInfo
	event.AdditionalLinks = req.AdditionalLinks
	event.LocationID = req.LocationID
	event.CategoryID = req.CategoryID
	event.TemplateID = req.TemplateID
	event.ModifiedUserID = &actor.ID
	event.Modified = s.now().UTC()
	if err := applyTimes(event, req); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrSlugExists) {
			return nil, fmt.Errorf("%w: slug %q already in use", domain.ErrInvalidInput, event.Slug)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	// A slug change retires the previous slug so stale links redirect.
	if event.Slug != oldSlug {
		if err := s.eventRepo.CreateOldSlug(ctx, event.ID, oldSlug); err != nil {
			return nil, fmt.Errorf("record old slug: %w", err)
		}
	}

	if err := s.saveLinks(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.approvalSvc.Reconcile(ctx, event, req.ApprovalGroups); err != nil {
		return nil, fmt.Errorf("reconcile approvals: %w", err)
	}
	return event, nil
}

func (s *eventService) ArchiveEvent(ctx context.Context, actor *domain.User, eventID string, minutes int) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.Can(domain.CapArchiveEvents) {
		return nil, domain.ErrForbidden
	}
	if minutes < 0 {
		return nil, fmt.Errorf("%w: negative archive duration", domain.ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	at := event.StartTime.Add(time.Duration(minutes) * time.Minute)
	event.ArchiveTime = &at
	event.ModifiedUserID = &actor.ID
	event.Modified = s.now().UTC()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, actor *domain.User, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if !s.canEdit(actor, event) {
		return domain.ErrForbidden
	}
	// Storage cascades approvals and link rows only; participants, tags,
	// and reference entities survive.
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *eventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.GetByID(ctx, eventID)
}

func (s *eventService) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetBySlug(ctx, slug)
	if err == nil {
		return event, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("get event by slug: %w", err)
	}
	id, err := s.eventRepo.GetIDByOldSlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, fmt.Errorf("resolve old slug: %w", err)
	}
	event, err = s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get event: %w", err)
	}
	return event, true, nil
}

func (s *eventService) ListBuckets(ctx context.Context, actor *domain.User) (*domain.EventBuckets, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter := domain.EventFilter{}
	if !actor.Can(domain.CapEditEventOthers) {
		filter.CreatorID = &actor.ID
	}
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	now := s.now().UTC()
	buckets := &domain.EventBuckets{
		Initiated: []*domain.Event{},
		Upcoming:  []*domain.Event{},
		Live:      []*domain.Event{},
		Archiving: []*domain.Event{},
		Archived:  []*domain.Event{},
	}
	for _, e := range events {
		switch e.Classify(now, s.liveMargin) {
		case domain.BucketInitiated:
			buckets.Initiated = append(buckets.Initiated, e)
		case domain.BucketUpcoming:
			buckets.Upcoming = append(buckets.Upcoming, e)
		case domain.BucketLive:
			buckets.Live = append(buckets.Live, e)
		case domain.BucketArchiving:
			buckets.Archiving = append(buckets.Archiving, e)
		case domain.BucketArchived:
			buckets.Archived = append(buckets.Archived, e)
		}
	}
	byStartAsc := func(events []*domain.Event) {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].StartTime.Before(events[j].StartTime)
		})
	}
	byStartAsc(buckets.Initiated)
	byStartAsc(buckets.Upcoming)
	byStartAsc(buckets.Live)
	sort.SliceStable(buckets.Archiving, func(i, j int) bool {
		return buckets.Archiving[i].ArchiveTime.After(*buckets.Archiving[j].ArchiveTime)
	})
	sort.SliceStable(buckets.Archived, func(i, j int) bool {
		return buckets.Archived[i].StartTime.After(buckets.Archived[j].StartTime)
	})
	return buckets, nil
}

func (s *eventService) SearchEvents(ctx context.Context, actor *domain.User, title string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter := domain.EventFilter{TitleContains: title}
	if !actor.Can(domain.CapEditEventOthers) {
		filter.CreatorID = &actor.ID
	}
	events, total, err := s.eventRepo.Search(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) ListFeatured(ctx context.Context, publicOnly bool) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx, domain.EventFilter{
		PublicOnly:   publicOnly,
		FeaturedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list featured: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) ListUpcoming(ctx context.Context, publicOnly bool, limit int) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx, domain.EventFilter{PublicOnly: publicOnly})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	now := s.now().UTC()
	upcoming := make([]*domain.Event, 0, limit)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	for _, e := range events {
		if e.Classify(now, s.liveMargin) != domain.BucketUpcoming {
			continue
		}
		upcoming = append(upcoming, e)
		if limit > 0 && len(upcoming) >= limit {
			break
		}
	}
	return upcoming, nil
}
