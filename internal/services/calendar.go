package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"

	"airstream/internal/domain"
)

// defaultEventLength is the VEVENT duration assumed for events with no
// archive boundary yet.
const defaultEventLength = time.Hour

type calendarService struct {
	eventRepo      domain.EventRepository
	locationRepo   domain.LocationRepository
	liveMargin     time.Duration
	contextTimeout time.Duration
	now            func() time.Time
}

// NewCalendarService returns a service that renders upcoming and live
// events as an iCalendar feed.
func NewCalendarService(eventRepo domain.EventRepository,
	locationRepo domain.LocationRepository,
	liveMargin time.Duration,
	timeout time.Duration,
) *calendarService {
	return &calendarService{
		eventRepo:      eventRepo,
		locationRepo:   locationRepo,
		liveMargin:     liveMargin,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// BuildFeed serializes the upcoming and live events into an iCalendar
// document. With publicOnly set, private events are left out.
func (s *calendarService) BuildFeed(ctx context.Context, publicOnly bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx, domain.EventFilter{PublicOnly: publicOnly})
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}
	now := s.now().UTC()

	var feed []*domain.Event
	for _, e := range events {
		switch e.Classify(now, s.liveMargin) {
		case domain.BucketUpcoming, domain.BucketLive:
			feed = append(feed, e)
		}
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].StartTime.Before(feed[j].StartTime)
	})

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//airstream//event feed//EN")

	for _, e := range feed {
		ev := cal.AddEvent(e.Slug + "@airstream")
		ev.SetDtStampTime(now)
		ev.SetStartAt(e.StartTime)
		if e.ArchiveTime != nil {
			ev.SetEndAt(*e.ArchiveTime)
		} else {
			ev.SetEndAt(e.StartTime.Add(defaultEventLength))
		}
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.LocationID != nil {
			if loc, err := s.locationRepo.GetByID(ctx, *e.LocationID); err == nil {
				ev.SetLocation(loc.Name)
			}
		}
	}
	return cal.Serialize(), nil
}
