package controllers

import (
	"log/slog"
	"net/http"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

type CalendarController struct {
	Logger   *slog.Logger
	Calendar domain.CalendarService
	Users    domain.UserService
}

func NewCalendarController(logger *slog.Logger, calendar domain.CalendarService, users domain.UserService) *CalendarController {
	return &CalendarController{Logger: logger, Calendar: calendar, Users: users}
}

func (c *CalendarController) serveFeed(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	feed, err := c.Calendar.BuildFeed(r.Context(), publicOnly)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "building calendar feed", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed))
}

// PublicFeed godoc
// @Summary Public iCalendar feed
// @Description Serves upcoming and live public events as an iCalendar document for calendar subscriptions.
// @Tags calendar
// @Produce plain
// @Success 200 {string} string "text/calendar document"
// @Router /calendar.ics [get]
func (c *CalendarController) PublicFeed(w http.ResponseWriter, r *http.Request) {
	c.serveFeed(w, r, true)
}

// FullFeed godoc
// @Summary Full iCalendar feed
// @Description Serves upcoming and live events, including non-public ones, for authenticated staff.
// @Tags calendar
// @Produce plain
// @Security BearerAuth
// @Success 200 {string} string "text/calendar document"
// @Router /manage/calendar.ics [get]
func (c *CalendarController) FullFeed(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	c.serveFeed(w, r, false)
}
