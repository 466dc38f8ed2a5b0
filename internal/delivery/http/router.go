package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"airstream/internal/delivery/http/controllers"
	"airstream/internal/delivery/http/middleware"
	"airstream/internal/domain"
)

// Controllers bundles the route handlers wired by NewRouter.
type Controllers struct {
	Auth         *controllers.AuthController
	Events       *controllers.EventController
	Approvals    *controllers.ApprovalController
	Participants *controllers.ParticipantController
	Reference    *controllers.ReferenceController
	Calendar     *controllers.CalendarController
	Users        *controllers.UserController
}

// NewRouter initializes the HTTP router with all application routes.
// Routes under /manage require a Bearer token; the rest are public.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Public surface
	mux.HandleFunc("GET /events", c.Events.ListUpcoming)
	mux.HandleFunc("GET /events/featured", c.Events.ListFeatured)
	mux.HandleFunc("GET /events/{slug}", c.Events.GetBySlug)
	mux.HandleFunc("GET /categories", c.Reference.ListCategories)
	mux.HandleFunc("GET /locations", c.Reference.ListLocations)
	mux.HandleFunc("GET /calendar.ics", c.Calendar.PublicFeed)
	mux.HandleFunc("POST /participants/clear/{token}", c.Participants.ClearByToken)

	// Event management
	mux.HandleFunc("GET /manage/events", auth(c.Events.ListBuckets))
	mux.HandleFunc("POST /manage/events", auth(c.Events.RequestEvent))
	mux.HandleFunc("GET /manage/events/search", auth(c.Events.SearchEvents))
	mux.HandleFunc("PUT /manage/events/{eventID}", auth(c.Events.EditEvent))
	mux.HandleFunc("DELETE /manage/events/{eventID}", auth(c.Events.DeleteEvent))
	mux.HandleFunc("POST /manage/events/{eventID}/archive", auth(c.Events.ArchiveEvent))

	// Approvals
	mux.HandleFunc("GET /manage/approvals", auth(c.Approvals.ListQueue))
	mux.HandleFunc("POST /manage/approvals/{approvalID}", auth(c.Approvals.RecordDecision))

	// Participants
	mux.HandleFunc("GET /manage/participants", auth(c.Participants.SearchParticipants))
	mux.HandleFunc("POST /manage/participants", auth(c.Participants.CreateParticipant))
	mux.HandleFunc("GET /manage/participants/autocomplete", auth(c.Participants.Autocomplete))
	mux.HandleFunc("PUT /manage/participants/{participantID}", auth(c.Participants.UpdateParticipant))
	mux.HandleFunc("DELETE /manage/participants/{participantID}", auth(c.Participants.DeleteParticipant))
	mux.HandleFunc("POST /manage/participants/{participantID}/email", auth(c.Participants.SendProfileEmail))

	// Reference entities
	mux.HandleFunc("POST /manage/categories", auth(c.Reference.CreateCategory))
	mux.HandleFunc("PUT /manage/categories/{categoryID}", auth(c.Reference.UpdateCategory))
	mux.HandleFunc("DELETE /manage/categories/{categoryID}", auth(c.Reference.DeleteCategory))
	mux.HandleFunc("GET /manage/templates", auth(c.Reference.ListTemplates))
	mux.HandleFunc("POST /manage/templates", auth(c.Reference.CreateTemplate))
	mux.HandleFunc("PUT /manage/templates/{templateID}", auth(c.Reference.UpdateTemplate))
	mux.HandleFunc("DELETE /manage/templates/{templateID}", auth(c.Reference.DeleteTemplate))
	mux.HandleFunc("POST /manage/locations", auth(c.Reference.CreateLocation))
	mux.HandleFunc("PUT /manage/locations/{locationID}", auth(c.Reference.UpdateLocation))
	mux.HandleFunc("DELETE /manage/locations/{locationID}", auth(c.Reference.DeleteLocation))
	mux.HandleFunc("GET /manage/locations/{locationID}/timezone", auth(c.Reference.LookupTimezone))
	mux.HandleFunc("GET /manage/tags/autocomplete", auth(c.Reference.AutocompleteTags))

	// Calendar
	mux.HandleFunc("GET /manage/calendar.ics", auth(c.Calendar.FullFeed))

	// User administration
	mux.HandleFunc("GET /manage/users", auth(c.Users.ListUsers))
	mux.HandleFunc("PUT /manage/users/{userID}", auth(c.Users.UpdateUser))
	mux.HandleFunc("GET /manage/groups", auth(c.Users.ListGroups))
	mux.HandleFunc("POST /manage/groups", auth(c.Users.CreateGroup))
	mux.HandleFunc("PUT /manage/groups/{groupID}", auth(c.Users.UpdateGroup))
	mux.HandleFunc("DELETE /manage/groups/{groupID}", auth(c.Users.DeleteGroup))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
