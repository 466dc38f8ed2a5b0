package controllers

import (
	"log/slog"
	"net/http"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

const defaultAutocompleteLimit = 5

type ParticipantController struct {
	Logger       *slog.Logger
	Participants domain.ParticipantService
	Users        domain.UserService
}

func NewParticipantController(logger *slog.Logger, participants domain.ParticipantService, users domain.UserService) *ParticipantController {
	return &ParticipantController{Logger: logger, Participants: participants, Users: users}
}

// ParticipantRequest is the request body for creating or editing a
// participant profile. Slug and clear token are never writable here.
type ParticipantRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Team       string `json:"team"`
	TopicURL   string `json:"topic_url"`
	Role       string `json:"role"`
	Cleared    string `json:"cleared"`
}

// Validate implements Validator.
func (p ParticipantRequest) Validate() []string {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "name is required")
	}
	if p.Email != "" && !emailRegex.MatchString(p.Email) {
		errs = append(errs, "email must be a valid address")
	}
	switch p.Cleared {
	case "", string(domain.ClearedYes), string(domain.ClearedNo), string(domain.ClearedPending):
	default:
		errs = append(errs, "cleared must be yes, no, or pending")
	}
	return errs
}

func (p ParticipantRequest) toDomain() *domain.Participant {
	return &domain.Participant{
		Name:       p.Name,
		Email:      p.Email,
		Department: p.Department,
		Team:       p.Team,
		TopicURL:   p.TopicURL,
		Role:       p.Role,
		Cleared:    domain.ClearedStatus(p.Cleared),
	}
}

// CreateParticipant godoc
// @Summary Create a participant profile
// @Description Creates a speaker profile. The slug is generated from the name and clearance defaults to "no".
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param participant body ParticipantRequest true "Participant data"
// @Success 201 {object} helpers.APIResponse "data contains the created participant"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /manage/participants [post]
func (c *ParticipantController) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var body ParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	participant := body.toDomain()
	if err := c.Participants.CreateParticipant(r.Context(), actor, participant); err != nil {
		c.Logger.ErrorContext(r.Context(), "creating participant", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, participant)
}

// UpdateParticipant godoc
// @Summary Update a participant profile
// @Description Updates the profile fields. Slug and clear token are preserved from the stored record.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param participantID path string true "Participant ID"
// @Param participant body ParticipantRequest true "Participant data"
// @Success 200 {object} helpers.APIResponse "data contains the updated participant"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/participants/{participantID} [put]
func (c *ParticipantController) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participantID")
	var body ParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	participant := body.toDomain()
	participant.ID = participantID
	if err := c.Participants.UpdateParticipant(r.Context(), actor, participant); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participant)
}

// DeleteParticipant godoc
// @Summary Delete a participant profile
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param participantID path string true "Participant ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/participants/{participantID} [delete]
func (c *ParticipantController) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participantID")
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	if err := c.Participants.DeleteParticipant(r.Context(), actor, participantID); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": participantID})
}

// ParticipantListResponse is a paginated participant list.
type ParticipantListResponse struct {
	Participants []*domain.Participant  `json:"participants"`
	Pagination   helpers.PaginationMeta `json:"pagination"`
}

// SearchParticipants godoc
// @Summary Search participants by name
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name substring"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains participants and pagination"
// @Router /manage/participants [get]
func (c *ParticipantController) SearchParticipants(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	params := helpers.ParsePagination(r)
	participants, total, err := c.Participants.SearchParticipants(r.Context(), r.URL.Query().Get("q"), params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "searching participants", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ParticipantListResponse{
		Participants: participants,
		Pagination:   helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Autocomplete godoc
// @Summary Autocomplete participant names
// @Description Returns names containing a word that starts with the query, for the event form's participant picker.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param q query string true "Name prefix"
// @Param limit query int false "Maximum results (default 5)"
// @Success 200 {object} helpers.APIResponse "data contains matching names"
// @Router /manage/participants/autocomplete [get]
func (c *ParticipantController) Autocomplete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	limit := defaultAutocompleteLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := parsePositiveInt(s); err == nil {
			limit = v
		}
	}
	names, err := c.Participants.Autocomplete(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, names)
}

// SendProfileEmail godoc
// @Summary Email a participant their profile confirmation link
// @Description Sends the participant a message with their tokenized clearance link, issuing a token if they have none yet. Replies go to the acting user.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param participantID path string true "Participant ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "participant has no email address"
// @Router /manage/participants/{participantID}/email [post]
func (c *ParticipantController) SendProfileEmail(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participantID")
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	if err := c.Participants.SendProfileEmail(r.Context(), actor, participantID); err != nil {
		c.Logger.ErrorContext(r.Context(), "sending profile email", "participant_id", participantID, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"sent": participantID})
}

// ClearRequest is the request body for the self-service clearance page.
type ClearRequest struct {
	Cleared string `json:"cleared"`
}

// Validate implements Validator.
func (c ClearRequest) Validate() []string {
	switch c.Cleared {
	case string(domain.ClearedYes), string(domain.ClearedNo):
		return nil
	}
	return []string{"cleared must be yes or no"}
}

// ClearByToken godoc
// @Summary Record a participant's clearance decision
// @Description Resolves the participant owning the token and records their decision. The token is single use; it is consumed whether they confirm or decline. No authentication.
// @Tags participants
// @Accept json
// @Produce json
// @Param token path string true "Clear token"
// @Param decision body ClearRequest true "Decision"
// @Success 200 {object} helpers.APIResponse "data contains the participant"
// @Failure 404 {object} helpers.APIResponse "unknown or already used token"
// @Router /participants/clear/{token} [post]
func (c *ParticipantController) ClearByToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	var body ClearRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	participant, err := c.Participants.ClearByToken(r.Context(), token, domain.ClearedStatus(body.Cleared))
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participant)
}
