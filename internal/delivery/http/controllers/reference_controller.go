package controllers

import (
	"log/slog"
	"net/http"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

type ReferenceController struct {
	Logger    *slog.Logger
	Reference domain.ReferenceService
	Users     domain.UserService
}

func NewReferenceController(logger *slog.Logger, reference domain.ReferenceService, users domain.UserService) *ReferenceController {
	return &ReferenceController{Logger: logger, Reference: reference, Users: users}
}

// NameRequest is the request body for name-only reference entities.
type NameRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (n NameRequest) Validate() []string {
	if n.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

// TemplateRequest is the request body for templates.
type TemplateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Validate implements Validator.
func (t TemplateRequest) Validate() []string {
	if t.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

// LocationRequest is the request body for locations.
type LocationRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Validate implements Validator.
func (l LocationRequest) Validate() []string {
	var errs []string
	if l.Name == "" {
		errs = append(errs, "name is required")
	}
	if l.Timezone == "" {
		errs = append(errs, "timezone is required")
	}
	return errs
}

// ListCategories godoc
// @Summary List categories
// @Tags reference
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /categories [get]
func (c *ReferenceController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.Reference.ListCategories(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing categories", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, categories)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body NameRequest true "Category data"
// @Success 201 {object} helpers.APIResponse
// @Router /manage/categories [post]
func (c *ReferenceController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body NameRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	category := &domain.Category{Name: body.Name}
	if err := c.Reference.CreateCategory(r.Context(), actor, category); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param categoryID path string true "Category ID"
// @Param category body NameRequest true "Category data"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/categories/{categoryID} [put]
func (c *ReferenceController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body NameRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	category := &domain.Category{ID: r.PathValue("categoryID"), Name: body.Name}
	if err := c.Reference.UpdateCategory(r.Context(), actor, category); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Deletes the category. Events referencing it keep existing with the reference cleared.
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Param categoryID path string true "Category ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/categories/{categoryID} [delete]
func (c *ReferenceController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	id := r.PathValue("categoryID")
	if err := c.Reference.DeleteCategory(r.Context(), actor, id); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListTemplates godoc
// @Summary List templates
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Router /manage/templates [get]
func (c *ReferenceController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	templates, err := c.Reference.ListTemplates(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing templates", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, templates)
}

// CreateTemplate godoc
// @Summary Create a template
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body TemplateRequest true "Template data"
// @Success 201 {object} helpers.APIResponse
// @Router /manage/templates [post]
func (c *ReferenceController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	template := &domain.Template{Name: body.Name, Content: body.Content}
	if err := c.Reference.CreateTemplate(r.Context(), actor, template); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, template)
}

// UpdateTemplate godoc
// @Summary Update a template
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Param template body TemplateRequest true "Template data"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/templates/{templateID} [put]
func (c *ReferenceController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	template := &domain.Template{ID: r.PathValue("templateID"), Name: body.Name, Content: body.Content}
	if err := c.Reference.UpdateTemplate(r.Context(), actor, template); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, template)
}

// DeleteTemplate godoc
// @Summary Delete a template
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/templates/{templateID} [delete]
func (c *ReferenceController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	id := r.PathValue("templateID")
	if err := c.Reference.DeleteTemplate(r.Context(), actor, id); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListLocations godoc
// @Summary List locations
// @Tags reference
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /locations [get]
func (c *ReferenceController) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := c.Reference.ListLocations(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing locations", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, locations)
}

// CreateLocation godoc
// @Summary Create a location
// @Description Creates a venue. The timezone must be a valid IANA zone name.
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param location body LocationRequest true "Location data"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "unknown timezone"
// @Router /manage/locations [post]
func (c *ReferenceController) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var body LocationRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	location := &domain.Location{Name: body.Name, Timezone: body.Timezone}
	if err := c.Reference.CreateLocation(r.Context(), actor, location); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, location)
}

// UpdateLocation godoc
// @Summary Update a location
// @Tags reference
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param locationID path string true "Location ID"
// @Param location body LocationRequest true "Location data"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/locations/{locationID} [put]
func (c *ReferenceController) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var body LocationRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	location := &domain.Location{ID: r.PathValue("locationID"), Name: body.Name, Timezone: body.Timezone}
	if err := c.Reference.UpdateLocation(r.Context(), actor, location); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, location)
}

// DeleteLocation godoc
// @Summary Delete a location
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Param locationID path string true "Location ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/locations/{locationID} [delete]
func (c *ReferenceController) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	id := r.PathValue("locationID")
	if err := c.Reference.DeleteLocation(r.Context(), actor, id); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

// LookupTimezone godoc
// @Summary Look up a location's timezone
// @Description Returns the location's IANA timezone name, used to pre-fill the timezone field when a location is picked on the event form.
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Param locationID path string true "Location ID"
// @Success 200 {object} helpers.APIResponse "data contains {timezone}"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/locations/{locationID}/timezone [get]
func (c *ReferenceController) LookupTimezone(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	lookup, err := c.Reference.LookupTimezone(r.Context(), r.PathValue("locationID"))
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, lookup)
}

// AutocompleteTags godoc
// @Summary Autocomplete tag names
// @Description Returns tag names starting with the query. The query itself comes first so a new tag can be created verbatim from the form.
// @Tags reference
// @Produce json
// @Security BearerAuth
// @Param q query string true "Tag prefix"
// @Param limit query int false "Maximum results (default 5)"
// @Success 200 {object} helpers.APIResponse "data contains tag names"
// @Router /manage/tags/autocomplete [get]
func (c *ReferenceController) AutocompleteTags(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	limit := defaultAutocompleteLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := parsePositiveInt(s); err == nil {
			limit = v
		}
	}
	names, err := c.Reference.AutocompleteTags(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, names)
}
