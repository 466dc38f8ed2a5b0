package controllers

import (
	"log/slog"
	"net/http"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

type UserController struct {
	Logger *slog.Logger
	Users  domain.UserService
}

func NewUserController(logger *slog.Logger, users domain.UserService) *UserController {
	return &UserController{Logger: logger, Users: users}
}

// UserListResponse is a paginated user list.
type UserListResponse struct {
	Users      []*domain.User         `json:"users"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} helpers.APIResponse "data contains users and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /manage/users [get]
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	users, total, err := c.Users.ListUsers(r.Context(), actor, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing users", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UserListResponse{
		Users:      users,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// UserUpdateRequest is the request body for updating a user account.
type UserUpdateRequest struct {
	Name        string   `json:"name"`
	IsActive    bool     `json:"is_active"`
	IsSuperuser bool     `json:"is_superuser"`
	Roles       []string `json:"roles"`
	GroupIDs    []string `json:"group_ids"`
}

// Validate implements Validator.
func (u UserUpdateRequest) Validate() []string {
	for _, role := range u.Roles {
		switch role {
		case domain.RoleAdmin, domain.RoleProducer, domain.RoleStaff:
		default:
			return []string{"unknown role: " + role}
		}
	}
	return nil
}

// UpdateUser godoc
// @Summary Update a user account
// @Description Updates the user's name, active flag, roles, and group memberships.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param user body UserUpdateRequest true "User data"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/users/{userID} [put]
func (c *UserController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var body UserUpdateRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	user := &domain.User{
		ID:          r.PathValue("userID"),
		Name:        body.Name,
		IsActive:    body.IsActive,
		IsSuperuser: body.IsSuperuser,
		Roles:       body.Roles,
		GroupIDs:    body.GroupIDs,
	}
	if err := c.Users.UpdateUser(r.Context(), actor, user); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// ListGroups godoc
// @Summary List reviewing groups
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Router /manage/groups [get]
func (c *UserController) ListGroups(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r, c.Users); !ok {
		return
	}
	groups, err := c.Users.ListGroups(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing groups", "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, groups)
}

// CreateGroup godoc
// @Summary Create a reviewing group
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param group body NameRequest true "Group data"
// @Success 201 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /manage/groups [post]
func (c *UserController) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var body NameRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	group := &domain.Group{Name: body.Name}
	if err := c.Users.CreateGroup(r.Context(), actor, group); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, group)
}

// UpdateGroup godoc
// @Summary Rename a reviewing group
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Param group body NameRequest true "Group data"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/groups/{groupID} [put]
func (c *UserController) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var body NameRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	group := &domain.Group{ID: r.PathValue("groupID"), Name: body.Name}
	if err := c.Users.UpdateGroup(r.Context(), actor, group); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, group)
}

// DeleteGroup godoc
// @Summary Delete a reviewing group
// @Description Deletes the group. Approvals pointing at it survive with the group reference cleared.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param groupID path string true "Group ID"
// @Success 200 {object} helpers.APIResponse
// @Router /manage/groups/{groupID} [delete]
func (c *UserController) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	id := r.PathValue("groupID")
	if err := c.Users.DeleteGroup(r.Context(), actor, id); err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}
