package controllers

import (
	"log/slog"
	"net/http"

	"airstream/internal/delivery/http/helpers"
	"airstream/internal/domain"
)

type ApprovalController struct {
	Logger    *slog.Logger
	Approvals domain.ApprovalService
	Users     domain.UserService
}

func NewApprovalController(logger *slog.Logger, approvals domain.ApprovalService, users domain.UserService) *ApprovalController {
	return &ApprovalController{Logger: logger, Approvals: approvals, Users: users}
}

// ReviewQueueResponse is the reviewer's work queue: open approvals for
// their groups plus their groups' recent decisions.
type ReviewQueueResponse struct {
	Pending []*domain.Approval `json:"pending"`
	Recent  []*domain.Approval `json:"recent"`
}

// ListQueue godoc
// @Summary List the reviewer's approval queue
// @Description Returns pending approvals for the groups the authenticated user belongs to, plus recently processed ones for context.
// @Tags approvals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains pending and recent approvals"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /manage/approvals [get]
func (c *ApprovalController) ListQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	pending, err := c.Approvals.PendingForReviewer(r.Context(), actor)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing pending approvals", "user_id", actor.ID, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	recent, err := c.Approvals.RecentForReviewer(r.Context(), actor)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "listing recent approvals", "user_id", actor.ID, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ReviewQueueResponse{Pending: pending, Recent: recent})
}

// DecisionRequest is the request body for recording an approval decision.
type DecisionRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

// Validate implements Validator.
func (d DecisionRequest) Validate() []string { return nil }

// RecordDecision godoc
// @Summary Record an approval decision
// @Description Marks the approval processed with the reviewer's verdict and comment. The reviewer must belong to the approval's group.
// @Tags approvals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param approvalID path string true "Approval ID"
// @Param decision body DecisionRequest true "Verdict"
// @Success 200 {object} helpers.APIResponse "data contains the processed approval"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/approvals/{approvalID} [post]
func (c *ApprovalController) RecordDecision(w http.ResponseWriter, r *http.Request) {
	approvalID := r.PathValue("approvalID")
	if approvalID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing approvalID")
		return
	}
	var body DecisionRequest
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	actor, ok := requireActor(w, r, c.Users)
	if !ok {
		return
	}
	approval, err := c.Approvals.RecordDecision(r.Context(), actor, approvalID, body.Approved, body.Comment)
	if err != nil {
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, approval)
}
